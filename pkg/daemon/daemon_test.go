// Copyright (c) 2025, the apigate authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/apigate/apigate/pkg/manifest"
)

func TestLoadSpec_Default(t *testing.T) {
	t.Setenv(envSpecPath, "")

	spec, err := loadSpec()
	if err != nil {
		t.Fatalf("loadSpec() error = %v", err)
	}
	if spec.Workload.Name != manifest.SelectorValue {
		t.Errorf("loadSpec() workload = %q, want %q", spec.Workload.Name, manifest.SelectorValue)
	}
}

func TestLoadSpec_FromFile(t *testing.T) {
	custom := manifest.DefaultStack()
	custom.Workload.Replicas = 2

	raw, err := yaml.Marshal(custom)
	if err != nil {
		t.Fatalf("failed to marshal spec: %v", err)
	}
	path := filepath.Join(t.TempDir(), "stack.yaml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to write spec file: %v", err)
	}
	t.Setenv(envSpecPath, path)

	spec, err := loadSpec()
	if err != nil {
		t.Fatalf("loadSpec() error = %v", err)
	}
	if spec.Workload.Replicas != 2 {
		t.Errorf("loadSpec() replicas = %d, want 2", spec.Workload.Replicas)
	}
}

func TestLoadSpec_MissingFile(t *testing.T) {
	t.Setenv(envSpecPath, "/nonexistent/stack.yaml")

	if _, err := loadSpec(); err == nil {
		t.Error("loadSpec() with missing file should return error")
	}
}

func TestLoadSpec_InvalidSpec(t *testing.T) {
	invalid := manifest.DefaultStack()
	invalid.Service.Port = 0

	raw, err := yaml.Marshal(invalid)
	if err != nil {
		t.Fatalf("failed to marshal spec: %v", err)
	}
	path := filepath.Join(t.TempDir(), "stack.yaml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to write spec file: %v", err)
	}
	t.Setenv(envSpecPath, path)

	if _, err := loadSpec(); err == nil {
		t.Error("loadSpec() with invalid spec should return error")
	}
}
