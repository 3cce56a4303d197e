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

package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"
)

// runCommand runs a subcommand under a throwaway root, the way Execute
// would, without touching the global logger.
func runCommand(t *testing.T, cmd *cli.Command, args ...string) error {
	t.Helper()
	root := &cli.Command{
		Name:     "test",
		Commands: []*cli.Command{cmd},
	}
	return root.Run(context.Background(), append([]string{"test"}, args...))
}

func TestRenderYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifests.yaml")

	if err := runCommand(t, renderCmd(), "render", "--output", path); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	out := string(raw)

	docs := strings.Split(out, "\n---\n")
	if len(docs) != 3 {
		t.Fatalf("expected 3 yaml documents, got %d", len(docs))
	}

	for _, want := range []string{
		"kind: Deployment",
		"kind: Service",
		"kind: Ingress",
		"k8s-app: apiserver",
		"apiserver-service",
		"imagePullPolicy: Always",
		"nginx.ingress.kubernetes.io/rewrite-target: /$2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered output missing %q", want)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifests.json")

	if err := runCommand(t, renderCmd(), "render", "--format", "json", "--output", path); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	var objects []map[string]any
	if err := json.Unmarshal(raw, &objects); err != nil {
		t.Fatalf("output is not a json array: %v", err)
	}
	if len(objects) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(objects))
	}

	kinds := make([]string, 0, len(objects))
	for _, obj := range objects {
		kind, _ := obj["kind"].(string)
		kinds = append(kinds, kind)
	}
	want := []string{"Deployment", "Service", "Ingress"}
	for i, kind := range want {
		if kinds[i] != kind {
			t.Errorf("object %d kind = %q, want %q", i, kinds[i], kind)
		}
	}
}

func TestRenderRejectsTableFormat(t *testing.T) {
	err := runCommand(t, renderCmd(), "render", "--format", "table")
	if err == nil {
		t.Fatal("render --format table should return error")
	}
	if !strings.Contains(err.Error(), "table") {
		t.Errorf("error = %v, want mention of table", err)
	}
}

func TestBuildRequiresSource(t *testing.T) {
	if err := runCommand(t, buildCmd(), "build", "--app-file", "apiserver.py"); err == nil {
		t.Error("build without --source should return error")
	}
}
