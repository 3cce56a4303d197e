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

package oci

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opencontainers/go-digest"
	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

func writeLayerDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for path, content := range files {
		fullPath := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
	}
	return dir
}

func readBlob(t *testing.T, storePath, dgst string) []byte {
	t.Helper()
	blobPath := filepath.Join(storePath, "blobs", "sha256", strings.TrimPrefix(dgst, "sha256:"))
	data, err := os.ReadFile(blobPath)
	if err != nil {
		t.Fatalf("Failed to read blob %s: %v", dgst, err)
	}
	return data
}

func TestPackageValidation(t *testing.T) {
	ctx := context.Background()
	layer := Layer{Name: "app", SourceDir: t.TempDir()}

	_, err := Package(ctx, PackageOptions{
		Layers:     []Layer{layer},
		OutputDir:  t.TempDir(),
		Registry:   "ghcr.io",
		Repository: "test/repo",
		Tag:        "",
	})
	if err == nil || err.Error() != "tag is required for OCI packaging" {
		t.Errorf("Package() expected tag error, got: %v", err)
	}

	_, err = Package(ctx, PackageOptions{
		Layers:     []Layer{layer},
		OutputDir:  t.TempDir(),
		Registry:   "",
		Repository: "test/repo",
		Tag:        "v1.0.0",
	})
	if err == nil || err.Error() != "registry is required for OCI packaging" {
		t.Errorf("Package() expected registry error, got: %v", err)
	}

	_, err = Package(ctx, PackageOptions{
		Layers:     []Layer{layer},
		OutputDir:  t.TempDir(),
		Registry:   "ghcr.io",
		Repository: "",
		Tag:        "v1.0.0",
	})
	if err == nil || err.Error() != "repository is required for OCI packaging" {
		t.Errorf("Package() expected repository error, got: %v", err)
	}

	_, err = Package(ctx, PackageOptions{
		OutputDir:  t.TempDir(),
		Registry:   "ghcr.io",
		Repository: "test/repo",
		Tag:        "v1.0.0",
	})
	if err == nil {
		t.Error("Package() expected error for missing layers, got nil")
	}
}

func TestPackageCreatesOCILayout(t *testing.T) {
	ctx := context.Background()

	sourceDir := writeLayerDir(t, map[string]string{"apiserver.py": "print('ok')"})
	outputDir := t.TempDir()

	result, err := Package(ctx, PackageOptions{
		Layers:     []Layer{{Name: "app", SourceDir: sourceDir}},
		OutputDir:  outputDir,
		Registry:   "ghcr.io",
		Repository: "test/repo",
		Tag:        "v1.0.0",
	})
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}

	if _, err := digest.Parse(result.Digest); err != nil {
		t.Errorf("Package() result digest %q is not a valid digest: %v", result.Digest, err)
	}
	if result.Reference != "ghcr.io/test/repo:v1.0.0" {
		t.Errorf("Package() reference = %q, want %q", result.Reference, "ghcr.io/test/repo:v1.0.0")
	}
	if len(result.LayerDigests) != 1 {
		t.Fatalf("Package() has %d layer digests, want 1", len(result.LayerDigests))
	}
	if _, err := digest.Parse(result.LayerDigests[0]); err != nil {
		t.Errorf("Package() layer digest %q is not a valid digest: %v", result.LayerDigests[0], err)
	}

	for _, name := range []string{"oci-layout", "index.json"} {
		if _, err := os.Stat(filepath.Join(result.StorePath, name)); os.IsNotExist(err) {
			t.Errorf("Package() did not create %s in %s", name, result.StorePath)
		}
	}
}

func TestPackageWithImageConfig(t *testing.T) {
	ctx := context.Background()

	depsDir := writeLayerDir(t, map[string]string{"fastapi/__init__.py": ""})
	appDir := writeLayerDir(t, map[string]string{"apiserver.py": "print('ok')"})

	imgConfig := &ociv1.Image{
		Config: ociv1.ImageConfig{
			Env:          []string{"PYTHONUNBUFFERED=1"},
			WorkingDir:   "/app",
			ExposedPorts: map[string]struct{}{"8000/tcp": {}},
			Entrypoint:   []string{"python", "apiserver.py"},
		},
	}

	result, err := Package(ctx, PackageOptions{
		Layers: []Layer{
			{Name: "deps", SourceDir: depsDir},
			{Name: "app", SourceDir: appDir},
		},
		OutputDir:   t.TempDir(),
		Registry:    "localhost:5000",
		Repository:  "test/apiserver",
		Tag:         "v1.0.0",
		ImageConfig: imgConfig,
	})
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}

	var manifest ociv1.Manifest
	if err := json.Unmarshal(readBlob(t, result.StorePath, result.Digest), &manifest); err != nil {
		t.Fatalf("Failed to unmarshal manifest: %v", err)
	}

	if manifest.Config.MediaType != ociv1.MediaTypeImageConfig {
		t.Errorf("Config MediaType = %q, want %q", manifest.Config.MediaType, ociv1.MediaTypeImageConfig)
	}
	if len(manifest.Layers) != 2 {
		t.Fatalf("Manifest has %d layers, want 2", len(manifest.Layers))
	}
	for i, layer := range manifest.Layers {
		if layer.Digest.String() != result.LayerDigests[i] {
			t.Errorf("Layer %d digest = %s, want %s", i, layer.Digest, result.LayerDigests[i])
		}
	}

	var img ociv1.Image
	if err := json.Unmarshal(readBlob(t, result.StorePath, manifest.Config.Digest.String()), &img); err != nil {
		t.Fatalf("Failed to unmarshal image config: %v", err)
	}
	if len(img.Config.Env) != 1 || img.Config.Env[0] != "PYTHONUNBUFFERED=1" {
		t.Errorf("Config Env = %v", img.Config.Env)
	}
	if img.Config.WorkingDir != "/app" {
		t.Errorf("Config WorkingDir = %q, want %q", img.Config.WorkingDir, "/app")
	}
	if _, ok := img.Config.ExposedPorts["8000/tcp"]; !ok {
		t.Errorf("Config ExposedPorts = %v, missing 8000/tcp", img.Config.ExposedPorts)
	}
	if len(img.Config.Entrypoint) != 2 || img.Config.Entrypoint[0] != "python" {
		t.Errorf("Config Entrypoint = %v", img.Config.Entrypoint)
	}
}

func TestPackageArtifactWithoutConfig(t *testing.T) {
	ctx := context.Background()

	sourceDir := writeLayerDir(t, map[string]string{"manifests.yaml": "kind: Deployment"})

	result, err := Package(ctx, PackageOptions{
		Layers:     []Layer{{Name: "manifests", SourceDir: sourceDir}},
		OutputDir:  t.TempDir(),
		Registry:   "ghcr.io",
		Repository: "test/manifests",
		Tag:        "v1.0.0",
	})
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}

	var manifest ociv1.Manifest
	if err := json.Unmarshal(readBlob(t, result.StorePath, result.Digest), &manifest); err != nil {
		t.Fatalf("Failed to unmarshal manifest: %v", err)
	}
	if manifest.ArtifactType != ArtifactType {
		t.Errorf("ArtifactType = %q, want %q", manifest.ArtifactType, ArtifactType)
	}
}

func TestPackageReproducible(t *testing.T) {
	ctx := context.Background()

	sourceDir := writeLayerDir(t, map[string]string{
		"file1.py": "a = 1",
		"file2.py": "b = 2",
		"file3.py": "c = 3",
	})

	var digests []string
	for i := 0; i < 2; i++ {
		result, err := Package(ctx, PackageOptions{
			Layers:     []Layer{{Name: "app", SourceDir: sourceDir}},
			OutputDir:  t.TempDir(),
			Registry:   "ghcr.io",
			Repository: "test/repo",
			Tag:        "repro",
			CreatedAt:  "2000-01-01T00:00:00Z",
		})
		if err != nil {
			t.Fatalf("Iteration %d: Package() error = %v", i, err)
		}
		digests = append(digests, result.Digest)
	}

	if digests[0] != digests[1] {
		t.Errorf("Reproducible packaging produced different digests:\n  run 1: %s\n  run 2: %s", digests[0], digests[1])
	}
}
