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

package build

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/apigate/apigate/pkg/errors"
	"github.com/apigate/apigate/pkg/manifest"
)

// fakeResolver stands in for pip: it writes a fixed dependency tree into
// the environment directory, or fails.
type fakeResolver struct {
	files map[string]string
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, _, envDir string) error {
	if f.err != nil {
		return f.err
	}
	for path, content := range f.files {
		full := filepath.Join(envDir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func testSourceDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"requirements.txt": "fastapi==0.110.0\nredis==5.0.0\n",
		"apiserver.py":     "print('serving')",
		"helpers.py":       "def helper(): pass",
		"Makefile":         "build:\n\ttrue",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func testArtifact() manifest.ImageArtifact {
	return manifest.ImageArtifact{
		Reference:   "registry.local/apiserver:latest",
		Env:         map[string]string{"PYTHONUNBUFFERED": "1"},
		WorkDir:     "/app",
		ExposedPort: 10255,
		Entrypoint:  []string{"python", "apiserver.py"},
	}
}

func resolverFiles() map[string]string {
	return map[string]string{
		"fastapi/__init__.py": "",
		"redis/__init__.py":   "",
	}
}

func TestBuild(t *testing.T) {
	p := New(WithResolver(&fakeResolver{files: resolverFiles()}))

	result, err := p.Build(context.Background(), testArtifact(), Options{
		SourceDir: testSourceDir(t),
		AppFiles:  []string{"apiserver.py", "helpers.py"},
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)

	assert.Equal(t, "registry.local/apiserver:latest", result.Reference)
	assert.True(t, strings.HasPrefix(result.Digest, "sha256:"))
	assert.Len(t, result.LayerDigests, 2)
	assert.False(t, result.Pushed)
	assert.NotZero(t, result.Duration)
}

func TestBuildImageConfig(t *testing.T) {
	p := New(WithResolver(&fakeResolver{files: resolverFiles()}))

	result, err := p.Build(context.Background(), testArtifact(), Options{
		SourceDir: testSourceDir(t),
		AppFiles:  []string{"apiserver.py"},
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)

	manifestData, err := os.ReadFile(filepath.Join(result.StorePath,
		"blobs", "sha256", strings.TrimPrefix(result.Digest, "sha256:")))
	require.NoError(t, err)

	var m ociv1.Manifest
	require.NoError(t, json.Unmarshal(manifestData, &m))
	require.Equal(t, ociv1.MediaTypeImageConfig, m.Config.MediaType)
	require.Len(t, m.Layers, 2)

	configData, err := os.ReadFile(filepath.Join(result.StorePath,
		"blobs", "sha256", strings.TrimPrefix(m.Config.Digest.String(), "sha256:")))
	require.NoError(t, err)

	var img ociv1.Image
	require.NoError(t, json.Unmarshal(configData, &img))

	assert.Contains(t, img.Config.Env, "PYTHONUNBUFFERED=1")
	assert.Contains(t, img.Config.Env, "PYTHONPATH=/deps")
	assert.Equal(t, "/app", img.Config.WorkingDir)
	assert.Equal(t, []string{"python", "apiserver.py"}, img.Config.Entrypoint)

	// The declared exposed port is carried verbatim even though the
	// fronting service routes to a different port.
	assert.Contains(t, img.Config.ExposedPorts, "10255/tcp")
}

func TestBuildStageOneFailureIsFatal(t *testing.T) {
	p := New(WithResolver(&fakeResolver{
		err: apperrors.New(apperrors.ErrCodeBuildFailed, "dependency resolution failed"),
	}))

	outputDir := t.TempDir()
	_, err := p.Build(context.Background(), testArtifact(), Options{
		SourceDir: testSourceDir(t),
		AppFiles:  []string{"apiserver.py"},
		OutputDir: outputDir,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBuildFailed, apperrors.CodeOf(err))

	// No artifact may exist after a stage-1 failure.
	_, statErr := os.Stat(filepath.Join(outputDir, "index.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildWrapsPlainResolverError(t *testing.T) {
	p := New(WithResolver(&fakeResolver{err: os.ErrPermission}))

	_, err := p.Build(context.Background(), testArtifact(), Options{
		SourceDir: testSourceDir(t),
		AppFiles:  []string{"apiserver.py"},
		OutputDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBuildFailed, apperrors.CodeOf(err))
}

func TestBuildRequiresAppFiles(t *testing.T) {
	p := New(WithResolver(&fakeResolver{files: resolverFiles()}))

	_, err := p.Build(context.Background(), testArtifact(), Options{
		SourceDir: testSourceDir(t),
		OutputDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
}

func TestBuildMissingAppFile(t *testing.T) {
	p := New(WithResolver(&fakeResolver{files: resolverFiles()}))

	_, err := p.Build(context.Background(), testArtifact(), Options{
		SourceDir: testSourceDir(t),
		AppFiles:  []string{"nonexistent.py"},
		OutputDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeBuildFailed, apperrors.CodeOf(err))
}

func TestBuildRejectsEscapingAppFile(t *testing.T) {
	p := New(WithResolver(&fakeResolver{files: resolverFiles()}))

	_, err := p.Build(context.Background(), testArtifact(), Options{
		SourceDir: testSourceDir(t),
		AppFiles:  []string{"../etc/passwd"},
		OutputDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
}

func TestBuildRequiresTaggedReference(t *testing.T) {
	p := New(WithResolver(&fakeResolver{files: resolverFiles()}))

	artifact := testArtifact()
	artifact.Reference = "registry.local/apiserver"

	_, err := p.Build(context.Background(), artifact, Options{
		SourceDir: testSourceDir(t),
		AppFiles:  []string{"apiserver.py"},
		OutputDir: t.TempDir(),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, apperrors.CodeOf(err))
}

func TestBuildDeterministic(t *testing.T) {
	sourceDir := testSourceDir(t)

	var digests []string
	for i := 0; i < 2; i++ {
		p := New(WithResolver(&fakeResolver{files: resolverFiles()}))
		result, err := p.Build(context.Background(), testArtifact(), Options{
			SourceDir: sourceDir,
			AppFiles:  []string{"apiserver.py", "helpers.py"},
			OutputDir: t.TempDir(),
			CreatedAt: "2000-01-01T00:00:00Z",
		})
		require.NoError(t, err)
		digests = append(digests, result.Digest)
	}

	assert.Equal(t, digests[0], digests[1], "same inputs must produce the same digest")
}

func TestBuildExcludesUnlistedFiles(t *testing.T) {
	p := New(WithResolver(&fakeResolver{files: resolverFiles()}))

	sourceDir := testSourceDir(t)
	withMakefile, err := p.Build(context.Background(), testArtifact(), Options{
		SourceDir: sourceDir,
		AppFiles:  []string{"apiserver.py", "Makefile"},
		OutputDir: t.TempDir(),
		CreatedAt: "2000-01-01T00:00:00Z",
	})
	require.NoError(t, err)

	withoutMakefile, err := p.Build(context.Background(), testArtifact(), Options{
		SourceDir: sourceDir,
		AppFiles:  []string{"apiserver.py"},
		OutputDir: t.TempDir(),
		CreatedAt: "2000-01-01T00:00:00Z",
	})
	require.NoError(t, err)

	// The app layer only contains listed files, so the digests differ.
	assert.NotEqual(t, withMakefile.Digest, withoutMakefile.Digest)
}
