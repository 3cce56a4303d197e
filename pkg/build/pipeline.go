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
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/distribution/reference"
	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/apigate/apigate/pkg/defaults"
	apperrors "github.com/apigate/apigate/pkg/errors"
	"github.com/apigate/apigate/pkg/manifest"
	"github.com/apigate/apigate/pkg/oci"
)

const (
	// depsLayerName is the image filesystem directory the resolved
	// dependency environment occupies.
	depsLayerName = "deps"
	// appLayerName is the image filesystem directory the application
	// files occupy.
	appLayerName = "app"
)

// DefaultRequirementsFile is the dependency manifest consulted when the
// caller does not name one.
const DefaultRequirementsFile = "requirements.txt"

// Pipeline runs the two-stage build.
//
// Thread-safety: Pipeline is safe for concurrent use.
type Pipeline struct {
	resolver Resolver
}

// Option defines a functional option for configuring a Pipeline.
type Option func(*Pipeline)

// WithResolver sets the stage-1 dependency resolver.
func WithResolver(r Resolver) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.resolver = r
		}
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		resolver: NewPipResolver(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Options configures a single build run.
type Options struct {
	// SourceDir holds the application sources and the requirements file.
	SourceDir string
	// RequirementsFile names the dependency manifest, relative to
	// SourceDir. Defaults to DefaultRequirementsFile.
	RequirementsFile string
	// AppFiles lists exactly the application files copied into the runtime
	// image, relative to SourceDir. At least one is required.
	AppFiles []string
	// OutputDir is where the local OCI layout store is created.
	OutputDir string
	// Push publishes the packaged image to the registry named by the
	// artifact reference.
	Push bool
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
	// CreatedAt sets a fixed creation timestamp (RFC 3339) for
	// reproducible manifests.
	CreatedAt string
}

// Result summarizes a completed build.
type Result struct {
	// Reference is the full image reference (registry/repository:tag).
	Reference string `json:"reference" yaml:"reference"`
	// Digest is the manifest digest of the built image.
	Digest string `json:"digest" yaml:"digest"`
	// StorePath is the local OCI layout directory holding the image.
	StorePath string `json:"storePath" yaml:"storePath"`
	// LayerDigests are the digests of the dependency and application
	// layers, in order.
	LayerDigests []string `json:"layerDigests" yaml:"layerDigests"`
	// Pushed reports whether the image was published to the registry.
	Pushed bool `json:"pushed" yaml:"pushed"`
	// Duration is the wall-clock build time.
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Build runs both stages and packages the result as an OCI image described
// by the artifact. Stage-1 failure is fatal: no artifact is produced.
func (p *Pipeline) Build(ctx context.Context, artifact manifest.ImageArtifact, opts Options) (*Result, error) {
	start := time.Now()

	registry, repository, tag, err := splitReference(artifact.Reference)
	if err != nil {
		return nil, err
	}

	if len(opts.AppFiles) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidRequest,
			"at least one application file is required")
	}

	requirementsFile := opts.RequirementsFile
	if requirementsFile == "" {
		requirementsFile = DefaultRequirementsFile
	}

	buildRoot, err := os.MkdirTemp("", "apigate-build-*")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal,
			"failed to create build directory", err)
	}
	defer os.RemoveAll(buildRoot)

	// Stage 1: dependency resolution into an isolated environment
	envDir := filepath.Join(buildRoot, depsLayerName)
	if err := os.MkdirAll(envDir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal,
			"failed to create environment directory", err)
	}

	slog.Info("build stage 1: resolving dependencies",
		"requirements", requirementsFile,
	)

	stageCtx, cancel := context.WithTimeout(ctx, defaults.BuildTimeout)
	defer cancel()

	if err := p.resolver.Resolve(stageCtx, filepath.Join(opts.SourceDir, requirementsFile), envDir); err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrCodeBuildFailed {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeBuildFailed,
			"dependency resolution failed", err)
	}

	// Stage 2: runtime assembly, application files only
	appDir := filepath.Join(buildRoot, appLayerName)
	if err := copyAppFiles(opts.SourceDir, appDir, opts.AppFiles); err != nil {
		return nil, err
	}

	slog.Info("build stage 2: runtime assembled",
		"files", len(opts.AppFiles),
	)

	pkgResult, err := oci.Package(ctx, oci.PackageOptions{
		Layers: []oci.Layer{
			{Name: depsLayerName, SourceDir: envDir},
			{Name: appLayerName, SourceDir: appDir},
		},
		OutputDir:   opts.OutputDir,
		Registry:    registry,
		Repository:  repository,
		Tag:         tag,
		ImageConfig: imageConfig(artifact),
		Annotations: map[string]string{
			ociv1.AnnotationRefName: artifact.Reference,
		},
		CreatedAt: opts.CreatedAt,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeBuildFailed,
			"failed to package image", err)
	}

	result := &Result{
		Reference:    pkgResult.Reference,
		Digest:       pkgResult.Digest,
		StorePath:    pkgResult.StorePath,
		LayerDigests: pkgResult.LayerDigests,
	}

	if opts.Push {
		pushCtx, cancelPush := context.WithTimeout(ctx, defaults.PushTimeout)
		defer cancelPush()

		pushResult, err := oci.PushFromStore(pushCtx, pkgResult.StorePath, oci.PushOptions{
			Registry:    registry,
			Repository:  repository,
			Tag:         tag,
			PlainHTTP:   opts.PlainHTTP,
			InsecureTLS: opts.InsecureTLS,
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeBuildFailed,
				"failed to push image", err)
		}
		result.Digest = pushResult.Digest
		result.Pushed = true
	}

	result.Duration = time.Since(start)

	slog.Info("build complete",
		"reference", result.Reference,
		"digest", result.Digest,
		"pushed", result.Pushed,
		"duration", result.Duration.String(),
	)

	return result, nil
}

// imageConfig maps the artifact record to the OCI image config. The exposed
// port is carried verbatim from the record, whether or not it agrees with
// the port the fronting service routes to.
func imageConfig(artifact manifest.ImageArtifact) *ociv1.Image {
	env := make(map[string]string, len(artifact.Env)+2)
	for k, v := range artifact.Env {
		env[k] = v
	}
	// The interpreter must not buffer stdout/stderr inside a container
	if _, ok := env["PYTHONUNBUFFERED"]; !ok {
		env["PYTHONUNBUFFERED"] = "1"
	}
	if _, ok := env["PYTHONPATH"]; !ok {
		env["PYTHONPATH"] = "/" + depsLayerName
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	envList := make([]string, 0, len(keys))
	for _, k := range keys {
		envList = append(envList, fmt.Sprintf("%s=%s", k, env[k]))
	}

	workDir := artifact.WorkDir
	if workDir == "" {
		workDir = "/" + appLayerName
	}

	cfg := &ociv1.Image{
		Platform: ociv1.Platform{
			OS:           "linux",
			Architecture: "amd64",
		},
		Config: ociv1.ImageConfig{
			Env:        envList,
			WorkingDir: workDir,
			Entrypoint: artifact.Entrypoint,
		},
	}

	if artifact.ExposedPort > 0 {
		cfg.Config.ExposedPorts = map[string]struct{}{
			fmt.Sprintf("%d/tcp", artifact.ExposedPort): {},
		}
	}

	return cfg
}

// splitReference breaks a registry/repository:tag reference into its parts.
// The tag is required: builds always produce an addressable image.
func splitReference(ref string) (registry, repository, tag string, err error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return "", "", "", apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"invalid image reference", err, map[string]any{"reference": ref})
	}

	tagged, ok := named.(reference.Tagged)
	if !ok {
		return "", "", "", apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"image reference must include a tag", map[string]any{"reference": ref})
	}

	return reference.Domain(named), reference.Path(named), tagged.Tag(), nil
}

// copyAppFiles copies exactly the listed files from sourceDir into dstDir,
// preserving relative paths. Anything not listed stays out of the image.
func copyAppFiles(sourceDir, dstDir string, files []string) error {
	for _, f := range files {
		clean := filepath.Clean(f)
		if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
			return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
				"application file must be relative to the source directory",
				map[string]any{"file": f})
		}

		src := filepath.Join(sourceDir, clean)
		dst := filepath.Join(dstDir, clean)

		if err := copyFile(src, dst); err != nil {
			return apperrors.WrapWithContext(apperrors.ErrCodeBuildFailed,
				"failed to copy application file", err, map[string]any{"file": f})
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file", src)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
