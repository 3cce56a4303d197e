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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/content/oci"
)

// ArtifactType is the media type used for config-less apigate artifacts.
const ArtifactType = "application/vnd.apigate.artifact"

// Layer describes one image layer to package.
type Layer struct {
	// Name is the top-level directory the layer's contents occupy in the
	// image filesystem (e.g. "deps", "app"). Must be unique per image.
	Name string
	// SourceDir is the local directory packed into the layer.
	SourceDir string
}

// PackageOptions configures local OCI packaging.
type PackageOptions struct {
	// Layers are packed in order; order is significant for image digests.
	Layers []Layer
	// OutputDir is where the OCI Image Layout store is created.
	OutputDir string
	// Registry is the OCI registry host (e.g., "ghcr.io", "localhost:5000").
	Registry string
	// Repository is the image repository path (e.g., "acme/apiserver").
	Repository string
	// Tag is the image tag (e.g., "v1.0.0", "latest").
	Tag string
	// ImageConfig, when set, makes the result a runnable container image:
	// the config (env, working dir, exposed ports, entrypoint) is stored as
	// the manifest's config blob. When nil, an artifact manifest with
	// ArtifactType is produced instead.
	ImageConfig *ociv1.Image
	// Annotations are additional manifest annotations to include.
	Annotations map[string]string
	// CreatedAt sets a fixed org.opencontainers.image.created timestamp
	// (RFC 3339) so the manifest digest is reproducible.
	CreatedAt string
}

// PackageResult contains the result of local packaging.
type PackageResult struct {
	// Digest is the SHA256 digest of the packaged manifest.
	Digest string
	// Reference is the full image reference (registry/repository:tag).
	Reference string
	// StorePath is the path to the local OCI Image Layout directory.
	StorePath string
	// LayerDigests are the digests of the packed layers, in order.
	LayerDigests []string
}

// Package creates an OCI image in a local OCI Image Layout store. Nothing
// leaves the machine; use PushFromStore to publish the result.
func Package(ctx context.Context, opts PackageOptions) (*PackageResult, error) {
	if opts.Tag == "" {
		return nil, fmt.Errorf("tag is required for OCI packaging")
	}
	if opts.Registry == "" {
		return nil, fmt.Errorf("registry is required for OCI packaging")
	}
	if opts.Repository == "" {
		return nil, fmt.Errorf("repository is required for OCI packaging")
	}
	if len(opts.Layers) == 0 {
		return nil, fmt.Errorf("at least one layer is required for OCI packaging")
	}

	registryHost := stripProtocol(opts.Registry)
	if err := ValidateRegistryReference(registryHost, opts.Repository); err != nil {
		return nil, err
	}
	refString := fmt.Sprintf("%s/%s:%s", registryHost, opts.Repository, opts.Tag)

	storePath, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	// The file store needs a working directory for staging tars; it never
	// holds the final layout, so a throwaway temp dir is fine.
	scratch, err := os.MkdirTemp("", "apigate-oci-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	fs, err := file.New(scratch)
	if err != nil {
		return nil, fmt.Errorf("failed to create file store: %w", err)
	}
	defer func() { _ = fs.Close() }()

	// Make tars deterministic so identical inputs produce identical digests
	fs.TarReproducible = true

	layerDescs := make([]ociv1.Descriptor, 0, len(opts.Layers))
	layerDigests := make([]string, 0, len(opts.Layers))
	for _, layer := range opts.Layers {
		absDir, err := filepath.Abs(layer.SourceDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve layer directory %q: %w", layer.SourceDir, err)
		}
		desc, err := fs.Add(ctx, layer.Name, ociv1.MediaTypeImageLayerGzip, absDir)
		if err != nil {
			return nil, fmt.Errorf("failed to pack layer %q: %w", layer.Name, err)
		}
		layerDescs = append(layerDescs, desc)
		layerDigests = append(layerDigests, desc.Digest.String())
	}

	packOpts := oras.PackManifestOptions{
		Layers: layerDescs,
	}

	annotations := map[string]string{}
	for k, v := range opts.Annotations {
		annotations[k] = v
	}
	if opts.CreatedAt != "" {
		annotations[ociv1.AnnotationCreated] = opts.CreatedAt
	}
	if len(annotations) > 0 {
		packOpts.ManifestAnnotations = annotations
	}

	// Runnable images carry a config blob; artifacts carry a custom type.
	artifactType := ArtifactType
	if opts.ImageConfig != nil {
		configData, err := json.Marshal(opts.ImageConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal image config: %w", err)
		}
		configDesc := content.NewDescriptorFromBytes(ociv1.MediaTypeImageConfig, configData)
		if err := fs.Push(ctx, configDesc, bytes.NewReader(configData)); err != nil {
			return nil, fmt.Errorf("failed to store image config: %w", err)
		}
		packOpts.ConfigDescriptor = &configDesc
		artifactType = ""
	}

	manifestDesc, err := oras.PackManifest(ctx, fs, oras.PackManifestVersion1_1, artifactType, packOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to pack manifest: %w", err)
	}

	if err := fs.Tag(ctx, manifestDesc, opts.Tag); err != nil {
		return nil, fmt.Errorf("failed to tag manifest in file store: %w", err)
	}

	ociStore, err := oci.New(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCI layout store: %w", err)
	}

	desc, err := oras.Copy(ctx, fs, opts.Tag, ociStore, opts.Tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to copy image to layout store: %w", err)
	}

	return &PackageResult{
		Digest:       desc.Digest.String(),
		Reference:    refString,
		StorePath:    storePath,
		LayerDigests: layerDigests,
	}, nil
}
