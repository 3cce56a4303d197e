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
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/apigate/apigate/pkg/build"
	"github.com/apigate/apigate/pkg/oci"
	"github.com/apigate/apigate/pkg/serializer"
)

// defaultOCITag is applied when an oci:// output target names no tag.
const defaultOCITag = "latest"

// buildTarget is a resolved build destination: the image reference to
// stamp on the artifact, the layout directory to write, and whether the
// result is pushed. An empty LayoutDir means the layout is a throwaway
// staging area.
type buildTarget struct {
	Reference string
	LayoutDir string
	Push      bool
}

// resolveBuildTarget interprets the --output-dir value. A plain path keeps
// the artifact reference from the spec and writes the OCI Image Layout
// there. An oci://registry/repo[:tag] target overrides the reference and
// implies --push.
func resolveBuildTarget(specReference, output string) (*buildTarget, error) {
	target, err := oci.ParseOutputTarget(output)
	if err != nil {
		return nil, err
	}

	if !target.IsOCI {
		return &buildTarget{
			Reference: specReference,
			LayoutDir: target.LocalPath,
		}, nil
	}

	if target.Tag == "" {
		target = target.WithTag(defaultOCITag)
	}
	slog.Debug("output target is a registry", "target", target.String())

	return &buildTarget{
		Reference: target.ImageReference(),
		Push:      true,
	}, nil
}

func buildCmd() *cli.Command {
	return &cli.Command{
		Name:                  "build",
		EnableShellCompletion: true,
		Usage:                 "Build the application image with the two-stage pipeline",
		Description: `Builds the container image for the stack's workload artifact.

Stage 1 resolves the dependency manifest (requirements.txt) into an
isolated environment; its failure aborts the build with no artifact.
Stage 2 copies the listed application files on top and packages both as
layers of an OCI image, tagged with the artifact reference from the spec.

The image is written to a local OCI Image Layout. With --push it is also
published to the registry named by the reference, authenticating through
the Docker credential store. Alternatively, --output-dir accepts an
oci://registry/repo[:tag] target: the image is then tagged with that
reference instead of the spec's, staged in a temporary layout, and pushed.

# Examples

Build from the current directory:
  apigate build --source . --app-file apiserver.py

Build and push:
  apigate build --source ./srv --app-file apiserver.py --push

Build straight to a registry:
  apigate build --source ./srv --app-file apiserver.py \
    --output-dir oci://ghcr.io/acme/apiserver:v1.0.0

Reproducible build (fixed timestamp):
  apigate build --source ./srv --app-file apiserver.py \
    --created-at 2025-01-01T00:00:00Z`,
		Flags: []cli.Flag{
			specFlag,
			&cli.StringFlag{
				Name:     "source",
				Required: true,
				Usage:    "Source directory holding the application files and requirements",
			},
			&cli.StringFlag{
				Name:  "requirements",
				Value: build.DefaultRequirementsFile,
				Usage: "Dependency manifest, relative to --source",
			},
			&cli.StringSliceFlag{
				Name:     "app-file",
				Required: true,
				Usage:    "Application file to include, relative to --source (can be repeated)",
			},
			&cli.StringFlag{
				Name:  "output-dir",
				Value: ".",
				Usage: "Directory for the local OCI Image Layout, or an oci://registry/repo[:tag] target to push to",
			},
			&cli.StringFlag{
				Name:  "created-at",
				Usage: "Fixed image creation timestamp (RFC 3339) for reproducible builds",
			},
			&cli.BoolFlag{
				Name:  "push",
				Usage: "Push the built image to the registry named by the artifact reference",
			},
			&cli.BoolFlag{
				Name:  "plain-http",
				Usage: "Use HTTP instead of HTTPS for the registry (for local development)",
			},
			&cli.BoolFlag{
				Name:  "insecure-tls",
				Usage: "Skip TLS certificate verification for the registry",
			},
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			spec, err := loadStack(cmd)
			if err != nil {
				return err
			}

			target, err := resolveBuildTarget(spec.Workload.Image.Reference, cmd.String("output-dir"))
			if err != nil {
				return err
			}

			layoutDir := target.LayoutDir
			if layoutDir == "" {
				layoutDir, err = os.MkdirTemp("", "apigate-layout-*")
				if err != nil {
					return fmt.Errorf("failed to create staging layout directory: %w", err)
				}
				defer os.RemoveAll(layoutDir)
			}

			artifact := spec.Workload.Image
			artifact.Reference = target.Reference
			push := cmd.Bool("push") || target.Push

			slog.Info("building image",
				"reference", artifact.Reference,
				"source", cmd.String("source"),
				"push", push,
			)

			result, err := build.New().Build(ctx, artifact, build.Options{
				SourceDir:        cmd.String("source"),
				RequirementsFile: cmd.String("requirements"),
				AppFiles:         cmd.StringSlice("app-file"),
				OutputDir:        layoutDir,
				Push:             push,
				PlainHTTP:        cmd.Bool("plain-http"),
				InsecureTLS:      cmd.Bool("insecure-tls"),
				CreatedAt:        cmd.String("created-at"),
			})
			if err != nil {
				slog.Error("build failed", "error", err)
				return err
			}

			slog.Info("image built",
				"reference", result.Reference,
				"digest", result.Digest,
				"pushed", result.Pushed,
				"duration_sec", result.Duration.Seconds(),
			)

			writer := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			defer func() {
				if closeErr := writer.Close(); closeErr != nil {
					slog.Warn("failed to close output writer", "error", closeErr)
				}
			}()

			if err := writer.Serialize(ctx, result); err != nil {
				return fmt.Errorf("failed to write build result: %w", err)
			}
			return nil
		},
	}
}
