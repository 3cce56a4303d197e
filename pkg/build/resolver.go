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
	"log/slog"
	"os/exec"
	"strings"

	apperrors "github.com/apigate/apigate/pkg/errors"
)

// Resolver populates an isolated environment directory from a dependency
// manifest. It is the stage-1 seam: tests and alternative toolchains swap it
// out without touching the pipeline.
type Resolver interface {
	Resolve(ctx context.Context, requirementsFile, envDir string) error
}

// PipResolver resolves Python dependencies with pip into a target directory.
// The target-directory install keeps the environment self-contained: no
// interpreter state outside envDir is touched.
type PipResolver struct {
	// Python is the interpreter executable. Defaults to "python3".
	Python string
}

// NewPipResolver creates a PipResolver with default settings.
func NewPipResolver() *PipResolver {
	return &PipResolver{Python: "python3"}
}

// Resolve runs pip install into envDir. Any failure is returned as a
// BUILD_FAILED structured error with pip's combined output attached.
func (p *PipResolver) Resolve(ctx context.Context, requirementsFile, envDir string) error {
	python := p.Python
	if python == "" {
		python = "python3"
	}

	args := []string{
		"-m", "pip", "install",
		"--no-compile",
		"--disable-pip-version-check",
		"--target", envDir,
		"-r", requirementsFile,
	}

	slog.Debug("resolving dependencies",
		"python", python,
		"requirements", requirementsFile,
		"envDir", envDir,
	)

	cmd := exec.CommandContext(ctx, python, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeBuildFailed,
			"dependency resolution failed", err, map[string]any{
				"requirements": requirementsFile,
				"output":       strings.TrimSpace(string(out)),
			})
	}

	return nil
}
