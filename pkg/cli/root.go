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
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/apigate/apigate/pkg/logging"
	"github.com/apigate/apigate/pkg/manifest"
	"github.com/apigate/apigate/pkg/serializer"
)

const (
	name           = "apigate"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Flags shared across commands.
var (
	specFlag = &cli.StringFlag{
		Name:    "spec",
		Aliases: []string{"s"},
		Sources: cli.EnvVars("APIGATE_SPEC"),
		Usage:   "Path to a stack spec file (yaml or json); defaults to the built-in apiserver stack",
	}

	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output file path (default: stdout)",
	}

	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   string(serializer.FormatYAML),
		Usage:   fmt.Sprintf("Output format: %s", strings.Join(serializer.SupportedFormats(), ", ")),
	}

	kubeconfigFlag = &cli.StringFlag{
		Name:    "kubeconfig",
		Sources: cli.EnvVars("KUBECONFIG"),
		Usage:   "Path to kubeconfig (default: $KUBECONFIG, then ~/.kube/config, then in-cluster)",
	}
)

func rootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "Build, deploy, and route the apiserver stack",
		Version:               fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Usage:   "Log level (debug, info, warn, error)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String("log-level"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			renderCmd(),
			buildCmd(),
			applyCmd(),
			routeCmd(),
			reconcileCmd(),
		},
	}
}

// Execute runs the root command. Called by main.main(); SIGINT/SIGTERM
// cancel the command context for graceful shutdown.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseOutputFormat validates the --format flag value.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	format := serializer.Format(cmd.String("format"))
	if format.IsUnknown() {
		return "", fmt.Errorf("unsupported format %q (supported: %s)",
			cmd.String("format"), strings.Join(serializer.SupportedFormats(), ", "))
	}
	return format, nil
}

// loadStack returns the stack spec named by --spec, or the built-in
// apiserver stack when the flag is unset. File-loaded specs are validated
// before use.
func loadStack(cmd *cli.Command) (*manifest.StackSpec, error) {
	path := cmd.String("spec")
	if path == "" {
		return manifest.DefaultStack(), nil
	}

	spec, err := serializer.FromFile[manifest.StackSpec](path)
	if err != nil {
		return nil, fmt.Errorf("failed to load spec %s: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid spec %s: %w", path, err)
	}
	return spec, nil
}
