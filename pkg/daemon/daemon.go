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
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/apigate/apigate/pkg/controller"
	"github.com/apigate/apigate/pkg/k8s/client"
	"github.com/apigate/apigate/pkg/logging"
	"github.com/apigate/apigate/pkg/manifest"
	"github.com/apigate/apigate/pkg/router"
	"github.com/apigate/apigate/pkg/serializer"
)

const (
	name           = "apigated"
	versionDefault = "dev"

	// envSpecPath overrides the built-in stack spec.
	envSpecPath = "APIGATE_SPEC"

	// envBackendOverride routes all rules to a fixed base URL instead of
	// the in-cluster service address. For local runs.
	envBackendOverride = "BACKEND_OVERRIDE"
)

var (
	// overridden during build with ldflags to reflect actual version info
	// e.g., -X "github.com/apigate/apigate/pkg/daemon.version=1.0.0"
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Serve runs the ingress router and, when a cluster client is available,
// the workload controller, until SIGINT/SIGTERM. Either component failing
// stops the other and returns the error.
func Serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.SetDefaultStructuredLogger(name, version)
	slog.Info("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
	)

	spec, err := loadSpec()
	if err != nil {
		return err
	}

	rules, err := router.NewRuleSet(spec.Route)
	if err != nil {
		return err
	}

	srv := router.New(rules,
		router.WithName(name),
		router.WithVersion(version),
		router.WithBackendOverride(os.Getenv(envBackendOverride)),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	// The controller needs a cluster; the router does not. Run degraded
	// rather than refusing to start outside a cluster.
	if clientset, _, clientErr := client.GetKubeClient(); clientErr != nil {
		slog.Warn("no cluster client, workload controller disabled", "error", clientErr)
	} else {
		ctrl := controller.New(clientset, manifest.NewDocument(spec))
		g.Go(func() error {
			return ctrl.Run(gctx)
		})
	}

	return g.Wait()
}

// loadSpec returns the stack spec named by APIGATE_SPEC, or the built-in
// apiserver stack when the variable is unset.
func loadSpec() (*manifest.StackSpec, error) {
	path := os.Getenv(envSpecPath)
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

	slog.Info("loaded stack spec",
		"path", path,
		"workload", spec.Workload.Name,
		"replicas", spec.Workload.Replicas,
	)
	return spec, nil
}
