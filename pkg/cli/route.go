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

	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/apigate/apigate/pkg/router"
)

func routeCmd() *cli.Command {
	return &cli.Command{
		Name:                  "route",
		EnableShellCompletion: true,
		Usage:                 "Run the ingress router",
		Description: `Runs the ingress router in the foreground until interrupted.

Requests whose path matches the stack's route pattern are rewritten and
forwarded to the backend service; everything else gets a structured 404.
For the default stack that means /api and anything below it is stripped
of the prefix and proxied to apiserver-service:8000.

The router serves /healthz, /readyz, and Prometheus /metrics alongside
the routed traffic, and shuts down gracefully on SIGINT/SIGTERM.

# Examples

Route with the default stack rules:
  apigate route

Route to a local backend instead of the in-cluster service:
  apigate route --backend http://localhost:8000

Custom listen port and rate limit:
  apigate route --port 9090 --rate-limit 50 --rate-limit-burst 100`,
		Flags: []cli.Flag{
			specFlag,
			&cli.IntFlag{
				Name:    "port",
				Sources: cli.EnvVars("PORT"),
				Usage:   "Listen port (default: 8080)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Override backend base URL for all rules (for local runs)",
			},
			&cli.FloatFlag{
				Name:  "rate-limit",
				Usage: "Requests per second per instance (default: 100)",
			},
			&cli.IntFlag{
				Name:  "rate-limit-burst",
				Usage: "Burst size for the rate limiter (default: 200)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			spec, err := loadStack(cmd)
			if err != nil {
				return err
			}

			rules, err := router.NewRuleSet(spec.Route)
			if err != nil {
				return err
			}

			cfg := router.NewConfig()
			cfg.Name = name
			cfg.Version = version
			if port := cmd.Int("port"); port > 0 {
				cfg.Port = int(port)
			}
			if limit := cmd.Float("rate-limit"); limit > 0 {
				cfg.RateLimit = rate.Limit(limit)
			}
			if burst := cmd.Int("rate-limit-burst"); burst > 0 {
				cfg.RateLimitBurst = int(burst)
			}

			srv := router.New(rules,
				router.WithConfig(cfg),
				router.WithBackendOverride(cmd.String("backend")),
			)
			return srv.Run(ctx)
		},
	}
}
