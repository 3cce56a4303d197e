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

	"github.com/apigate/apigate/pkg/controller"
	"github.com/apigate/apigate/pkg/k8s/client"
	"github.com/apigate/apigate/pkg/manifest"
)

func reconcileCmd() *cli.Command {
	return &cli.Command{
		Name:                  "reconcile",
		EnableShellCompletion: true,
		Usage:                 "Run the workload controller",
		Description: `Runs the workload controller in the foreground until interrupted.

Each pass lists the pods carrying the stack's selector label, compares
the count to the desired replicas, and creates or deletes pods to
converge. Pods without the label are never touched. OOMKilled pods are
replaced; pods failing their image pull are retried with exponential
backoff instead of crashing the loop.

# Examples

Reconcile the default stack every 15 seconds:
  apigate reconcile

Single pass (for cron or debugging):
  apigate reconcile --once

Faster loop against a custom spec:
  apigate reconcile --spec stack.yaml --interval 5s`,
		Flags: []cli.Flag{
			specFlag,
			kubeconfigFlag,
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Reconciliation interval (default: 15s)",
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single reconciliation pass and exit",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			spec, err := loadStack(cmd)
			if err != nil {
				return err
			}

			clientset, _, err := client.GetKubeClientWithConfig(cmd.String("kubeconfig"))
			if err != nil {
				return err
			}

			ctrl := controller.New(clientset, manifest.NewDocument(spec),
				controller.WithInterval(cmd.Duration("interval")),
			)

			if cmd.Bool("once") {
				return ctrl.ReconcileOnce(ctx)
			}
			return ctrl.Run(ctx)
		},
	}
}
