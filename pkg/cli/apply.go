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
	"time"

	"github.com/urfave/cli/v3"

	"github.com/apigate/apigate/pkg/k8s/apply"
	"github.com/apigate/apigate/pkg/k8s/client"
	"github.com/apigate/apigate/pkg/serializer"
)

func applyCmd() *cli.Command {
	return &cli.Command{
		Name:                  "apply",
		EnableShellCompletion: true,
		Usage:                 "Apply the stack to a Kubernetes cluster",
		Description: `Creates or updates the stack's Deployment, Service, and Ingress in the
target cluster. Existing objects are updated in place (whole-document
replacement); missing objects are created. The operation is idempotent.

With --wait the command blocks until the Deployment reports all replicas
available, or the wait times out.

With --delete the stack is torn down instead: Ingress, Service, and
Deployment are removed in reverse order. Objects already absent are not
an error.

# Examples

Apply the default stack:
  apigate apply

Apply a custom spec and wait for rollout:
  apigate apply --spec stack.yaml --wait

Tear the stack down:
  apigate apply --delete`,
		Flags: []cli.Flag{
			specFlag,
			kubeconfigFlag,
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Wait for the Deployment to report all replicas available",
			},
			&cli.DurationFlag{
				Name:  "wait-timeout",
				Value: 5 * time.Minute,
				Usage: "Timeout for --wait",
			},
			&cli.BoolFlag{
				Name:  "delete",
				Usage: "Delete the stack objects instead of applying them",
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

			clientset, _, err := client.GetKubeClientWithConfig(cmd.String("kubeconfig"))
			if err != nil {
				return err
			}
			applier := apply.New(clientset)

			if cmd.Bool("delete") {
				if err := applier.Delete(ctx, spec); err != nil {
					return err
				}
				slog.Info("stack deleted",
					"workload", spec.Workload.Name,
					"namespace", spec.Workload.Namespace,
				)
				return nil
			}

			result, err := applier.Apply(ctx, spec)
			if err != nil {
				return err
			}

			if cmd.Bool("wait") {
				slog.Info("waiting for deployment availability",
					"deployment", spec.Workload.Name,
					"timeout", cmd.Duration("wait-timeout").String(),
				)
				if err := applier.WaitForDeploymentAvailable(ctx,
					spec.Workload.Namespace, spec.Workload.Name, cmd.Duration("wait-timeout")); err != nil {
					return err
				}
			}

			writer := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			defer func() {
				if closeErr := writer.Close(); closeErr != nil {
					slog.Warn("failed to close output writer", "error", closeErr)
				}
			}()

			if err := writer.Serialize(ctx, result); err != nil {
				return fmt.Errorf("failed to write apply result: %w", err)
			}
			return nil
		},
	}
}
