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

// Package cli implements the apigate command-line interface.
//
// # Commands
//
//   - render: emit the stack's Deployment, Service, and Ingress as
//     yaml (multi-document) or json, for direct use with kubectl.
//   - build: run the two-stage image build pipeline (dependency
//     resolution, then application layering) and optionally push the
//     result to a registry.
//   - apply: create or update the stack objects in a cluster, with
//     optional rollout wait; --delete tears the stack down.
//   - route: run the ingress router daemon.
//   - reconcile: run the workload controller loop.
//
// # Global Flags
//
//   - --log-level: debug, info, warn, error (default: info). Also read
//     from LOG_LEVEL.
//
// # Shared Flags
//
// Most commands accept:
//
//   - --spec, -s: path to a stack spec file (yaml or json). When unset,
//     the built-in apiserver stack is used. Also read from APIGATE_SPEC.
//   - --output, -o: output file path (default: stdout).
//   - --format, -f: output format (yaml, json, table).
//   - --kubeconfig: kubeconfig path for cluster commands. Also read
//     from KUBECONFIG; falls back to ~/.kube/config, then in-cluster.
//
// # Exit Codes
//
//   - 0: success
//   - 1: any error (invalid flags, failed build, cluster errors)
//
// All diagnostics go to stderr as structured JSON logs; command output
// (manifests, build results) goes to stdout or the --output file, so the
// two streams can be piped independently.
//
// Version, commit, and build date are injected at build time with
// ldflags; `apigate --version` prints all three.
package cli
