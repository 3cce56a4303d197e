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

// Package k8s provides Kubernetes integration for apigate.
//
// # Sub-packages
//
// client: singleton Kubernetes client with automatic authentication
//
//	clientset, config, err := client.GetKubeClient()
//	if err != nil {
//	    return err
//	}
//
// apply: idempotent create-or-update of the rendered stack objects
//
//	applier := apply.New(clientset)
//	result, err := applier.Apply(ctx, &spec)
//
// The client package uses sync.Once so a single client instance is shared
// across the application. The apply package holds no state beyond the
// clientset; each Applier is independent and safe for concurrent use.
package k8s
