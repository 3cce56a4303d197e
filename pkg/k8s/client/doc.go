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

// Package client provides a singleton Kubernetes client for cluster access.
//
// The client is initialized once on first use and cached for subsequent
// calls, preventing connection exhaustion and reducing API server load:
//
//	clientset, config, err := client.GetKubeClient()
//	if err != nil {
//	    return fmt.Errorf("failed to get kubernetes client: %w", err)
//	}
//
//	pods, err := clientset.CoreV1().Pods("default").List(ctx, metav1.ListOptions{})
//
// # Authentication Modes
//
// Configuration is discovered automatically:
//
//   - KUBECONFIG environment variable, if set
//   - ~/.kube/config, if it exists
//   - in-cluster service account, when running as a Pod
//
// For explicit control over the kubeconfig source (multi-cluster operations,
// tests), use BuildKubeClient directly; it bypasses the singleton cache.
//
// # Testing
//
// Consumers accept the Interface alias, so tests can substitute
// k8s.io/client-go/kubernetes/fake clientsets without touching this package.
package client
