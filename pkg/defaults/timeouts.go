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

package defaults

import "time"

// Router timeouts for the ingress HTTP server.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	// Must exceed ProxyResponseHeaderTimeout so upstream slowness is
	// reported as a 502 rather than a dropped connection.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// Proxy timeouts for upstream connections from the router to the backend
// service.
const (
	// ProxyDialTimeout bounds the TCP connect to the backend.
	ProxyDialTimeout = 5 * time.Second

	// ProxyResponseHeaderTimeout bounds the wait for backend response headers.
	ProxyResponseHeaderTimeout = 25 * time.Second

	// ProxyIdleConnTimeout is how long idle upstream connections are kept.
	ProxyIdleConnTimeout = 90 * time.Second
)

// Controller timings for the workload reconciliation loop.
const (
	// ReconcileInterval is the resync period between full reconcile passes.
	ReconcileInterval = 15 * time.Second

	// ReconcileTimeout bounds a single reconcile pass.
	ReconcileTimeout = 30 * time.Second

	// PullBackoffInitial is the first retry delay after an image pull failure.
	PullBackoffInitial = 10 * time.Second

	// PullBackoffMax caps the pull retry delay.
	PullBackoffMax = 5 * time.Minute
)

// Build timeouts for the artifact pipeline.
const (
	// BuildTimeout bounds the full two-stage build.
	BuildTimeout = 10 * time.Minute

	// PushTimeout bounds the registry push of a built artifact.
	PushTimeout = 5 * time.Minute
)
