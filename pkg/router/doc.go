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

// Package router implements the ingress router: it matches inbound request
// paths against compiled route rules, rewrites the path through the rule's
// template, and proxies the request to the rule's backend service.
//
// Matching is first-match-wins in declaration order. The original Host
// header and method are preserved; only the path is rewritten. Requests
// matching no rule receive the default-backend behavior: a structured 404.
//
// The router makes no assumptions about backend readiness. A backend that
// is still starting or already draining produces a 502, which the client
// is expected to retry; synchronizing with workload lifecycle is the
// controller's concern, not the router's.
package router
