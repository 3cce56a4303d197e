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

// Package manifest defines the declarative records that describe an apigate
// stack: the image artifact produced by the build pipeline, the workload
// spec maintained by the controller, the route rule applied by the ingress
// router, and the service endpoint that binds them together.
//
// Records are plain values serialized as YAML or JSON. Mutation is always
// whole-document replacement through a versioned Document; fields are never
// patched in place, which avoids partial-update races between concurrent
// operators (last write wins on the whole record).
//
// Each record renders to its typed Kubernetes object:
//
//	spec := manifest.DefaultStack()
//	dep := spec.Workload.Deployment()
//	svc := spec.Service.Service()
//	ing := spec.Route.Ingress(spec.Service)
package manifest
