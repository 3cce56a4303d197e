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

package manifest

// Defaults matching the apiserver deployment this package was built for.
const (
	// DefaultNamespace is the namespace all records render into.
	DefaultNamespace = "default"

	// SelectorKey and SelectorValue form the label that is the sole
	// identity binding between the workload controller and its pods.
	SelectorKey   = "k8s-app"
	SelectorValue = "apiserver"

	// DefaultServiceName is the backend service fronting the workload.
	DefaultServiceName = "apiserver-service"

	// DefaultServicePort is the port the service routes to.
	DefaultServicePort = 8000

	// DefaultExposedPort is the port the image artifact declares.
	// Deliberately distinct from DefaultServicePort; see Validate.
	DefaultExposedPort = 10255

	// DefaultPathPattern matches /api and anything below it, capturing the
	// separator and the remainder.
	DefaultPathPattern = `/api(/|$)(.*)`

	// DefaultRewriteTarget strips the /api prefix, keeping the remainder.
	DefaultRewriteTarget = "/$2"
)

// ResourceEnvelope bounds guaranteed (requests) and maximum (limits)
// compute consumption per workload instance. Exceeding the cpu limit
// throttles; exceeding the memory limit terminates.
type ResourceEnvelope struct {
	RequestCPU    string `json:"requestCpu" yaml:"requestCpu"`
	RequestMemory string `json:"requestMemory" yaml:"requestMemory"`
	LimitCPU      string `json:"limitCpu" yaml:"limitCpu"`
	LimitMemory   string `json:"limitMemory" yaml:"limitMemory"`
}

// ImageArtifact identifies an immutable built image and its runtime
// contract. The reference is a mutable tag; with pull policy Always the tag
// is re-resolved to a digest on every pod start.
type ImageArtifact struct {
	// Reference is the registry/repository:tag image reference.
	Reference string `json:"reference" yaml:"reference"`
	// Env holds runtime environment variables baked into the image config.
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	// WorkDir is the working directory of the entrypoint process.
	WorkDir string `json:"workDir,omitempty" yaml:"workDir,omitempty"`
	// ExposedPort is the port the image declares. Not necessarily the port
	// the fronting service routes to.
	ExposedPort int `json:"exposedPort,omitempty" yaml:"exposedPort,omitempty"`
	// Entrypoint is the startup command.
	Entrypoint []string `json:"entrypoint,omitempty" yaml:"entrypoint,omitempty"`
}

// WorkloadSpec declares how many labeled replicas of an artifact run and
// under what resource and security constraints. All fields are static
// configuration; the workload itself cannot mutate them at runtime.
type WorkloadSpec struct {
	// Name is the workload (Deployment) name.
	Name string `json:"name" yaml:"name"`
	// Namespace the workload renders into.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	// Replicas is the desired instance count.
	Replicas int32 `json:"replicas" yaml:"replicas"`
	// Selector labels select and stamp pods. Every pod created under this
	// spec carries these labels; without them the controller considers the
	// pod unmanaged and creates a replacement.
	Selector map[string]string `json:"selector" yaml:"selector"`
	// Image is the artifact to run.
	Image ImageArtifact `json:"image" yaml:"image"`
	// Resources is the per-instance envelope.
	Resources ResourceEnvelope `json:"resources" yaml:"resources"`
	// Privileged is the container isolation posture.
	Privileged bool `json:"privileged" yaml:"privileged"`
	// PullSecret names the credential used to fetch the image.
	PullSecret string `json:"pullSecret,omitempty" yaml:"pullSecret,omitempty"`
}

// ServiceEndpoint is the stable virtual address that load-balances across
// pods matching the workload selector. Its lifecycle is tied to the
// selector labels, not to any individual pod.
type ServiceEndpoint struct {
	Name      string            `json:"name" yaml:"name"`
	Namespace string            `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Port      int32             `json:"port" yaml:"port"`
	Selector  map[string]string `json:"selector" yaml:"selector"`
}

// RouteRule describes one ingress routing rule: requests whose path matches
// PathPattern are rewritten through RewriteTarget and forwarded to the
// backend service. The capture groups in the pattern must align with the
// back-references in the rewrite template; Validate enforces this instead
// of letting a mismatch silently break routing.
type RouteRule struct {
	// Name is the Ingress object name.
	Name string `json:"name" yaml:"name"`
	// Namespace the rule renders into.
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	// PathPattern is a regular expression tested against the request path.
	PathPattern string `json:"pathPattern" yaml:"pathPattern"`
	// RewriteTarget is the upstream path template; $1..$n reference the
	// pattern's capture groups.
	RewriteTarget string `json:"rewriteTarget" yaml:"rewriteTarget"`
	// Backend names the service (and port) the rewritten request is sent to.
	BackendService string `json:"backendService" yaml:"backendService"`
	BackendPort    int32  `json:"backendPort" yaml:"backendPort"`
}

// StackSpec bundles the records that describe one complete deployment:
// workload, fronting service, and route.
type StackSpec struct {
	Workload WorkloadSpec    `json:"workload" yaml:"workload"`
	Service  ServiceEndpoint `json:"service" yaml:"service"`
	Route    RouteRule       `json:"route" yaml:"route"`
}

// DefaultStack returns the stack spec for the apiserver deployment:
// one replica, k8s-app=apiserver selector, 100m/128Mi requests,
// 1000m/256Mi limits, /api prefix routing into apiserver-service:8000.
func DefaultStack() *StackSpec {
	selector := map[string]string{SelectorKey: SelectorValue}

	return &StackSpec{
		Workload: WorkloadSpec{
			Name:      SelectorValue,
			Namespace: DefaultNamespace,
			Replicas:  1,
			Selector:  selector,
			Image: ImageArtifact{
				Reference:   "registry.local/apiserver:latest",
				Env:         map[string]string{"PYTHONUNBUFFERED": "1"},
				WorkDir:     "/app",
				ExposedPort: DefaultExposedPort,
				Entrypoint:  []string{"python", "apiserver.py"},
			},
			Resources: ResourceEnvelope{
				RequestCPU:    "100m",
				RequestMemory: "128Mi",
				LimitCPU:      "1000m",
				LimitMemory:   "256Mi",
			},
			Privileged: false,
			PullSecret: "regcred",
		},
		Service: ServiceEndpoint{
			Name:      DefaultServiceName,
			Namespace: DefaultNamespace,
			Port:      DefaultServicePort,
			Selector:  selector,
		},
		Route: RouteRule{
			Name:           SelectorValue,
			Namespace:      DefaultNamespace,
			PathPattern:    DefaultPathPattern,
			RewriteTarget:  DefaultRewriteTarget,
			BackendService: DefaultServiceName,
			BackendPort:    DefaultServicePort,
		},
	}
}
