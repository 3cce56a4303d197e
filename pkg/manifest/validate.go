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

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/distribution/reference"
	"k8s.io/apimachinery/pkg/api/resource"

	apperrors "github.com/apigate/apigate/pkg/errors"
)

// backrefPattern finds $n back-references in a rewrite template.
var backrefPattern = regexp.MustCompile(`\$(\d+)`)

// Validate checks the workload spec for renderability: a parseable image
// reference, a non-empty selector, a positive replica count, and a
// well-formed resource envelope with requests not exceeding limits.
func (w *WorkloadSpec) Validate() error {
	if w.Name == "" {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "workload name is required")
	}
	if w.Replicas < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "replicas must not be negative")
	}
	if len(w.Selector) == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidRequest,
			"selector is required: it is the only identity binding between controller and pods")
	}

	if _, err := reference.ParseNormalizedNamed(w.Image.Reference); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"invalid image reference", err,
			map[string]any{"reference": w.Image.Reference})
	}

	return w.Resources.Validate()
}

// Validate parses all four quantities and checks requests <= limits.
func (r *ResourceEnvelope) Validate() error {
	reqCPU, err := resource.ParseQuantity(r.RequestCPU)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid cpu request", err)
	}
	limCPU, err := resource.ParseQuantity(r.LimitCPU)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid cpu limit", err)
	}
	reqMem, err := resource.ParseQuantity(r.RequestMemory)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid memory request", err)
	}
	limMem, err := resource.ParseQuantity(r.LimitMemory)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidRequest, "invalid memory limit", err)
	}

	if reqCPU.Cmp(limCPU) > 0 {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"cpu request exceeds limit",
			map[string]any{"request": r.RequestCPU, "limit": r.LimitCPU})
	}
	if reqMem.Cmp(limMem) > 0 {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"memory request exceeds limit",
			map[string]any{"request": r.RequestMemory, "limit": r.LimitMemory})
	}

	return nil
}

// Validate compiles the path pattern and checks that every back-reference
// in the rewrite template is covered by a capture group. A mismatch would
// otherwise apply cleanly and break routing silently.
func (r *RouteRule) Validate() error {
	if r.BackendService == "" || r.BackendPort == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "route backend service and port are required")
	}

	re, err := regexp.Compile(r.PathPattern)
	if err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"invalid path pattern", err,
			map[string]any{"pattern": r.PathPattern})
	}

	groups := re.NumSubexp()
	for _, m := range backrefPattern.FindAllStringSubmatch(r.RewriteTarget, -1) {
		n, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			continue
		}
		if n > groups {
			return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
				"rewrite target references capture group the pattern does not define",
				map[string]any{
					"rewriteTarget": r.RewriteTarget,
					"backref":       n,
					"captureGroups": groups,
				})
		}
	}

	return nil
}

// Validate checks the whole stack and the cross-record invariants: the
// route backend must name the service, and the service selector must match
// the workload selector, or traffic never reaches the pods.
func (s *StackSpec) Validate() error {
	if err := s.Workload.Validate(); err != nil {
		return fmt.Errorf("workload: %w", err)
	}
	if err := s.Route.Validate(); err != nil {
		return fmt.Errorf("route: %w", err)
	}

	if s.Service.Name == "" || s.Service.Port == 0 {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "service name and port are required")
	}

	if s.Route.BackendService != s.Service.Name || s.Route.BackendPort != s.Service.Port {
		return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"route backend does not match service endpoint",
			map[string]any{
				"backend": fmt.Sprintf("%s:%d", s.Route.BackendService, s.Route.BackendPort),
				"service": fmt.Sprintf("%s:%d", s.Service.Name, s.Service.Port),
			})
	}

	for k, v := range s.Service.Selector {
		if s.Workload.Selector[k] != v {
			return apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
				"service selector does not match workload selector",
				map[string]any{"key": k})
		}
	}

	// The artifact's declared port and the routed service port are not
	// reconciled anywhere in the source material. Neither value is treated
	// as authoritative; surface the disagreement and move on.
	if s.Workload.Image.ExposedPort != 0 && int32(s.Workload.Image.ExposedPort) != s.Service.Port {
		slog.Warn("artifact exposed port differs from routed service port",
			"exposedPort", s.Workload.Image.ExposedPort,
			"servicePort", s.Service.Port,
		)
	}

	return nil
}
