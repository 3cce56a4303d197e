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
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
)

// Annotations required by the ingress router implementation: regex path
// matching must be enabled explicitly, and the rewrite target is read from
// the annotation rather than the rule body.
const (
	AnnotationUseRegex      = "nginx.ingress.kubernetes.io/use-regex"
	AnnotationRewriteTarget = "nginx.ingress.kubernetes.io/rewrite-target"
)

// Deployment renders the workload spec to a typed apps/v1 Deployment.
// The pod template always carries the selector labels; pull policy is
// Always so the tag is re-resolved to a digest on every pod start.
func (w *WorkloadSpec) Deployment() *appsv1.Deployment {
	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "apps/v1",
			Kind:       "Deployment",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      w.Name,
			Namespace: w.namespaceOrDefault(),
			Labels:    w.Selector,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(w.Replicas),
			Selector: &metav1.LabelSelector{MatchLabels: w.Selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: w.Selector},
				Spec:       w.podSpec(),
			},
		},
	}
}

// PodTemplate renders just the pod spec with selector labels, used by the
// controller when creating bare pods.
func (w *WorkloadSpec) PodTemplate() corev1.PodTemplateSpec {
	return corev1.PodTemplateSpec{
		ObjectMeta: metav1.ObjectMeta{Labels: w.Selector},
		Spec:       w.podSpec(),
	}
}

func (w *WorkloadSpec) podSpec() corev1.PodSpec {
	spec := corev1.PodSpec{
		Containers: []corev1.Container{
			{
				Name:            w.Name,
				Image:           w.Image.Reference,
				ImagePullPolicy: corev1.PullAlways,
				WorkingDir:      w.Image.WorkDir,
				Command:         w.Image.Entrypoint,
				Env:             envToK8s(w.Image.Env),
				Resources:       w.Resources.Requirements(),
				SecurityContext: &corev1.SecurityContext{
					Privileged: ptr.To(w.Privileged),
				},
			},
		},
	}

	if w.Image.ExposedPort > 0 {
		spec.Containers[0].Ports = []corev1.ContainerPort{
			{ContainerPort: int32(w.Image.ExposedPort)},
		}
	}

	if w.PullSecret != "" {
		spec.ImagePullSecrets = []corev1.LocalObjectReference{{Name: w.PullSecret}}
	}

	return spec
}

// Requirements converts the envelope to corev1 resource requirements.
// Quantities are assumed validated; unparsable values render as zero.
func (r *ResourceEnvelope) Requirements() corev1.ResourceRequirements {
	return corev1.ResourceRequirements{
		Requests: corev1.ResourceList{
			corev1.ResourceCPU:    parseQuantityOrZero(r.RequestCPU),
			corev1.ResourceMemory: parseQuantityOrZero(r.RequestMemory),
		},
		Limits: corev1.ResourceList{
			corev1.ResourceCPU:    parseQuantityOrZero(r.LimitCPU),
			corev1.ResourceMemory: parseQuantityOrZero(r.LimitMemory),
		},
	}
}

// Service renders the endpoint to a typed core/v1 Service.
func (s *ServiceEndpoint) Service() *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "Service",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      s.Name,
			Namespace: namespaceOrDefault(s.Namespace),
			Labels:    s.Selector,
		},
		Spec: corev1.ServiceSpec{
			Selector: s.Selector,
			Ports: []corev1.ServicePort{
				{
					Port:       s.Port,
					TargetPort: intstr.FromInt32(s.Port),
				},
			},
		},
	}
}

// Ingress renders the route rule to a typed networking.k8s.io/v1 Ingress
// with the regex and rewrite annotations the router implementation requires.
func (r *RouteRule) Ingress() *networkingv1.Ingress {
	pathType := networkingv1.PathTypePrefix

	return &networkingv1.Ingress{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "networking.k8s.io/v1",
			Kind:       "Ingress",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      r.Name,
			Namespace: namespaceOrDefault(r.Namespace),
			Annotations: map[string]string{
				AnnotationUseRegex:      "true",
				AnnotationRewriteTarget: r.RewriteTarget,
			},
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{
				{
					IngressRuleValue: networkingv1.IngressRuleValue{
						HTTP: &networkingv1.HTTPIngressRuleValue{
							Paths: []networkingv1.HTTPIngressPath{
								{
									Path:     r.PathPattern,
									PathType: &pathType,
									Backend: networkingv1.IngressBackend{
										Service: &networkingv1.IngressServiceBackend{
											Name: r.BackendService,
											Port: networkingv1.ServiceBackendPort{
												Number: r.BackendPort,
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

// Objects renders the whole stack in apply order: Deployment, Service,
// Ingress.
func (s *StackSpec) Objects() []any {
	return []any{
		s.Workload.Deployment(),
		s.Service.Service(),
		s.Route.Ingress(),
	}
}

func (w *WorkloadSpec) namespaceOrDefault() string {
	return namespaceOrDefault(w.Namespace)
}

func namespaceOrDefault(ns string) string {
	if ns == "" {
		return DefaultNamespace
	}
	return ns
}

func parseQuantityOrZero(s string) resource.Quantity {
	q, err := resource.ParseQuantity(s)
	if err != nil {
		return resource.Quantity{}
	}
	return q
}

// envToK8s converts the artifact env map to sorted EnvVar entries so
// rendering is deterministic.
func envToK8s(env map[string]string) []corev1.EnvVar {
	if len(env) == 0 {
		return nil
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]corev1.EnvVar, 0, len(keys))
	for _, k := range keys {
		out = append(out, corev1.EnvVar{Name: k, Value: env[k]})
	}
	return out
}
