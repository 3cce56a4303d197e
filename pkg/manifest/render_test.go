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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	networkingv1 "k8s.io/api/networking/v1"
)

func TestDeploymentRendering(t *testing.T) {
	s := DefaultStack()
	dep := s.Workload.Deployment()

	assert.Equal(t, "apps/v1", dep.APIVersion)
	assert.Equal(t, "Deployment", dep.Kind)
	assert.Equal(t, "apiserver", dep.Name)
	assert.Equal(t, "default", dep.Namespace)

	require.NotNil(t, dep.Spec.Replicas)
	assert.Equal(t, int32(1), *dep.Spec.Replicas)

	// The selector label must stamp both the selector and the pod template;
	// without it the controller would treat its own pods as unmanaged.
	assert.Equal(t, map[string]string{"k8s-app": "apiserver"}, dep.Spec.Selector.MatchLabels)
	assert.Equal(t, map[string]string{"k8s-app": "apiserver"}, dep.Spec.Template.Labels)

	require.Len(t, dep.Spec.Template.Spec.Containers, 1)
	c := dep.Spec.Template.Spec.Containers[0]

	assert.Equal(t, corev1.PullAlways, c.ImagePullPolicy)

	require.NotNil(t, c.SecurityContext)
	require.NotNil(t, c.SecurityContext.Privileged)
	assert.False(t, *c.SecurityContext.Privileged)

	assert.True(t, c.Resources.Requests[corev1.ResourceCPU].Equal(resource.MustParse("100m")))
	assert.True(t, c.Resources.Requests[corev1.ResourceMemory].Equal(resource.MustParse("128Mi")))
	assert.True(t, c.Resources.Limits[corev1.ResourceCPU].Equal(resource.MustParse("1000m")))
	assert.True(t, c.Resources.Limits[corev1.ResourceMemory].Equal(resource.MustParse("256Mi")))

	require.Len(t, dep.Spec.Template.Spec.ImagePullSecrets, 1)
	assert.Equal(t, "regcred", dep.Spec.Template.Spec.ImagePullSecrets[0].Name)

	require.NotEmpty(t, c.Env)
	assert.Equal(t, "PYTHONUNBUFFERED", c.Env[0].Name)
	assert.Equal(t, "1", c.Env[0].Value)
}

func TestServiceRendering(t *testing.T) {
	s := DefaultStack()
	svc := s.Service.Service()

	assert.Equal(t, "apiserver-service", svc.Name)
	assert.Equal(t, map[string]string{"k8s-app": "apiserver"}, svc.Spec.Selector)

	require.Len(t, svc.Spec.Ports, 1)
	assert.Equal(t, int32(8000), svc.Spec.Ports[0].Port)
}

func TestIngressRendering(t *testing.T) {
	s := DefaultStack()
	ing := s.Route.Ingress()

	assert.Equal(t, "networking.k8s.io/v1", ing.APIVersion)
	assert.Equal(t, "true", ing.Annotations[AnnotationUseRegex])
	assert.Equal(t, "/$2", ing.Annotations[AnnotationRewriteTarget])

	require.Len(t, ing.Spec.Rules, 1)
	paths := ing.Spec.Rules[0].HTTP.Paths
	require.Len(t, paths, 1)

	assert.Equal(t, `/api(/|$)(.*)`, paths[0].Path)
	require.NotNil(t, paths[0].PathType)
	assert.Equal(t, networkingv1.PathTypePrefix, *paths[0].PathType)
	assert.Equal(t, "apiserver-service", paths[0].Backend.Service.Name)
	assert.Equal(t, int32(8000), paths[0].Backend.Service.Port.Number)
}

func TestObjectsOrder(t *testing.T) {
	objs := DefaultStack().Objects()
	require.Len(t, objs, 3)
}
