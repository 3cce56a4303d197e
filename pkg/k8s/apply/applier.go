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

package apply

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/apigate/apigate/pkg/manifest"
)

// Action describes what Apply did with one object.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Applied records one applied object.
type Applied struct {
	Kind      string `json:"kind" yaml:"kind"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Name      string `json:"name" yaml:"name"`
	Action    Action `json:"action" yaml:"action"`
}

// Result summarizes an Apply run.
type Result struct {
	Objects []Applied `json:"objects" yaml:"objects"`
}

// Applier creates or updates stack objects in a cluster.
type Applier struct {
	clientset kubernetes.Interface
}

// New creates an Applier backed by the given clientset.
func New(clientset kubernetes.Interface) *Applier {
	return &Applier{clientset: clientset}
}

// Apply ensures all objects of the stack exist and match the spec. Objects
// are applied in dependency order: Deployment, Service, Ingress.
func (a *Applier) Apply(ctx context.Context, spec *manifest.StackSpec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	result := &Result{}

	action, err := a.ensureDeployment(ctx, spec.Workload.Deployment())
	if err != nil {
		return nil, fmt.Errorf("failed to apply Deployment: %w", err)
	}
	result.Objects = append(result.Objects, Applied{
		Kind: "Deployment", Namespace: namespaceOf(spec.Workload.Namespace), Name: spec.Workload.Name, Action: action,
	})

	action, err = a.ensureService(ctx, spec.Service.Service())
	if err != nil {
		return nil, fmt.Errorf("failed to apply Service: %w", err)
	}
	result.Objects = append(result.Objects, Applied{
		Kind: "Service", Namespace: namespaceOf(spec.Service.Namespace), Name: spec.Service.Name, Action: action,
	})

	action, err = a.ensureIngress(ctx, spec.Route.Ingress())
	if err != nil {
		return nil, fmt.Errorf("failed to apply Ingress: %w", err)
	}
	result.Objects = append(result.Objects, Applied{
		Kind: "Ingress", Namespace: namespaceOf(spec.Route.Namespace), Name: spec.Route.Name, Action: action,
	})

	for _, obj := range result.Objects {
		slog.Info("applied object",
			"kind", obj.Kind,
			"namespace", obj.Namespace,
			"name", obj.Name,
			"action", string(obj.Action),
		)
	}

	return result, nil
}

// Delete removes all objects of the stack. Objects that do not exist are
// not an error.
func (a *Applier) Delete(ctx context.Context, spec *manifest.StackSpec) error {
	ingresses := a.clientset.NetworkingV1().Ingresses(namespaceOf(spec.Route.Namespace))
	if err := ignoreNotFound(ingresses.Delete(ctx, spec.Route.Name, metav1.DeleteOptions{})); err != nil {
		return fmt.Errorf("failed to delete Ingress: %w", err)
	}

	services := a.clientset.CoreV1().Services(namespaceOf(spec.Service.Namespace))
	if err := ignoreNotFound(services.Delete(ctx, spec.Service.Name, metav1.DeleteOptions{})); err != nil {
		return fmt.Errorf("failed to delete Service: %w", err)
	}

	deployments := a.clientset.AppsV1().Deployments(namespaceOf(spec.Workload.Namespace))
	if err := ignoreNotFound(deployments.Delete(ctx, spec.Workload.Name, metav1.DeleteOptions{})); err != nil {
		return fmt.Errorf("failed to delete Deployment: %w", err)
	}

	return nil
}

// WaitForDeploymentAvailable blocks until the Deployment reports all desired
// replicas available, or the timeout elapses.
func (a *Applier) WaitForDeploymentAvailable(ctx context.Context, namespace, name string, timeout time.Duration) error {
	return wait.PollUntilContextTimeout(ctx, 500*time.Millisecond, timeout, true,
		func(ctx context.Context) (bool, error) {
			d, err := a.clientset.AppsV1().Deployments(namespaceOf(namespace)).Get(ctx, name, metav1.GetOptions{})
			if err != nil {
				if errors.IsNotFound(err) {
					return false, nil // not created yet
				}
				return false, err
			}

			desired := int32(1)
			if d.Spec.Replicas != nil {
				desired = *d.Spec.Replicas
			}
			return d.Status.AvailableReplicas >= desired, nil
		},
	)
}

func (a *Applier) ensureDeployment(ctx context.Context, d *appsv1.Deployment) (Action, error) {
	deployments := a.clientset.AppsV1().Deployments(namespaceOf(d.Namespace))

	existing, err := deployments.Get(ctx, d.Name, metav1.GetOptions{})
	if errors.IsNotFound(err) {
		if _, err := deployments.Create(ctx, d, metav1.CreateOptions{}); err != nil {
			return "", err
		}
		return ActionCreated, nil
	}
	if err != nil {
		return "", err
	}

	d.ResourceVersion = existing.ResourceVersion
	if _, err := deployments.Update(ctx, d, metav1.UpdateOptions{}); err != nil {
		return "", err
	}
	return ActionUpdated, nil
}

func (a *Applier) ensureService(ctx context.Context, svc *corev1.Service) (Action, error) {
	services := a.clientset.CoreV1().Services(namespaceOf(svc.Namespace))

	existing, err := services.Get(ctx, svc.Name, metav1.GetOptions{})
	if errors.IsNotFound(err) {
		if _, err := services.Create(ctx, svc, metav1.CreateOptions{}); err != nil {
			return "", err
		}
		return ActionCreated, nil
	}
	if err != nil {
		return "", err
	}

	// ClusterIP is immutable and assigned by the API server
	svc.ResourceVersion = existing.ResourceVersion
	svc.Spec.ClusterIP = existing.Spec.ClusterIP
	svc.Spec.ClusterIPs = existing.Spec.ClusterIPs
	if _, err := services.Update(ctx, svc, metav1.UpdateOptions{}); err != nil {
		return "", err
	}
	return ActionUpdated, nil
}

func (a *Applier) ensureIngress(ctx context.Context, ing *networkingv1.Ingress) (Action, error) {
	ingresses := a.clientset.NetworkingV1().Ingresses(namespaceOf(ing.Namespace))

	existing, err := ingresses.Get(ctx, ing.Name, metav1.GetOptions{})
	if errors.IsNotFound(err) {
		if _, err := ingresses.Create(ctx, ing, metav1.CreateOptions{}); err != nil {
			return "", err
		}
		return ActionCreated, nil
	}
	if err != nil {
		return "", err
	}

	ing.ResourceVersion = existing.ResourceVersion
	if _, err := ingresses.Update(ctx, ing, metav1.UpdateOptions{}); err != nil {
		return "", err
	}
	return ActionUpdated, nil
}

func namespaceOf(ns string) string {
	if ns == "" {
		return manifest.DefaultNamespace
	}
	return ns
}

// ignoreNotFound returns nil if the error is "not found", otherwise returns the error.
// Used to make resource deletion idempotent.
func ignoreNotFound(err error) error {
	if errors.IsNotFound(err) {
		return nil
	}
	return err
}
