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

package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	utilrand "k8s.io/apimachinery/pkg/util/rand"
	"k8s.io/client-go/kubernetes"

	"github.com/apigate/apigate/pkg/defaults"
	apperrors "github.com/apigate/apigate/pkg/errors"
	"github.com/apigate/apigate/pkg/manifest"
)

// Pull-failure waiting reasons reported by the kubelet.
const (
	reasonErrImagePull     = "ErrImagePull"
	reasonImagePullBackOff = "ImagePullBackOff"
)

// Controller converges labeled pods toward the desired replica count.
//
// All reconciliation runs on the goroutine that calls Run; the only shared
// state is the manifest.Document, which is safe for concurrent replacement.
type Controller struct {
	clientset kubernetes.Interface
	doc       *manifest.Document

	interval       time.Duration
	backoffInitial time.Duration
	backoffMax     time.Duration

	// pull backoff state, touched only by the reconcile goroutine
	pullDelay time.Duration
	pullNext  time.Time

	lastRevision int64
}

// Option defines a functional option for configuring a Controller.
type Option func(*Controller)

// WithInterval sets the reconciliation interval.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithPullBackoff sets the initial and maximum delay between image pull
// retries.
func WithPullBackoff(initial, max time.Duration) Option {
	return func(c *Controller) {
		c.backoffInitial = initial
		c.backoffMax = max
	}
}

// New creates a Controller for the given desired-state document.
func New(clientset kubernetes.Interface, doc *manifest.Document, opts ...Option) *Controller {
	c := &Controller{
		clientset:      clientset,
		doc:            doc,
		interval:       defaults.ReconcileInterval,
		backoffInitial: defaults.PullBackoffInitial,
		backoffMax:     defaults.PullBackoffMax,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run reconciles immediately and then on every interval tick until ctx is
// canceled. Reconcile errors are logged and counted, never fatal: the next
// tick retries.
func (c *Controller) Run(ctx context.Context) error {
	slog.Info("controller starting",
		"interval", c.interval.String(),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.reconcileWithTimeout(ctx); err != nil {
			slog.Error("reconcile failed", "error", err)
		}

		select {
		case <-ctx.Done():
			slog.Info("controller stopping")
			return nil
		case <-ticker.C:
		}
	}
}

func (c *Controller) reconcileWithTimeout(ctx context.Context) error {
	reconcileCtx, cancel := context.WithTimeout(ctx, defaults.ReconcileTimeout)
	defer cancel()
	return c.ReconcileOnce(reconcileCtx)
}

// ReconcileOnce runs a single observe-compare-correct pass against the
// current document revision.
func (c *Controller) ReconcileOnce(ctx context.Context) error {
	start := time.Now()

	err := c.reconcile(ctx)

	reconcileDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		reconcileTotal.WithLabelValues("error").Inc()
		return err
	}
	reconcileTotal.WithLabelValues("success").Inc()
	return nil
}

func (c *Controller) reconcile(ctx context.Context) error {
	spec, revision := c.doc.Get()
	workload := spec.Workload
	namespace := namespaceOf(workload.Namespace)

	if revision != c.lastRevision {
		slog.Info("desired state changed",
			"revision", revision,
			"replicas", workload.Replicas,
			"image", workload.Image.Reference,
		)
		c.lastRevision = revision
	}

	// Only pods carrying the selector are managed; everything else in the
	// namespace is invisible here.
	selector := labels.SelectorFromSet(workload.Selector).String()
	podList, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: selector,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to list pods", err)
	}

	var active []corev1.Pod
	cpuLimited := 0
	pullFailing := false

	for _, pod := range podList.Items {
		if pod.DeletionTimestamp != nil {
			// already terminating, neither active nor correctable
			continue
		}

		if isOOMKilled(&pod) {
			// Memory over limit is a kill boundary: replace the pod.
			if err := c.deletePod(ctx, namespace, pod.Name, reasonOOMKilled); err != nil {
				return err
			}
			continue
		}

		if isPullFailing(&pod) {
			pullFailing = true
			if c.pullRetryDue(time.Now()) {
				// Delete so the replacement starts a fresh pull attempt.
				if err := c.deletePod(ctx, namespace, pod.Name, reasonPullRetry); err != nil {
					return err
				}
				continue
			}
			// Backoff not elapsed: the pod stays pending and counts
			// against the replica target.
		}

		if hasCPULimit(&pod) && pod.Status.Phase == corev1.PodRunning {
			cpuLimited++
		}

		active = append(active, pod)
	}

	if !pullFailing {
		c.resetPullBackoff()
	}
	cpuLimitedPods.Set(float64(cpuLimited))

	desired := int(workload.Replicas)
	switch {
	case len(active) < desired:
		for i := len(active); i < desired; i++ {
			if err := c.createPod(ctx, namespace, &workload); err != nil {
				return err
			}
		}
	case len(active) > desired:
		// Delete the newest pods first so established replicas survive.
		sort.Slice(active, func(i, j int) bool {
			return active[i].CreationTimestamp.After(active[j].CreationTimestamp.Time)
		})
		for _, pod := range active[:len(active)-desired] {
			if err := c.deletePod(ctx, namespace, pod.Name, reasonScaleDown); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c *Controller) createPod(ctx context.Context, namespace string, workload *manifest.WorkloadSpec) error {
	template := workload.PodTemplate()
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      fmt.Sprintf("%s-%s", workload.Name, utilrand.String(5)),
			Namespace: namespace,
			Labels:    template.Labels,
		},
		Spec: template.Spec,
	}

	if _, err := c.clientset.CoreV1().Pods(namespace).Create(ctx, pod, metav1.CreateOptions{}); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create pod", err)
	}

	podsCreated.Inc()
	slog.Info("created pod",
		"namespace", namespace,
		"pod", pod.Name,
	)
	return nil
}

func (c *Controller) deletePod(ctx context.Context, namespace, name, reason string) error {
	if err := c.clientset.CoreV1().Pods(namespace).Delete(ctx, name, metav1.DeleteOptions{}); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, "failed to delete pod", err)
	}

	podsDeleted.WithLabelValues(reason).Inc()
	slog.Info("deleted pod",
		"namespace", namespace,
		"pod", name,
		"reason", reason,
	)
	return nil
}

// pullRetryDue reports whether the pull backoff has elapsed and, when it
// has, schedules the next retry with doubled delay.
func (c *Controller) pullRetryDue(now time.Time) bool {
	if now.Before(c.pullNext) {
		return false
	}

	if c.pullDelay == 0 {
		c.pullDelay = c.backoffInitial
	} else {
		c.pullDelay *= 2
		if c.pullDelay > c.backoffMax {
			c.pullDelay = c.backoffMax
		}
	}
	c.pullNext = now.Add(c.pullDelay)

	pullBackoffs.Inc()
	slog.Warn("image pull failing, retry scheduled",
		"nextRetryIn", c.pullDelay.String(),
	)
	return true
}

func (c *Controller) resetPullBackoff() {
	c.pullDelay = 0
	c.pullNext = time.Time{}
}

// isOOMKilled reports whether any container was terminated for exceeding
// its memory limit.
func isOOMKilled(pod *corev1.Pod) bool {
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Terminated != nil && cs.State.Terminated.Reason == "OOMKilled" {
			return true
		}
		if cs.LastTerminationState.Terminated != nil && cs.LastTerminationState.Terminated.Reason == "OOMKilled" {
			return true
		}
	}
	return false
}

// isPullFailing reports whether the pod is pending on a failed image pull.
func isPullFailing(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodPending {
		return false
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Waiting == nil {
			continue
		}
		switch cs.State.Waiting.Reason {
		case reasonErrImagePull, reasonImagePullBackOff:
			return true
		}
	}
	return false
}

// hasCPULimit reports whether any container declares a CPU limit, i.e. is
// subject to throttling.
func hasCPULimit(pod *corev1.Pod) bool {
	for _, container := range pod.Spec.Containers {
		if _, ok := container.Resources.Limits[corev1.ResourceCPU]; ok {
			return true
		}
	}
	return false
}

func namespaceOf(ns string) string {
	if ns == "" {
		return manifest.DefaultNamespace
	}
	return ns
}
