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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pod deletion reasons used as metric labels.
const (
	reasonOOMKilled = "oom_killed"
	reasonPullRetry = "pull_retry"
	reasonScaleDown = "scale_down"
)

var (
	reconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apigate_reconcile_total",
			Help: "Total number of reconciliation passes",
		},
		[]string{"result"},
	)

	reconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "apigate_reconcile_duration_seconds",
			Help:    "Reconciliation pass latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	podsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "apigate_pods_created_total",
			Help: "Total number of pods created by the controller",
		},
	)

	podsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apigate_pods_deleted_total",
			Help: "Total number of pods deleted by the controller, by reason",
		},
		[]string{"reason"},
	)

	pullBackoffs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "apigate_pull_backoffs_total",
			Help: "Total number of image pull retries scheduled with backoff",
		},
	)

	cpuLimitedPods = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "apigate_cpu_limited_pods",
			Help: "Managed pods currently subject to CPU throttling (limit set); throttling is observed, never a kill",
		},
	)
)
