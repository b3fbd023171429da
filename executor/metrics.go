// Copyright 2026 Blink Labs Software
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

package executor

import (
	"errors"
	"time"

	"github.com/blinklabs-io/zkvote/errs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type executorMetrics struct {
	submissions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

func (e *Executor) initMetrics() {
	promautoFactory := promauto.With(e.config.PromRegistry)
	e.metrics = &executorMetrics{}
	e.metrics.submissions = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zkvote_executor_submissions_total",
			Help: "number of transaction submissions by payment path and result",
		},
		[]string{"path", "result"},
	)
	e.metrics.latency = promautoFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zkvote_executor_submission_duration_seconds",
			Help:    "time from submission start to confirmed result",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"path"},
	)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "confirmed"
	case errors.Is(err, errs.ErrUnknownOutcome):
		return "unknown"
	case errors.Is(err, errs.ErrExecution):
		return "failed"
	case errors.Is(err, errs.ErrSponsor):
		return "rejected"
	default:
		return "error"
	}
}

func (e *Executor) observe(path string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.submissions.WithLabelValues(path, resultLabel(err)).Inc()
	e.metrics.latency.WithLabelValues(path).Observe(time.Since(start).Seconds())
}
