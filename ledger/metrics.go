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

package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type clientMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func (c *Client) initMetrics() {
	promautoFactory := promauto.With(c.promRegistry)
	c.metrics = &clientMetrics{}
	c.metrics.requests = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zkvote_ledger_requests_total",
			Help: "number of ledger RPC requests by method and result",
		},
		[]string{"method", "result"},
	)
	c.metrics.latency = promautoFactory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "zkvote_ledger_request_duration_seconds",
			Help:    "ledger RPC request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
}

func (c *Client) observe(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.metrics.requests.WithLabelValues(method, result).Inc()
	c.metrics.latency.WithLabelValues(method).Observe(
		time.Since(start).Seconds(),
	)
}
