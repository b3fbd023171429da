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

package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type sessionMetrics struct {
	proofRequests  prometheus.Counter
	proofCacheHits prometheus.Counter
	proofErrors    prometheus.Counter
}

func (s *Session) initMetrics() {
	promautoFactory := promauto.With(s.config.PromRegistry)
	s.metrics = &sessionMetrics{}
	s.metrics.proofRequests = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "zkvote_session_proof_requests_total",
		Help: "number of proof requests sent to the proving service",
	})
	s.metrics.proofCacheHits = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "zkvote_session_proof_cache_hits_total",
		Help: "number of proofs served from cache",
	})
	s.metrics.proofErrors = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "zkvote_session_proof_errors_total",
		Help: "number of failed proof requests",
	})
}

func (s *Session) countProofRequest() {
	if s.metrics != nil {
		s.metrics.proofRequests.Inc()
	}
}

func (s *Session) countCacheHit() {
	if s.metrics != nil {
		s.metrics.proofCacheHits.Inc()
	}
}

func (s *Session) countProofError() {
	if s.metrics != nil {
		s.metrics.proofErrors.Inc()
	}
}
