// Copyright 2023 AI Redefined Inc. <dev+cogment@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package manager

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	ticks          prometheus.Counter
	agents         prometheus.Gauge
	awaitingAgents prometheus.Gauge
	calls          *prometheus.CounterVec
}

// registerCollector reuses an already registered identical collector
func registerCollector[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	err := registerer.Register(collector)
	if err == nil {
		return collector
	}
	alreadyRegistered := prometheus.AlreadyRegisteredError{}
	if errors.As(err, &alreadyRegistered) {
		if existing, ok := alreadyRegistered.ExistingCollector.(T); ok {
			return existing
		}
	}
	log.WithError(err).Warn("unable to register metrics collector")
	return collector
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	return &metrics{
		ticks: registerCollector(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ue4ml",
			Name:      "world_ticks_total",
			Help:      "Number of world ticks.",
		})),
		agents: registerCollector(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ue4ml",
			Subsystem: "session",
			Name:      "agents",
			Help:      "Number of agents in the current session.",
		})),
		awaitingAgents: registerCollector(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ue4ml",
			Subsystem: "session",
			Name:      "agents_awaiting_avatar",
			Help:      "Number of agents of the current session waiting for an avatar.",
		})),
		calls: registerCollector(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ue4ml",
			Name:      "function_calls_total",
			Help:      "Number of function calls, by function and status code.",
		}, []string{"function", "code"})),
	}
}
