// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AllianceGate Contributors

package auth

import "github.com/prometheus/client_golang/prometheus"

// Package-level counters so the resolver and approval workflow can record
// outcomes without holding a registry reference.
var (
	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alliancegate_resolutions_total",
			Help: "Total credential resolutions by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	requestDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alliancegate_request_decisions_total",
			Help: "Total alliance request decisions by kind",
		},
		[]string{"decision"},
	)
)

// RegisterMetrics registers the auth metrics with the given registerer.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(resolutionsTotal)
	reg.MustRegister(requestDecisionsTotal)
}

func recordResolution(source, outcome string) {
	resolutionsTotal.WithLabelValues(source, outcome).Inc()
}

func recordDecision(decision string) {
	requestDecisionsTotal.WithLabelValues(decision).Inc()
}
