// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Crosscall Contributors

package invoke

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for invocation metrics.
const (
	StatusExecuted        = "executed"
	StatusPluginNotFound  = "plugin_not_found"
	StatusCommandNotFound = "command_not_found"
	StatusDropped         = "dropped"
)

// Invocations counts dispatched invocations by outcome of the dispatch
// phase. Use RegisterMetrics to register with a Prometheus registry.
var Invocations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "crosscall_invocations_total",
		Help: "Total number of dispatched invocations",
	},
	[]string{"plugin", "command", "status"},
)

// Responses counts delivered terminal responses by tag.
var Responses = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "crosscall_responses_total",
		Help: "Total number of delivered terminal responses",
	},
	[]string{"plugin", "command", "tag"},
)

// DuplicateResponses counts terminal responses dropped because the
// invocation had already been responded to.
var DuplicateResponses = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "crosscall_duplicate_responses_total",
		Help: "Total number of dropped duplicate terminal responses",
	},
	[]string{"plugin", "command"},
)

// ChannelSends counts out-of-band channel data sends.
var ChannelSends = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "crosscall_channel_sends_total",
		Help: "Total number of channel data sends",
	},
	[]string{"plugin", "command"},
)

// InvocationDuration is the histogram of handler execution time on the
// serial queue. Async handlers are measured up to their return, not up to
// completion.
var InvocationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "crosscall_invocation_duration_seconds",
		Help:    "Handler execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"plugin", "command", "convention"},
)

// RegisterMetrics registers invoke package metrics with the given
// Prometheus registry. Call once at startup; panics on conflict
// (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Invocations)
	reg.MustRegister(Responses)
	reg.MustRegister(DuplicateResponses)
	reg.MustRegister(ChannelSends)
	reg.MustRegister(InvocationDuration)
}

func recordInvocation(plugin, command, status string) {
	Invocations.WithLabelValues(plugin, command, status).Inc()
}

func recordResponse(plugin, command, tag string) {
	Responses.WithLabelValues(plugin, command, tag).Inc()
}

func recordDuplicateResponse(plugin, command string) {
	DuplicateResponses.WithLabelValues(plugin, command).Inc()
}

func recordChannelSend(plugin, command string) {
	ChannelSends.WithLabelValues(plugin, command).Inc()
}

func recordDuration(plugin, command, convention string, d time.Duration) {
	InvocationDuration.WithLabelValues(plugin, command, convention).Observe(d.Seconds())
}
