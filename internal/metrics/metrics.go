// Planvault - Plant Shutdown Planning Data Store and Sync Server
// Copyright 2026 Planvault Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/planvault/planvault

// Package metrics provides Prometheus instrumentation for the store write
// path, backups, file-watcher reloads, WebSocket sessions and the API
// surface. All metrics are registered via promauto on the default registry
// and exposed on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store write path

	StoreWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_writes_total",
			Help: "Total number of durable write attempts by outcome",
		},
		[]string{"outcome"}, // "success", "contention", "error"
	)

	StoreWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "store_write_duration_seconds",
			Help:    "Duration of durable writes (sanitize, encode, stage, rename)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	StoreWriteRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_write_retries_total",
			Help: "Total number of durable write retries after transient contention",
		},
	)

	StoreQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "store_write_queue_depth",
			Help: "Current number of mutations waiting in the write queue",
		},
	)

	StoreReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_reloads_total",
			Help: "Total number of watcher-triggered reloads by outcome",
		},
		[]string{"outcome"}, // "success", "corrupt", "error"
	)

	// Backups

	BackupsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backups_created_total",
			Help: "Total number of backup artifacts created",
		},
		[]string{"kind"}, // "rolling", "daily"
	)

	BackupsPrunedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backups_pruned_total",
			Help: "Total number of backup artifacts deleted by rotation",
		},
		[]string{"kind"},
	)

	// WebSocket sessions

	WSActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_active_sessions",
			Help: "Current number of connected WebSocket sessions",
		},
	)

	WSBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_broadcasts_total",
			Help: "Total number of broadcast messages by type",
		},
		[]string{"type"}, // "module_updated", "modules_updated", "data_reloaded", "reset_complete"
	)

	WSDroppedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_dropped_messages_total",
			Help: "Messages dropped because a session send buffer was full",
		},
	)

	// API surface

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordStoreWrite records one durable write attempt outcome and duration.
func RecordStoreWrite(outcome string, duration time.Duration) {
	StoreWritesTotal.WithLabelValues(outcome).Inc()
	StoreWriteDuration.Observe(duration.Seconds())
}

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
