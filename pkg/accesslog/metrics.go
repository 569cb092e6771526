// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package accesslog

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the access log system.
type Metrics struct {
	EventsBuffered prometheus.Counter
	EventsDropped  prometheus.Counter
	EventsFlushed  prometheus.Counter
	FlushErrors    prometheus.Counter
	FlushDuration  prometheus.Histogram
	InsertDuration prometheus.Histogram
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics returns the process-wide metrics set. Registration happens
// once to avoid duplicate collector panics.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			EventsBuffered: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "strata",
				Subsystem: "accesslog",
				Name:      "events_buffered_total",
				Help:      "Total number of access log events buffered",
			}),
			EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "strata",
				Subsystem: "accesslog",
				Name:      "events_dropped_total",
				Help:      "Total number of access log events dropped due to full buffer",
			}),
			EventsFlushed: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "strata",
				Subsystem: "accesslog",
				Name:      "events_flushed_total",
				Help:      "Total number of access log events flushed to storage",
			}),
			FlushErrors: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "strata",
				Subsystem: "accesslog",
				Name:      "flush_errors_total",
				Help:      "Total number of access log flush errors",
			}),
			FlushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: "strata",
				Subsystem: "accesslog",
				Name:      "flush_duration_seconds",
				Help:      "Duration of access log batch flushes",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
			}),
			InsertDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: "strata",
				Subsystem: "accesslog",
				Name:      "insert_duration_seconds",
				Help:      "Duration of ClickHouse batch inserts",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
			}),
		}
	})
	return metricsInstance
}
