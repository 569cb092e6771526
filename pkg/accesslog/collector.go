// Copyright 2025 Strata Authors
// SPDX-License-Identifier: Apache-2.0

package accesslog

import (
	"context"
	"sync"
	"time"

	"github.com/stratastore/strata/pkg/logger"
	"github.com/stratastore/strata/pkg/types"
)

// Config tunes collector buffering.
type Config struct {
	// BufferSize is the capacity of the in-flight event channel.
	BufferSize int

	// BatchSize triggers a flush once this many events are pending.
	BatchSize int

	// FlushInterval triggers a flush even when the batch is not full.
	FlushInterval time.Duration
}

// Validate fills in defaults for zero values.
func (c *Config) Validate() {
	if c.BufferSize <= 0 {
		c.BufferSize = 10000
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 5 * time.Second
	}
}

// Collector captures audit records asynchronously. Record never blocks the
// request path; when the buffer is full the event is dropped and counted.
type Collector interface {
	Record(entry *types.AccessLogEntry)
	Start(ctx context.Context)
	Stop()
	Flush(ctx context.Context) error
}

type collector struct {
	store   Store
	cfg     Config
	buffer  chan *types.AccessLogEntry
	done    chan struct{}
	wg      sync.WaitGroup
	metrics *Metrics
}

// NewCollector creates a buffering collector in front of store.
func NewCollector(cfg Config, store Store) Collector {
	cfg.Validate()
	return &collector{
		store:   store,
		cfg:     cfg,
		buffer:  make(chan *types.AccessLogEntry, cfg.BufferSize),
		done:    make(chan struct{}),
		metrics: NewMetrics(),
	}
}

func (c *collector) Record(entry *types.AccessLogEntry) {
	select {
	case c.buffer <- entry:
		c.metrics.EventsBuffered.Inc()
	default:
		c.metrics.EventsDropped.Inc()
		logger.Warn().Msg("access log buffer full, event dropped")
	}
}

// Start begins background flushing.
func (c *collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.flushLoop(ctx)
	logger.Info().
		Int("batch_size", c.cfg.BatchSize).
		Dur("flush_interval", c.cfg.FlushInterval).
		Msg("access log collector started")
}

// Stop shuts down the flush loop after draining pending events.
func (c *collector) Stop() {
	close(c.done)
	c.wg.Wait()
	logger.Info().Msg("access log collector stopped")
}

// Flush writes all pending events to the store immediately.
func (c *collector) Flush(ctx context.Context) error {
	batch := c.drain()
	if len(batch) == 0 {
		return nil
	}
	return c.flush(ctx, batch)
}

func (c *collector) flushLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]types.AccessLogEntry, 0, c.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			batch = append(batch, c.drain()...)
			c.flush(context.Background(), batch)
			return

		case <-c.done:
			batch = append(batch, c.drain()...)
			c.flush(context.Background(), batch)
			return

		case entry := <-c.buffer:
			batch = append(batch, *entry)
			if len(batch) >= c.cfg.BatchSize {
				c.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				c.flush(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

func (c *collector) drain() []types.AccessLogEntry {
	var entries []types.AccessLogEntry
	for {
		select {
		case entry := <-c.buffer:
			entries = append(entries, *entry)
		default:
			return entries
		}
	}
}

func (c *collector) flush(ctx context.Context, batch []types.AccessLogEntry) error {
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	err := c.store.InsertEntries(ctx, batch)
	duration := time.Since(start)

	if err != nil {
		c.metrics.FlushErrors.Inc()
		logger.Error().Err(err).Int("count", len(batch)).Msg("failed to flush access logs")
		return err
	}

	c.metrics.EventsFlushed.Add(float64(len(batch)))
	c.metrics.FlushDuration.Observe(duration.Seconds())

	logger.Debug().
		Int("count", len(batch)).
		Dur("duration", duration).
		Msg("flushed access logs")

	return nil
}

// Nop is a collector that discards everything, used when audit logging is
// disabled.
type Nop struct{}

func (Nop) Record(*types.AccessLogEntry)    {}
func (Nop) Start(context.Context)           {}
func (Nop) Stop()                           {}
func (Nop) Flush(ctx context.Context) error { return nil }
