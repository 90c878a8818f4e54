// Copyright (c) 2026 ShieldEye Project
// SPDX-License-Identifier: GPL-3.0-or-later

// Package task runs long operations on a bounded worker pool so the
// calling surface stays responsive while ingestion, scans, and update
// checks proceed in the background.
package task

import (
	"context"
	"log/slog"
	"sync"
)

// Func is a unit of background work. It returns exactly one value or one
// error, never both.
type Func func(ctx context.Context) (any, error)

// Result carries a finished task's outcome. Exactly one of Value or Err
// is set.
type Result struct {
	Value any
	Err   error
}

type job struct {
	fn  Func
	out chan Result
}

// Pool dispatches queued tasks across a fixed number of workers.
type Pool struct {
	logger  *slog.Logger
	queue   chan job
	workers int
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

// Config holds pool configuration.
type Config struct {
	Workers int // Number of concurrent task workers
}

// DefaultConfig returns default pool configuration.
func DefaultConfig() Config {
	return Config{
		Workers: 3,
	}
}

// NewPool creates a task pool. Workers do not run until Start is called.
func NewPool(logger *slog.Logger, cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		logger:  logger,
		queue:   make(chan job, 100),
		workers: cfg.Workers,
		done:    make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	p.logger.Info("starting task pool", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop stops the pool and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("stopping task pool")
	close(p.done)
	p.wg.Wait()
	p.logger.Info("task pool stopped")
}

// Submit queues fn and returns a channel that delivers its single Result.
// The channel is buffered so a caller that stops listening does not strand
// a worker. Returns false when the pool is stopped or the queue is full.
func (p *Pool) Submit(fn Func) (<-chan Result, bool) {
	p.mu.RLock()
	running := p.running
	p.mu.RUnlock()

	if !running {
		p.logger.Warn("task pool not running, rejecting task")
		return nil, false
	}

	j := job{fn: fn, out: make(chan Result, 1)}
	select {
	case p.queue <- j:
		return j.out, true
	default:
		p.logger.Warn("task queue full, rejecting task")
		return nil, false
	}
}

// worker executes queued tasks until the pool stops.
func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	p.logger.Debug("task worker started", "worker_id", id)

	for {
		select {
		case <-p.done:
			p.logger.Debug("task worker stopping", "worker_id", id)
			return
		case <-ctx.Done():
			p.logger.Debug("task worker context cancelled", "worker_id", id)
			return
		case j := <-p.queue:
			p.run(ctx, id, j)
		}
	}
}

// run executes one task, recovering panics so a bad task cannot take a
// worker down with it.
func (p *Pool) run(ctx context.Context, id int, j job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "worker_id", id, "panic", r)
			j.out <- Result{Err: &PanicError{Value: r}}
		}
	}()

	value, err := j.fn(ctx)
	if err != nil {
		p.logger.Debug("task finished with error", "worker_id", id, "error", err)
		j.out <- Result{Err: err}
		return
	}
	j.out <- Result{Value: value}
}

// PanicError wraps a recovered panic value from a task.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return "task panicked"
}
