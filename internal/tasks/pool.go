package tasks

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"github.com/desertthunder/ytbridge/internal/shared"
)

// Task is a unit of work run by a [Pool].
type Task func(ctx context.Context)

// Pool runs tasks on their own goroutines with an optional cap on how many run at once.
//
// Submitting to a full pool blocks the caller until a slot frees, so a reader feeding the
// pool stops consuming input instead of buffering it.
type Pool struct {
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	inFlight atomic.Int64
	logger   *log.Logger
}

// NewPool creates a pool running at most limit tasks at once. A limit of zero or less is unbounded.
func NewPool(limit int, logger *log.Logger) *Pool {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	p := &Pool{logger: logger.WithPrefix("pool")}
	if limit > 0 {
		p.sem = semaphore.NewWeighted(int64(limit))
	}
	return p
}

// Go starts fn on a new goroutine once a slot is free.
//
// ctx only bounds the wait for a slot; the task receives a context that is never cancelled so
// work already accepted runs to completion. A panic inside fn is recovered and logged.
func (p *Pool) Go(ctx context.Context, name string, fn Task) error {
	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("waiting for a free slot: %w", err)
		}
	}

	id := shared.GenerateID()
	p.wg.Add(1)
	p.inFlight.Add(1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("task panicked", "task", name, "id", id, "panic", r, "stack", string(debug.Stack()))
			}
			p.inFlight.Add(-1)
			if p.sem != nil {
				p.sem.Release(1)
			}
			p.wg.Done()
		}()

		p.logger.Debug("task started", "task", name, "id", id)
		fn(context.WithoutCancel(ctx))
	}()
	return nil
}

// Wait blocks until every started task has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// InFlight reports how many tasks are running.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}
