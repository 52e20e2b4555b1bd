// Package workerpool runs background work on a fixed number of goroutines.
//
// Request handlers hand follow-up work (demand scoring, event fan-out) to a
// Pool so the response is not held up by slow upstream calls. When every
// worker is busy and the queue is full, Submit returns ErrPoolFull and the
// caller decides whether to drop or retry.
//
//	pool := workerpool.New("demand", 4)
//	defer pool.Shutdown(context.Background())
//
//	err := pool.Submit(func(ctx context.Context) {
//	    catalog.RefreshDemand(ctx, productID)
//	})
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shashiranjanraj/kachra/pkg/logger"
)

// ErrPoolFull is returned by Submit when all workers are busy and the task
// queue is at capacity.
var ErrPoolFull = errors.New("workerpool: pool is full")

// ErrPoolClosed is returned by Submit after Shutdown has been called.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Task is a unit of work. ctx is cancelled when Shutdown gives up waiting.
type Task func(ctx context.Context)

// Pool is a bounded goroutine pool.
type Pool struct {
	name   string
	tasks  chan Task
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Pool with size workers and a queue of 2×size.
func New(name string, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:   name,
		tasks:  make(chan Task, size*2),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until the task is queued, ctx is done, or the pool closes.
func (p *Pool) SubmitWait(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish. If ctx
// expires first, running tasks see their context cancelled and ctx.Err() is
// returned. Safe to call more than once.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker task panicked", "pool", p.name, "panic", fmt.Sprint(r))
		}
	}()
	task(p.ctx)
}
