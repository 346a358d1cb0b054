// Package workerpool is a bounded goroutine pool with backpressure.
//
// Checkouts run here: each one waits on the payment widget for up to
// PAYMENT_TIMEOUT, so the pool caps how many shoppers can be mid-payment at
// once. When every worker is busy and the buffer is full, Submit returns
// ErrPoolFull and the API answers 503 instead of spawning more goroutines.
//
//	pool := workerpool.New(32)
//	defer pool.Shutdown()
//
//	if err := pool.Submit(func() { runCheckout() }); errors.Is(err, workerpool.ErrPoolFull) {
//	    // reject
//	}
package workerpool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shashiranjanraj/kirana/pkg/logger"
)

// ErrPoolFull is returned by Submit when all workers are busy and the task
// buffer is at capacity.
var ErrPoolFull = errors.New("workerpool: pool is full")

// ErrPoolClosed is returned by Submit after Shutdown has been called.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

type Pool struct {
	mu     sync.RWMutex
	closed bool
	tasks  chan func()
	wg     sync.WaitGroup
	busy   atomic.Int64
}

// New starts size workers. The buffer holds 2×size pending tasks.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}

	p := &Pool{tasks: make(chan func(), size*2)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task func()) error {
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

// SubmitWait blocks until the task is accepted. The read lock is held while
// waiting, so Shutdown waits for pending SubmitWait calls to land first.
func (p *Pool) SubmitWait(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Busy reports how many tasks are executing right now.
func (p *Pool) Busy() int { return int(p.busy.Load()) }

// Shutdown stops accepting tasks, drains the buffer and waits for workers.
// It is safe to call multiple times.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

// run executes task, recovering panics so a bad task doesn't kill a worker.
func (p *Pool) run(task func()) {
	p.busy.Add(1)
	defer p.busy.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("workerpool: task panicked", "panic", fmt.Sprint(r))
		}
	}()
	task()
}
