// Package internal bounds the number of kernel goroutines a Launch call may
// have running at once, so a framebuffer with far more tiles than CPUs
// doesn't spawn an unbounded number of goroutines all competing for the
// same cores.
package internal

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool is a bounded worker pool backed by a weighted semaphore. Acquire
// blocks until a slot is free or ctx is done; Release frees one.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a pool sized to 2x GOMAXPROCS rather than hard-coding a
// CPU-bound tile count: Mandelbrot kernels are CPU-bound but do have brief
// idle windows polling the cancellation atomic, so a small amount of
// oversubscription keeps cores busy.
func NewPool() *Pool {
	n := runtime.GOMAXPROCS(0) * 2
	if n < 1 {
		n = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(n))}
}

// Acquire reserves one worker slot, blocking until available or ctx is
// done. A non-nil error here is a spawn failure: the caller must stop
// launching further tiles and join what has already started.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// Release frees the worker slot acquired by a matching Acquire call.
func (p *Pool) Release() {
	p.sem.Release(1)
}
