package dispatch

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/Nazarovdf/saverbot/internal/logutils"
)

// Pool bounds how many jobs run at once. Go never blocks the caller, so the
// update loop keeps polling while jobs wait for a slot.
type Pool struct {
	semaphore chan struct{}
	wg        sync.WaitGroup
}

func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{semaphore: make(chan struct{}, size)}
}

// Go runs fn once a slot frees up. A job whose ctx ends while waiting is dropped.
func (p *Pool) Go(ctx context.Context, fn func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.semaphore <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-p.semaphore }()

		defer func() {
			if r := recover(); r != nil {
				logutils.Log.WithFields(map[string]any{
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("Job panicked")
			}
		}()
		fn(ctx)
	}()
}

// Wait blocks until every submitted job has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}
