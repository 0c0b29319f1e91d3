package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(2)
	var active, peak int32
	release := make(chan struct{})

	for i := 0; i < 6; i++ {
		p.Go(context.Background(), func(context.Context) {
			n := atomic.AddInt32(&active, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			<-release
			atomic.AddInt32(&active, -1)
		})
	}

	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, atomic.LoadInt32(&active))
	close(release)
	p.Wait()
	assert.EqualValues(t, 2, atomic.LoadInt32(&peak))
}

func TestPoolGoDoesNotBlock(t *testing.T) {
	p := NewPool(1)
	block := make(chan struct{})
	p.Go(context.Background(), func(context.Context) { <-block })

	done := make(chan struct{})
	go func() {
		p.Go(context.Background(), func(context.Context) {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Go blocked while the pool was full")
	}
	close(block)
	p.Wait()
}

func TestPoolRecoversPanics(t *testing.T) {
	p := NewPool(1)
	var ran int32
	p.Go(context.Background(), func(context.Context) { panic("boom") })
	p.Go(context.Background(), func(context.Context) { atomic.StoreInt32(&ran, 1) })
	p.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran), "a panicking job must free its slot")
}

func TestPoolDropsCancelledWaiters(t *testing.T) {
	p := NewPool(1)
	block := make(chan struct{})
	p.Go(context.Background(), func(context.Context) { <-block })

	ctx, cancel := context.WithCancel(context.Background())
	var ran int32
	p.Go(ctx, func(context.Context) { atomic.StoreInt32(&ran, 1) })
	cancel()
	time.Sleep(20 * time.Millisecond)
	close(block)
	p.Wait()
	assert.EqualValues(t, 0, atomic.LoadInt32(&ran))
}
