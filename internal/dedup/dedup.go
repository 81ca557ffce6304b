// Package dedup collapses concurrent identical requests into one upstream
// call. It protects rate-limited upstreams from thundering herds over
// millisecond windows; longer-lived reuse belongs to the response cache.
package dedup

import (
	"sync"
	"time"
)

// call tracks one in-flight or recently-completed producer invocation.
type call struct {
	done  chan struct{}
	value interface{}
	err   error
	// set when the producer finished; zero while in flight
	completedAt time.Time
}

// Deduplicator shares the result of an in-flight producer between all callers
// with the same key. Once a call completes successfully, its result is reused
// for the given window without re-invoking the producer, then dropped from
// the registry; failures release the key immediately so the next caller
// retries fresh.
type Deduplicator struct {
	mu    sync.Mutex
	calls map[string]*call
	now   func() time.Time
}

func New() *Deduplicator {
	return &Deduplicator{
		calls: make(map[string]*call),
		now:   time.Now,
	}
}

// Run invokes producer for key, or joins the in-flight call for the same key.
// A completed result younger than window is returned without invoking
// producer again.
func (d *Deduplicator) Run(key string, window time.Duration, producer func() (interface{}, error)) (interface{}, error) {
	d.mu.Lock()
	if c, ok := d.calls[key]; ok {
		select {
		case <-c.done:
			// completed: reuse inside the window, otherwise start fresh
			if c.err == nil && window > 0 && d.now().Sub(c.completedAt) < window {
				d.mu.Unlock()
				return c.value, nil
			}
			delete(d.calls, key)
		default:
			// in flight: wait for the same result
			d.mu.Unlock()
			<-c.done
			return c.value, c.err
		}
	}

	c := &call{done: make(chan struct{})}
	d.calls[key] = c
	d.mu.Unlock()

	c.value, c.err = producer()
	c.completedAt = d.now()
	close(c.done)

	if c.err != nil || window <= 0 {
		d.release(key, c)
		return c.value, c.err
	}

	// hold the completed result only for the reuse window
	time.AfterFunc(window, func() {
		d.release(key, c)
	})
	return c.value, nil
}

// release drops the entry for key, but only if it still belongs to c; a
// fresh call may have replaced it in the meantime.
func (d *Deduplicator) release(key string, c *call) {
	d.mu.Lock()
	if d.calls[key] == c {
		delete(d.calls, key)
	}
	d.mu.Unlock()
}

// Forget drops any completed result for key so the next Run starts fresh.
func (d *Deduplicator) Forget(key string) {
	d.mu.Lock()
	if c, ok := d.calls[key]; ok {
		select {
		case <-c.done:
			delete(d.calls, key)
		default:
			// in flight, leave it for joined callers
		}
	}
	d.mu.Unlock()
}
