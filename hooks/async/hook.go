// Package asynchook decouples hook callbacks from the proxy's hot path by
// running them on a small worker pool. Events are dropped (never blocked
// on) when the queue is full.
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/replaycache"
)

type Hooks struct {
	inner replaycache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ replaycache.Hooks = (*Hooks)(nil)

func New(inner replaycache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains the queue and stops the workers. Events submitted after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

// enqueue never blocks; a full queue drops the event.
func (h *Hooks) enqueue(f func()) {
	defer func() { recover() }() // submitted after Close
	select {
	case h.q <- f:
	default:
	}
}

func (h *Hooks) Hit(api, provider, key string) {
	h.enqueue(func() { h.inner.Hit(api, provider, key) })
}

func (h *Hooks) Miss(api, provider, key string, fallback bool) {
	h.enqueue(func() { h.inner.Miss(api, provider, key, fallback) })
}

func (h *Hooks) BackendCall(op string, err error) {
	h.enqueue(func() { h.inner.BackendCall(op, err) })
}

func (h *Hooks) RecordWritten(api, provider, key string, size int) {
	h.enqueue(func() { h.inner.RecordWritten(api, provider, key, size) })
}

func (h *Hooks) DecodeFallback(responseType string, err error) {
	h.enqueue(func() { h.inner.DecodeFallback(responseType, err) })
}
