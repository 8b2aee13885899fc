package toolmgr

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// inflightCall describes one dispatched invocation still awaiting its result.
type inflightCall struct {
	tool          string
	server        string
	correlationID string
	startedAt     time.Time
}

// inflightTracker records dispatched invocations so that shutdown can let
// them finish naturally before force-closing connections.
type inflightTracker struct {
	seq     atomic.Uint64
	mu      sync.Mutex
	calls   map[uint64]inflightCall
	waiters []chan struct{}
}

func newInflightTracker() *inflightTracker {
	return &inflightTracker{calls: make(map[uint64]inflightCall)}
}

// register records a dispatch and returns the matching cleanup. The cleanup
// is safe to call exactly once, from any goroutine.
func (t *inflightTracker) register(tool, server, correlationID string) func() {
	id := t.seq.Add(1)
	t.mu.Lock()
	t.calls[id] = inflightCall{
		tool:          tool,
		server:        server,
		correlationID: correlationID,
		startedAt:     time.Now(),
	}
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.calls, id)
		if len(t.calls) == 0 {
			for _, waiter := range t.waiters {
				close(waiter)
			}
			t.waiters = nil
		}
		t.mu.Unlock()
	}
}

func (t *inflightTracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// drain blocks until no calls remain in flight or ctx is done, returning
// ctx's error in the latter case.
func (t *inflightTracker) drain(ctx context.Context) error {
	t.mu.Lock()
	if len(t.calls) == 0 {
		t.mu.Unlock()
		return nil
	}
	waiter := make(chan struct{})
	t.waiters = append(t.waiters, waiter)
	t.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-waiter:
		return nil
	}
}
