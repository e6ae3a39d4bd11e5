package driver

import (
	"context"
	"sync"
)

// QueryHandle is the live, cancellable representation of one in-flight
// query. It resolves exactly once, into a result, an error, or a
// cancellation, and never transitions again. The pool retains ownership of
// the underlying connection throughout.
type QueryHandle struct {
	done         chan struct{}
	cancelNative context.CancelFunc

	mu        sync.Mutex
	terminal  bool
	cancelled bool // cancel requested before the terminal state
	result    *QueryResult
	err       error
}

func newQueryHandle(cancelNative context.CancelFunc) *QueryHandle {
	return &QueryHandle{
		done:         make(chan struct{}),
		cancelNative: cancelNative,
	}
}

// Cancel requests best-effort abortion of the in-flight execution through
// the native cancel primitive. It is idempotent, and a no-op once the
// handle is terminal: rows already delivered are not un-delivered, and
// nothing is double-freed.
func (h *QueryHandle) Cancel() {
	h.mu.Lock()
	if h.terminal || h.cancelled {
		h.mu.Unlock()
		return
	}
	h.cancelled = true
	h.mu.Unlock()

	h.cancelNative()
}

// Wait blocks until the handle is terminal or ctx expires. The ctx here
// bounds the caller's wait only; it does not cancel the query. Use Cancel
// for that.
func (h *QueryHandle) Wait(ctx context.Context) (*QueryResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return h.result, h.err
	}
}

// Done is closed when the handle reaches its terminal state.
func (h *QueryHandle) Done() <-chan struct{} {
	return h.done
}

// resolve settles the handle with a result. Returns false if it was
// already terminal.
func (h *QueryHandle) resolve(res *QueryResult) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.terminal {
		return false
	}
	h.terminal = true
	h.result = res
	close(h.done)
	return true
}

// fail settles the handle with an error (including the cancelled state).
func (h *QueryHandle) fail(err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.terminal {
		return false
	}
	h.terminal = true
	h.err = err
	close(h.done)
	return true
}

// cancelRequested reports whether Cancel ran before the terminal state.
func (h *QueryHandle) cancelRequested() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}
