package registry

import (
	"context"
	"sync"
)

// Deferred is the completion handle for an asynchronous call. The caller's
// thread is never blocked: completion is delivered by closing Done, after
// which Err reports the outcome. Cancel aborts the in-flight call; once
// canceled, no further continuation runs and the output value is never
// written, even if a response races in.
type Deferred struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu         sync.Mutex
	err        error
	isCanceled bool
}

func newDeferred(parent context.Context) *Deferred {
	ctx, cancel := context.WithCancel(parent)
	return &Deferred{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Done returns a channel that is closed when the call completes, whether
// successfully, with an error, or by cancellation.
func (d *Deferred) Done() <-chan struct{} {
	return d.done
}

// Err returns the call's outcome. It is nil before Done is closed and nil
// after a successful completion.
func (d *Deferred) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Wait blocks until the call completes or ctx expires, returning the
// call's outcome or ctx's error.
func (d *Deferred) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.Err()
	case <-ctx.Done():
		return Wrap(ctx.Err(), ErrorTypeCanceled, "abandoned waiting for deferred call")
	}
}

// Cancel aborts the call. If cancellation races with an in-flight
// response, the call's side effects are unspecified beyond this: no
// continuation is invoked and the output value is not written.
func (d *Deferred) Cancel() {
	d.mu.Lock()
	d.isCanceled = true
	d.mu.Unlock()

	d.cancel()
	d.complete(Wrap(context.Canceled, ErrorTypeCanceled, "call canceled"))
}

// complete records the outcome exactly once; later completions are
// discarded, which is what keeps a canceled call from resurfacing.
func (d *Deferred) complete(err error) {
	d.once.Do(func() {
		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		close(d.done)
		d.cancel()
	})
}

// canceled reports whether Cancel has been invoked. Nil-safe so the sync
// call path can share the dispatch code without a handle.
func (d *Deferred) canceled() bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isCanceled
}
