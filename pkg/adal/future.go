package adal

import (
	"context"
	"sync"
)

// Future is the pending result of an asynchronous acquisition. It completes once.
type Future struct {
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once

	result *AuthenticationResult
	err    error
}

func newFuture(ctx context.Context, fn func(context.Context) (*AuthenticationResult, error)) *Future {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future{done: make(chan struct{}), cancel: cancel}

	go func() {
		result, err := fn(ctx)
		f.complete(result, err)
	}()
	return f
}

func (f *Future) complete(result *AuthenticationResult, err error) {
	f.once.Do(func() {
		f.result, f.err = result, err
		f.cancel()
		close(f.done)
	})
}

// Done is closed when the acquisition has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result waits for the acquisition or ctx, whichever comes first. Giving up
// waiting does not cancel the acquisition; use Cancel for that.
func (f *Future) Result(ctx context.Context) (*AuthenticationResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel aborts a pending acquisition, including a web UI waiting for the
// user. The future then completes with a KindCanceled error.
func (f *Future) Cancel() {
	f.cancel()
}
