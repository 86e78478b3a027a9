package loop

import (
	"context"
	"errors"
)

// ErrClosed is returned when driving or awaiting a closed loop.
var ErrClosed = errors.New("loop closed")

// Go runs work on a new goroutine and posts complete with its result back
// onto l. If the loop closed in the meantime, complete is never called and
// the result is handed to discard (when non-nil) so handles can be freed.
func Go[T any](l *Loop, ctx context.Context, work func(context.Context) (T, error), complete func(T, error), discard ...func(T)) {
	go func() {
		v, err := work(ctx)
		if !l.Post(func() { complete(v, err) }) {
			for _, d := range discard {
				d(v)
			}
		}
	}()
}

// Call runs fn on the loop and waits for it to finish. It must not be called
// from the driver goroutine.
func Call[T any](ctx context.Context, l *Loop, fn func() T) (T, error) {
	done := make(chan T, 1)
	var zero T
	if !l.Post(func() { done <- fn() }) {
		return zero, ErrClosed
	}
	select {
	case v := <-done:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
