package api

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// GrabTracker owns the background frame-grab goroutines so a server
// shutdown can cancel and drain them instead of abandoning a grab
// mid-write.
type GrabTracker struct {
	group  errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

func NewGrabTracker() *GrabTracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &GrabTracker{ctx: ctx, cancel: cancel}
}

// Go runs fn in the background with a context that is cancelled when the
// tracker drains.
func (t *GrabTracker) Go(fn func(ctx context.Context)) {
	t.group.Go(func() error {
		fn(t.ctx)
		return nil
	})
}

// Drain cancels in-flight grabs and waits for them to finish, giving up
// when ctx expires.
func (t *GrabTracker) Drain(ctx context.Context) error {
	t.cancel()

	done := make(chan struct{})
	go func() {
		t.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
