package lifecycle

import (
	"context"
	"time"
)

// Clock abstracts timed waits so tests can run polling sequences without
// real delays.
type Clock interface {
	// Sleep waits for d or until the context is cancelled, whichever
	// comes first. It returns the context error on cancellation.
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock implements Clock with wall-clock timers.
type realClock struct{}

// Sleep implements Clock.
func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
