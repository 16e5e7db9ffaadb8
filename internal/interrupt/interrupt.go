// Package interrupt implements the shutdown grace window: when a command's
// context is cancelled (SIGINT), engines stop enqueuing new work at once
// but in-flight remote calls get a bounded window to finish, so work that
// already reached the remote is recorded rather than torn down.
package interrupt

import (
	"context"
	"time"
)

// Grace is how long in-flight requests may run after cancellation.
const Grace = 10 * time.Second

// WithGrace returns a context that cancels `grace` after parent cancels.
// The CancelFunc releases resources and must always be called.
func WithGrace(parent context.Context, grace time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(parent, func() {
		timer := time.AfterFunc(grace, cancel)
		stopTimer := context.AfterFunc(ctx, func() { timer.Stop() })
		_ = stopTimer
	})
	return ctx, func() {
		stop()
		cancel()
	}
}
