package browser

import (
	"context"
)

// CombineContext creates a new context derived from sessionCtx (inheriting
// its values, including the chromedp tab handle) but ensures it is cancelled
// if opCtx is cancelled. This lets callers control timeouts and cancellation
// via opCtx while chromedp still finds the tab information it needs on
// sessionCtx.
func CombineContext(sessionCtx context.Context, opCtx context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(sessionCtx)

	go func() {
		select {
		case <-opCtx.Done():
			// Operation context is done (cancelled or timed out).
			cancel()
		case <-combinedCtx.Done():
			// Session closed or operation completed.
		}
	}()

	return combinedCtx, cancel
}
