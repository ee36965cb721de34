// Package resolver implements the bounded state machine that walks a chain of
// ad-gated interstitial pages down to a single terminal destination URL.
//
// The package owns the control loop only. Driving an actual browser is the
// job of a Gateway implementation (see internal/browser); everything in here
// is written against that contract so the heuristics stay testable without a
// browser process.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrGatewayStart indicates the browser gateway could not be brought up at
// all. It is the only failure class that aborts a run before the first step;
// everything else degrades to "no signal" inside the loop.
var ErrGatewayStart = errors.New("browser gateway failed to start")

// NavigationError reports a page load failure. It is logged and treated as
// non-fatal: the loop still attempts subsequent actions against whatever
// page state resulted.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// Element is a handle to a located page element. Implementations must
// tolerate the element detaching between lookup and use: a stale handle
// reports an error from every method and the callers here treat that as
// "no match", never as a reason to abort.
type Element interface {
	// Text returns the trimmed visible text of the element.
	Text(ctx context.Context) (string, error)
	// Attribute returns the value of the named attribute and whether it is
	// present on the element.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// Click dispatches a click on the element.
	Click(ctx context.Context) error
}

// Gateway is the browser capability consumed by the resolver. One gateway
// serves exactly one resolution run; no two runs may share an instance.
type Gateway interface {
	// Navigate loads the given URL. A load failure is reported as a
	// *NavigationError.
	Navigate(ctx context.Context, url string) error
	// CurrentURL reports the URL of the page currently loaded.
	CurrentURL(ctx context.Context) (string, error)
	// Find returns the elements matching the locator, waiting up to timeout
	// for at least one to appear. Absence is a valid, silent result: Find
	// never fails, it returns an empty slice.
	Find(ctx context.Context, loc Locator, timeout time.Duration) []Element
	// HTML returns a snapshot of the current document markup.
	HTML(ctx context.Context) (string, error)
	// Close releases the underlying browser resources.
	Close(ctx context.Context) error
}

// GatewayFactory opens a fresh gateway for a single resolution run.
type GatewayFactory interface {
	NewSession(ctx context.Context) (Gateway, error)
}
