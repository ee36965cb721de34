package resolver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Bri445/app-link-gen-res/internal/config"
)

// NavigationOutcome classifies what happened to the page URL across one
// action cycle.
type NavigationOutcome int

const (
	// NavigationUnchanged means the page URL did not move; the orchestrator
	// may proceed to extraction.
	NavigationUnchanged NavigationOutcome = iota
	// NavigationRedirected means a new, previously unseen URL is now
	// current; the per-page pipeline restarts there.
	NavigationRedirected
	// NavigationLooped means the new URL was already visited. Terminal,
	// non-error stop condition.
	NavigationLooped
)

// NavigationTracker compares the session's URL before and after an action
// cycle and maintains the visited set that makes cycle detection sound.
type NavigationTracker struct {
	gw     Gateway
	settle time.Duration
	logger *zap.Logger
}

// NewNavigationTracker wires the tracker with the configured settle delay.
func NewNavigationTracker(gw Gateway, cfg config.ResolverConfig, logger *zap.Logger) *NavigationTracker {
	return &NavigationTracker{
		gw:     gw,
		settle: cfg.SettleDelay,
		logger: logger.Named("tracker"),
	}
}

// Observe waits out the settle delay, re-reads the page URL and classifies
// the result. On a redirect the new URL is recorded as current and visited
// before the tracker returns, keeping the session invariant intact. A URL
// read failure degrades to "no redirect".
func (t *NavigationTracker) Observe(ctx context.Context, sess *Session) NavigationOutcome {
	if err := hesitate(ctx, t.settle); err != nil {
		return NavigationUnchanged
	}

	newURL, err := t.gw.CurrentURL(ctx)
	if err != nil {
		t.logger.Debug("Could not read current URL; assuming no redirect.", zap.Error(err))
		return NavigationUnchanged
	}
	if newURL == "" || newURL == sess.CurrentURL {
		return NavigationUnchanged
	}

	sess.Logf("Redirected: %s -> %s", sess.CurrentURL, newURL)
	seen := sess.MarkVisited(newURL)
	sess.CurrentURL = newURL
	if seen {
		sess.Logf("URL repeated; stopping to avoid an infinite loop.")
		return NavigationLooped
	}
	return NavigationRedirected
}
