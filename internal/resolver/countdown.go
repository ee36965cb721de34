package resolver

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Bri445/app-link-gen-res/internal/config"
)

// CountdownStatus is the outcome of waiting out a countdown gate.
type CountdownStatus int

const (
	// CountdownAbsent means no countdown element exists on the page; there
	// is nothing to wait for.
	CountdownAbsent CountdownStatus = iota
	// CountdownReachedZero means a gate was observed counting down to zero
	// (or below).
	CountdownReachedZero
	// CountdownTimedOut means gates were still present and non-zero when the
	// budget elapsed. Non-fatal: some countdowns are cosmetic and the loop
	// proceeds anyway.
	CountdownTimedOut
)

func (s CountdownStatus) String() string {
	switch s {
	case CountdownAbsent:
		return "no countdown present"
	case CountdownReachedZero:
		return "countdown reached zero"
	case CountdownTimedOut:
		return "countdown timed out"
	default:
		return "countdown status unknown"
	}
}

// CountdownDetector polls the known countdown-gate locators until a gate
// reaches zero, no gate remains, or the timeout budget elapses.
type CountdownDetector struct {
	gw       Gateway
	locators []Locator
	timeout  time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewCountdownDetector builds a detector over the fixed locator table.
func NewCountdownDetector(gw Gateway, cfg config.ResolverConfig, logger *zap.Logger) *CountdownDetector {
	return &CountdownDetector{
		gw:       gw,
		locators: countdownLocators,
		timeout:  cfg.CountdownTimeout,
		interval: cfg.CountdownPollInterval,
		logger:   logger.Named("countdown"),
	}
}

// Wait polls once per interval. On any cycle where no locator matches an
// element it concludes there is no gate and returns immediately rather than
// waiting out the full budget.
func (d *CountdownDetector) Wait(ctx context.Context, sess *Session) CountdownStatus {
	deadline := time.Now().Add(d.timeout)

	for {
		if ctx.Err() != nil {
			return CountdownTimedOut
		}

		foundAny := false
		for _, loc := range d.locators {
			elements := d.gw.Find(ctx, loc, 0)
			if len(elements) == 0 {
				continue
			}
			foundAny = true
			for _, el := range elements {
				text, err := el.Text(ctx)
				if err != nil {
					// Stale between lookup and read; treat as unresolved.
					continue
				}
				value, ok := leadingNumber(text)
				if !ok {
					// Non-numeric text is "not yet resolved", not an error.
					continue
				}
				sess.Logf("  countdown element '%s' shows: %d", loc.Value, value)
				if value <= 0 {
					sess.Logf("  countdown reached 0.")
					return CountdownReachedZero
				}
			}
		}

		if !foundAny {
			return CountdownAbsent
		}
		if time.Now().After(deadline) {
			d.logger.Debug("Countdown still present at timeout; proceeding anyway.")
			return CountdownTimedOut
		}
		if err := hesitate(ctx, d.interval); err != nil {
			return CountdownTimedOut
		}
	}
}

// leadingNumber parses the leading run of digit/sign characters from the
// text of a countdown element. Anything else on the element ("5 seconds",
// "12s remaining") is ignored.
func leadingNumber(text string) (int, bool) {
	text = strings.TrimSpace(text)
	end := 0
	for end < len(text) {
		c := text[end]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	value, err := strconv.Atoi(text[:end])
	if err != nil {
		return 0, false
	}
	return value, true
}

// hesitate pauses execution, respecting the context cancellation.
func hesitate(ctx context.Context, duration time.Duration) error {
	select {
	case <-time.After(duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
