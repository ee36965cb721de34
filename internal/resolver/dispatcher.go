package resolver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Bri445/app-link-gen-res/internal/config"
)

// postClickPause is how long the dispatcher lets the page react after a
// successful click before trying the next rule.
const postClickPause = time.Second

// ActionRule describes one clickable target the dispatcher should try. The
// order of the rule list encodes priority: a stable locator is tried first,
// then a case-insensitive visible-text match against buttons and anchors.
type ActionRule struct {
	Name    string
	Locator *Locator
	Text    string
	Timeout time.Duration
}

// ActionDispatcher tries a prioritized list of "continue-style" controls and
// reports whether any of them fired.
type ActionDispatcher struct {
	gw              Gateway
	primary         []ActionRule
	fallback        []ActionRule
	pauseAfterClick time.Duration
	logger          *zap.Logger
}

// NewActionDispatcher builds the rule tables. Verify and Continue carry the
// known stable ids seen on real gate pages; Next and Proceed model generic
// gates that do not use that vocabulary and are text-matched only.
func NewActionDispatcher(gw Gateway, cfg config.ResolverConfig, logger *zap.Logger) *ActionDispatcher {
	return &ActionDispatcher{
		gw:              gw,
		pauseAfterClick: postClickPause,
		primary: []ActionRule{
			{
				Name:    "verify",
				Locator: &Locator{Strategy: ByID, Value: "btn6", Label: "verify #btn6"},
				Text:    "verify",
				Timeout: cfg.ActionTimeout,
			},
			{
				Name:    "continue",
				Locator: &Locator{Strategy: ByID, Value: "btn7", Label: "continue #btn7"},
				Text:    "continue",
				Timeout: cfg.ActionTimeout,
			},
		},
		fallback: []ActionRule{
			{Name: "next", Text: "next", Timeout: cfg.FallbackActionTimeout},
			{Name: "proceed", Text: "proceed", Timeout: cfg.FallbackActionTimeout},
		},
		logger: logger.Named("dispatcher"),
	}
}

// Dispatch attempts the primary Verify/Continue pair, then the Next/Proceed
// fallback pass only if the primary pair clicked nothing. It reports whether
// any control was clicked this cycle.
func (d *ActionDispatcher) Dispatch(ctx context.Context, sess *Session) bool {
	clicked := false
	for _, rule := range d.primary {
		if ctx.Err() != nil {
			return clicked
		}
		if d.tryRule(ctx, sess, rule) {
			clicked = true
		}
	}
	if clicked {
		return true
	}

	for _, rule := range d.fallback {
		if ctx.Err() != nil {
			return false
		}
		if d.tryRule(ctx, sess, rule) {
			sess.Logf("Clicked '%s' button heuristically.", rule.Name)
			return true
		}
	}
	return false
}

// tryRule attempts one rule: the stable locator first, the text match as a
// fallback. Each attempt uses the rule's short timeout so an absent control
// fails fast instead of stalling the loop.
func (d *ActionDispatcher) tryRule(ctx context.Context, sess *Session, rule ActionRule) bool {
	if rule.Locator != nil {
		if d.clickFirst(ctx, *rule.Locator, rule.Timeout) {
			sess.Logf("Clicked element '%s' (%s).", rule.Locator.Value, rule.Name)
			d.pause(ctx)
			return true
		}
	}
	if rule.Text != "" {
		if d.clickFirst(ctx, textMatchLocator(rule.Text), rule.Timeout) {
			if rule.Locator != nil {
				sess.Logf("Clicked button/link with text '%s'.", rule.Name)
			}
			d.pause(ctx)
			return true
		}
	}
	return false
}

// clickFirst clicks the first element the locator matches. A stale element
// or an empty result is simply "not clicked"; failures never propagate.
func (d *ActionDispatcher) clickFirst(ctx context.Context, loc Locator, timeout time.Duration) bool {
	for _, el := range d.gw.Find(ctx, loc, timeout) {
		if err := el.Click(ctx); err != nil {
			d.logger.Debug("Click failed, skipping element.",
				zap.String("locator", loc.String()), zap.Error(err))
			continue
		}
		return true
	}
	return false
}

func (d *ActionDispatcher) pause(ctx context.Context) {
	_ = hesitate(ctx, d.pauseAfterClick)
}
