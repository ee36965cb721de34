package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Bri445/app-link-gen-res/internal/config"
)

// Orchestrator ties the countdown detector, action dispatcher, navigation
// tracker and extractor into the bounded per-page loop. One orchestrator
// drives exactly one gateway and runs strictly sequentially.
type Orchestrator struct {
	gw         Gateway
	cfg        config.ResolverConfig
	countdown  *CountdownDetector
	dispatcher *ActionDispatcher
	tracker    *NavigationTracker
	extractor  *Extractor
	logger     *zap.Logger
}

// New assembles an orchestrator over the given gateway.
func New(gw Gateway, cfg config.ResolverConfig, logger *zap.Logger) *Orchestrator {
	logger = logger.Named("resolver")
	return &Orchestrator{
		gw:         gw,
		cfg:        cfg,
		countdown:  NewCountdownDetector(gw, cfg, logger),
		dispatcher: NewActionDispatcher(gw, cfg, logger),
		tracker:    NewNavigationTracker(gw, cfg, logger),
		extractor:  NewExtractor(gw, cfg, logger),
		logger:     logger,
	}
}

// Resolve runs the state machine from startURL to one of its terminal
// states. The returned result always carries the full audit log, whatever
// the outcome. Any panic below the loop is caught here and converted into a
// fatal outcome; releasing the gateway is the caller's responsibility so it
// happens on every exit path.
func (o *Orchestrator) Resolve(ctx context.Context, startURL string, sink func(LogEntry)) (result Result) {
	sess := NewSession(startURL, o.cfg.MaxSteps, o.logger, sink)
	sess.Logf("Starting resolution for: %s", startURL)

	defer func() {
		if r := recover(); r != nil {
			sess.Logf("Unexpected failure during resolution: %v", r)
			o.logger.Error("Recovered panic at orchestrator boundary.",
				zap.Any("panic", r), zap.Stack("stack"))
			result = Result{
				Outcome: OutcomeFatal,
				Steps:   sess.StepCount,
				Log:     sess.Log(),
				Err:     fmt.Errorf("unexpected failure: %v", r),
			}
		}
	}()

	outcome := o.run(ctx, sess)
	if outcome == OutcomeFound {
		sess.Logf("Final extracted link: %s", sess.FinalLink)
	} else {
		sess.Logf("Could not find a final link (%s).", outcome)
	}

	return Result{
		Outcome:  outcome,
		FinalURL: sess.FinalLink,
		Steps:    sess.StepCount,
		Log:      sess.Log(),
	}
}

// run is the per-step pipeline: navigate, wait out any countdown, dispatch
// conditional clicks, classify the navigation result, then try extraction
// and the continue-anchor heuristic. Every iteration consumes one unit of
// the step budget, so the loop terminates even when a page keeps absorbing
// clicks without ever changing.
func (o *Orchestrator) run(ctx context.Context, sess *Session) Outcome {
	for {
		if ctx.Err() != nil {
			sess.Logf("Resolution cancelled.")
			return OutcomeCancelled
		}
		if sess.StepCount >= sess.MaxSteps {
			sess.Logf("Step budget (%d) exhausted without resolution.", sess.MaxSteps)
			return OutcomeExhausted
		}
		sess.StepCount++
		sess.MarkVisited(sess.CurrentURL)

		sess.Logf("Step %d: opening %s", sess.StepCount, sess.CurrentURL)
		navCtx, cancel := context.WithTimeout(ctx, o.cfg.PageLoadTimeout)
		err := o.gw.Navigate(navCtx, sess.CurrentURL)
		cancel()
		if err != nil {
			// Non-fatal: proceed against whatever page state resulted.
			sess.Logf("  navigation failed: %v; continuing where possible.", err)
		}

		status := o.countdown.Wait(ctx, sess)
		sess.Logf("Countdown: %s.", status)

		clicked := o.dispatcher.Dispatch(ctx, sess)

		switch o.tracker.Observe(ctx, sess) {
		case NavigationLooped:
			return OutcomeLoopDetected
		case NavigationRedirected:
			// Restart the per-page pipeline on the new URL; extraction is
			// skipped this cycle.
			continue
		}

		if link, ok := o.extractor.Extract(ctx, sess); ok {
			sess.FinalLink = link
			sess.Logf("Found final link: %s", link)
			return OutcomeFound
		}

		if clicked {
			// A control fired but nothing observable changed yet. Re-run the
			// pipeline on the same page with one unit of budget consumed.
			continue
		}

		if href, text, ok := o.extractor.FollowCandidate(ctx, sess); ok {
			sess.Logf("Following anchor heuristically: %s (text='%s')", href, text)
			sess.CurrentURL = href
			continue
		}

		sess.Logf("No actionable element found on this page. Ending resolution attempts.")
		return OutcomeExhausted
	}
}
