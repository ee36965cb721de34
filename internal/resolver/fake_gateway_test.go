package resolver

// This file contains the in-memory Gateway used by the resolver tests: a
// scripted page graph with fake elements, so the state machine and every
// heuristic can be exercised without a browser process.

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Bri445/app-link-gen-res/internal/config"
)

// fakeElement is a scripted element handle. Text can be served from a
// sequence to model a countdown that decreases across polls.
type fakeElement struct {
	gw *fakeGateway

	text    string
	textSeq []string
	reads   int

	attrs map[string]string

	clickTarget string // when set, a click moves the gateway here
	clickErr    error
	clicks      int
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	e.reads++
	if len(e.textSeq) > 0 {
		idx := e.reads - 1
		if idx >= len(e.textSeq) {
			idx = len(e.textSeq) - 1
		}
		return e.textSeq[idx], nil
	}
	return e.text, nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.clicks++
	if e.clickErr != nil {
		return e.clickErr
	}
	if e.clickTarget != "" {
		e.gw.current = e.clickTarget
	}
	return nil
}

// fakePage is one node of the scripted page graph.
type fakePage struct {
	elements map[string][]*fakeElement
	html     string
	// redirectTo models a server-side redirect on load.
	redirectTo string
}

// fakeGateway implements Gateway over the page graph.
type fakeGateway struct {
	pages   map[string]*fakePage
	current string
	navErr  map[string]error
	navs    []string
	closed  bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		pages:  make(map[string]*fakePage),
		navErr: make(map[string]error),
	}
}

// page registers (or returns) the page for a URL.
func (g *fakeGateway) page(url string) *fakePage {
	p, ok := g.pages[url]
	if !ok {
		p = &fakePage{elements: make(map[string][]*fakeElement)}
		g.pages[url] = p
	}
	return p
}

// addElement attaches a fake element to the page at url under the locator.
func (g *fakeGateway) addElement(url string, loc Locator, el *fakeElement) *fakeElement {
	el.gw = g
	p := g.page(url)
	k := locatorKey(loc)
	p.elements[k] = append(p.elements[k], el)
	return el
}

func (g *fakeGateway) Navigate(ctx context.Context, url string) error {
	g.navs = append(g.navs, url)
	if err, ok := g.navErr[url]; ok {
		return &NavigationError{URL: url, Err: err}
	}
	g.current = url
	if p, ok := g.pages[url]; ok && p.redirectTo != "" {
		g.current = p.redirectTo
	}
	return nil
}

func (g *fakeGateway) CurrentURL(ctx context.Context) (string, error) {
	return g.current, nil
}

func (g *fakeGateway) Find(ctx context.Context, loc Locator, timeout time.Duration) []Element {
	p, ok := g.pages[g.current]
	if !ok {
		return nil
	}
	matches := p.elements[locatorKey(loc)]
	out := make([]Element, 0, len(matches))
	for _, el := range matches {
		out = append(out, el)
	}
	return out
}

func (g *fakeGateway) HTML(ctx context.Context) (string, error) {
	p, ok := g.pages[g.current]
	if !ok {
		return "", fmt.Errorf("no page loaded")
	}
	return p.html, nil
}

func (g *fakeGateway) Close(ctx context.Context) error {
	g.closed = true
	return nil
}

func locatorKey(loc Locator) string {
	return string(loc.Strategy) + "|" + loc.Value
}

// fastConfig returns resolver settings tuned so tests run in milliseconds
// while keeping the default heuristic thresholds.
func fastConfig() config.ResolverConfig {
	return config.ResolverConfig{
		MaxSteps:              12,
		PageLoadTimeout:       time.Second,
		CountdownTimeout:      200 * time.Millisecond,
		CountdownPollInterval: 5 * time.Millisecond,
		ActionTimeout:         time.Millisecond,
		FallbackActionTimeout: time.Millisecond,
		SettleDelay:           time.Millisecond,
		MinAnchorLength:       20,
		FinalLinkMarkers:      []string{"telegram", "t.me"},
		FollowMarkers:         []string{"/readmore", "continue"},
		FollowTexts:           []string{"continue", "read more", "get link", "get-link"},
	}
}

// newTestOrchestrator builds an orchestrator over the fake gateway with the
// post-click pause shrunk so dispatch-heavy tests stay fast.
func newTestOrchestrator(gw Gateway, cfg config.ResolverConfig) *Orchestrator {
	o := New(gw, cfg, zap.NewNop())
	o.dispatcher.pauseAfterClick = time.Millisecond
	return o
}
