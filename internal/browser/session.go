package browser

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Bri445/app-link-gen-res/internal/resolver"
)

// opGuard caps every single CDP round trip so a wedged renderer cannot stall
// the resolution loop indefinitely.
const opGuard = 10 * time.Second

// Session is one isolated browser tab implementing resolver.Gateway. All
// operations degrade the way the gateway contract requires: lookups on a
// missing element are silent, clicks on detached nodes report an error the
// resolver treats as "no match".
type Session struct {
	id      string
	ctx     context.Context // chromedp tab context
	cancel  context.CancelFunc
	logger  *zap.Logger
	manager *Manager
}

var _ resolver.Gateway = (*Session)(nil)

func newSession(tabCtx context.Context, cancel context.CancelFunc, logger *zap.Logger, m *Manager) *Session {
	id := uuid.New().String()
	return &Session{
		id:      id,
		ctx:     tabCtx,
		cancel:  cancel,
		logger:  logger.Named("browser_session").With(zap.String("session_id", id)),
		manager: m,
	}
}

// Navigate loads the URL in this tab. Load failures come back as
// *resolver.NavigationError; the resolver logs them and carries on.
func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return &resolver.NavigationError{URL: url, Err: err}
	}
	return nil
}

// CurrentURL reports the tab's current location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	runCtx, cancel := s.opContext(ctx, opGuard)
	defer cancel()

	var location string
	if err := chromedp.Run(runCtx, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

// Find locates elements matching the locator, waiting up to timeout for at
// least one to appear. A zero timeout is an immediate existence check.
// Absence, including a lookup timeout, is a silent empty result.
func (s *Session) Find(ctx context.Context, loc resolver.Locator, timeout time.Duration) []resolver.Element {
	opts := []chromedp.QueryOption{queryOption(loc.Strategy)}
	guard := timeout
	if guard <= 0 {
		// Immediate check: do not wait for nodes to appear, but still bound
		// the CDP round trip itself.
		opts = append(opts, chromedp.AtLeast(0))
		guard = opGuard
	}

	runCtx, cancel := s.opContext(ctx, guard)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(runCtx, chromedp.Nodes(loc.Value, &nodes, opts...)); err != nil {
		// Deadline exceeded simply means the control never showed up.
		return nil
	}

	elements := make([]resolver.Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, &element{sess: s, node: node})
	}
	return elements
}

// HTML snapshots the current document markup.
func (s *Session) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := s.opContext(ctx, opGuard)
	defer cancel()

	var markup string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &markup, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return markup, nil
}

// Close tears the tab down and unregisters it from the manager.
func (s *Session) Close(ctx context.Context) error {
	s.logger.Debug("Closing browser session.")
	if s.manager != nil {
		s.manager.unregisterSession(s.id)
	}
	s.cancel()

	select {
	case <-s.ctx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// opContext combines the tab context with the caller's cancellation and a
// guard timeout.
func (s *Session) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	combined, cancelCombined := CombineContext(s.ctx, ctx)
	guarded, cancelGuard := context.WithTimeout(combined, timeout)
	return guarded, func() {
		cancelGuard()
		cancelCombined()
	}
}

func queryOption(strategy resolver.Strategy) chromedp.QueryOption {
	switch strategy {
	case resolver.ByID:
		return chromedp.ByID
	case resolver.ByXPath:
		return chromedp.BySearch
	case resolver.ByCSS, resolver.ByTag:
		return chromedp.ByQueryAll
	default:
		return chromedp.ByQueryAll
	}
}

// element wraps a located DOM node. Nodes are addressed by their full XPath
// for text/attribute reads; a node that detached in the meantime surfaces
// an error the resolver treats as staleness.
type element struct {
	sess *Session
	node *cdp.Node
}

var _ resolver.Element = (*element)(nil)

func (e *element) Text(ctx context.Context) (string, error) {
	runCtx, cancel := e.sess.opContext(ctx, opGuard)
	defer cancel()

	var text string
	if err := chromedp.Run(runCtx,
		chromedp.Text(e.node.FullXPath(), &text, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	runCtx, cancel := e.sess.opContext(ctx, opGuard)
	defer cancel()

	var value string
	var present bool
	if err := chromedp.Run(runCtx,
		chromedp.AttributeValue(e.node.FullXPath(), name, &value, &present, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return "", false, err
	}
	return value, present, nil
}

func (e *element) Click(ctx context.Context) error {
	runCtx, cancel := e.sess.opContext(ctx, opGuard)
	defer cancel()

	return chromedp.Run(runCtx, chromedp.MouseClickNode(e.node))
}
