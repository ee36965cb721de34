package resolver

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/Bri445/app-link-gen-res/internal/config"
)

// lookupTimeout bounds the stable-locator probes of the extractor. These are
// existence checks, not waits: the control is either on the page or it isn't.
const lookupTimeout = 500 * time.Millisecond

// ExtractionRule is one strategy for locating the terminal destination URL.
// The rule list is evaluated in strict priority order and the first success
// wins; lower-priority strategies never run once a higher one matches, and
// callers may rely on that ordering.
type ExtractionRule struct {
	Description string
	extract     func(ctx context.Context, sess *Session, pg *pageSnapshot) (string, bool)
}

// Extractor applies the ordered heuristic chain against the current page.
// The two strongest strategies probe live locators through the gateway; the
// weaker anchor-scan strategies run against a DOM snapshot so their matching
// logic stays deterministic while the page keeps mutating underneath.
type Extractor struct {
	gw     Gateway
	cfg    config.ResolverConfig
	rules  []ExtractionRule
	logger *zap.Logger
}

// NewExtractor assembles the strategy chain.
func NewExtractor(gw Gateway, cfg config.ResolverConfig, logger *zap.Logger) *Extractor {
	e := &Extractor{gw: gw, cfg: cfg, logger: logger.Named("extractor")}
	e.rules = []ExtractionRule{
		{Description: "stable id locators (#get-link, #gt-link)", extract: e.byStableID},
		{Description: "stable class locators (.get-link)", extract: e.byClassName},
		{Description: "visible-text match ('get link')", extract: e.byVisibleText},
		{Description: "reverse anchor scan (destination markers)", extract: e.reverseAnchorScan},
		{Description: "forward anchor scan (long http anchors)", extract: e.forwardAnchorScan},
	}
	return e
}

// Rules exposes the ordered strategy descriptions, mostly for diagnostics.
func (e *Extractor) Rules() []string {
	out := make([]string, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Description
	}
	return out
}

// Extract runs the strategies in order and returns the first match. A
// strategy that fails its lookups is treated as "no match, continue";
// extraction never aborts the resolution loop.
func (e *Extractor) Extract(ctx context.Context, sess *Session) (string, bool) {
	pg := &pageSnapshot{}
	for _, rule := range e.rules {
		link, ok := rule.extract(ctx, sess, pg)
		if !ok {
			continue
		}
		e.logger.Debug("Extraction strategy matched.",
			zap.String("strategy", rule.Description), zap.String("link", link))
		return link, true
	}
	return "", false
}

// FollowCandidate scans the page for a "continue-shaped" anchor: a target
// URL containing one of the configured follow markers, or visible text equal
// to one of the configured follow phrases. Used by the orchestrator as the
// last heuristic before declaring a page a dead end.
func (e *Extractor) FollowCandidate(ctx context.Context, sess *Session) (href, text string, ok bool) {
	pg := &pageSnapshot{}
	if !pg.load(ctx, e.gw, sess.CurrentURL) {
		return "", "", false
	}
	for _, a := range pg.anchors() {
		if a.href == "" {
			continue
		}
		abs := absoluteURL(pg.base, a.href)
		if abs == "" {
			continue
		}
		lowerHref := strings.ToLower(abs)
		if containsAny(lowerHref, e.cfg.FollowMarkers) || matchesAny(a.text, e.cfg.FollowTexts) {
			return abs, a.text, true
		}
	}
	return "", "", false
}

// byStableID probes the known stable identifiers of a "get link" control and
// returns its target URL when present and non-empty.
func (e *Extractor) byStableID(ctx context.Context, sess *Session, _ *pageSnapshot) (string, bool) {
	for _, loc := range finalLinkIDLocators {
		for _, el := range e.gw.Find(ctx, loc, lookupTimeout) {
			if href, ok := elementHref(ctx, el); ok {
				return absoluteOrRaw(sess.CurrentURL, href), true
			}
		}
	}
	return "", false
}

// byClassName is the same attribute check against the known class names.
func (e *Extractor) byClassName(ctx context.Context, sess *Session, _ *pageSnapshot) (string, bool) {
	for _, el := range e.gw.Find(ctx, finalLinkClassLocator, lookupTimeout) {
		if href, ok := elementHref(ctx, el); ok {
			return absoluteOrRaw(sess.CurrentURL, href), true
		}
	}
	return "", false
}

// byVisibleText matches anchors and buttons whose visible text equals
// "get link" case-insensitively. A matched element without a direct href
// may still carry the destination inside an inline handler; in that case
// the first http-prefixed substring up to the next quote is taken.
func (e *Extractor) byVisibleText(ctx context.Context, sess *Session, pg *pageSnapshot) (string, bool) {
	if !pg.load(ctx, e.gw, sess.CurrentURL) {
		return "", false
	}
	nodes, err := htmlquery.QueryAll(pg.root, textMatchXPath("get link"))
	if err != nil {
		return "", false
	}
	for _, node := range nodes {
		if href := strings.TrimSpace(htmlquery.SelectAttr(node, "href")); href != "" {
			return absoluteOrRaw(sess.CurrentURL, href), true
		}
		if link, ok := httpSubstring(htmlquery.SelectAttr(node, "onclick")); ok {
			return link, true
		}
	}
	return "", false
}

// reverseAnchorScan walks all anchors from the end of the document. The last
// anchor whose target carries a known final-destination marker (or any http
// target) wins, preferring ones with visible text or the literal "get link".
func (e *Extractor) reverseAnchorScan(ctx context.Context, sess *Session, pg *pageSnapshot) (string, bool) {
	if !pg.load(ctx, e.gw, sess.CurrentURL) {
		return "", false
	}
	anchors := pg.anchors()
	for i := len(anchors) - 1; i >= 0; i-- {
		a := anchors[i]
		if a.href == "" {
			continue
		}
		abs := absoluteURL(pg.base, a.href)
		if abs == "" {
			continue
		}
		lowerHref := strings.ToLower(abs)
		if !containsAny(lowerHref, e.cfg.FinalLinkMarkers) && !strings.Contains(lowerHref, "http") {
			continue
		}
		if strings.Contains(a.text, "get link") || a.text != "" {
			return abs, true
		}
	}
	return "", false
}

// forwardAnchorScan is the weakest fallback: the first anchor with an
// http(s) target longer than the configured minimum. The length threshold
// protects against matching bare short anchors.
func (e *Extractor) forwardAnchorScan(ctx context.Context, sess *Session, pg *pageSnapshot) (string, bool) {
	if !pg.load(ctx, e.gw, sess.CurrentURL) {
		return "", false
	}
	for _, a := range pg.anchors() {
		if a.href == "" {
			continue
		}
		abs := absoluteURL(pg.base, a.href)
		if strings.HasPrefix(abs, "http") && len(abs) > e.cfg.MinAnchorLength {
			return abs, true
		}
	}
	return "", false
}

// pageSnapshot lazily materializes one DOM snapshot per extraction pass and
// shares it between the snapshot-based strategies.
type pageSnapshot struct {
	attempted bool
	doc       *goquery.Document
	root      *html.Node
	base      *url.URL
	cached    []anchorInfo
}

type anchorInfo struct {
	href string
	text string // lowercased, trimmed
}

func (pg *pageSnapshot) load(ctx context.Context, gw Gateway, baseURL string) bool {
	if pg.attempted {
		return pg.doc != nil
	}
	pg.attempted = true

	markup, err := gw.HTML(ctx)
	if err != nil || markup == "" {
		return false
	}
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return false
	}
	pg.root = root
	pg.doc = goquery.NewDocumentFromNode(root)
	if base, err := url.Parse(baseURL); err == nil {
		pg.base = base
	}
	return true
}

func (pg *pageSnapshot) anchors() []anchorInfo {
	if pg.cached != nil || pg.doc == nil {
		return pg.cached
	}
	pg.doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		pg.cached = append(pg.cached, anchorInfo{
			href: strings.TrimSpace(href),
			text: strings.ToLower(strings.TrimSpace(sel.Text())),
		})
	})
	return pg.cached
}

// elementHref reads a non-empty href attribute off a live element handle.
func elementHref(ctx context.Context, el Element) (string, bool) {
	href, present, err := el.Attribute(ctx, "href")
	if err != nil || !present {
		return "", false
	}
	href = strings.TrimSpace(href)
	return href, href != ""
}

// httpSubstring extracts the first http-prefixed substring of an inline
// handler attribute, up to the next single or double quote.
func httpSubstring(s string) (string, bool) {
	idx := strings.Index(s, "http")
	if idx < 0 {
		return "", false
	}
	rest := s[idx:]
	if end := strings.IndexAny(rest, `'"`); end >= 0 {
		rest = rest[:end]
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}

// absoluteURL resolves href against base, mirroring how a driver reports
// anchor targets as absolute URLs. Non-navigational hrefs resolve to "".
func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
		return ""
	}
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// absoluteOrRaw is absoluteURL for call sites that only hold the base as a
// string and want a best-effort result even if it does not parse.
func absoluteOrRaw(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	if abs := absoluteURL(base, href); abs != "" {
		return abs
	}
	return href
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func matchesAny(s string, values []string) bool {
	for _, v := range values {
		if s == v {
			return true
		}
	}
	return false
}
