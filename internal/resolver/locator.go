package resolver

import (
	"fmt"
	"strings"
)

// Strategy selects how a Locator's value is interpreted by the gateway.
type Strategy string

const (
	ByID    Strategy = "id"
	ByCSS   Strategy = "css"
	ByXPath Strategy = "xpath"
	ByTag   Strategy = "tag"
)

// Locator identifies page elements. Locators are immutable and defined by
// the heuristic tables below, never by runtime state.
type Locator struct {
	Strategy Strategy
	Value    string
	Label    string
}

func (l Locator) String() string {
	if l.Label != "" {
		return l.Label
	}
	return fmt.Sprintf("%s=%s", l.Strategy, l.Value)
}

const (
	xpathUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	xpathLower = "abcdefghijklmnopqrstuvwxyz"
)

// textMatchXPath builds an XPath expression matching buttons and anchors
// whose normalized visible text equals the given text, case-insensitively.
// XPath 1.0 has no lower-case(), hence the translate() construction.
func textMatchXPath(text string) string {
	lowered := strings.ToLower(text)
	return fmt.Sprintf(
		"//button[translate(normalize-space(.), '%[1]s', '%[2]s') = '%[3]s'] | //a[translate(normalize-space(.), '%[1]s', '%[2]s') = '%[3]s']",
		xpathUpper, xpathLower, lowered)
}

// textMatchLocator wraps textMatchXPath into a Locator for gateway lookups.
func textMatchLocator(text string) Locator {
	return Locator{
		Strategy: ByXPath,
		Value:    textMatchXPath(text),
		Label:    fmt.Sprintf("text %q", text),
	}
}

// countdownLocators is the fixed, ordered set of known countdown-gate
// indicators, a superset of the ids and classes seen on real interstitial
// sites.
var countdownLocators = []Locator{
	{Strategy: ByID, Value: "ce-time", Label: "countdown #ce-time"},
	{Strategy: ByID, Value: "timer", Label: "countdown #timer"},
	{Strategy: ByCSS, Value: "#countdown, .countdown, #ce-wait1", Label: "countdown generic"},
	{Strategy: ByCSS, Value: "span.timer", Label: "countdown span.timer"},
}

// finalLinkIDLocators are the stable identifiers of a terminal "get link"
// control, tried before any weaker heuristic.
var finalLinkIDLocators = []Locator{
	{Strategy: ByID, Value: "get-link", Label: "final link #get-link"},
	{Strategy: ByID, Value: "gt-link", Label: "final link #gt-link"},
}

// finalLinkClassLocator matches the same control by its known class names.
var finalLinkClassLocator = Locator{
	Strategy: ByCSS,
	Value:    "a.get-link, .get-link, a.btn.get-link",
	Label:    "final link .get-link",
}
