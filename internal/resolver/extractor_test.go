package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const extractTestPage = "https://gate.example/final"

func newTestExtractor(gw Gateway) *Extractor {
	return NewExtractor(gw, fastConfig(), zap.NewNop())
}

func extractSession() *Session {
	return NewSession(extractTestPage, 12, zap.NewNop(), nil)
}

func TestExtract_StableIDWinsOverTextMatch(t *testing.T) {
	gw := newFakeGateway()
	gw.current = extractTestPage
	gw.addElement(extractTestPage, finalLinkIDLocators[0], &fakeElement{
		attrs: map[string]string{"href": "https://t.me/id_based_channel"},
	})
	// The page also exposes a text-only match pointing somewhere else.
	gw.page(extractTestPage).html = `<html><body>
		<a href="https://t.me/text_based_channel">Get Link</a>
	</body></html>`

	link, ok := newTestExtractor(gw).Extract(context.Background(), extractSession())

	require.True(t, ok)
	assert.Equal(t, "https://t.me/id_based_channel", link,
		"strategy 1 must win; the text-based URL must not be returned")
}

func TestExtract_ClassLocator(t *testing.T) {
	gw := newFakeGateway()
	gw.current = extractTestPage
	gw.addElement(extractTestPage, finalLinkClassLocator, &fakeElement{
		attrs: map[string]string{"href": "https://t.me/class_channel"},
	})

	link, ok := newTestExtractor(gw).Extract(context.Background(), extractSession())

	require.True(t, ok)
	assert.Equal(t, "https://t.me/class_channel", link)
}

func TestExtract_EmptyHrefIsNotAMatch(t *testing.T) {
	gw := newFakeGateway()
	gw.current = extractTestPage
	gw.addElement(extractTestPage, finalLinkIDLocators[1], &fakeElement{
		attrs: map[string]string{"href": "   "},
	})
	gw.page(extractTestPage)

	_, ok := newTestExtractor(gw).Extract(context.Background(), extractSession())
	assert.False(t, ok)
}

func TestExtract_VisibleTextMatch(t *testing.T) {
	t.Run("anchor href", func(t *testing.T) {
		gw := newFakeGateway()
		gw.current = extractTestPage
		gw.page(extractTestPage).html = `<html><body>
			<a href="https://t.me/visible_text_channel">GET LINK</a>
		</body></html>`

		link, ok := newTestExtractor(gw).Extract(context.Background(), extractSession())
		require.True(t, ok)
		assert.Equal(t, "https://t.me/visible_text_channel", link)
	})

	t.Run("inline handler fallback", func(t *testing.T) {
		gw := newFakeGateway()
		gw.current = extractTestPage
		gw.page(extractTestPage).html = `<html><body>
			<button onclick="window.open('https://t.me/onclick_channel')">Get Link</button>
		</body></html>`

		link, ok := newTestExtractor(gw).Extract(context.Background(), extractSession())
		require.True(t, ok)
		assert.Equal(t, "https://t.me/onclick_channel", link)
	})
}

func TestExtract_ReverseAnchorScanPrefersLastMarkerAnchor(t *testing.T) {
	gw := newFakeGateway()
	gw.current = extractTestPage
	gw.page(extractTestPage).html = `<html><body>
		<a href="https://ads.example/banner-one-long-url">sponsor</a>
		<a href="https://t.me/first_marker">join</a>
		<a href="https://t.me/last_marker">channel</a>
	</body></html>`

	link, ok := newTestExtractor(gw).Extract(context.Background(), extractSession())

	require.True(t, ok)
	assert.Equal(t, "https://t.me/last_marker", link, "the reverse scan takes the last matching anchor")
}

func TestExtract_ReverseScanSkipsTextlessAnchors(t *testing.T) {
	gw := newFakeGateway()
	gw.current = extractTestPage
	gw.page(extractTestPage).html = `<html><body>
		<a href="https://t.me/named_channel">get link</a>
		<a href="https://t.me/anonymous_channel"></a>
	</body></html>`

	link, ok := newTestExtractor(gw).Extract(context.Background(), extractSession())

	require.True(t, ok)
	assert.Equal(t, "https://t.me/named_channel", link)
}

func TestExtract_ForwardScanLengthThreshold(t *testing.T) {
	t.Run("long anchor matches", func(t *testing.T) {
		gw := newFakeGateway()
		gw.current = extractTestPage
		// No text anywhere, so only the forward scan can match.
		gw.page(extractTestPage).html = `<html><body>
			<a href="https://destination.example/some/long/path"></a>
		</body></html>`

		link, ok := newTestExtractor(gw).Extract(context.Background(), extractSession())
		require.True(t, ok)
		assert.Equal(t, "https://destination.example/some/long/path", link)
	})

	t.Run("short anchor does not", func(t *testing.T) {
		gw := newFakeGateway()
		gw.current = extractTestPage
		gw.page(extractTestPage).html = `<html><body><a href="http://x.io/a"></a></body></html>`

		_, ok := newTestExtractor(gw).Extract(context.Background(), extractSession())
		assert.False(t, ok)
	})
}

func TestExtract_RelativeHrefResolvedAgainstCurrentURL(t *testing.T) {
	gw := newFakeGateway()
	gw.current = extractTestPage
	gw.addElement(extractTestPage, finalLinkIDLocators[0], &fakeElement{
		attrs: map[string]string{"href": "/downloads/package"},
	})

	link, ok := newTestExtractor(gw).Extract(context.Background(), extractSession())

	require.True(t, ok)
	assert.Equal(t, "https://gate.example/downloads/package", link)
}

func TestExtract_Idempotent(t *testing.T) {
	gw := newFakeGateway()
	gw.current = extractTestPage
	gw.page(extractTestPage).html = `<html><body>
		<a href="https://t.me/stable_channel">get link</a>
	</body></html>`

	e := newTestExtractor(gw)
	sess := extractSession()

	first, ok := e.Extract(context.Background(), sess)
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		again, ok := e.Extract(context.Background(), sess)
		require.True(t, ok)
		assert.Equal(t, first, again, "re-running extraction on an unchanged page must be stable")
	}
}

func TestExtract_NothingMatches(t *testing.T) {
	gw := newFakeGateway()
	gw.current = extractTestPage
	gw.page(extractTestPage).html = `<html><body><p>nothing here</p></body></html>`

	_, ok := newTestExtractor(gw).Extract(context.Background(), extractSession())
	assert.False(t, ok)
}

func TestFollowCandidate(t *testing.T) {
	t.Run("marker in href", func(t *testing.T) {
		gw := newFakeGateway()
		gw.current = extractTestPage
		gw.page(extractTestPage).html = `<html><body>
			<a href="https://gate.example/readmore/42">article</a>
		</body></html>`

		href, _, ok := newTestExtractor(gw).FollowCandidate(context.Background(), extractSession())
		require.True(t, ok)
		assert.Equal(t, "https://gate.example/readmore/42", href)
	})

	t.Run("follow text", func(t *testing.T) {
		gw := newFakeGateway()
		gw.current = extractTestPage
		gw.page(extractTestPage).html = `<html><body>
			<a href="https://gate.example/page2">Read More</a>
		</body></html>`

		href, text, ok := newTestExtractor(gw).FollowCandidate(context.Background(), extractSession())
		require.True(t, ok)
		assert.Equal(t, "https://gate.example/page2", href)
		assert.Equal(t, "read more", text)
	})

	t.Run("no candidate", func(t *testing.T) {
		gw := newFakeGateway()
		gw.current = extractTestPage
		gw.page(extractTestPage).html = `<html><body>
			<a href="https://gate.example/privacy">privacy policy</a>
		</body></html>`

		_, _, ok := newTestExtractor(gw).FollowCandidate(context.Background(), extractSession())
		assert.False(t, ok)
	})
}

func TestHTTPSubstring(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
		ok   bool
	}{
		{"single quoted", `window.open('https://t.me/chan')`, "https://t.me/chan", true},
		{"double quoted", `go("https://t.me/chan");`, "https://t.me/chan", true},
		{"unterminated", `location=https://t.me/chan`, "https://t.me/chan", true},
		{"no http", `doSomething()`, "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := httpSubstring(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.out, out)
		})
	}
}
