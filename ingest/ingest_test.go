package ingest

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://example.com/docs", false},
		{"http rejected", "http://example.com", true},
		{"localhost rejected", "https://localhost/admin", true},
		{"loopback ip rejected", "https://127.0.0.1/", true},
		{"private ip rejected", "https://192.168.1.1/", true},
		{"ten-net rejected", "https://10.0.0.5/", true},
		{"cgnat rejected", "https://100.64.0.1/", true},
		{"local domain rejected", "https://registry.local/", true},
		{"internal domain rejected", "https://vault.internal/", true},
		{"public ip allowed", "https://93.184.216.34/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{
		"127.0.0.1", "10.1.2.3", "172.16.0.1", "192.168.0.1",
		"169.254.1.1", "100.64.0.1", "::1", "fc00::1", "fe80::1",
		"::ffff:192.168.1.1",
	}
	for _, s := range private {
		ip := net.ParseIP(s)
		require.NotNil(t, ip, "bad test IP %s", s)
		assert.True(t, IsPrivateIP(ip), "%s should be private", s)
	}

	public := []string{"93.184.216.34", "8.8.8.8", "2606:4700::1111"}
	for _, s := range public {
		ip := net.ParseIP(s)
		require.NotNil(t, ip)
		assert.False(t, IsPrivateIP(ip), "%s should be public", s)
	}
}

func TestReferenceSlug(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/docs/guide", "example-com-docs-guide"},
		{"https://example.com", "example-com"},
		{"https://example.com/path/with.dots/", "example-com-path-with-dots"},
		{"https://EXAMPLE.com/Mixed/Case", "example-com-mixed-case"},
	}

	for _, tt := range tests {
		if got := ReferenceSlug(tt.url); got != tt.want {
			t.Errorf("ReferenceSlug(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}

	// Same URL always produces the same slug
	assert.Equal(t, ReferenceSlug("https://example.com/a"), ReferenceSlug("https://example.com/a"))

	// Invalid URLs fall back to a hash slug
	fallback := ReferenceSlug("::not a url::")
	assert.NotEmpty(t, fallback)
	assert.LessOrEqual(t, len(fallback), 80)

	// Long paths are truncated
	long := ReferenceSlug("https://example.com/" + strings.Repeat("segment/", 30))
	assert.LessOrEqual(t, len(long), 80)
}

func TestConvertExtractsArticle(t *testing.T) {
	html := `<!DOCTYPE html>
<html>
<head><title>Event Sourcing Basics</title></head>
<body>
<nav>Home | About | Contact</nav>
<article>
<h1>Event Sourcing Basics</h1>
<p>Event sourcing stores every state change as an immutable event. The
current state is derived by replaying events from the beginning. This
gives a complete audit trail for free and makes temporal queries
possible, at the cost of more complex reads.</p>
<p>Snapshots bound replay time. A projection rebuilds read models from
the event stream and can be thrown away and rebuilt at will.</p>
</article>
<footer>Copyright 2026</footer>
</body>
</html>`

	conv := NewConverter()
	result, err := conv.Convert([]byte(html), "https://example.com/event-sourcing")
	require.NoError(t, err)

	assert.Equal(t, "Event Sourcing Basics", result.Title)
	assert.Contains(t, result.Markdown, "immutable event")
	assert.Contains(t, result.Markdown, "Snapshots bound replay time")
	assert.NotContains(t, result.Markdown, "Copyright 2026")
}

func TestExtractHTMLTitle(t *testing.T) {
	page := []byte(`<html><head><title> Release Notes </title></head><body><p>x</p></body></html>`)
	assert.Equal(t, "Release Notes", extractHTMLTitle(page))
	assert.Equal(t, "", extractHTMLTitle([]byte(`<html><body><p>no title</p></body></html>`)))
}

func TestRenderSnapshot(t *testing.T) {
	converted := &ConvertResult{
		Title:    "A Guide",
		Byline:   "Jordan Doe",
		Markdown: "# A Guide\n\nBody text.",
	}

	at := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	content := renderSnapshot("A Guide", "https://example.com/guide", converted, at)
	assert.True(t, strings.HasPrefix(content, "---\n"))
	assert.Contains(t, content, "source: https://example.com/guide")
	assert.Contains(t, content, "archived:")
	assert.Contains(t, content, "2026-08-29T12:00:00Z")
	assert.Contains(t, content, "# A Guide")
	assert.Contains(t, content, "Archived from <https://example.com/guide> on 2026-08-29")
	assert.Contains(t, content, "By Jordan Doe.")
	assert.Contains(t, content, "Body text.")
}
