package enrich

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockFetcher returns an unthrottled Fetcher whose requests go to a
// private httpmock transport.
func newMockFetcher(t *testing.T) (*Fetcher, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	f := NewFetcher(
		WithHTTPClient(&http.Client{Transport: mt}),
		WithRequestRate(0),
	)
	return f, mt
}

func TestFetch_OK(t *testing.T) {
	t.Parallel()

	f, mt := newMockFetcher(t)
	mt.RegisterResponder(http.MethodGet, "https://casavioleta.mx/about",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, DefaultUserAgent, req.Header.Get("User-Agent"))
			return httpmock.NewStringResponse(http.StatusOK, "<p>About us</p>"), nil
		})

	page, err := f.Fetch(context.Background(), "https://casavioleta.mx/about")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.Status)
	assert.Equal(t, "<p>About us</p>", page.HTML)
}

func TestFetch_Errors(t *testing.T) {
	t.Parallel()

	f, mt := newMockFetcher(t)
	mt.RegisterResponder(http.MethodGet, "https://x.test/missing",
		httpmock.NewStringResponder(http.StatusNotFound, "nope"))
	mt.RegisterResponder(http.MethodGet, "https://x.test/boom",
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))
	mt.RegisterResponder(http.MethodGet, "https://x.test/cf",
		func(*http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusForbidden, "denied")
			resp.Header.Set("cf-ray", "abc123")
			return resp, nil
		})
	mt.RegisterResponder(http.MethodGet, "https://x.test/challenge",
		httpmock.NewStringResponder(http.StatusOK, "<title>Just a moment</title> Checking your browser before accessing"))

	ctx := context.Background()

	_, err := f.Fetch(ctx, "https://x.test/missing")
	assert.True(t, eris.Is(err, ErrNotFound))

	_, err = f.Fetch(ctx, "https://x.test/boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	_, err = f.Fetch(ctx, "https://x.test/cf")
	assert.True(t, eris.Is(err, ErrBlocked))

	_, err = f.Fetch(ctx, "https://x.test/challenge")
	assert.True(t, eris.Is(err, ErrBlocked))

	_, err = f.Fetch(ctx, "https://x.test/unregistered")
	assert.Error(t, err)
}

func TestFetch_CancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	f := NewFetcher(WithRequestRate(0.001))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "https://x.test/")
	assert.Error(t, err)
}

func TestPageText(t *testing.T) {
	t.Parallel()

	html := `<html><head><style>.a{color:red}</style><script>var tracking = 1;</script></head>
<body><nav>Home | Book</nav><h1>Casa Violeta</h1><p>Yoga   retreats
 in <b>Tulum</b> &amp; Oaxaca.</p><footer>© 2025</footer></body></html>`

	text := PageText(html, 0)
	assert.Contains(t, text, "Casa Violeta")
	assert.Contains(t, text, "Yoga retreats in Tulum & Oaxaca.")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "Home | Book")
	assert.NotContains(t, text, "©")
	assert.False(t, strings.Contains(text, "  "))

	assert.Equal(t, "Casa", PageText("<p>Casa Violeta</p>", 4))

	nested := `<div><script>document.write("<p>injected</p>")</script><p>Sound healing</p><nav><ul><li>Menu</li></ul></nav></div>`
	assert.Equal(t, "Sound healing", PageText(nested, 0))
}

func TestNormalizeWebsite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"casavioleta.mx", "https://casavioleta.mx"},
		{"https://casavioleta.mx/", "https://casavioleta.mx"},
		{"http://casavioleta.mx/en/", "http://casavioleta.mx/en"},
		{"//casavioleta.mx", "https://casavioleta.mx"},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeWebsite(tt.in), tt.in)
	}

	assert.Equal(t, "https://a.test", join("https://a.test", "/"))
	assert.Equal(t, "https://a.test/about", join("https://a.test", "/about"))
}
