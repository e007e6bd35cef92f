// Package platform knows the retreat-listing platforms the scrapers cover:
// how to recognize their URLs, which query parameters are search noise, and
// how to label a scrape batch from its search URL.
package platform

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Known platform tags, as stored in Event.Platform.
const (
	RetreatGuru  = "retreat.guru"
	BookRetreats = "bookretreats.com"
)

// ErrUnknownPlatform is returned by Detect for URLs outside the supported platforms.
var ErrUnknownPlatform = eris.New("platform: unknown source")

// Detect returns the platform tag for a search or listing URL.
func Detect(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", eris.Wrapf(err, "platform: parse %q", rawURL)
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "retreat.guru"):
		return RetreatGuru, nil
	case strings.Contains(host, "bookretreats.com"):
		return BookRetreats, nil
	default:
		return "", eris.Wrapf(ErrUnknownPlatform, "host %q", host)
	}
}

// Normalize returns the canonical tag for a platform name supplied by a
// scraper, falling back to the lowercased input for platforms not listed here.
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch {
	case n == "":
		return ""
	case strings.Contains(n, "retreat.guru"), n == "retreatguru", n == "rg":
		return RetreatGuru
	case strings.Contains(n, "bookretreats"), n == "br":
		return BookRetreats
	default:
		return n
	}
}

// trackingParams are dropped from every listing URL before hashing.
var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"ref":     true,
	"ref_src": true,
	"mc_cid":  true,
	"mc_eid":  true,
}

// filterParams are search filters a platform carries over onto listing links.
var filterParams = map[string][]string{
	RetreatGuru: {
		"topic", "country", "experiences_type", "price_range",
		"duration_days", "is_online", "is_weekend", "is_affordable",
	},
	BookRetreats: {"pageNumber"},
}

// filterPrefixes cover bracketed filter families such as scopes[type].
var filterPrefixes = map[string][]string{
	BookRetreats: {"scopes[", "facets["},
}

// FilterParams returns the search filter parameters a platform carries onto
// listing links. Bracketed families are reported by their prefix.
func FilterParams(tag string) []string {
	out := append([]string(nil), filterParams[tag]...)
	return append(out, filterPrefixes[tag]...)
}

// IsNoiseParam reports whether a query parameter on a listing URL from host
// carries no identity and should be stripped during canonicalization.
func IsNoiseParam(host, param string) bool {
	p := strings.ToLower(param)
	if trackingParams[p] || strings.HasPrefix(p, "utm_") {
		return true
	}
	tag, err := Detect("https://" + host)
	if err != nil {
		return false
	}
	for _, f := range filterParams[tag] {
		if strings.EqualFold(f, param) {
			return true
		}
	}
	for _, prefix := range filterPrefixes[tag] {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}
