package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retreat-leads/internal/platform"
)

// KeyLength is the number of hex characters kept from the SHA-256 digest.
const KeyLength = 12

// ErrInvalidIdentityInput is returned when a name or URL has nothing usable
// to derive a key from. Callers skip the record and count it.
var ErrInvalidIdentityInput = eris.New("identity: invalid identity input")

func digest(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:KeyLength]
}

// OrganizerKey returns the key for an organizer display name.
func OrganizerKey(name string) (string, error) {
	n := NormalizeName(name)
	if n == "" {
		return "", eris.Wrapf(ErrInvalidIdentityInput, "organizer name %q", name)
	}
	return digest(n), nil
}

// EventKey returns the key for a listing URL.
func EventKey(rawURL string) (string, error) {
	canon, err := CanonicalURL(rawURL)
	if err != nil {
		return "", err
	}
	return digest(canon), nil
}

// GuideKey returns the key for a guide. Without a profile URL the key depends
// on the name alone, so distinct people sharing a name collide.
func GuideKey(name, profileURL string) (string, error) {
	n := NormalizeName(name)
	if n == "" {
		return "", eris.Wrapf(ErrInvalidIdentityInput, "guide name %q", name)
	}
	path := profilePath(profileURL)
	if path == "" {
		return digest(n), nil
	}
	return digest(n + ":" + path), nil
}

// profilePath extracts the platform profile slug, falling back to the whole
// trimmed URL when the link is not a teacher profile.
func profilePath(profileURL string) string {
	p := strings.TrimSpace(profileURL)
	if p == "" {
		return ""
	}
	for _, marker := range []string{"/teachers/", "/teacher/"} {
		if i := strings.Index(p, marker); i >= 0 {
			slug := strings.Trim(p[i+len(marker):], "/")
			if slug != "" {
				return slug
			}
		}
	}
	return p
}

// CanonicalURL folds http to https, lowercases the host and removes "www.",
// the fragment, a trailing slash and every query parameter that carries no
// identity. The remaining parameters are sorted.
func CanonicalURL(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", eris.Wrap(ErrInvalidIdentityInput, "empty event url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", eris.Wrapf(ErrInvalidIdentityInput, "event url %q: %v", rawURL, err)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return "", eris.Wrapf(ErrInvalidIdentityInput, "event url %q has no host", rawURL)
	}
	if port := u.Port(); port != "" {
		host += ":" + port
	}

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		if platform.IsNoiseParam(u.Hostname(), k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kept := url.Values{}
	for _, k := range keys {
		vals := append([]string(nil), q[k]...)
		sort.Strings(vals)
		kept[k] = vals
	}

	out := url.URL{
		Scheme:   "https",
		Host:     host,
		Path:     strings.TrimRight(u.Path, "/"),
		RawPath:  strings.TrimRight(u.RawPath, "/"),
		RawQuery: kept.Encode(),
	}
	return out.String(), nil
}
