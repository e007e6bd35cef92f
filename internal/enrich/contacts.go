package enrich

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/sells-group/retreat-leads/internal/model"
)

// ContactPages are checked after the homepage, relative to the site origin.
var ContactPages = []string{
	"/contact", "/contact-us", "/contacto", "/about", "/about-us",
	"/connect", "/get-in-touch",
}

// maxEmails is how many distinct addresses a scrape keeps.
const maxEmails = 3

// ErrSiteUnreachable is returned when no page of a website could be read.
var ErrSiteUnreachable = eris.New("enrich: website unreachable")

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// emailNoise marks addresses that are placeholders, assets or tracking hosts.
var emailNoise = []string{
	"example.com", "domain.com", "email.com", "your",
	"noreply", "no-reply", "donotreply",
	".png", ".jpg", ".gif", ".svg", ".webp",
	"sentry.io", "cloudfront", "wixpress",
}

type socialPattern struct {
	set  func(*model.ContactInfo, string)
	get  func(*model.ContactInfo) string
	pats []*regexp.Regexp
}

var socialPatterns = []socialPattern{
	{
		set:  func(c *model.ContactInfo, v string) { c.Instagram = v },
		get:  func(c *model.ContactInfo) string { return c.Instagram },
		pats: []*regexp.Regexp{regexp.MustCompile(`instagram\.com/([^/?#]+)`), regexp.MustCompile(`instagr\.am/([^/?#]+)`)},
	},
	{
		set:  func(c *model.ContactInfo, v string) { c.Facebook = v },
		get:  func(c *model.ContactInfo) string { return c.Facebook },
		pats: []*regexp.Regexp{regexp.MustCompile(`facebook\.com/([^/?#]+)`), regexp.MustCompile(`fb\.com/([^/?#]+)`)},
	},
	{
		set:  func(c *model.ContactInfo, v string) { c.LinkedIn = v },
		get:  func(c *model.ContactInfo) string { return c.LinkedIn },
		pats: []*regexp.Regexp{regexp.MustCompile(`linkedin\.com/(?:company|in)/([^/?#]+)`)},
	},
	{
		set:  func(c *model.ContactInfo, v string) { c.Twitter = v },
		get:  func(c *model.ContactInfo) string { return c.Twitter },
		pats: []*regexp.Regexp{regexp.MustCompile(`twitter\.com/([^/?#]+)`), regexp.MustCompile(`(?:^|[/.])x\.com/([^/?#]+)`)},
	},
	{
		set:  func(c *model.ContactInfo, v string) { c.YouTube = v },
		get:  func(c *model.ContactInfo) string { return c.YouTube },
		pats: []*regexp.Regexp{regexp.MustCompile(`youtube\.com/(?:c/|channel/|user/|@)?([^/?#]+)`)},
	},
	{
		set:  func(c *model.ContactInfo, v string) { c.TikTok = v },
		get:  func(c *model.ContactInfo) string { return c.TikTok },
		pats: []*regexp.Regexp{regexp.MustCompile(`tiktok\.com/@?([^/?#]+)`)},
	},
}

// socialShareSegments are path heads that point at share widgets rather than
// a profile.
var socialShareSegments = map[string]bool{
	"sharer": true, "sharer.php": true, "share": true, "intent": true,
	"dialog": true, "plugins": true, "tr": true, "embed": true,
	"p": true, "reel": true, "watch": true,
}

// ExtractEmails returns up to three distinct lowercase addresses found in
// mailto links or the page's visible text, in order of appearance.
func ExtractEmails(page string) []string {
	return emailsIn(parseHTML(page))
}

func emailsIn(doc *html.Node) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(e string) {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || !strings.Contains(e, "@") || seen[e] || len(out) >= maxEmails {
			return
		}
		seen[e] = true
		out = append(out, e)
	}

	for _, href := range findLinks(doc) {
		if addr, ok := mailtoAddress(href); ok {
			add(addr)
		}
	}
	for _, e := range emailRe.FindAllString(textContent(doc, codeTags), -1) {
		if isNoiseEmail(e) {
			continue
		}
		add(e)
	}
	return out
}

// mailtoAddress returns the address of a mailto href without its query.
func mailtoAddress(href string) (string, bool) {
	if len(href) < 7 || !strings.EqualFold(href[:7], "mailto:") {
		return "", false
	}
	addr, _, _ := strings.Cut(href[7:], "?")
	if decoded, err := url.QueryUnescape(addr); err == nil {
		addr = decoded
	}
	return addr, addr != ""
}

func isNoiseEmail(e string) bool {
	lower := strings.ToLower(e)
	for _, n := range emailNoise {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// ExtractSocial fills empty social profile fields of c from the page's links.
// Fields already set are left alone.
func ExtractSocial(page string, c *model.ContactInfo) {
	socialIn(parseHTML(page), c)
}

func socialIn(doc *html.Node, c *model.ContactInfo) {
	for _, link := range findLinks(doc) {
		href := strings.ToLower(link)
		for _, sp := range socialPatterns {
			if sp.get(c) != "" {
				continue
			}
			for _, re := range sp.pats {
				sm := re.FindStringSubmatch(href)
				if sm == nil || socialShareSegments[sm[1]] {
					continue
				}
				sp.set(c, absoluteURL(href))
				break
			}
		}
	}
}

func absoluteURL(href string) string {
	switch {
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	default:
		return "https://" + href
	}
}

// ContactScraper reads a website's homepage and contact pages for email
// addresses and social profiles.
type ContactScraper struct {
	fetcher *Fetcher
}

// NewContactScraper creates a ContactScraper.
func NewContactScraper(f *Fetcher) *ContactScraper {
	return &ContactScraper{fetcher: f}
}

// Scrape returns the contact details found on website. A blank website is
// an empty result. ErrSiteUnreachable is returned when no page could be read.
func (s *ContactScraper) Scrape(ctx context.Context, website string) (model.ContactInfo, error) {
	var info model.ContactInfo
	home := NormalizeWebsite(website)
	if home == "" {
		return info, nil
	}
	u, err := url.Parse(home)
	if err != nil || u.Host == "" {
		return info, eris.Wrapf(ErrSiteUnreachable, "invalid website %q", website)
	}
	origin := u.Scheme + "://" + u.Host

	pages := make([]string, 0, len(ContactPages)+1)
	pages = append(pages, home)
	for _, p := range ContactPages {
		pages = append(pages, origin+p)
	}

	read := 0
	seen := make(map[string]bool)
	for _, pageURL := range pages {
		if ctx.Err() != nil {
			return info, eris.Wrap(ctx.Err(), "enrich: scrape contacts")
		}
		page, err := s.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			zap.L().Debug("enrich: contact page skipped", zap.String("url", pageURL), zap.Error(err))
			continue
		}
		read++
		doc := parseHTML(page.HTML)
		for _, e := range emailsIn(doc) {
			if !seen[e] && len(info.Emails) < maxEmails {
				seen[e] = true
				info.Emails = append(info.Emails, e)
			}
		}
		socialIn(doc, &info)
	}

	if read == 0 {
		return info, eris.Wrapf(ErrSiteUnreachable, "website %s", home)
	}
	return info, nil
}
