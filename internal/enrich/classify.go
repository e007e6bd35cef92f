package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retreat-leads/internal/cache"
	"github.com/sells-group/retreat-leads/internal/model"
	"github.com/sells-group/retreat-leads/internal/scoring"
	"github.com/sells-group/retreat-leads/pkg/anthropic"
)

// SitePages are the website paths read for classification, in order.
var SitePages = []string{
	"/", "/about", "/about-us", "/our-story", "/team", "/founder",
	"/facilitators", "/services", "/retreats", "/offerings",
	"/venue", "/accommodations", "/rooms", "/contact",
}

// maxPromptContent caps the combined website text placed in the prompt.
const maxPromptContent = 6000

// ErrNoJSON is returned when a model reply has no JSON object.
var ErrNoJSON = eris.New("enrich: no json object in reply")

// SiteContent is the text read from an organizer's website.
type SiteContent struct {
	PagesFound            []string
	HasVenuePage          bool
	HasAccommodationsPage bool
	Text                  string
}

// ReadSite fetches SitePages under website and collects their text, each page
// truncated to maxPerPage runes. Missing pages are skipped.
func ReadSite(ctx context.Context, f *Fetcher, website string, maxPerPage int) SiteContent {
	var sc SiteContent
	base := NormalizeWebsite(website)
	if base == "" {
		return sc
	}

	var b strings.Builder
	for _, path := range SitePages {
		if ctx.Err() != nil {
			break
		}
		page, err := f.Fetch(ctx, join(base, path))
		if err != nil {
			zap.L().Debug("enrich: site page skipped", zap.String("url", join(base, path)), zap.Error(err))
			continue
		}
		sc.PagesFound = append(sc.PagesFound, path)
		switch path {
		case "/venue":
			sc.HasVenuePage = true
		case "/accommodations", "/rooms":
			sc.HasVenuePage = true
			sc.HasAccommodationsPage = true
		}
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", path, PageText(page.HTML, maxPerPage))
	}
	sc.Text = b.String()
	return sc
}

// Profile is what the classifier knows about an organizer before reading
// its website.
type Profile struct {
	Key         string
	Name        string
	Website     string
	Platforms   []string
	Aggregates  model.Aggregates
	Titles      []string
	Locations   []string
	PlaceName   string
	Rating      *float64
	ReviewCount *int
	Address     string
}

// ClassifierConfig configures a Classifier.
type ClassifierConfig struct {
	Model            string
	MaxTokens        int64
	MaxContentLength int
	VenueName        string
}

// Classifier labels organizers as facilitators or venue owners with an LLM.
// Verdicts are cached by organizer key.
type Classifier struct {
	client  anthropic.Client
	fetcher *Fetcher
	store   cache.Cache
	cfg     ClassifierConfig
	system  []anthropic.SystemBlock

	mu    sync.Mutex
	usage anthropic.TokenUsage
}

// NewClassifier creates a Classifier. store may be nil to skip caching.
func NewClassifier(client anthropic.Client, fetcher *Fetcher, store cache.Cache, cfg ClassifierConfig) *Classifier {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = 4000
	}
	if cfg.VenueName == "" {
		cfg.VenueName = "our venue"
	}
	return &Classifier{
		client:  client,
		fetcher: fetcher,
		store:   store,
		cfg:     cfg,
		system:  anthropic.BuildCachedSystemBlocks(systemPrompt(cfg.VenueName)),
	}
}

// Classify returns the cached verdict for p.Key when fresh, otherwise reads
// the website, asks the model and caches the answer.
func (c *Classifier) Classify(ctx context.Context, p Profile) (model.Classification, error) {
	if c.store != nil {
		var cached model.Classification
		hit, err := cache.GetJSON(ctx, c.store, p.Key, &cached)
		if err != nil {
			zap.L().Warn("enrich: classification cache read failed", zap.String("organizer", p.Key), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	site := ReadSite(ctx, c.fetcher, p.Website, c.cfg.MaxContentLength)
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    c.system,
		Messages: []anthropic.Message{
			{Role: "user", Content: BuildPrompt(p, site, c.cfg.VenueName)},
		},
	})
	if err != nil {
		return model.Classification{}, eris.Wrapf(err, "enrich: classify %s", p.Key)
	}
	c.addUsage(resp.Usage)

	out, err := ParseClassification(resp.Text())
	if err != nil {
		return model.Classification{}, eris.Wrapf(err, "enrich: classify %s", p.Key)
	}

	if c.store != nil {
		if err := cache.PutJSON(ctx, c.store, p.Key, out); err != nil {
			zap.L().Warn("enrich: classification cache write failed", zap.String("organizer", p.Key), zap.Error(err))
		}
	}
	zap.L().Debug("enrich: classified",
		zap.String("organizer", p.Key),
		zap.String("label", string(out.Label)),
		zap.Float64("confidence", out.Confidence),
		zap.Strings("pages", site.PagesFound),
	)
	return out, nil
}

func (c *Classifier) addUsage(u anthropic.TokenUsage) {
	c.mu.Lock()
	c.usage.Add(u)
	c.mu.Unlock()
}

// Usage returns the tokens consumed so far.
func (c *Classifier) Usage() anthropic.TokenUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Model returns the configured model ID.
func (c *Classifier) Model() string { return c.cfg.Model }

// rawClassification tolerates a confidence sent as a number or a string.
type rawClassification struct {
	Label           string          `json:"classification"`
	Confidence      json.RawMessage `json:"confidence"`
	ProfileSummary  string          `json:"profile_summary"`
	WebsiteAnalysis string          `json:"website_analysis"`
	TalkingPoints   []string        `json:"outreach_talking_points"`
	FitReasoning    string          `json:"fit_reasoning"`
	RedFlags        []string        `json:"red_flags"`
	GreenFlags      []string        `json:"green_flags"`
}

// ParseClassification decodes the JSON object in a model reply. Text around
// the object is ignored. Unknown labels become UNCLEAR and confidence is
// clamped to [0,100].
func ParseClassification(reply string) (model.Classification, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return model.Classification{}, ErrNoJSON
	}

	var raw rawClassification
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return model.Classification{}, eris.Wrap(err, "enrich: decode classification")
	}

	return model.Classification{
		Label:           model.ParseLabel(raw.Label),
		Confidence:      scoring.ClampConfidence(parseConfidence(raw.Confidence)),
		ProfileSummary:  strings.TrimSpace(raw.ProfileSummary),
		WebsiteAnalysis: strings.TrimSpace(raw.WebsiteAnalysis),
		TalkingPoints:   raw.TalkingPoints,
		FitReasoning:    strings.TrimSpace(raw.FitReasoning),
		RedFlags:        raw.RedFlags,
		GreenFlags:      raw.GreenFlags,
	}, nil
}

func parseConfidence(raw json.RawMessage) float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func systemPrompt(venue string) string {
	return fmt.Sprintf(`You are a lead qualification expert for %[1]s, a retreat venue looking for facilitators who want to rent space for hosting retreats.

For each retreat organizer decide:
1. Is this a FACILITATOR (leads retreats and rents venues) or a VENUE_OWNER (owns a retreat property, a competitor)?
2. Are they a good fit to rent %[1]s?
3. What should we mention when reaching out?

Signals of a FACILITATOR:
- Hosts retreats at several different locations or venues
- Personal brand built on teaching (yoga teacher, wellness coach, meditation guide)
- Website is about teachings and programs, not accommodation
- Language like "we partner with beautiful venues"

Signals of a VENUE_OWNER:
- Owns a specific property or retreat center
- Website has room bookings, room types or an accommodations page
- Name includes words like casa, villa, resort, center, hacienda
- Every retreat is at the same fixed location
- Language like "our center", "our property", "stay with us"

Reference actual details from the data. Reply with a single JSON object and nothing else.`, venue)
}

// BuildPrompt renders the per-organizer user message.
func BuildPrompt(p Profile, site SiteContent, venue string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this retreat organizer for %s.\n\n", venue)

	b.WriteString("ORGANIZER DATA:\n")
	fmt.Fprintf(&b, "- Name: %s\n", orNA(p.Name))
	fmt.Fprintf(&b, "- Platforms: %s\n", orNA(strings.Join(p.Platforms, ", ")))
	fmt.Fprintf(&b, "- Retreats listed: %d\n", p.Aggregates.RetreatCount)
	fmt.Fprintf(&b, "- Unique locations: %d\n", p.Aggregates.UniqueLocations)
	fmt.Fprintf(&b, "- Retreat titles: %s\n", orNA(strings.Join(firstN(p.Titles, 3), " | ")))
	fmt.Fprintf(&b, "- Locations: %s\n", orNA(strings.Join(p.Locations, " | ")))
	fmt.Fprintf(&b, "- Google business name: %s\n", orNA(p.PlaceName))
	rating, reviews := "N/A", "N/A"
	if p.Rating != nil {
		rating = strconv.FormatFloat(*p.Rating, 'f', 1, 64)
	}
	if p.ReviewCount != nil {
		reviews = strconv.Itoa(*p.ReviewCount)
	}
	fmt.Fprintf(&b, "- Google rating: %s (%s reviews)\n", rating, reviews)
	fmt.Fprintf(&b, "- Address: %s\n\n", orNA(p.Address))

	b.WriteString("WEBSITE SIGNALS:\n")
	if site.HasVenuePage {
		b.WriteString("- Has a /venue page (venue owner signal)\n")
	}
	if site.HasAccommodationsPage {
		b.WriteString("- Has an /accommodations or /rooms page (strong venue owner signal)\n")
	}
	if len(site.PagesFound) > 0 {
		fmt.Fprintf(&b, "- Pages found: %s\n", strings.Join(site.PagesFound, ", "))
	}

	b.WriteString("\nWEBSITE CONTENT:\n")
	if text := truncateRunes(site.Text, maxPromptContent); text != "" {
		b.WriteString(text)
	} else {
		b.WriteString("No website content available")
	}

	b.WriteString(`

Respond with a JSON object:
{
  "classification": "FACILITATOR" or "VENUE_OWNER" or "UNCLEAR",
  "confidence": 0-100,
  "profile_summary": "2-3 sentences on who they are",
  "website_analysis": "what on the website informed the classification",
  "outreach_talking_points": ["three specific conversation starters"],
  "fit_reasoning": "why they are or are not a fit for renting our venue",
  "red_flags": ["reasons to deprioritize"],
  "green_flags": ["strong positive signals"]
}`)
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
