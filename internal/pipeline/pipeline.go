// Package pipeline runs the batch stages of the lead database: ingesting
// scraped listings into the ledger, enriching organizers through outside
// collaborators, and scoring every organizer into ranked lead rows.
package pipeline

import (
	"context"
	"time"

	"github.com/sells-group/retreat-leads/internal/enrich"
	"github.com/sells-group/retreat-leads/internal/ledger"
	"github.com/sells-group/retreat-leads/internal/model"
)

// PlaceFinder looks up an organizer's business listing.
type PlaceFinder interface {
	Lookup(ctx context.Context, query string) (model.PlaceResult, error)
}

// OrganizerClassifier labels an organizer's business model.
type OrganizerClassifier interface {
	Classify(ctx context.Context, p enrich.Profile) (model.Classification, error)
}

// ContactFinder scrapes contact details from a website.
type ContactFinder interface {
	Scrape(ctx context.Context, website string) (model.ContactInfo, error)
}

// defaultConcurrency bounds concurrent organizer enrichment.
const defaultConcurrency = 5

// Pipeline runs ingest, enrich and analyze against one ledger.
type Pipeline struct {
	ledger      *ledger.Ledger
	places      PlaceFinder
	classifier  OrganizerClassifier
	contacts    ContactFinder
	concurrency int
	now         func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPlaces sets the Places collaborator.
func WithPlaces(pf PlaceFinder) Option {
	return func(p *Pipeline) { p.places = pf }
}

// WithClassifier sets the classification collaborator.
func WithClassifier(c OrganizerClassifier) Option {
	return func(p *Pipeline) { p.classifier = c }
}

// WithContacts sets the contact scraper.
func WithContacts(cf ContactFinder) Option {
	return func(p *Pipeline) { p.contacts = cf }
}

// WithConcurrency bounds how many organizers are enriched at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithClock overrides the time source for scoring and classification stamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline over l. Collaborators are optional; enrichment
// steps without one are skipped.
func New(l *ledger.Ledger, opts ...Option) *Pipeline {
	p := &Pipeline{
		ledger:      l,
		concurrency: defaultConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ledger returns the ledger the pipeline writes to.
func (p *Pipeline) Ledger() *ledger.Ledger { return p.ledger }
