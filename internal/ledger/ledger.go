// Package ledger is the master record store: organizers keyed by organizer
// key, each owning many events, with guides linked to events. It is held in
// memory behind a single mutex and persisted as a directory of CSV files
// that sales staff can open directly.
package ledger

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retreat-leads/internal/identity"
	"github.com/sells-group/retreat-leads/internal/model"
)

var (
	// ErrUnknownOrganizer is returned when an operation names an organizer
	// key that is not in the ledger.
	ErrUnknownOrganizer = eris.New("ledger: unknown organizer")
	// ErrUnknownEvent is returned when a guide is linked to a missing event.
	ErrUnknownEvent = eris.New("ledger: unknown event")
)

// Provenance records where an organizer was first seen.
type Provenance struct {
	Platform string
	Label    string
	SeenAt   time.Time
}

// Stats summarizes ledger size.
type Stats struct {
	Organizers int `json:"organizers" yaml:"organizers"`
	Events     int `json:"events" yaml:"events"`
	Guides     int `json:"guides" yaml:"guides"`
}

// Ledger holds every organizer, event and guide. All methods are safe for
// concurrent use; each mutation is atomic.
type Ledger struct {
	mu  sync.Mutex
	dir string
	now func() time.Time

	organizers map[string]*model.Organizer
	events     map[string]*model.Event
	guides     map[string]*model.Guide

	eventsByOrganizer map[string][]string
	guidesByEvent     map[string][]string
	names             map[string]string
	dirty             bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New returns an empty ledger that persists to dir. An empty dir gives a
// memory-only ledger whose Save is a no-op.
func New(dir string, opts ...Option) *Ledger {
	l := &Ledger{
		dir:               dir,
		now:               func() time.Time { return time.Now().UTC() },
		organizers:        make(map[string]*model.Organizer),
		events:            make(map[string]*model.Event),
		guides:            make(map[string]*model.Guide),
		eventsByOrganizer: make(map[string][]string),
		guidesByEvent:     make(map[string][]string),
		names:             make(map[string]string),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// UpsertOrganizer inserts a new organizer under key or merges in into the
// existing record. Contact and enrichment fields are fill-only;
// classification and scoring fields are latest-wins.
func (l *Ledger) UpsertOrganizer(key string, in model.Organizer, prov Provenance) (model.Organizer, error) {
	if key == "" {
		return model.Organizer{}, eris.Wrap(identity.ErrInvalidIdentityInput, "ledger: empty organizer key")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cur, ok := l.organizers[key]
	if !ok {
		rec := in
		rec.Key = key
		rec.FirstSeenPlatform = prov.Platform
		rec.FirstSeenLabel = prov.Label
		rec.FirstSeenAt = prov.SeenAt
		if rec.FirstSeenAt.IsZero() {
			rec.FirstSeenAt = now
		}
		rec.UpdatedAt = now
		l.organizers[key] = &rec
		l.indexName(rec.DisplayName, key)
		l.dirty = true
		return rec, nil
	}

	if mergeOrganizer(cur, &in) {
		cur.UpdatedAt = now
		l.dirty = true
	}
	l.indexName(in.DisplayName, key)
	return *cur, nil
}

// UpsertEvent inserts an event owned by organizerKey. A known key returns the
// stored event with wasNew=false; only its enrichment fields are filled and
// it is never reassigned to another organizer.
func (l *Ledger) UpsertEvent(key, organizerKey string, in model.Event) (model.Event, bool, error) {
	if key == "" {
		return model.Event{}, false, eris.Wrap(identity.ErrInvalidIdentityInput, "ledger: empty event key")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.events[key]; ok {
		if cur.OrganizerKey != organizerKey {
			zap.L().Debug("ledger: event already owned by another organizer",
				zap.String("event_key", key),
				zap.String("owner", cur.OrganizerKey),
				zap.String("claimed_by", organizerKey),
			)
		}
		if mergeEvent(cur, &in) {
			l.dirty = true
		}
		return *cur, false, nil
	}

	if _, ok := l.organizers[organizerKey]; !ok {
		return model.Event{}, false, eris.Wrapf(ErrUnknownOrganizer, "event %s owner %q", key, organizerKey)
	}
	rec := in
	rec.Key = key
	rec.OrganizerKey = organizerKey
	l.events[key] = &rec
	l.eventsByOrganizer[organizerKey] = append(l.eventsByOrganizer[organizerKey], key)
	l.dirty = true
	return rec, true, nil
}

// UpsertGuide fill-merges a guide and idempotently links it to eventKey.
// An empty eventKey records the guide without a link.
func (l *Ledger) UpsertGuide(key string, in model.Guide, eventKey string) (model.Guide, error) {
	if key == "" {
		return model.Guide{}, eris.Wrap(identity.ErrInvalidIdentityInput, "ledger: empty guide key")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if eventKey != "" {
		if _, ok := l.events[eventKey]; !ok {
			return model.Guide{}, eris.Wrapf(ErrUnknownEvent, "guide %s event %q", key, eventKey)
		}
	}

	cur, ok := l.guides[key]
	if !ok {
		rec := in
		rec.Key = key
		rec.EventKeys = nil
		cur = &rec
		l.guides[key] = cur
		l.dirty = true
	} else if mergeGuide(cur, &in) {
		l.dirty = true
	}

	if eventKey != "" && !cur.HasEvent(eventKey) {
		cur.EventKeys = append(cur.EventKeys, eventKey)
		l.guidesByEvent[eventKey] = append(l.guidesByEvent[eventKey], key)
		l.dirty = true
	}
	return copyGuide(cur), nil
}

// ApplyClassification merges an AI classification (latest-wins).
func (l *Ledger) ApplyClassification(key string, c model.Classification, at time.Time) (model.Organizer, error) {
	conf := clampConfidence(c.Confidence)
	in := model.Organizer{
		Classification:  c.Label,
		Confidence:      &conf,
		ProfileSummary:  model.StrOrNil(c.ProfileSummary),
		WebsiteAnalysis: model.StrOrNil(c.WebsiteAnalysis),
		TalkingPoints:   model.StrOrNil(model.JoinList(c.TalkingPoints)),
		FitReasoning:    model.StrOrNil(c.FitReasoning),
		RedFlags:        model.StrOrNil(model.JoinList(c.RedFlags)),
		GreenFlags:      model.StrOrNil(model.JoinList(c.GreenFlags)),
		ClassifiedAt:    &at,
	}
	if in.Classification == "" {
		in.Classification = model.LabelUnclear
	}
	return l.apply(key, in)
}

// ApplyPlace merges a Places match (fill-only). A miss changes nothing.
func (l *Ledger) ApplyPlace(key string, p model.PlaceResult) (model.Organizer, error) {
	in := model.Organizer{}
	if p.Found {
		in.PlaceName = model.StrOrNil(p.BusinessName)
		in.Address = model.StrOrNil(p.FormattedAddress)
		in.Phone = model.StrOrNil(p.Phone)
		in.Website = model.StrOrNil(p.Website)
		in.MapsURL = model.StrOrNil(p.MapsURL)
		if p.Rating > 0 {
			in.Rating = model.Float(p.Rating)
		}
		if p.ReviewCount > 0 {
			in.ReviewCount = model.Int(p.ReviewCount)
		}
		if p.Latitude != 0 || p.Longitude != 0 {
			in.Latitude = model.Float(p.Latitude)
			in.Longitude = model.Float(p.Longitude)
			in.DistanceMiles = model.Float(p.DistanceMiles)
		}
	}
	return l.apply(key, in)
}

// ApplyContact merges scraped contact details (fill-only). The first email
// found is kept.
func (l *Ledger) ApplyContact(key string, c model.ContactInfo) (model.Organizer, error) {
	in := model.Organizer{
		Instagram: model.StrOrNil(c.Instagram),
		Facebook:  model.StrOrNil(c.Facebook),
		LinkedIn:  model.StrOrNil(c.LinkedIn),
		Twitter:   model.StrOrNil(c.Twitter),
		YouTube:   model.StrOrNil(c.YouTube),
		TikTok:    model.StrOrNil(c.TikTok),
	}
	if len(c.Emails) > 0 {
		in.Email = model.StrOrNil(c.Emails[0])
	}
	return l.apply(key, in)
}

// ApplyScore records the latest priority score and lead type.
func (l *Ledger) ApplyScore(key string, score float64, leadType model.LeadType, at time.Time) (model.Organizer, error) {
	return l.apply(key, model.Organizer{
		PriorityScore: &score,
		LeadType:      leadType,
		ScoredAt:      &at,
	})
}

func (l *Ledger) apply(key string, in model.Organizer) (model.Organizer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, ok := l.organizers[key]
	if !ok {
		return model.Organizer{}, eris.Wrapf(ErrUnknownOrganizer, "key %q", key)
	}
	if mergeOrganizer(cur, &in) {
		cur.UpdatedAt = l.now()
		l.dirty = true
	}
	return *cur, nil
}

func clampConfidence(c float64) float64 {
	switch {
	case c != c:
		return 0
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}

// indexName must be called with mu held.
func (l *Ledger) indexName(name, key string) {
	if n := identity.NormalizeName(name); n != "" {
		if _, ok := l.names[n]; !ok {
			l.names[n] = key
		}
	}
}

func copyGuide(g *model.Guide) model.Guide {
	out := *g
	out.EventKeys = append([]string(nil), g.EventKeys...)
	return out
}
