package ledger

import (
	"sort"

	"github.com/sells-group/retreat-leads/internal/identity"
	"github.com/sells-group/retreat-leads/internal/model"
)

// Organizer returns a copy of the organizer stored under key.
func (l *Ledger) Organizer(key string) (model.Organizer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	o, ok := l.organizers[key]
	if !ok {
		return model.Organizer{}, false
	}
	return *o, true
}

// EventsFor lists the events owned by organizerKey, oldest scrape first.
func (l *Ledger) EventsFor(organizerKey string) []model.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := l.eventsByOrganizer[organizerKey]
	out := make([]model.Event, 0, len(keys))
	for _, k := range keys {
		out = append(out, *l.events[k])
	}
	sortEvents(out)
	return out
}

// GuidesFor lists the guides linked to eventKey, sorted by name.
func (l *Ledger) GuidesFor(eventKey string) []model.Guide {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := l.guidesByEvent[eventKey]
	out := make([]model.Guide, 0, len(keys))
	for _, k := range keys {
		out = append(out, copyGuide(l.guides[k]))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// GuidesForOrganizer derives the organizer's guides through its events.
func (l *Ledger) GuidesForOrganizer(organizerKey string) []model.Guide {
	seen := make(map[string]bool)
	var out []model.Guide
	for _, e := range l.EventsFor(organizerKey) {
		for _, g := range l.GuidesFor(e.Key) {
			if !seen[g.Key] {
				seen[g.Key] = true
				out = append(out, g)
			}
		}
	}
	return out
}

// AllOrganizers returns every organizer sorted by key.
func (l *Ledger) AllOrganizers() []model.Organizer {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Organizer, 0, len(l.organizers))
	for _, o := range l.organizers {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// AllEvents returns every event, oldest scrape first.
func (l *Ledger) AllEvents() []model.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Event, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, *e)
	}
	sortEvents(out)
	return out
}

// AllGuides returns every guide sorted by key.
func (l *Ledger) AllGuides() []model.Guide {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Guide, 0, len(l.guides))
	for _, g := range l.guides {
		out = append(out, copyGuide(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// FindByNormalizedName returns the organizer key recorded for any name that
// normalizes like name. Lookups are case and punctuation insensitive.
func (l *Ledger) FindByNormalizedName(name string) (string, bool) {
	n := identity.NormalizeName(name)
	if n == "" {
		return "", false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if key, ok := l.names[n]; ok {
		return key, true
	}
	// Fall back to the derived key for records loaded without a name index hit.
	key, err := identity.OrganizerKey(name)
	if err != nil {
		return "", false
	}
	if _, ok := l.organizers[key]; ok {
		return key, true
	}
	return "", false
}

// OrganizerExists reports whether an organizer with this name is known.
func (l *Ledger) OrganizerExists(name string) bool {
	_, ok := l.FindByNormalizedName(name)
	return ok
}

// EventKeyFor returns the stored event key for rawURL, if any.
func (l *Ledger) EventKeyFor(rawURL string) (string, bool) {
	key, err := identity.EventKey(rawURL)
	if err != nil {
		return "", false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.events[key]
	return key, ok
}

// EventExists reports whether the listing at rawURL has already been ingested.
func (l *Ledger) EventExists(rawURL string) bool {
	_, ok := l.EventKeyFor(rawURL)
	return ok
}

// Stats returns record counts.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Stats{
		Organizers: len(l.organizers),
		Events:     len(l.events),
		Guides:     len(l.guides),
	}
}

func sortEvents(events []model.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].ScrapedAt.Equal(events[j].ScrapedAt) {
			return events[i].ScrapedAt.Before(events[j].ScrapedAt)
		}
		return events[i].Key < events[j].Key
	})
}
