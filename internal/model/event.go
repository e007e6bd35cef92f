package model

import "time"

// Event is a single retreat listing, keyed by its canonical URL. Identity
// fields never change after creation; Description and GroupSize are filled
// in later by enrichment.
type Event struct {
	Key          string    `json:"key" csv:"key"`
	OrganizerKey string    `json:"organizer_key" csv:"organizer_key"`
	URL          string    `json:"url" csv:"url"`
	Title        string    `json:"title" csv:"title"`
	DateText     string    `json:"date_text,omitempty" csv:"date_text,omitempty"`
	PriceText    string    `json:"price_text,omitempty" csv:"price_text,omitempty"`
	RatingText   string    `json:"rating_text,omitempty" csv:"rating_text,omitempty"`
	LocationText string    `json:"location_text,omitempty" csv:"location_text,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty" csv:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty" csv:"longitude,omitempty"`
	Platform     string    `json:"platform" csv:"platform"`
	SourceLabel  string    `json:"source_label,omitempty" csv:"source_label,omitempty"`
	ScrapedAt    time.Time `json:"scraped_at" csv:"scraped_at"`

	Description *string `json:"description,omitempty" csv:"description,omitempty"`
	GroupSize   *string `json:"group_size,omitempty" csv:"group_size,omitempty"`
}

// Guide is a facilitator or teacher. Guides relate to organizers only
// through events, so the organizer edge is always derived.
type Guide struct {
	Key         string   `json:"key" csv:"key"`
	Name        string   `json:"name" csv:"name"`
	Role        *string  `json:"role,omitempty" csv:"role,omitempty"`
	Bio         *string  `json:"bio,omitempty" csv:"bio,omitempty"`
	PhotoURL    *string  `json:"photo_url,omitempty" csv:"photo_url,omitempty"`
	ProfileURL  *string  `json:"profile_url,omitempty" csv:"profile_url,omitempty"`
	Credentials *string  `json:"credentials,omitempty" csv:"credentials,omitempty"`
	EventKeys   []string `json:"event_keys" csv:"-"`
}

// HasEvent reports whether the guide is associated with eventKey.
func (g *Guide) HasEvent(eventKey string) bool {
	for _, k := range g.EventKeys {
		if k == eventKey {
			return true
		}
	}
	return false
}
