// Package model defines the typed records flowing through the lead pipeline.
package model

import "time"

// Organizer is the deduplicated retreat-hosting business or person. It is
// keyed by the content-derived organizer key and lives in the master ledger.
type Organizer struct {
	Key         string  `json:"key" csv:"key"`
	DisplayName string  `json:"display_name" csv:"display_name"`
	CenterURL   *string `json:"center_url,omitempty" csv:"center_url,omitempty"`

	// Contact (fill-only)
	Phone     *string `json:"phone,omitempty" csv:"phone,omitempty"`
	Email     *string `json:"email,omitempty" csv:"email,omitempty"`
	Website   *string `json:"website,omitempty" csv:"website,omitempty"`
	Instagram *string `json:"instagram,omitempty" csv:"instagram,omitempty"`
	Facebook  *string `json:"facebook,omitempty" csv:"facebook,omitempty"`
	LinkedIn  *string `json:"linkedin,omitempty" csv:"linkedin,omitempty"`
	Twitter   *string `json:"twitter,omitempty" csv:"twitter,omitempty"`
	YouTube   *string `json:"youtube,omitempty" csv:"youtube,omitempty"`
	TikTok    *string `json:"tiktok,omitempty" csv:"tiktok,omitempty"`

	// Places (fill-only)
	PlaceName     *string  `json:"place_name,omitempty" csv:"place_name,omitempty"`
	Address       *string  `json:"address,omitempty" csv:"address,omitempty"`
	MapsURL       *string  `json:"maps_url,omitempty" csv:"maps_url,omitempty"`
	Rating        *float64 `json:"rating,omitempty" csv:"rating,omitempty"`
	ReviewCount   *int     `json:"review_count,omitempty" csv:"review_count,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty" csv:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty" csv:"longitude,omitempty"`
	DistanceMiles *float64 `json:"distance_miles,omitempty" csv:"distance_miles,omitempty"`

	// Classification (latest-wins)
	Classification  Label      `json:"classification,omitempty" csv:"classification,omitempty"`
	Confidence      *float64   `json:"confidence,omitempty" csv:"confidence,omitempty"`
	ProfileSummary  *string    `json:"profile_summary,omitempty" csv:"profile_summary,omitempty"`
	WebsiteAnalysis *string    `json:"website_analysis,omitempty" csv:"website_analysis,omitempty"`
	TalkingPoints   *string    `json:"talking_points,omitempty" csv:"talking_points,omitempty"`
	FitReasoning    *string    `json:"fit_reasoning,omitempty" csv:"fit_reasoning,omitempty"`
	RedFlags        *string    `json:"red_flags,omitempty" csv:"red_flags,omitempty"`
	GreenFlags      *string    `json:"green_flags,omitempty" csv:"green_flags,omitempty"`
	ClassifiedAt    *time.Time `json:"classified_at,omitempty" csv:"classified_at,omitempty"`

	// Scoring (latest-wins)
	PriorityScore *float64   `json:"priority_score,omitempty" csv:"priority_score,omitempty"`
	LeadType      LeadType   `json:"lead_type,omitempty" csv:"lead_type,omitempty"`
	ScoredAt      *time.Time `json:"scored_at,omitempty" csv:"scored_at,omitempty"`

	// Sales tracking, owned by the sales team and passed through untouched.
	SalesStatus *string `json:"sales_status,omitempty" csv:"sales_status,omitempty"`
	SalesNotes  *string `json:"sales_notes,omitempty" csv:"sales_notes,omitempty"`

	// Provenance
	FirstSeenPlatform string    `json:"first_seen_platform,omitempty" csv:"first_seen_platform,omitempty"`
	FirstSeenLabel    string    `json:"first_seen_label,omitempty" csv:"first_seen_label,omitempty"`
	FirstSeenAt       time.Time `json:"first_seen_at" csv:"first_seen_at"`
	UpdatedAt         time.Time `json:"updated_at" csv:"updated_at"`
}

// HasClassification reports whether an AI classification has been merged.
func (o *Organizer) HasClassification() bool {
	return o.Classification != ""
}

// ClassificationRecord rebuilds the classification signal from the merged
// fields, or nil when none is present.
func (o *Organizer) ClassificationRecord() *Classification {
	if !o.HasClassification() {
		return nil
	}
	c := &Classification{
		Label:           o.Classification,
		ProfileSummary:  Deref(o.ProfileSummary),
		WebsiteAnalysis: Deref(o.WebsiteAnalysis),
		FitReasoning:    Deref(o.FitReasoning),
	}
	if o.Confidence != nil {
		c.Confidence = *o.Confidence
	}
	c.TalkingPoints = SplitList(Deref(o.TalkingPoints))
	c.RedFlags = SplitList(Deref(o.RedFlags))
	c.GreenFlags = SplitList(Deref(o.GreenFlags))
	return c
}
