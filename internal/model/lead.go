package model

import "strings"

// Label is the LLM classification of an organizer.
type Label string

// Classification labels.
const (
	LabelFacilitator Label = "FACILITATOR"
	LabelVenueOwner  Label = "VENUE_OWNER"
	LabelUnclear     Label = "UNCLEAR"
)

// ParseLabel maps free text to a Label. Anything unrecognized is UNCLEAR.
func ParseLabel(s string) Label {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FACILITATOR":
		return LabelFacilitator
	case "VENUE_OWNER", "VENUE OWNER", "VENUE":
		return LabelVenueOwner
	default:
		return LabelUnclear
	}
}

// LeadType is the categorical sales decision for an organizer.
type LeadType string

// Lead types, in decision priority order.
const (
	LeadTravelingFacilitator LeadType = "TRAVELING_FACILITATOR"
	LeadFacilitator          LeadType = "FACILITATOR"
	LeadVenueOwner           LeadType = "VENUE_OWNER"
	LeadUnknown              LeadType = "UNKNOWN"
)

// AllLeadTypes returns every lead type in decision priority order.
func AllLeadTypes() []LeadType {
	return []LeadType{LeadTravelingFacilitator, LeadFacilitator, LeadVenueOwner, LeadUnknown}
}

// Aggregates are per-organizer facts derived from the ledger's events.
// They are recomputed on demand and never persisted on their own.
type Aggregates struct {
	RetreatCount           int      `json:"retreat_count"`
	UniqueLocations        int      `json:"unique_locations"`
	Platforms              []string `json:"platforms"`
	IsTravelingFacilitator bool     `json:"is_traveling_facilitator"`
	IsMultiPlatform        bool     `json:"is_multi_platform"`
}
