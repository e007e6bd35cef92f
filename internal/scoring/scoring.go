// Package scoring maps an organizer's aggregates and classification signal
// to a bounded priority score and a lead type. It is a pure function of its
// inputs.
package scoring

import (
	"math"
	"strings"

	"github.com/sells-group/retreat-leads/internal/model"
)

// Score weights.
const (
	Base                = 50.0
	TravelingBonus      = 30.0
	AIFacilitatorWeight = 25.0
	AIVenuePenalty      = 30.0
	NameFacilitatorBump = 15.0
	NameVenuePenalty    = 20.0
	MultiPlatformBonus  = 10.0
	ManyRetreatsBonus   = 10.0 // 3 or more retreats
	TwoRetreatsBonus    = 5.0
	MinScore            = 0.0
	MaxScore            = 100.0
)

// NameSignal is what the display-name heuristic suggests.
type NameSignal string

// Name heuristic outcomes.
const (
	SignalNone        NameSignal = ""
	SignalFacilitator NameSignal = "facilitator"
	SignalVenue       NameSignal = "venue"
)

var venueWords = []string{
	"center", "centre", "resort", "villa", "casa", "hacienda", "hotel",
	"lodge", "camp", "sanctuary", "ashram", "temple", "eco", "finca",
}

var facilitatorWords = []string{
	"yoga with", "wellness by", "retreats by", "school", "academy",
	"training", "teacher", "coach", "healing", "transformation", "journey",
}

// Input is everything the score depends on.
type Input struct {
	DisplayName    string
	Aggregates     model.Aggregates
	Classification *model.Classification
}

// Result is the scoring outcome.
type Result struct {
	PriorityScore float64        `json:"priority_score"`
	LeadType      model.LeadType `json:"lead_type"`
	NameSignal    NameSignal     `json:"name_signal,omitempty"`
}

// SuggestsVenue reports whether name contains a venue word.
func SuggestsVenue(name string) bool { return containsAny(name, venueWords) }

// SuggestsFacilitator reports whether name contains a facilitator phrase.
func SuggestsFacilitator(name string) bool { return containsAny(name, facilitatorWords) }

// Name classifies a display name by substring. Venue words win when both
// lists match.
func Name(name string) NameSignal {
	switch {
	case SuggestsVenue(name):
		return SignalVenue
	case SuggestsFacilitator(name):
		return SignalFacilitator
	default:
		return SignalNone
	}
}

func containsAny(name string, words []string) bool {
	n := strings.ToLower(name)
	for _, w := range words {
		if strings.Contains(n, w) {
			return true
		}
	}
	return false
}

// ClampConfidence forces a confidence into [0, 100]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(100, c))
}

// Score computes the priority score and lead type.
func Score(in Input) Result {
	agg := in.Aggregates
	score := Base

	if agg.IsTravelingFacilitator {
		score += TravelingBonus
	}

	var res Result
	if c := in.Classification; c != nil {
		frac := ClampConfidence(c.Confidence) / 100
		switch c.Label {
		case model.LabelFacilitator:
			score += AIFacilitatorWeight * frac
		case model.LabelVenueOwner:
			score -= AIVenuePenalty * frac
		}
	} else {
		res.NameSignal = Name(in.DisplayName)
		switch res.NameSignal {
		case SignalFacilitator:
			score += NameFacilitatorBump
		case SignalVenue:
			score -= NameVenuePenalty
		}
	}

	if agg.IsMultiPlatform {
		score += MultiPlatformBonus
	}
	switch {
	case agg.RetreatCount >= 3:
		score += ManyRetreatsBonus
	case agg.RetreatCount >= 2:
		score += TwoRetreatsBonus
	}

	res.PriorityScore = math.Max(MinScore, math.Min(MaxScore, score))
	res.LeadType = leadType(in, res.NameSignal)
	return res
}

// leadType applies the decision rules in priority order; the first match wins.
func leadType(in Input, signal NameSignal) model.LeadType {
	c := in.Classification
	switch {
	case in.Aggregates.IsTravelingFacilitator:
		return model.LeadTravelingFacilitator
	case c != nil && c.Label == model.LabelFacilitator,
		c == nil && signal == SignalFacilitator:
		return model.LeadFacilitator
	case c != nil && c.Label == model.LabelVenueOwner,
		c == nil && signal == SignalVenue:
		return model.LeadVenueOwner
	default:
		return model.LeadUnknown
	}
}

// Round1 rounds a score to one decimal for display and export.
func Round1(score float64) float64 {
	return math.Round(score*10) / 10
}
