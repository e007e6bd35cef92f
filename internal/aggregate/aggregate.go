// Package aggregate derives per-organizer facts from the ledger's events.
// Results are computed on demand and never stored.
package aggregate

import (
	"sort"
	"strings"

	"github.com/sells-group/retreat-leads/internal/model"
)

// EventSource is the slice of the ledger aggregation reads from.
type EventSource interface {
	EventsFor(organizerKey string) []model.Event
}

// For computes the aggregates of organizerKey from the current ledger state.
func For(src EventSource, organizerKey string) model.Aggregates {
	return Compute(src.EventsFor(organizerKey))
}

// Compute derives aggregates from an organizer's events. Locations are
// compared as text after trimming, lowercasing and collapsing whitespace, so
// "Tulum" and "Tulum, Mexico" count as two places.
func Compute(events []model.Event) model.Aggregates {
	keys := make(map[string]struct{}, len(events))
	locations := make(map[string]struct{})
	platforms := make(map[string]struct{})

	for _, e := range events {
		keys[e.Key] = struct{}{}
		if loc := NormalizeLocation(e.LocationText); loc != "" {
			locations[loc] = struct{}{}
		}
		if p := strings.TrimSpace(e.Platform); p != "" {
			platforms[p] = struct{}{}
		}
	}

	plats := make([]string, 0, len(platforms))
	for p := range platforms {
		plats = append(plats, p)
	}
	sort.Strings(plats)

	return model.Aggregates{
		RetreatCount:           len(keys),
		UniqueLocations:        len(locations),
		Platforms:              plats,
		IsTravelingFacilitator: len(locations) >= 2,
		IsMultiPlatform:        len(plats) >= 2,
	}
}

// NormalizeLocation trims, lowercases and collapses whitespace.
func NormalizeLocation(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
