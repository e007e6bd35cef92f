package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/retreat-leads/internal/model"
)

func TestCompute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		events []model.Event
		want   model.Aggregates
	}{
		{
			name:   "no events",
			events: nil,
			want:   model.Aggregates{Platforms: []string{}},
		},
		{
			name: "single event",
			events: []model.Event{
				{Key: "a", LocationText: "Tulum, Mexico", Platform: "retreat.guru"},
			},
			want: model.Aggregates{RetreatCount: 1, UniqueLocations: 1, Platforms: []string{"retreat.guru"}},
		},
		{
			name: "traveling and multi-platform",
			events: []model.Event{
				{Key: "a", LocationText: "Tulum, Mexico", Platform: "retreat.guru"},
				{Key: "b", LocationText: "Playa del Carmen, Mexico", Platform: "bookretreats.com"},
			},
			want: model.Aggregates{
				RetreatCount:           2,
				UniqueLocations:        2,
				Platforms:              []string{"bookretreats.com", "retreat.guru"},
				IsTravelingFacilitator: true,
				IsMultiPlatform:        true,
			},
		},
		{
			name: "location text normalized but not geocoded",
			events: []model.Event{
				{Key: "a", LocationText: "  TULUM,   Mexico ", Platform: "retreat.guru"},
				{Key: "b", LocationText: "tulum, mexico", Platform: "retreat.guru"},
				{Key: "c", LocationText: "Tulum", Platform: "retreat.guru"},
			},
			want: model.Aggregates{
				RetreatCount:           3,
				UniqueLocations:        2,
				Platforms:              []string{"retreat.guru"},
				IsTravelingFacilitator: true,
			},
		},
		{
			name: "duplicate keys and blank locations",
			events: []model.Event{
				{Key: "a", LocationText: "", Platform: "retreat.guru"},
				{Key: "a", LocationText: "   ", Platform: ""},
			},
			want: model.Aggregates{RetreatCount: 1, Platforms: []string{"retreat.guru"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Compute(tt.events))
		})
	}
}

type stubSource map[string][]model.Event

func (s stubSource) EventsFor(key string) []model.Event { return s[key] }

func TestFor(t *testing.T) {
	t.Parallel()

	src := stubSource{"org": {
		{Key: "a", LocationText: "Bali", Platform: "retreat.guru"},
		{Key: "b", LocationText: "Bali", Platform: "retreat.guru"},
	}}
	agg := For(src, "org")
	assert.Equal(t, 2, agg.RetreatCount)
	assert.False(t, agg.IsTravelingFacilitator)

	assert.Equal(t, 0, For(src, "missing").RetreatCount)
}
