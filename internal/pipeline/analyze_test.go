package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retreat-leads/internal/model"
)

func TestAnalyze_EndToEnd(t *testing.T) {
	t.Parallel()

	p := newTestPipeline()
	key := ingested(t, p)

	rows, counts, err := p.Analyze(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, counts.Scored)
	assert.Equal(t, 1, counts.LeadTypes[string(model.LeadTravelingFacilitator)])

	row := rows[0]
	assert.Equal(t, key, row.Organizer.Key)
	assert.Equal(t, 2, row.Aggregates.RetreatCount)
	assert.Equal(t, 2, row.Aggregates.UniqueLocations)
	assert.True(t, row.Aggregates.IsTravelingFacilitator)
	assert.True(t, row.Aggregates.IsMultiPlatform)
	// "casa" reads as a venue name: 50 + 30 - 20 + 10 + 5.
	assert.InDelta(t, 75, row.Score.PriorityScore, 0.001)
	assert.Equal(t, model.LeadTravelingFacilitator, row.Score.LeadType)
	assert.Len(t, row.Events, 2)

	org, _ := p.Ledger().Organizer(key)
	require.NotNil(t, org.PriorityScore)
	assert.InDelta(t, 75, *org.PriorityScore, 0.001)
	assert.Equal(t, model.LeadTravelingFacilitator, org.LeadType)
	assert.Equal(t, t0, *org.ScoredAt)
}

func TestAnalyze_NeutralNameScores95(t *testing.T) {
	t.Parallel()

	listings := casaVioletaListings()
	listings[0].OrganizerName = "Violeta Collective"
	listings[1].OrganizerName = "violeta collective"

	p := newTestPipeline()
	_, err := p.Ingest(context.Background(), listings, nil)
	require.NoError(t, err)

	rows, _, err := p.Analyze(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 95, rows[0].Score.PriorityScore, 0.001)
}

func TestAnalyze_OrderAndClassification(t *testing.T) {
	t.Parallel()

	p := newTestPipeline()
	_, err := p.Ingest(context.Background(), []model.Listing{
		{OrganizerName: "Hacienda Sol", EventURL: "https://retreat.guru/events/1", LocationText: "Oaxaca"},
		{OrganizerName: "Yoga with Maya", EventURL: "https://retreat.guru/events/2", LocationText: "Bali"},
		{OrganizerName: "Zen Group", EventURL: "https://retreat.guru/events/3", LocationText: "Goa"},
		{OrganizerName: "Amber Group", EventURL: "https://retreat.guru/events/4", LocationText: "Goa"},
	}, nil)
	require.NoError(t, err)

	rows, _, err := p.Analyze(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Yoga with Maya", rows[0].Organizer.DisplayName)
	assert.InDelta(t, 65, rows[0].Score.PriorityScore, 0.001)
	assert.Equal(t, model.LeadFacilitator, rows[0].Score.LeadType)
	assert.InDelta(t, 50, rows[1].Score.PriorityScore, 0.001)
	assert.InDelta(t, 50, rows[2].Score.PriorityScore, 0.001)
	assert.Less(t, rows[1].Organizer.Key, rows[2].Organizer.Key)
	assert.Equal(t, "Hacienda Sol", rows[3].Organizer.DisplayName)
	assert.Equal(t, model.LeadVenueOwner, rows[3].Score.LeadType)

	hacienda := rows[3].Organizer.Key
	_, err = p.Ledger().ApplyClassification(hacienda, model.Classification{Label: model.LabelFacilitator, Confidence: 80}, t0)
	require.NoError(t, err)

	rows, _, err = p.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hacienda Sol", rows[0].Organizer.DisplayName)
	assert.InDelta(t, 70, rows[0].Score.PriorityScore, 0.001)
	assert.Equal(t, model.LeadFacilitator, rows[0].Score.LeadType)
}
