package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retreat-leads/internal/identity"
	"github.com/sells-group/retreat-leads/internal/ledger"
	"github.com/sells-group/retreat-leads/internal/model"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(opts ...Option) *Pipeline {
	opts = append([]Option{WithClock(func() time.Time { return t0 })}, opts...)
	return New(ledger.New(""), opts...)
}

func casaVioletaListings() []model.Listing {
	return []model.Listing{
		{
			Title:         "Yoga & Surf Week",
			OrganizerName: "Casa Violeta",
			LocationText:  "Tulum, Mexico",
			EventURL:      "https://retreat.guru/events/1-2/yoga-surf?utm_source=x",
			Platform:      "retreat.guru",
			SourceLabel:   "rg-yoga-mexico",
			ScrapedAt:     t0,
		},
		{
			Title:         "Breathwork Escape",
			OrganizerName: "casa violeta",
			LocationText:  "Playa del Carmen, Mexico",
			EventURL:      "https://bookretreats.com/r/breathwork-escape",
			Platform:      "bookretreats.com",
			SourceLabel:   "br-yoga-mexico",
			ScrapedAt:     t0.Add(time.Hour),
		},
	}
}

func TestIngest_CrossPlatformDedup(t *testing.T) {
	t.Parallel()

	p := newTestPipeline()
	counts, err := p.Ingest(context.Background(), casaVioletaListings(), nil)
	require.NoError(t, err)

	assert.Equal(t, IngestCounts{Listings: 2, NewEvents: 2, NewOrganizers: 1}, counts)

	key, err := identity.OrganizerKey("Casa Violeta")
	require.NoError(t, err)
	org, ok := p.Ledger().Organizer(key)
	require.True(t, ok)
	assert.Equal(t, "Casa Violeta", org.DisplayName)
	assert.Equal(t, "retreat.guru", org.FirstSeenPlatform)
	assert.Equal(t, "rg-yoga-mexico", org.FirstSeenLabel)
	assert.Len(t, p.Ledger().EventsFor(key), 2)
}

func TestIngest_Idempotent(t *testing.T) {
	t.Parallel()

	p := newTestPipeline()
	_, err := p.Ingest(context.Background(), casaVioletaListings(), nil)
	require.NoError(t, err)

	counts, err := p.Ingest(context.Background(), casaVioletaListings(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.NewEvents)
	assert.Equal(t, 2, counts.DuplicateEvents)
	assert.Equal(t, 0, counts.NewOrganizers)
	assert.Equal(t, ledger.Stats{Organizers: 1, Events: 2}, p.Ledger().Stats())
}

func TestIngest_InvalidRecordsDoNotStopBatch(t *testing.T) {
	t.Parallel()

	listings := append([]model.Listing{
		{OrganizerName: "  ", EventURL: "https://retreat.guru/events/9"},
		{OrganizerName: "Solana", EventURL: ""},
	}, casaVioletaListings()...)

	p := newTestPipeline()
	counts, err := p.Ingest(context.Background(), listings, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Listings)
	assert.Equal(t, 2, counts.Invalid)
	assert.Equal(t, 2, counts.NewEvents)
}

func TestIngest_Guides(t *testing.T) {
	t.Parallel()

	listings := casaVioletaListings()
	listings[0].Guides = []model.GuideInput{
		{Name: "Ana Ruiz", Role: "Lead teacher", ProfileURL: "https://retreat.guru/teachers/ana-ruiz"},
	}
	guides := []GuideRecord{
		{EventURL: "https://bookretreats.com/r/breathwork-escape/", GuideInput: model.GuideInput{Name: "Ana Ruiz", ProfileURL: "https://retreat.guru/teachers/ana-ruiz", Bio: "RYT-500"}},
		{EventURL: "https://bookretreats.com/r/unknown", GuideInput: model.GuideInput{Name: "Lost"}},
	}

	p := newTestPipeline()
	counts, err := p.Ingest(context.Background(), listings, guides)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Guides)
	assert.Equal(t, 1, counts.Errors)

	all := p.Ledger().AllGuides()
	require.Len(t, all, 1)
	assert.Len(t, all[0].EventKeys, 2)
	assert.Equal(t, "RYT-500", model.Deref(all[0].Bio))
	assert.Equal(t, "Lead teacher", model.Deref(all[0].Role))
}

func TestIngest_DefaultsPlatformAndTime(t *testing.T) {
	t.Parallel()

	p := newTestPipeline()
	_, err := p.Ingest(context.Background(), []model.Listing{
		{OrganizerName: "Solana Retreats", EventURL: "https://www.bookretreats.com/r/solana"},
	}, nil)
	require.NoError(t, err)

	events := p.Ledger().AllEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "bookretreats.com", events[0].Platform)
	assert.Equal(t, t0, events[0].ScrapedAt)
}

func TestIngest_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestPipeline().Ingest(ctx, casaVioletaListings(), nil)
	assert.True(t, eris.Is(err, context.Canceled))
}
