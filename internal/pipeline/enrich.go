package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/retreat-leads/internal/aggregate"
	"github.com/sells-group/retreat-leads/internal/cache"
	"github.com/sells-group/retreat-leads/internal/enrich"
	"github.com/sells-group/retreat-leads/internal/model"
)

// EnrichOptions selects which collaborators run.
type EnrichOptions struct {
	Places   bool
	AI       bool
	Contacts bool
	// Refresh re-runs steps for organizers that already have their results
	// and bypasses cached lookups.
	Refresh bool
	// Keys limits the run to these organizers. Empty means all.
	Keys []string
}

type enrichTally struct {
	organizers, placesFound, placesMissed, classified, contacts, skipped, errors atomic.Int64
}

func (t *enrichTally) counts() EnrichCounts {
	return EnrichCounts{
		Organizers:       int(t.organizers.Load()),
		PlacesFound:      int(t.placesFound.Load()),
		PlacesMissed:     int(t.placesMissed.Load()),
		Classified:       int(t.classified.Load()),
		ContactsFound:    int(t.contacts.Load()),
		Skipped:          int(t.skipped.Load()),
		EnrichmentErrors: int(t.errors.Load()),
	}
}

// Enrich runs the selected collaborators for every organizer with bounded
// concurrency and merges their results into the ledger. A failed lookup is
// counted and the organizer falls back to the name heuristic at scoring time.
func (p *Pipeline) Enrich(ctx context.Context, opts EnrichOptions) (EnrichCounts, error) {
	orgs := p.selectOrganizers(opts.Keys)
	if opts.Refresh {
		ctx = cache.WithRefresh(ctx)
	}

	var tally enrichTally
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, o := range orgs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			tally.organizers.Add(1)
			p.enrichOrganizer(gctx, o, opts, &tally)
			return nil
		})
	}
	_ = g.Wait()

	counts := tally.counts()
	zap.L().Info("pipeline: enrich complete",
		zap.Int("organizers", counts.Organizers),
		zap.Int("places_found", counts.PlacesFound),
		zap.Int("classified", counts.Classified),
		zap.Int("contacts_found", counts.ContactsFound),
		zap.Int("enrichment_errors", counts.EnrichmentErrors),
	)
	if err := ctx.Err(); err != nil {
		return counts, eris.Wrap(err, "pipeline: enrich")
	}
	return counts, nil
}

func (p *Pipeline) selectOrganizers(keys []string) []model.Organizer {
	if len(keys) == 0 {
		return p.ledger.AllOrganizers()
	}
	out := make([]model.Organizer, 0, len(keys))
	for _, k := range keys {
		if o, ok := p.ledger.Organizer(k); ok {
			out = append(out, o)
		} else {
			zap.L().Warn("pipeline: unknown organizer key", zap.String("key", k))
		}
	}
	return out
}

func (p *Pipeline) enrichOrganizer(ctx context.Context, o model.Organizer, opts EnrichOptions, tally *enrichTally) {
	log := zap.L().With(zap.String("organizer", o.Key), zap.String("name", o.DisplayName))
	events := p.ledger.EventsFor(o.Key)
	did := false

	if opts.Places && p.places != nil && (opts.Refresh || o.PlaceName == nil) {
		did = true
		query := enrich.PlacesQuery(o.DisplayName, firstLocation(events))
		res, err := p.places.Lookup(ctx, query)
		switch {
		case err != nil:
			tally.errors.Add(1)
			log.Warn("pipeline: places lookup failed", zap.Error(err))
		case !res.Found:
			tally.placesMissed.Add(1)
		default:
			if updated, err := p.ledger.ApplyPlace(o.Key, res); err != nil {
				tally.errors.Add(1)
				log.Error("pipeline: apply place", zap.Error(err))
			} else {
				o = updated
				tally.placesFound.Add(1)
			}
		}
	}

	website := model.Deref(o.Website)

	if opts.Contacts && p.contacts != nil && website != "" && (opts.Refresh || o.Email == nil) {
		did = true
		info, err := p.contacts.Scrape(ctx, website)
		switch {
		case err != nil:
			tally.errors.Add(1)
			log.Warn("pipeline: contact scrape failed", zap.Error(err))
		case info.Empty():
		default:
			if updated, err := p.ledger.ApplyContact(o.Key, info); err != nil {
				tally.errors.Add(1)
				log.Error("pipeline: apply contact", zap.Error(err))
			} else {
				o = updated
				tally.contacts.Add(1)
			}
		}
	}

	if opts.AI && p.classifier != nil && (opts.Refresh || !o.HasClassification()) {
		did = true
		c, err := p.classifier.Classify(ctx, buildProfile(o, events))
		if err != nil {
			tally.errors.Add(1)
			log.Warn("pipeline: classification unavailable", zap.Error(err))
		} else if _, err := p.ledger.ApplyClassification(o.Key, c, p.now()); err != nil {
			tally.errors.Add(1)
			log.Error("pipeline: apply classification", zap.Error(err))
		} else {
			tally.classified.Add(1)
		}
	}

	if !did {
		tally.skipped.Add(1)
	}
}

// firstLocation returns the location of the earliest scraped event that has one.
func firstLocation(events []model.Event) string {
	for _, e := range events {
		if e.LocationText != "" {
			return e.LocationText
		}
	}
	return ""
}

func buildProfile(o model.Organizer, events []model.Event) enrich.Profile {
	p := enrich.Profile{
		Key:         o.Key,
		Name:        o.DisplayName,
		Website:     model.Deref(o.Website),
		Aggregates:  aggregate.Compute(events),
		PlaceName:   model.Deref(o.PlaceName),
		Rating:      o.Rating,
		ReviewCount: o.ReviewCount,
		Address:     model.Deref(o.Address),
	}
	p.Platforms = p.Aggregates.Platforms
	seen := make(map[string]bool)
	for _, e := range events {
		if e.Title != "" {
			p.Titles = append(p.Titles, e.Title)
		}
		if e.LocationText != "" && !seen[e.LocationText] {
			seen[e.LocationText] = true
			p.Locations = append(p.Locations, e.LocationText)
		}
	}
	return p
}
