package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retreat-leads/internal/identity"
	"github.com/sells-group/retreat-leads/internal/ledger"
	"github.com/sells-group/retreat-leads/internal/model"
	"github.com/sells-group/retreat-leads/internal/platform"
)

// GuideRecord is a guide scraped separately from its listing and linked to
// it by the listing URL.
type GuideRecord struct {
	EventURL string `json:"event_url" csv:"event_url"`
	model.GuideInput
}

// Ingest resolves identities for listings and guides and upserts them into
// the ledger. The organizer is always written before its event. A bad record
// is counted and logged but never stops the batch.
func (p *Pipeline) Ingest(ctx context.Context, listings []model.Listing, guides []GuideRecord) (IngestCounts, error) {
	var counts IngestCounts
	for i := range listings {
		if err := ctx.Err(); err != nil {
			return counts, eris.Wrap(err, "pipeline: ingest")
		}
		counts.Listings++
		p.ingestListing(&listings[i], &counts)
	}

	for _, g := range guides {
		if err := ctx.Err(); err != nil {
			return counts, eris.Wrap(err, "pipeline: ingest")
		}
		eventKey, ok := p.ledger.EventKeyFor(g.EventURL)
		if !ok {
			counts.Errors++
			zap.L().Warn("pipeline: guide for unknown event",
				zap.String("event_url", g.EventURL),
				zap.String("guide", g.Name),
			)
			continue
		}
		p.ingestGuide(g.GuideInput, eventKey, &counts)
	}

	zap.L().Info("pipeline: ingest complete",
		zap.Int("listings", counts.Listings),
		zap.Int("new_events", counts.NewEvents),
		zap.Int("duplicate_events", counts.DuplicateEvents),
		zap.Int("new_organizers", counts.NewOrganizers),
		zap.Int("invalid", counts.Invalid),
		zap.Int("errors", counts.Errors),
	)
	return counts, nil
}

func (p *Pipeline) ingestListing(l *model.Listing, counts *IngestCounts) {
	log := zap.L().With(zap.String("event_url", l.EventURL), zap.String("organizer", l.OrganizerName))

	orgKey, err := identity.OrganizerKey(l.OrganizerName)
	if err != nil {
		counts.Invalid++
		log.Warn("pipeline: listing skipped", zap.Error(err))
		return
	}
	eventKey, err := identity.EventKey(l.EventURL)
	if err != nil {
		counts.Invalid++
		log.Warn("pipeline: listing skipped", zap.Error(err))
		return
	}

	tag := platform.Normalize(l.Platform)
	if tag == "" {
		tag, _ = platform.Detect(l.EventURL)
	}
	scrapedAt := l.ScrapedAt
	if scrapedAt.IsZero() {
		scrapedAt = p.now()
	}

	_, existed := p.ledger.Organizer(orgKey)
	_, err = p.ledger.UpsertOrganizer(orgKey, model.Organizer{
		DisplayName: strings.TrimSpace(l.OrganizerName),
		CenterURL:   model.StrOrNil(l.CenterURL),
	}, ledger.Provenance{Platform: tag, Label: l.SourceLabel, SeenAt: scrapedAt})
	if err != nil {
		counts.Errors++
		log.Error("pipeline: upsert organizer", zap.Error(err))
		return
	}
	if !existed {
		counts.NewOrganizers++
	}

	_, wasNew, err := p.ledger.UpsertEvent(eventKey, orgKey, model.Event{
		URL:          strings.TrimSpace(l.EventURL),
		Title:        strings.TrimSpace(l.Title),
		DateText:     strings.TrimSpace(l.DateText),
		PriceText:    strings.TrimSpace(l.PriceText),
		RatingText:   strings.TrimSpace(l.RatingText),
		LocationText: strings.TrimSpace(l.LocationText),
		Platform:     tag,
		SourceLabel:  l.SourceLabel,
		ScrapedAt:    scrapedAt,
		Description:  model.StrOrNil(l.Description),
		GroupSize:    model.StrOrNil(l.GroupSize),
	})
	if err != nil {
		counts.Errors++
		log.Error("pipeline: upsert event", zap.Error(err))
		return
	}
	if wasNew {
		counts.NewEvents++
	} else {
		counts.DuplicateEvents++
	}

	for _, g := range l.Guides {
		p.ingestGuide(g, eventKey, counts)
	}
}

func (p *Pipeline) ingestGuide(g model.GuideInput, eventKey string, counts *IngestCounts) {
	key, err := identity.GuideKey(g.Name, g.ProfileURL)
	if err != nil {
		counts.Invalid++
		zap.L().Debug("pipeline: guide skipped", zap.String("event_key", eventKey), zap.Error(err))
		return
	}
	_, err = p.ledger.UpsertGuide(key, model.Guide{
		Name:        strings.TrimSpace(g.Name),
		Role:        model.StrOrNil(g.Role),
		Bio:         model.StrOrNil(g.Bio),
		PhotoURL:    model.StrOrNil(g.PhotoURL),
		ProfileURL:  model.StrOrNil(g.ProfileURL),
		Credentials: model.StrOrNil(g.Credentials),
	}, eventKey)
	if err != nil {
		counts.Errors++
		zap.L().Error("pipeline: upsert guide", zap.String("guide", g.Name), zap.Error(err))
		return
	}
	counts.Guides++
}
