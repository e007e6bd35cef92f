package pipeline

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retreat-leads/internal/aggregate"
	"github.com/sells-group/retreat-leads/internal/model"
	"github.com/sells-group/retreat-leads/internal/scoring"
)

// LeadRow is one scored organizer with the facts its score came from.
type LeadRow struct {
	Organizer  model.Organizer
	Aggregates model.Aggregates
	Score      scoring.Result
	Events     []model.Event
}

// Analyze recomputes aggregates and scores for every organizer, records the
// latest score in the ledger and returns rows by descending score, ties by
// organizer key.
func (p *Pipeline) Analyze(ctx context.Context) ([]LeadRow, AnalyzeCounts, error) {
	counts := AnalyzeCounts{LeadTypes: make(map[string]int)}
	orgs := p.ledger.AllOrganizers()
	rows := make([]LeadRow, 0, len(orgs))
	now := p.now()

	for _, o := range orgs {
		if err := ctx.Err(); err != nil {
			return nil, counts, eris.Wrap(err, "pipeline: analyze")
		}
		events := p.ledger.EventsFor(o.Key)
		agg := aggregate.Compute(events)
		res := scoring.Score(scoring.Input{
			DisplayName:    o.DisplayName,
			Aggregates:     agg,
			Classification: o.ClassificationRecord(),
		})

		updated, err := p.ledger.ApplyScore(o.Key, res.PriorityScore, res.LeadType, now)
		if err != nil {
			return nil, counts, eris.Wrapf(err, "pipeline: score %s", o.Key)
		}
		rows = append(rows, LeadRow{Organizer: updated, Aggregates: agg, Score: res, Events: events})
		counts.Scored++
		counts.LeadTypes[string(res.LeadType)]++
	}

	SortRows(rows)
	zap.L().Info("pipeline: analyze complete",
		zap.Int("scored", counts.Scored),
		zap.Any("lead_types", counts.LeadTypes),
	)
	return rows, counts, nil
}

// SortRows orders rows by descending score, then organizer key.
func SortRows(rows []LeadRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		si, sj := rows[i].Score.PriorityScore, rows[j].Score.PriorityScore
		if si != sj {
			return si > sj
		}
		return rows[i].Organizer.Key < rows[j].Organizer.Key
	})
}
