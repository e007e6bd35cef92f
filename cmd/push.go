package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/retreat-leads/internal/ledger"
	"github.com/sells-group/retreat-leads/internal/model"
	"github.com/sells-group/retreat-leads/internal/pipeline"
	"github.com/sells-group/retreat-leads/internal/scoring"
	"github.com/sells-group/retreat-leads/pkg/notion"
	sfpkg "github.com/sells-group/retreat-leads/pkg/salesforce"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push scored leads to a CRM",
}

var pushNotionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Upsert scored leads into the Notion lead database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("notion"); err != nil {
			return err
		}
		minScore, _ := cmd.Flags().GetFloat64("min-score")

		out := cmd.OutOrStdout()
		return withLedgerRun(ctx, out, "analyze", "push-notion", func(ctx context.Context, l *ledger.Ledger, sum *pipeline.Summary) error {
			rows, counts, err := pipeline.New(l).Analyze(ctx)
			sum.AnalyzeCounts = counts
			if err != nil {
				return err
			}

			leads := notionLeads(filterRows(rows, minScore))
			nc := notion.NewClient(cfg.Notion.Token)
			res, err := notion.PushLeads(ctx, nc, cfg.Notion.LeadDB, leads)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Notion: %d created, %d updated, %d skipped\n", res.Created, res.Updated, res.Skipped)
			return nil
		})
	},
}

var pushSalesforceCmd = &cobra.Command{
	Use:   "salesforce",
	Short: "Create Salesforce leads for new organizers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("salesforce"); err != nil {
			return err
		}
		minScore, _ := cmd.Flags().GetFloat64("min-score")

		sf, err := initSalesforce()
		if err != nil {
			return err
		}
		if err := sfpkg.CheckLeadFields(ctx, sf); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return withLedgerRun(ctx, out, "analyze", "push-salesforce", func(ctx context.Context, l *ledger.Ledger, sum *pipeline.Summary) error {
			rows, counts, err := pipeline.New(l).Analyze(ctx)
			sum.AnalyzeCounts = counts
			if err != nil {
				return err
			}

			res, err := sfpkg.PushLeads(ctx, sf, salesforceLeads(filterRows(rows, minScore)))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Salesforce: %d inserted, %d updated, %d skipped, %d failed\n",
				res.Inserted, res.Updated, res.Skipped, res.Failed)
			return nil
		})
	},
}

// filterRows keeps rows scoring at least minScore, in order.
func filterRows(rows []pipeline.LeadRow, minScore float64) []pipeline.LeadRow {
	if minScore <= 0 {
		return rows
	}
	var out []pipeline.LeadRow
	for _, r := range rows {
		if r.Score.PriorityScore >= minScore {
			out = append(out, r)
		}
	}
	return out
}

func notionLeads(rows []pipeline.LeadRow) []notion.Lead {
	out := make([]notion.Lead, 0, len(rows))
	for _, r := range rows {
		o := r.Organizer
		out = append(out, notion.Lead{
			Key:           o.Key,
			Name:          o.DisplayName,
			PriorityScore: scoring.Round1(r.Score.PriorityScore),
			LeadType:      string(r.Score.LeadType),
			RetreatCount:  r.Aggregates.RetreatCount,
			Locations:     r.Aggregates.UniqueLocations,
			Platforms:     r.Aggregates.Platforms,
			Email:         model.Deref(o.Email),
			Phone:         model.Deref(o.Phone),
			Website:       model.Deref(o.Website),
			Instagram:     model.Deref(o.Instagram),
			DistanceMiles: o.DistanceMiles,
			Summary:       model.Deref(o.ProfileSummary),
		})
	}
	return out
}

func salesforceLeads(rows []pipeline.LeadRow) []sfpkg.Lead {
	out := make([]sfpkg.Lead, 0, len(rows))
	for _, r := range rows {
		o := r.Organizer
		var city string
		for _, e := range r.Events {
			if e.LocationText != "" {
				city = e.LocationText
				break
			}
		}
		out = append(out, sfpkg.Lead{
			Key:           o.Key,
			Name:          o.DisplayName,
			PriorityScore: scoring.Round1(r.Score.PriorityScore),
			LeadType:      string(r.Score.LeadType),
			RetreatCount:  r.Aggregates.RetreatCount,
			Email:         model.Deref(o.Email),
			Phone:         model.Deref(o.Phone),
			Website:       model.Deref(o.Website),
			City:          city,
			Summary:       model.Deref(o.ProfileSummary),
		})
	}
	return out
}

func init() {
	pushCmd.PersistentFlags().Float64("min-score", 0, "only push leads scoring at least this")
	pushCmd.AddCommand(pushNotionCmd)
	pushCmd.AddCommand(pushSalesforceCmd)
	rootCmd.AddCommand(pushCmd)
}
