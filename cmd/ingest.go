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
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Merge scraped listings into the ledger",
	Long:  "Reads scraped listings (JSON, CSV or XLSX) and optional guide records, resolves organizers and events to stable keys, and merges them into the master ledger.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		input, _ := cmd.Flags().GetString("input")
		guidesPath, _ := cmd.Flags().GetString("guides")
		label, _ := cmd.Flags().GetString("label")
		platformName, _ := cmd.Flags().GetString("platform")

		listings, err := pipeline.ReadListings(input)
		if err != nil {
			return err
		}
		applyListingDefaults(listings, label, platformName)

		var guides []pipeline.GuideRecord
		if guidesPath != "" {
			guides, err = pipeline.ReadGuides(guidesPath)
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		return withLedgerRun(ctx, out, "ingest", "ingest", func(ctx context.Context, l *ledger.Ledger, sum *pipeline.Summary) error {
			counts, err := pipeline.New(l).Ingest(ctx, listings, guides)
			sum.IngestCounts = counts
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Ingested %d listings: %d new events, %d duplicates, %d new organizers, %d guides, %d invalid, %d errors\n",
				counts.Listings, counts.NewEvents, counts.DuplicateEvents, counts.NewOrganizers,
				counts.Guides, counts.Invalid, counts.Errors)
			return nil
		})
	},
}

// applyListingDefaults fills the source label and platform on listings that
// did not carry their own.
func applyListingDefaults(listings []model.Listing, label, platformName string) {
	for i := range listings {
		if listings[i].SourceLabel == "" {
			listings[i].SourceLabel = label
		}
		if listings[i].Platform == "" {
			listings[i].Platform = platformName
		}
	}
}

func init() {
	ingestCmd.Flags().String("input", "", "listings file (.json, .csv or .xlsx)")
	ingestCmd.Flags().String("guides", "", "guide records file (.json)")
	ingestCmd.Flags().String("label", "", "source label for listings without one")
	ingestCmd.Flags().String("platform", "", "source platform for listings without one")
	_ = ingestCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(ingestCmd)
}
