package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retreat-leads/internal/export"
	"github.com/sells-group/retreat-leads/internal/ledger"
	"github.com/sells-group/retreat-leads/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score organizers and export the lead sheet",
	Long:  "Computes per-organizer aggregates and priority scores, stores the scores in the ledger, prints a report and optionally writes a CSV or XLSX lead sheet.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		output, _ := cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")
		perEvent, _ := cmd.Flags().GetBool("per-event")
		top, _ := cmd.Flags().GetInt("top")
		if format != "csv" && format != "xlsx" {
			return eris.Errorf("unknown format %q: want csv or xlsx", format)
		}

		out := cmd.OutOrStdout()
		return withLedgerRun(ctx, out, "analyze", "analyze", func(ctx context.Context, l *ledger.Ledger, sum *pipeline.Summary) error {
			rows, counts, err := pipeline.New(l).Analyze(ctx)
			sum.AnalyzeCounts = counts
			if err != nil {
				return err
			}

			fmt.Fprint(out, pipeline.FormatReport(rows, top))

			if output == "" {
				return nil
			}
			if err := writeLeads(output, format, rows, perEvent); err != nil {
				return err
			}
			fmt.Fprintf(out, "\nWrote %d leads to %s\n", len(rows), output)
			return nil
		})
	},
}

func writeLeads(path, format string, rows []pipeline.LeadRow, perEvent bool) error {
	if format == "xlsx" {
		return export.WriteXLSX(path, rows, perEvent)
	}
	return export.WriteCSV(path, rows, perEvent)
}

func init() {
	analyzeCmd.Flags().StringP("output", "o", "", "lead sheet path")
	analyzeCmd.Flags().String("format", "csv", "lead sheet format: csv or xlsx")
	analyzeCmd.Flags().Bool("per-event", false, "one line per event instead of per organizer")
	analyzeCmd.Flags().Int("top", 20, "prospects listed in the report")
	rootCmd.AddCommand(analyzeCmd)
}
