package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retreat-leads/internal/lookup"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Check whether organizers or events are already in the ledger",
}

var lookupOrganizerCmd = &cobra.Command{
	Use:   "organizer <name>",
	Short: "Look an organizer up by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger("lookup")
		if err != nil {
			return err
		}
		key, ok := l.FindByNormalizedName(args[0])
		return printJSON(cmd.OutOrStdout(), lookup.ExistsResponse{Exists: ok, Key: key})
	},
}

var lookupEventCmd = &cobra.Command{
	Use:   "event <url>",
	Short: "Look an event up by listing URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger("lookup")
		if err != nil {
			return err
		}
		resp := lookup.ExistsResponse{}
		if key, ok := l.EventKeyFor(args[0]); ok {
			resp = lookup.ExistsResponse{Exists: true, Key: key}
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "encode output")
}

func init() {
	lookupCmd.AddCommand(lookupOrganizerCmd)
	lookupCmd.AddCommand(lookupEventCmd)
	rootCmd.AddCommand(lookupCmd)
}
