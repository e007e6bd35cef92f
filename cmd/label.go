package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/retreat-leads/internal/platform"
)

var labelCmd = &cobra.Command{
	Use:   "label <search-url>",
	Short: "Print the batch label and filters of a platform search URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := platform.ParseSearch(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Platform: %s\n", s.Platform)
		fmt.Fprintf(out, "Label: %s\n", s.Label())
		fmt.Fprintf(out, "Filters: %s\n", s.Describe())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(labelCmd)
}
