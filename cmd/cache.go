package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/retreat-leads/internal/cache"
)

var cacheNamespaces = []string{cache.NamespacePlaces, cache.NamespaceAI}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and prune the enrichment cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count fresh and expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachCache(cmd, func(ns string, m cache.Maintainer) error {
			st, err := m.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d fresh, %d expired\n", ns, st.Fresh, st.Expired)
			return nil
		})
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return eachCache(cmd, func(ns string, m cache.Maintainer) error {
			n, err := m.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: pruned %d entries\n", ns, n)
			return nil
		})
	},
}

func eachCache(cmd *cobra.Command, fn func(ns string, m cache.Maintainer) error) error {
	if err := cfg.Validate("enrich"); err != nil {
		return err
	}
	store := cache.NewStore(cfg.Cache.Driver, cfg.Cache.Dir, nil)
	defer closeQuietly("cache", store)

	for _, ns := range cacheNamespaces {
		c, err := store.Namespace(cmd.Context(), ns)
		if err != nil {
			return err
		}
		m, ok := c.(cache.Maintainer)
		if !ok {
			closeQuietly("cache", c)
			return eris.Errorf("cache driver %q does not support maintenance", cfg.Cache.Driver)
		}
		err = fn(ns, m)
		closeQuietly("cache", c)
		if err != nil {
			return err
		}
	}
	return nil
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
