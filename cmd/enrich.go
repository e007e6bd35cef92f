package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/retreat-leads/internal/cache"
	"github.com/sells-group/retreat-leads/internal/enrich"
	"github.com/sells-group/retreat-leads/internal/ledger"
	"github.com/sells-group/retreat-leads/internal/pipeline"
	"github.com/sells-group/retreat-leads/pkg/anthropic"
	"github.com/sells-group/retreat-leads/pkg/google"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich organizers with Places, contact and AI signals",
	Long:  "Looks organizers up on Google Places, scrapes their websites for contacts and classifies them with an LLM. Lookups are cached for 30 days; failures are logged and leave the organizer to the name heuristic.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := pipeline.EnrichOptions{}
		opts.Places, _ = cmd.Flags().GetBool("places")
		opts.AI, _ = cmd.Flags().GetBool("ai")
		opts.Contacts, _ = cmd.Flags().GetBool("contacts")
		opts.Refresh, _ = cmd.Flags().GetBool("refresh")
		opts.Keys, _ = cmd.Flags().GetStringSlice("key")
		if !opts.Places && !opts.AI && !opts.Contacts {
			opts.Places, opts.AI, opts.Contacts = true, true, true
		}
		if cmd.Flags().Changed("concurrency") {
			cfg.Enrich.Concurrency, _ = cmd.Flags().GetInt("concurrency")
		}
		if err := validateEnrich(opts); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return withLedgerRun(ctx, out, "enrich", "enrich", func(ctx context.Context, l *ledger.Ledger, sum *pipeline.Summary) error {
			pipeOpts, cleanup, err := buildEnrichers(ctx, opts)
			if err != nil {
				return err
			}
			defer cleanup()

			p := pipeline.New(l, pipeOpts.options...)
			counts, err := p.Enrich(ctx, opts)
			sum.EnrichCounts = counts
			if pipeOpts.classifier != nil {
				pipeOpts.classifier.Usage().LogCost(pipeOpts.classifier.Model(), "classify")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Enriched %d organizers: %d places found, %d missed, %d classified, %d contacts, %d skipped, %d errors\n",
				counts.Organizers, counts.PlacesFound, counts.PlacesMissed, counts.Classified,
				counts.ContactsFound, counts.Skipped, counts.EnrichmentErrors)
			return nil
		})
	},
}

// validateEnrich checks the credentials of the selected collaborators.
func validateEnrich(opts pipeline.EnrichOptions) error {
	if opts.Places {
		if err := cfg.Validate("places"); err != nil {
			return err
		}
	}
	if opts.AI {
		if err := cfg.Validate("classify"); err != nil {
			return err
		}
	}
	return nil
}

type enrichers struct {
	options    []pipeline.Option
	classifier *enrich.Classifier
}

// buildEnrichers wires the selected collaborators and their caches. The
// returned cleanup closes the cache store, which the namespaces share.
func buildEnrichers(ctx context.Context, opts pipeline.EnrichOptions) (enrichers, func(), error) {
	var res enrichers
	store := cache.NewStore(cfg.Cache.Driver, cfg.Cache.Dir, nil)
	cleanup := func() { closeQuietly("cache", store) }

	fetcher := enrich.NewFetcher(
		enrich.WithRequestRate(cfg.Enrich.RequestsPerSecond),
		enrich.WithUserAgent(cfg.Enrich.UserAgent),
		enrich.WithTimeout(time.Duration(cfg.Enrich.TimeoutSecs)*time.Second),
	)
	res.options = append(res.options, pipeline.WithConcurrency(cfg.Enrich.Concurrency))

	if opts.Places {
		placesCache, err := store.Namespace(ctx, cache.NamespacePlaces)
		if err != nil {
			cleanup()
			return res, nil, err
		}

		gc := google.NewClient(cfg.Google.Key, google.WithBaseURL(cfg.Google.BaseURL))
		res.options = append(res.options, pipeline.WithPlaces(enrich.NewPlaces(gc, placesCache, enrich.Venue{
			Name:      cfg.Venue.Name,
			Latitude:  cfg.Venue.Latitude,
			Longitude: cfg.Venue.Longitude,
		})))
	}

	if opts.Contacts {
		res.options = append(res.options, pipeline.WithContacts(enrich.NewContactScraper(fetcher)))
	}

	if opts.AI {
		aiCache, err := store.Namespace(ctx, cache.NamespaceAI)
		if err != nil {
			cleanup()
			return res, nil, err
		}

		ac := anthropic.NewClient(cfg.Anthropic.Key, option.WithMaxRetries(3))
		res.classifier = enrich.NewClassifier(ac, fetcher, aiCache, enrich.ClassifierConfig{
			Model:            cfg.Anthropic.Model,
			MaxTokens:        int64(cfg.Anthropic.MaxTokens),
			MaxContentLength: cfg.Enrich.MaxContentLength,
			VenueName:        cfg.Venue.Name,
		})
		res.options = append(res.options, pipeline.WithClassifier(res.classifier))
	}

	zap.L().Info("enrich: collaborators ready",
		zap.Bool("places", opts.Places),
		zap.Bool("contacts", opts.Contacts),
		zap.Bool("ai", opts.AI),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Int("concurrency", cfg.Enrich.Concurrency),
	)
	return res, cleanup, nil
}

func init() {
	enrichCmd.Flags().Bool("places", false, "look organizers up on Google Places")
	enrichCmd.Flags().Bool("ai", false, "classify organizers with the LLM")
	enrichCmd.Flags().Bool("contacts", false, "scrape organizer websites for contacts")
	enrichCmd.Flags().Bool("refresh", false, "re-run steps that already have results, ignoring cached lookups")
	enrichCmd.Flags().Int("concurrency", 5, "organizers enriched in parallel")
	enrichCmd.Flags().StringSlice("key", nil, "limit to these organizer keys")
	rootCmd.AddCommand(enrichCmd)
}
