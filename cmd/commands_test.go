package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/retreat-leads/internal/cache"
	"github.com/sells-group/retreat-leads/internal/config"
	"github.com/sells-group/retreat-leads/internal/ledger"
	"github.com/sells-group/retreat-leads/internal/lookup"
	"github.com/sells-group/retreat-leads/internal/pipeline"
)

const listingsJSON = `[
  {"title": "Flow in Tulum", "organizer_name": "Maya Flow Yoga", "location_text": "Tulum, Mexico",
   "event_url": "https://retreat.guru/events/123-flow?utm_source=x", "scrape_timestamp": "2025-01-02 10:00:00"},
  {"title": "Bali Flow", "organizer_name": "maya flow yoga", "location_text": "Ubud, Bali",
   "event_url": "https://bookretreats.com/r/bali-flow", "source_platform": "bookretreats",
   "scrape_timestamp": "2025-01-03T09:00:00Z"},
  {"title": "No organizer", "organizer_name": "  ", "event_url": "https://retreat.guru/events/9"}
]`

// useTempConfig points the global config at a fresh ledger directory.
func useTempConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := cfg
	cfg = &config.Config{
		Ledger: config.LedgerConfig{
			Dir:     filepath.Join(dir, "ledger"),
			RunsDir: filepath.Join(dir, "runs"),
		},
		Cache: config.CacheConfig{Driver: "jsonfile", Dir: filepath.Join(dir, "cache")},
		Enrich: config.EnrichConfig{
			Concurrency:       5,
			RequestsPerSecond: 2,
		},
	}
	t.Cleanup(func() { cfg = prev })
	return dir
}

// run executes a command's RunE with flags, capturing its output.
func run(t *testing.T, c *cobra.Command, flags map[string]string, args ...string) (string, error) {
	t.Helper()
	for name, val := range flags {
		f := c.Flags().Lookup(name)
		require.NotNil(t, f, "flag %q", name)
		def := f.DefValue
		require.NoError(t, c.Flags().Set(name, val))
		t.Cleanup(func() {
			_ = c.Flags().Set(name, def)
			f.Changed = false
		})
	}

	var out bytes.Buffer
	c.SetOut(&out)
	c.SetContext(context.Background())
	t.Cleanup(func() {
		c.SetOut(nil)
		c.SetContext(nil)
	})

	err := c.RunE(c, args)
	return out.String(), err
}

func ingestFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "listings.json")
	require.NoError(t, os.WriteFile(path, []byte(listingsJSON), 0o644))

	out, err := run(t, ingestCmd, map[string]string{"input": path, "label": "rg-yoga"})
	require.NoError(t, err)
	return out
}

func TestIngestCommand(t *testing.T) {
	dir := useTempConfig(t)

	out := ingestFixture(t, dir)
	assert.Contains(t, out, "Ingested 3 listings: 2 new events")
	assert.Contains(t, out, "1 new organizers")
	assert.Contains(t, out, "1 invalid")

	l, err := ledger.Open(cfg.Ledger.Dir)
	require.NoError(t, err)
	assert.Equal(t, ledger.Stats{Organizers: 1, Events: 2}, l.Stats())
	for _, o := range l.AllOrganizers() {
		assert.Equal(t, "rg-yoga", o.FirstSeenLabel)
	}

	runs, err := filepath.Glob(filepath.Join(cfg.Ledger.RunsDir, "ingest-*.yaml"))
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	// A second run finds only duplicates.
	out = ingestFixture(t, dir)
	assert.Contains(t, out, "0 new events, 2 duplicates")
}

func TestIngestCommand_MissingInput(t *testing.T) {
	useTempConfig(t)
	_, err := run(t, ingestCmd, map[string]string{"input": filepath.Join(t.TempDir(), "nope.json")})
	require.Error(t, err)
}

func TestAnalyzeCommand(t *testing.T) {
	dir := useTempConfig(t)
	ingestFixture(t, dir)

	sheet := filepath.Join(dir, "leads.csv")
	out, err := run(t, analyzeCmd, map[string]string{"output": sheet})
	require.NoError(t, err)
	assert.Contains(t, out, "# Lead Analysis (1 organizers)")
	assert.Contains(t, out, "1. Maya Flow Yoga (95.0, TRAVELING_FACILITATOR)")
	assert.Contains(t, out, "Wrote 1 leads to "+sheet)

	data, err := os.ReadFile(sheet)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "organizer_key,organizer,priority_score"))

	l, err := ledger.Open(cfg.Ledger.Dir)
	require.NoError(t, err)
	orgs := l.AllOrganizers()
	require.Len(t, orgs, 1)
	require.NotNil(t, orgs[0].PriorityScore)
	assert.InDelta(t, 95.0, *orgs[0].PriorityScore, 0.001)
}

func TestAnalyzeCommand_XLSX(t *testing.T) {
	dir := useTempConfig(t)
	ingestFixture(t, dir)

	sheet := filepath.Join(dir, "leads.xlsx")
	_, err := run(t, analyzeCmd, map[string]string{"output": sheet, "format": "xlsx", "per-event": "true"})
	require.NoError(t, err)
	assert.FileExists(t, sheet)
}

func TestAnalyzeCommand_BadFormat(t *testing.T) {
	useTempConfig(t)
	_, err := run(t, analyzeCmd, map[string]string{"format": "pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestLookupCommands(t *testing.T) {
	dir := useTempConfig(t)
	ingestFixture(t, dir)

	out, err := run(t, lookupOrganizerCmd, nil, "MAYA flow yoga")
	require.NoError(t, err)
	var resp lookup.ExistsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Exists)
	assert.NotEmpty(t, resp.Key)

	out, err = run(t, lookupEventCmd, nil, "http://retreat.guru/events/123-flow")
	require.NoError(t, err)
	resp = lookup.ExistsResponse{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Exists)

	out, err = run(t, lookupEventCmd, nil, "https://retreat.guru/events/999")
	require.NoError(t, err)
	resp = lookup.ExistsResponse{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Exists)
	assert.Empty(t, resp.Key)
}

func TestEnrichCommand_RequiresKeys(t *testing.T) {
	useTempConfig(t)
	_, err := run(t, enrichCmd, map[string]string{"places": "true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "google.key is required")
}

func TestCacheCommands(t *testing.T) {
	useTempConfig(t)

	out, err := run(t, cacheStatsCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "places: 0 fresh, 0 expired")
	assert.Contains(t, out, "ai_enrichment: 0 fresh, 0 expired")

	out, err = run(t, cachePruneCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "places: pruned 0 entries")
}

func TestCacheCommands_SQLite(t *testing.T) {
	useTempConfig(t)
	cfg.Cache.Driver = "sqlite"

	out, err := run(t, cacheStatsCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "places: 0 fresh, 0 expired")
	assert.Contains(t, out, "ai_enrichment: 0 fresh, 0 expired")
}

func TestBuildEnrichers_SQLiteSharesOneDatabase(t *testing.T) {
	useTempConfig(t)
	cfg.Cache.Driver = "sqlite"
	cfg.Google.Key = "test-google-key"
	cfg.Anthropic.Key = "test-anthropic-key"

	res, cleanup, err := buildEnrichers(context.Background(),
		pipeline.EnrichOptions{Places: true, AI: true, Contacts: true})
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, res.classifier)
	assert.Len(t, res.options, 4)

	files, err := filepath.Glob(filepath.Join(cfg.Cache.Dir, "*.db"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(cfg.Cache.Dir, cache.SQLiteFile)}, files)
}

func TestLabelCommand(t *testing.T) {
	out, err := run(t, labelCmd, nil, "https://retreat.guru/search?topic=meditation&topic=yoga&topic=detox&country=india")
	require.NoError(t, err)
	assert.Contains(t, out, "Platform: retreat.guru")
	assert.Contains(t, out, "Label: rg-meditation-yoga-india")

	_, err = run(t, labelCmd, nil, "https://example.com/search")
	require.Error(t, err)
}
