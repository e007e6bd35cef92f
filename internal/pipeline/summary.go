package pipeline

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/retreat-leads/internal/ledger"
)

// Summary records what one command run did.
type Summary struct {
	RunID      string        `yaml:"run_id"`
	Command    string        `yaml:"command"`
	StartedAt  time.Time     `yaml:"started_at"`
	FinishedAt time.Time     `yaml:"finished_at"`
	Duration   time.Duration `yaml:"duration"`

	IngestCounts  `yaml:"ingest,omitempty"`
	EnrichCounts  `yaml:"enrich,omitempty"`
	AnalyzeCounts `yaml:"analyze,omitempty"`

	Ledger ledger.Stats `yaml:"ledger"`
}

// IngestCounts are the counters of an ingest run.
type IngestCounts struct {
	Listings        int `yaml:"listings"`
	NewEvents       int `yaml:"new_events"`
	DuplicateEvents int `yaml:"duplicate_events"`
	NewOrganizers   int `yaml:"new_organizers"`
	Guides          int `yaml:"guides"`
	Invalid         int `yaml:"invalid"`
	Errors          int `yaml:"errors"`
}

// EnrichCounts are the counters of an enrich run.
type EnrichCounts struct {
	Organizers       int `yaml:"organizers"`
	PlacesFound      int `yaml:"places_found"`
	PlacesMissed     int `yaml:"places_missed"`
	Classified       int `yaml:"classified"`
	ContactsFound    int `yaml:"contacts_found"`
	Skipped          int `yaml:"skipped"`
	EnrichmentErrors int `yaml:"enrichment_errors"`
}

// AnalyzeCounts are the counters of an analyze run.
type AnalyzeCounts struct {
	Scored    int            `yaml:"scored"`
	LeadTypes map[string]int `yaml:"lead_types,omitempty"`
}

// NewSummary starts a summary for command with a fresh run ID.
func NewSummary(command string) *Summary {
	return &Summary{
		RunID:     uuid.New().String(),
		Command:   command,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the end time and captures the ledger size.
func (s *Summary) Finish(l *ledger.Ledger) {
	s.FinishedAt = time.Now().UTC()
	s.Duration = s.FinishedAt.Sub(s.StartedAt)
	if l != nil {
		s.Ledger = l.Stats()
	}
}

// Log writes the summary to the global logger.
func (s *Summary) Log() {
	zap.L().Info("pipeline: run complete",
		zap.String("run_id", s.RunID),
		zap.String("command", s.Command),
		zap.Duration("duration", s.Duration),
		zap.Any("ingest", s.IngestCounts),
		zap.Any("enrich", s.EnrichCounts),
		zap.Any("analyze", s.AnalyzeCounts),
		zap.Int("organizers", s.Ledger.Organizers),
		zap.Int("events", s.Ledger.Events),
	)
}

// WriteYAML writes the summary to dir as <command>-<run id>.yaml and returns
// the file path. An empty dir writes nothing.
func (s *Summary) WriteYAML(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "pipeline: create runs dir")
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", eris.Wrap(err, "pipeline: marshal summary")
	}
	path := filepath.Join(dir, s.Command+"-"+s.RunID+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrap(err, "pipeline: write summary")
	}
	return path, nil
}
