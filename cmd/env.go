package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retreat-leads/internal/ledger"
	"github.com/sells-group/retreat-leads/internal/pipeline"
)

// openLedger loads the master ledger after checking the mode's settings.
func openLedger(mode string) (*ledger.Ledger, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	l, err := ledger.Open(cfg.Ledger.Dir)
	if err != nil {
		return nil, eris.Wrap(err, "open ledger")
	}
	st := l.Stats()
	zap.L().Info("ledger loaded",
		zap.String("dir", cfg.Ledger.Dir),
		zap.Int("organizers", st.Organizers),
		zap.Int("events", st.Events),
		zap.Int("guides", st.Guides),
	)
	return l, nil
}

// finishRun saves the ledger when it changed, then records the summary.
func finishRun(out io.Writer, l *ledger.Ledger, sum *pipeline.Summary) error {
	if l.Dirty() {
		if err := l.Save(); err != nil {
			return eris.Wrap(err, "save ledger")
		}
	}
	sum.Finish(l)
	sum.Log()

	path, err := sum.WriteYAML(cfg.Ledger.RunsDir)
	if err != nil {
		zap.L().Warn("run summary not written", zap.Error(err))
	} else if path != "" {
		fmt.Fprintf(out, "Run %s summary: %s\n", sum.RunID, path)
	}
	return nil
}

// closeQuietly closes c and logs a failure.
func closeQuietly(name string, c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		zap.L().Warn("close failed", zap.String("resource", name), zap.Error(err))
	}
}

// withLedgerRun runs fn against the loaded ledger and finishes the run.
func withLedgerRun(ctx context.Context, out io.Writer, mode, command string, fn func(ctx context.Context, l *ledger.Ledger, sum *pipeline.Summary) error) error {
	l, err := openLedger(mode)
	if err != nil {
		return err
	}
	sum := pipeline.NewSummary(command)
	if err := fn(ctx, l, sum); err != nil {
		return err
	}
	return finishRun(out, l, sum)
}
