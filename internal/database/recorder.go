package database

import (
	"context"
	"log/slog"

	"github.com/nao1215/webindex/internal/model"
)

// OutcomeLog writes crawl outcomes of one run to the crawl log.
// It satisfies crawler.OutcomeRecorder.
type OutcomeLog struct {
	ctx    context.Context //nolint:containedctx // recorder callbacks carry no context
	db     *CrawlDB
	runID  int64
	logger *slog.Logger
}

// Recorder returns an OutcomeLog bound to runID.
// Insert failures are logged and do not stop the crawl.
func (cdb *CrawlDB) Recorder(ctx context.Context, runID int64, logger *slog.Logger) *OutcomeLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutcomeLog{
		ctx:    context.WithoutCancel(ctx),
		db:     cdb,
		runID:  runID,
		logger: logger,
	}
}

// RecordOutcome stores o.
func (l *OutcomeLog) RecordOutcome(o model.Outcome) {
	if err := l.db.InsertOutcome(l.ctx, l.runID, o); err != nil {
		l.logger.Warn("failed to record outcome", "url", o.URL, "run", l.runID, "error", err)
	}
}
