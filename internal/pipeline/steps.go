package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nao1215/webindex/internal/config"
	"github.com/nao1215/webindex/internal/crawler"
	"github.com/nao1215/webindex/internal/database"
	"github.com/nao1215/webindex/internal/index"
)

// ErrNoStore is returned by steps that need State.Store when it is nil.
var ErrNoStore = errors.New("pipeline state has no store")

// CrawlStep crawls State.Seeds and fills State.Crawl and State.Documents.
type CrawlStep struct {
	cfg       *config.Config
	client    *http.Client
	recorders []crawler.OutcomeRecorder
	crawlLog  *database.CrawlDB
	logger    *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlHTTPClient replaces the HTTP client used for pages and robots.txt.
func WithCrawlHTTPClient(client *http.Client) CrawlStepOption {
	return func(s *CrawlStep) {
		s.client = client
	}
}

// WithCrawlRecorders adds outcome recorders, such as a metrics recorder.
func WithCrawlRecorders(recorders ...crawler.OutcomeRecorder) CrawlStepOption {
	return func(s *CrawlStep) {
		s.recorders = append(s.recorders, recorders...)
	}
}

// WithCrawlLog records the run and every outcome in db.
func WithCrawlLog(db *database.CrawlDB) CrawlStepOption {
	return func(s *CrawlStep) {
		s.crawlLog = db
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step driven by cfg.
func NewCrawlStep(cfg *config.Config, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
// On cancellation the partial result is kept in state and the context
// error is returned, so later steps do not overwrite artifacts of a
// previous complete run.
func (s *CrawlStep) Do(ctx context.Context, state *State) error {
	opts := CrawlerOptions(s.cfg)
	opts = append(opts, crawler.WithLogger(s.logger))
	if s.client != nil {
		opts = append(opts, crawler.WithHTTPClient(s.client))
	}
	for _, r := range s.recorders {
		opts = append(opts, crawler.WithRecorder(r))
	}

	if s.crawlLog != nil {
		runID, err := s.crawlLog.StartRun(ctx, database.RunConfig{
			Seeds:     state.Seeds,
			MaxDepth:  s.cfg.MaxDepth,
			PageLimit: s.cfg.PageLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to start crawl log run: %w", err)
		}
		state.RunID = runID
		opts = append(opts, crawler.WithRecorder(s.crawlLog.Recorder(ctx, runID, s.logger)))
	}

	result, err := crawler.New(state.Seeds, opts...).Run(ctx)
	if result != nil {
		state.Crawl = result
		state.Documents = result.Documents
	}

	if s.crawlLog != nil {
		if ferr := s.crawlLog.FinishRun(context.WithoutCancel(ctx), state.RunID, len(state.Documents), err); ferr != nil {
			s.logger.Warn("failed to finish crawl log run", "run", state.RunID, "error", ferr)
		}
	}

	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	s.logger.Info("crawl completed", "documents", len(state.Documents), "run", state.RunID)
	return nil
}

// CrawlerOptions maps cfg onto crawler options.
func CrawlerOptions(cfg *config.Config) []crawler.Option {
	opts := []crawler.Option{
		crawler.WithMaxDepth(cfg.MaxDepth),
		crawler.WithPageLimit(cfg.PageLimit),
		crawler.WithDelay(cfg.Delay),
		crawler.WithTimeout(cfg.Timeout),
		crawler.WithRobotsTimeout(cfg.RobotsTimeout),
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithSameOrigin(cfg.SameOrigin),
		crawler.WithWorkers(cfg.Workers),
	}
	if cfg.SiteConfigs != nil {
		// Site lookups fall back to the file's defaults, patterns included.
		opts = append(opts, crawler.WithSiteConfigs(cfg.SiteConfigs))
	}
	return opts
}

// SaveDocumentsStep writes State.Documents to the documents file.
type SaveDocumentsStep struct{}

// Name returns the step name.
func (SaveDocumentsStep) Name() string {
	return "save_documents"
}

// Do executes the step.
func (SaveDocumentsStep) Do(_ context.Context, state *State) error {
	if state.Store == nil {
		return ErrNoStore
	}
	return state.Store.SaveDocuments(state.Documents)
}

// LoadDocumentsStep reads State.Documents from the documents file.
type LoadDocumentsStep struct{}

// Name returns the step name.
func (LoadDocumentsStep) Name() string {
	return "load_documents"
}

// Do executes the step.
func (LoadDocumentsStep) Do(_ context.Context, state *State) error {
	if state.Store == nil {
		return ErrNoStore
	}
	docs, err := state.Store.LoadDocuments()
	if err != nil {
		return err
	}
	state.Documents = docs
	return nil
}

// IndexObserver receives the size of each built index.
type IndexObserver interface {
	ObserveIndex(terms, documents int)
}

// IndexStep builds the inverted index from State.Documents.
type IndexStep struct {
	observer IndexObserver
	logger   *slog.Logger
}

// NewIndexStep creates an index step. observer may be nil.
func NewIndexStep(observer IndexObserver, logger *slog.Logger) *IndexStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexStep{observer: observer, logger: logger}
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return "index"
}

// Do executes the index step.
func (s *IndexStep) Do(_ context.Context, state *State) error {
	idx, docs := index.Build(state.Documents)
	state.Index = idx
	state.DocumentMap = docs

	if s.observer != nil {
		s.observer.ObserveIndex(len(idx), len(docs))
	}
	s.logger.Info("index built", "terms", len(idx), "documents", len(docs))
	return nil
}

// SaveIndexStep writes State.Index and State.DocumentMap.
type SaveIndexStep struct{}

// Name returns the step name.
func (SaveIndexStep) Name() string {
	return "save_index"
}

// Do executes the step.
func (SaveIndexStep) Do(_ context.Context, state *State) error {
	if state.Store == nil {
		return ErrNoStore
	}
	return state.Store.SaveIndex(state.Index, state.DocumentMap)
}
