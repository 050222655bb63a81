package search

import (
	"cmp"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/nao1215/webindex/internal/index"
	"github.com/nao1215/webindex/internal/model"
	"github.com/nao1215/webindex/internal/store"
)

// Snapshot is an immutable index generation.
type Snapshot struct {
	Index     index.InvertedIndex
	Documents index.DocumentMap

	// LoadedAt is when the snapshot was published.
	LoadedAt time.Time

	ready bool
}

// Hit is a Result joined with the document's metadata.
type Hit struct {
	Result
	URL    string        `json:"url"`
	Images []model.Image `json:"images"`
	Videos []model.Video `json:"videos"`
}

// Observer is notified after every query.
type Observer interface {
	ObserveSearch(d time.Duration, results int)
}

// Searcher answers queries. It is safe for concurrent use.
type Searcher struct {
	snapshot atomic.Pointer[Snapshot]
	scorer   Scorer
	limit    int
	observer Observer
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithScorer replaces the TermMatchScorer.
func WithScorer(scorer Scorer) Option {
	return func(s *Searcher) {
		s.scorer = scorer
	}
}

// WithLimit caps the number of results. Zero means no cap.
func WithLimit(limit int) Option {
	return func(s *Searcher) {
		s.limit = limit
	}
}

// WithObserver sets an Observer for query timings.
func WithObserver(o Observer) Option {
	return func(s *Searcher) {
		s.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		s.logger = logger
	}
}

// New creates a Searcher over an in-memory index.
func New(idx index.InvertedIndex, docs index.DocumentMap, opts ...Option) *Searcher {
	s := newSearcher(opts)
	s.Swap(idx, docs)
	return s
}

// Load creates a Searcher from the files in st. When they are missing or
// unreadable the Searcher starts empty, answers every query with no
// results and reports Ready() == false.
func Load(st *store.Store, opts ...Option) *Searcher {
	s := newSearcher(opts)
	s.snapshot.Store(emptySnapshot())
	if err := s.Reload(st); err != nil {
		s.logger.Warn("index not available, serving empty results", "error", err)
	}
	return s
}

func newSearcher(opts []Option) *Searcher {
	s := &Searcher{
		scorer: TermMatchScorer{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Index:     make(index.InvertedIndex),
		Documents: make(index.DocumentMap),
		LoadedAt:  time.Now(),
	}
}

// Reload reads the index files in st and publishes them. On error the
// current snapshot stays in place.
func (s *Searcher) Reload(st *store.Store) error {
	idx, docs, err := st.LoadIndex()
	if err != nil {
		return err
	}
	s.Swap(idx, docs)
	s.logger.Debug("index loaded", "terms", len(idx), "documents", len(docs))
	return nil
}

// Swap publishes a new index generation.
func (s *Searcher) Swap(idx index.InvertedIndex, docs index.DocumentMap) {
	if idx == nil {
		idx = make(index.InvertedIndex)
	}
	if docs == nil {
		docs = make(index.DocumentMap)
	}
	s.snapshot.Store(&Snapshot{
		Index:     idx,
		Documents: docs,
		LoadedAt:  time.Now(),
		ready:     true,
	})
}

// Snapshot returns the current index generation.
func (s *Searcher) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Ready reports whether an index has been loaded.
func (s *Searcher) Ready() bool {
	snap := s.snapshot.Load()
	return snap != nil && snap.ready
}

// Search returns the documents matching query, best first.
// A query without terms returns nil without consulting the index.
func (s *Searcher) Search(query string) []Result {
	terms := index.Terms(query)
	if len(terms) == 0 {
		return nil
	}
	return s.search(s.snapshot.Load(), terms)
}

func (s *Searcher) search(snap *Snapshot, terms []string) []Result {
	if snap == nil {
		return nil
	}
	start := time.Now()

	results := slices.DeleteFunc(s.scorer.Score(terms, snap.Index), func(r Result) bool {
		return r.Score <= 0
	})
	slices.SortStableFunc(results, func(a, b Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if s.limit > 0 && len(results) > s.limit {
		results = results[:s.limit]
	}

	if s.observer != nil {
		s.observer.ObserveSearch(time.Since(start), len(results))
	}
	return results
}

// Lookup joins r with the metadata of its document.
func (s *Searcher) Lookup(r Result) (Hit, bool) {
	return lookup(s.snapshot.Load(), r)
}

func lookup(snap *Snapshot, r Result) (Hit, bool) {
	if snap == nil {
		return Hit{Result: r}, false
	}
	meta, ok := snap.Documents[r.DocumentID]
	if !ok {
		return Hit{Result: r}, false
	}
	return Hit{Result: r, URL: meta.URL, Images: meta.Images, Videos: meta.Videos}, true
}

// SearchHits is Search followed by Lookup against the same snapshot.
// Results whose document is missing from the map keep an empty URL.
func (s *Searcher) SearchHits(query string) []Hit {
	terms := index.Terms(query)
	if len(terms) == 0 {
		return nil
	}
	snap := s.snapshot.Load()
	results := s.search(snap, terms)
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		h, _ := lookup(snap, r)
		hits = append(hits, h)
	}
	return hits
}
