package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/webindex/internal/config"
	"github.com/nao1215/webindex/internal/model"
)

// ErrNoValidSeed is returned by Run when none of the seeds is an absolute http(s) URL.
var ErrNoValidSeed = errors.New("no valid seed URL")

// OutcomeRecorder receives every outcome as soon as it is decided.
// Implementations must be safe for concurrent use.
type OutcomeRecorder interface {
	RecordOutcome(model.Outcome)
}

// OutcomeRecorderFunc adapts a function to OutcomeRecorder.
type OutcomeRecorderFunc func(model.Outcome)

// RecordOutcome calls f(o).
func (f OutcomeRecorderFunc) RecordOutcome(o model.Outcome) {
	f(o)
}

// Result is what one crawl run produced.
type Result struct {
	// Documents are the extracted pages in the order they completed.
	// With one worker that is breadth-first order.
	Documents []model.Document

	// Outcomes has one entry per URL that reached a terminal state.
	Outcomes []model.Outcome
}

// Counts tallies the outcomes by state.
func (r *Result) Counts() map[model.State]int {
	return model.CountStates(r.Outcomes)
}

// Crawler runs breadth-first crawls from a set of seed URLs.
type Crawler struct {
	seeds []string

	// maxDepth is the largest depth fetched. Seeds are depth 0.
	maxDepth int

	// pageLimit is the largest number of documents a run produces.
	pageLimit int

	delay         time.Duration
	timeout       time.Duration
	robotsTimeout time.Duration
	userAgent     string
	maxBodySize   int64
	sameOrigin    bool
	workers       int
	client        *http.Client

	// ignorePatterns and followPatterns filter discovered links by path,
	// in addition to per-site patterns from siteConfigs.
	ignorePatterns []string
	followPatterns []string
	siteConfigs    *config.File

	recorders []OutcomeRecorder
	logger    *slog.Logger
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxDepth sets the maximum crawl depth.
// 0 = only the seeds, 1 = seeds plus the pages they link to, etc.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		c.maxDepth = depth
	}
}

// WithPageLimit sets the maximum number of documents to extract.
func WithPageLimit(limit int) Option {
	return func(c *Crawler) {
		c.pageLimit = limit
	}
}

// WithDelay sets the minimum spacing between requests to one origin.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		c.delay = d
	}
}

// WithTimeout sets the per-page request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		c.timeout = d
	}
}

// WithRobotsTimeout sets the robots.txt request timeout.
func WithRobotsTimeout(d time.Duration) Option {
	return func(c *Crawler) {
		c.robotsTimeout = d
	}
}

// WithUserAgent sets the User-Agent header and the robots.txt identity.
func WithUserAgent(ua string) Option {
	return func(c *Crawler) {
		c.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
func WithMaxBodySize(size int64) Option {
	return func(c *Crawler) {
		c.maxBodySize = size
	}
}

// WithSameOrigin restricts followed links to the origin of the page they appear on.
func WithSameOrigin(sameOrigin bool) Option {
	return func(c *Crawler) {
		c.sameOrigin = sameOrigin
	}
}

// WithWorkers sets how many entries are processed concurrently.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		c.workers = n
	}
}

// WithHTTPClient sets the client used for pages and robots.txt.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		c.client = client
	}
}

// WithIgnorePatterns sets URL path patterns to skip during crawling.
// Patterns use glob syntax (e.g., "/admin/*", "*.pdf", "/logout*").
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path patterns to follow during crawling.
// If set, only links matching at least one pattern are enqueued.
func WithFollowPatterns(patterns []string) Option {
	return func(c *Crawler) {
		c.followPatterns = patterns
	}
}

// WithSiteConfigs sets per-host headers, delays and link patterns.
func WithSiteConfigs(file *config.File) Option {
	return func(c *Crawler) {
		c.siteConfigs = file
	}
}

// WithRecorder adds an OutcomeRecorder.
func WithRecorder(r OutcomeRecorder) Option {
	return func(c *Crawler) {
		c.recorders = append(c.recorders, r)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New creates a Crawler for seeds.
func New(seeds []string, opts ...Option) *Crawler {
	c := &Crawler{
		seeds:         seeds,
		maxDepth:      config.DefaultMaxDepth,
		pageLimit:     config.DefaultPageLimit,
		delay:         config.DefaultDelay,
		timeout:       config.DefaultTimeout,
		robotsTimeout: config.DefaultRobotsTimeout,
		userAgent:     config.DefaultUserAgent,
		maxBodySize:   config.DefaultMaxBodySize,
		sameOrigin:    true,
		workers:       config.DefaultWorkers,
		client:        &http.Client{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = 1
	}
	return c
}

// run is the state of one Run call.
type run struct {
	*Crawler

	frontier   *Frontier
	robots     *RobotsCache
	politeness *Politeness
	fetcher    *Fetcher
	extractor  *Extractor

	mu        sync.Mutex
	documents []model.Document
	outcomes  []model.Outcome
}

// Run crawls until the frontier is empty or the page limit is reached.
// On cancellation it returns what was collected so far together with the
// context error.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	var spacing []PolitenessOption
	if c.workers == 1 {
		spacing = append(spacing, WithCrawlWideSpacing())
	}
	r := &run{
		Crawler:    c,
		robots:     NewRobotsCache(c.client, c.userAgent, c.robotsTimeout, c.logger),
		politeness: NewPoliteness(c.delay, spacing...),
		extractor:  NewExtractor(WithSameOriginLinks(c.sameOrigin)),
		documents:  make([]model.Document, 0),
		outcomes:   make([]model.Outcome, 0),
	}
	r.fetcher = NewFetcher(
		WithFetcherClient(c.client),
		WithFetcherUserAgent(c.userAgent),
		WithFetcherTimeout(c.timeout),
		WithFetcherMaxBodySize(c.maxBodySize),
		WithFetcherHeaders(c.siteHeaders),
		WithFetcherRedirectPolicy(r.checkRedirect),
	)
	r.frontier = NewFrontier(c.maxDepth, func(e Entry, state model.State) {
		r.record(model.Outcome{URL: e.URL, Depth: e.Depth, State: state})
	})

	pushed := 0
	for _, seed := range c.seeds {
		if r.frontier.Push(seed, 0) {
			pushed++
		} else if _, err := NormalizeURL(seed); err != nil {
			c.logger.Warn("ignoring invalid seed", "url", seed, "error", err)
		}
	}
	if pushed == 0 {
		return nil, ErrNoValidSeed
	}

	c.logger.Info("crawl started",
		"seeds", pushed, "max_depth", c.maxDepth, "page_limit", c.pageLimit, "workers", c.workers)

	err := r.dispatch(ctx)

	result := r.result()
	c.logger.Info("crawl finished",
		"documents", len(result.Documents), "visited", len(result.Outcomes))
	return result, err
}

// dispatch pops entries and hands them to at most c.workers goroutines.
// It never has more entries in flight than the remaining page budget, so
// the page limit holds exactly however many workers run.
func (r *run) dispatch(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{}, r.workers)
	inflight := 0

	for gctx.Err() == nil {
		for inflight > 0 && (inflight == r.workers || r.extracted()+inflight >= r.pageLimit) {
			<-done
			inflight--
		}
		if r.extracted() >= r.pageLimit {
			break
		}

		entry, ok := r.frontier.Pop()
		if !ok {
			if inflight == 0 {
				break
			}
			// Running entries may still enqueue links.
			<-done
			inflight--
			continue
		}

		inflight++
		g.Go(func() error {
			defer func() { done <- struct{}{} }()
			return r.process(gctx, entry)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// process takes one entry to its terminal state.
func (r *run) process(ctx context.Context, entry Entry) error {
	o, err := origin(entry.URL)
	if err != nil {
		r.record(model.Outcome{URL: entry.URL, Depth: entry.Depth, State: model.StateFetchError, Reason: err.Error()})
		return nil
	}

	r.politeness.Raise(o, r.siteDelay(entry.URL))
	if err := r.politeness.Wait(ctx, o); err != nil {
		return err
	}

	allowed := r.robots.CanFetch(ctx, entry.URL)
	if err := ctx.Err(); err != nil {
		return err
	}
	r.politeness.Raise(o, r.robots.CrawlDelay(o))
	if !allowed {
		r.record(model.Outcome{URL: entry.URL, Depth: entry.Depth, State: model.StateRobotsDenied})
		return nil
	}

	start := time.Now()
	resp, err := r.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		outcome := model.Outcome{
			URL:      entry.URL,
			Depth:    entry.Depth,
			State:    model.StateFetchError,
			Reason:   err.Error(),
			Duration: time.Since(start),
		}
		var redirectErr *RedirectError
		if errors.As(err, &redirectErr) {
			outcome.State = redirectErr.State
			outcome.Reason = redirectErr.Error()
		}
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			outcome.StatusCode = fetchErr.StatusCode
		}
		r.record(outcome)
		return nil
	}

	outcome := model.Outcome{
		URL:         entry.URL,
		Depth:       entry.Depth,
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType,
		Duration:    resp.Duration,
	}

	if !resp.IsHTML() {
		outcome.State = model.StateNonHTML
		r.record(outcome)
		return nil
	}

	// Links resolve against where the page actually lives.
	extraction := r.extractor.ExtractWithContentType(resp.URL, resp.ContentType, resp.Body)
	outcome.State = model.StateExtracted
	outcome.ContentHash = model.ContentHash(resp.Body)
	if extraction.Failure != nil {
		outcome.Reason = extraction.Failure.Reason
		r.logger.Warn("page only partially extracted", "url", entry.URL, "reason", extraction.Failure.Reason)
	}

	if !r.accept(*extraction.Document, outcome) {
		return nil
	}

	if entry.Depth < r.maxDepth {
		for _, link := range extraction.Links {
			if r.shouldCrawl(link) {
				r.frontier.Push(link, entry.Depth+1)
			}
		}
	}
	return nil
}

// RedirectError reports a redirect hop that was not followed.
type RedirectError struct {
	// Target is the normalized URL the server redirected to.
	Target string

	// State is the terminal state recorded for the requested URL.
	State model.State
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirect to %s not followed: %s", e.Target, e.State)
}

// checkRedirect applies the frontier rules to a redirect target before it
// is requested: it must stay on the host when same-origin crawling is on,
// robots.txt must allow it and it must not have been visited already.
// An accepted target is marked visited.
func (r *run) checkRedirect(req *http.Request, via []*http.Request) error {
	target, err := normalize(req.URL)
	if err != nil {
		return err
	}
	if r.sameOrigin && len(via) > 0 && !strings.EqualFold(req.URL.Host, via[0].URL.Host) {
		return &RedirectError{Target: target, State: model.StateFetchError}
	}
	if !r.robots.CanFetch(req.Context(), target) {
		return &RedirectError{Target: target, State: model.StateRobotsDenied}
	}
	if !r.frontier.MarkVisited(target) {
		return &RedirectError{Target: target, State: model.StateAlreadyVisited}
	}
	return nil
}

// accept appends doc and records its outcome. It reports false when the
// page limit has been reached, in which case no links are followed.
func (r *run) accept(doc model.Document, outcome model.Outcome) bool {
	r.mu.Lock()
	r.documents = append(r.documents, doc)
	r.outcomes = append(r.outcomes, outcome)
	full := len(r.documents) >= r.pageLimit
	r.mu.Unlock()

	r.notify(outcome)
	return !full
}

func (r *run) record(o model.Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()

	r.notify(o)
}

func (r *run) notify(o model.Outcome) {
	r.logger.Debug("visited", "url", o.URL, "depth", o.Depth, "state", string(o.State), "reason", o.Reason)
	for _, rec := range r.recorders {
		rec.RecordOutcome(o)
	}
}

func (r *run) extracted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.documents)
}

func (r *run) result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Result{
		Documents: r.documents,
		Outcomes:  r.outcomes,
	}
}

// siteHeaders returns the configured extra headers for host.
func (c *Crawler) siteHeaders(host string) map[string]string {
	if c.siteConfigs == nil {
		return nil
	}
	return c.siteConfigs.GetSiteConfig(host).Headers
}

// siteDelay returns the configured delay for the host of rawURL.
func (c *Crawler) siteDelay(rawURL string) time.Duration {
	if c.siteConfigs == nil {
		return 0
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	return c.siteConfigs.GetSiteConfig(u.Host).Delay
}

// shouldCrawl checks if a URL should be crawled based on ignore/follow patterns.
//
// Logic:
//  1. If URL matches any ignorePattern, skip it (return false)
//  2. If followPatterns is set and URL matches none, skip it (return false)
//  3. Otherwise, crawl it (return true)
func (r *run) shouldCrawl(targetURL string) bool {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	ignore := r.ignorePatterns
	follow := r.followPatterns
	if r.siteConfigs != nil {
		site := r.siteConfigs.GetSiteConfig(u.Host)
		ignore = append(append([]string(nil), ignore...), site.IgnorePatterns...)
		follow = append(append([]string(nil), follow...), site.FollowPatterns...)
	}

	for _, pattern := range ignore {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(follow) > 0 {
		for _, pattern := range follow {
			if matchPattern(pattern, path) {
				return true
			}
		}
		return false
	}

	return true
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	// Bare file patterns like "report-??.html" match the last segment.
	if strings.ContainsAny(pattern, "*?") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
