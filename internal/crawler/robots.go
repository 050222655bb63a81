package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// maxRobotsSize caps how much of a robots.txt file is read.
const maxRobotsSize = 512 * 1024

// RobotsCache holds the robots.txt policy of every origin seen in a run.
// Each origin's file is fetched at most once; concurrent callers for the
// same origin wait for the first fetch. When the file cannot be fetched,
// returns a non-2xx status or is empty, the origin is treated as allowing
// everything.
type RobotsCache struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	entries map[string]*robotsEntry
}

type robotsEntry struct {
	ready chan struct{}
	// group is nil for a permissive policy.
	group *robotstxt.Group
}

// NewRobotsCache creates a RobotsCache. userAgent selects the robots.txt
// group; timeout bounds each robots.txt request.
func NewRobotsCache(client *http.Client, userAgent string, timeout time.Duration, logger *slog.Logger) *RobotsCache {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsCache{
		client:    client,
		userAgent: userAgent,
		timeout:   timeout,
		logger:    logger,
		entries:   make(map[string]*robotsEntry),
	}
}

// CanFetch reports whether rawURL may be fetched under its origin's policy.
// URLs that cannot be parsed are denied.
func (r *RobotsCache) CanFetch(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	o, err := origin(rawURL)
	if err != nil {
		return false
	}

	entry := r.load(ctx, o)
	if entry == nil {
		// Context ended while waiting for another caller's fetch.
		return false
	}
	if entry.group == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return entry.group.Test(path)
}

// CrawlDelay returns the Crawl-delay declared for our user agent by an
// origin already loaded into the cache, or zero.
func (r *RobotsCache) CrawlDelay(origin string) time.Duration {
	r.mu.Lock()
	entry, ok := r.entries[origin]
	r.mu.Unlock()
	if !ok {
		return 0
	}

	select {
	case <-entry.ready:
	default:
		return 0
	}
	if entry.group == nil {
		return 0
	}
	return entry.group.CrawlDelay
}

// load returns the cache entry for origin, fetching robots.txt on a miss.
// It returns nil when ctx ends before the entry is ready.
func (r *RobotsCache) load(ctx context.Context, origin string) *robotsEntry {
	r.mu.Lock()
	entry, ok := r.entries[origin]
	if !ok {
		entry = &robotsEntry{ready: make(chan struct{})}
		r.entries[origin] = entry
	}
	r.mu.Unlock()

	if ok {
		select {
		case <-entry.ready:
			return entry
		case <-ctx.Done():
			return nil
		}
	}

	entry.group = r.fetch(ctx, origin)
	close(entry.ready)
	return entry
}

func (r *RobotsCache) fetch(ctx context.Context, origin string) *robotstxt.Group {
	robotsURL := origin + "/robots.txt"
	logger := r.logger.With("robots", robotsURL)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		logger.Debug("robots.txt unavailable, allowing all", "error", err)
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		logger.Debug("robots.txt unavailable, allowing all", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Debug("robots.txt unavailable, allowing all", "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		logger.Debug("robots.txt unreadable, allowing all", "error", err)
		return nil
	}
	if len(body) == 0 {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		logger.Debug("robots.txt unparsable, allowing all", "error", err)
		return nil
	}
	return data.FindGroup(r.userAgent)
}
