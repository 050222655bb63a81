package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/nao1215/webindex/internal/model"
)

// ErrUnsupportedScheme is returned by NormalizeURL for anything but http and https.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Entry is a pending unit of crawl work.
type Entry struct {
	// URL is the normalized absolute URL.
	URL string

	// Depth is the link distance from the seed. Seeds have depth 0.
	Depth int
}

// DropFunc receives entries the frontier discards on Pop together with
// the terminal state they reached.
type DropFunc func(Entry, model.State)

// Frontier is the queue of URLs waiting to be crawled.
// A URL is either queued, visited, or unknown; never both queued and visited.
// Frontier is safe for concurrent use.
type Frontier struct {
	mu       sync.Mutex
	queue    []Entry
	queued   map[string]bool
	visited  map[string]bool
	maxDepth int
	onDrop   DropFunc
}

// NewFrontier creates an empty Frontier. Entries deeper than maxDepth are
// dropped on Pop and reported to onDrop, which may be nil.
func NewFrontier(maxDepth int, onDrop DropFunc) *Frontier {
	return &Frontier{
		queued:   make(map[string]bool),
		visited:  make(map[string]bool),
		maxDepth: maxDepth,
		onDrop:   onDrop,
	}
}

// Push normalizes rawURL and appends it to the queue.
// It reports false when the URL is invalid, already queued or already visited.
func (f *Frontier) Push(rawURL string, depth int) bool {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.visited[normalized] || f.queued[normalized] {
		return false
	}
	f.queue = append(f.queue, Entry{URL: normalized, Depth: depth})
	f.queued[normalized] = true
	return true
}

// Pop removes the oldest entry and marks its URL visited.
// Entries that were visited after being queued, or that exceed the depth
// bound, are dropped and reported to the drop hook instead of returned.
// Pop reports false when the queue is empty.
func (f *Frontier) Pop() (Entry, bool) {
	for {
		f.mu.Lock()
		if len(f.queue) == 0 {
			f.mu.Unlock()
			return Entry{}, false
		}
		e := f.queue[0]
		f.queue[0] = Entry{}
		f.queue = f.queue[1:]
		delete(f.queued, e.URL)

		var dropped model.State
		switch {
		case f.visited[e.URL]:
			dropped = model.StateAlreadyVisited
		case e.Depth > f.maxDepth:
			dropped = model.StateDepthExceeded
		}
		f.visited[e.URL] = true
		f.mu.Unlock()

		if dropped == "" {
			return e, true
		}
		if f.onDrop != nil {
			f.onDrop(e, dropped)
		}
	}
}

// MarkVisited adds rawURL to the visited set. It reports whether the URL
// was newly added. The crawler uses it for redirect targets so that a page
// reached under two URLs is only crawled once. A queued entry for the URL
// leaves the queue at once and is reported to the drop hook as already
// visited.
func (f *Frontier) MarkVisited(rawURL string) bool {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	if f.visited[normalized] {
		f.mu.Unlock()
		return false
	}
	f.visited[normalized] = true

	var removed []Entry
	if f.queued[normalized] {
		delete(f.queued, normalized)
		f.queue = slices.DeleteFunc(f.queue, func(e Entry) bool {
			if e.URL == normalized {
				removed = append(removed, e)
				return true
			}
			return false
		})
	}
	f.mu.Unlock()

	if f.onDrop != nil {
		for _, e := range removed {
			f.onDrop(e, model.StateAlreadyVisited)
		}
	}
	return true
}

// Visited reports whether rawURL has reached a terminal state.
func (f *Frontier) Visited(rawURL string) bool {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visited[normalized]
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// NormalizeURL returns the canonical form of an absolute http(s) URL:
// the fragment is removed, scheme and host are lowercased and an empty
// path becomes "/".
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	return normalize(u)
}

func normalize(u *url.URL) (string, error) {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	if n.Scheme != "http" && n.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if n.Host == "" {
		return "", fmt.Errorf("missing host in %q", u.String())
	}
	n.Host = strings.ToLower(n.Host)
	n.Fragment = ""
	n.RawFragment = ""
	if n.Path == "" {
		n.Path = "/"
		n.RawPath = ""
	}
	return n.String(), nil
}

// origin returns scheme://host of an absolute URL.
func origin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %q", rawURL)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}
