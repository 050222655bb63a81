package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// State is the terminal state of a frontier entry.
// Every dequeued entry ends in exactly one State, and its URL joins the
// visited set at that moment regardless of which State it is.
type State string

const (
	// StateAlreadyVisited means the URL was visited earlier in the run.
	StateAlreadyVisited State = "skipped-already-visited"

	// StateDepthExceeded means the entry was deeper than the configured max depth.
	StateDepthExceeded State = "skipped-depth-exceeded"

	// StateRobotsDenied means robots.txt disallows the URL for our user agent.
	StateRobotsDenied State = "skipped-robots-denied"

	// StateFetchError means the request failed or returned a non-2xx status.
	StateFetchError State = "fetched-error"

	// StateNonHTML means the response was not text/html.
	StateNonHTML State = "fetched-non-html"

	// StateExtracted means a Document was produced from the page.
	StateExtracted State = "fetched-extracted"
)

// States lists every State in the order they appear in reports.
var States = []State{
	StateExtracted,
	StateNonHTML,
	StateFetchError,
	StateRobotsDenied,
	StateDepthExceeded,
	StateAlreadyVisited,
}

// Fetched reports whether a network request for the page itself was made.
func (s State) Fetched() bool {
	return s == StateFetchError || s == StateNonHTML || s == StateExtracted
}

// Outcome records what happened to one frontier entry.
// Outcomes make a crawl auditable: tests and the crawl log read them to
// tell a robots denial from a timeout from a successful extraction.
type Outcome struct {
	// URL is the normalized URL of the entry.
	URL string `json:"url"`

	// Depth is the link distance from the seed the entry came from.
	Depth int `json:"depth"`

	// State is the terminal state the entry reached.
	State State `json:"state"`

	// Reason holds the error text for failures, or a parse warning for
	// extracted pages whose markup could only be partially read.
	Reason string `json:"reason,omitempty"`

	// StatusCode is the HTTP status, zero when no response was received.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the Content-Type response header.
	ContentType string `json:"content_type,omitempty"`

	// ContentHash is the SHA3-256 of the body for extracted pages.
	ContentHash string `json:"content_hash,omitempty"`

	// Duration is how long the fetch took.
	Duration time.Duration `json:"duration,omitempty"`
}

// ContentHash returns the hex encoded SHA3-256 digest of body,
// or an empty string for an empty body.
func ContentHash(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	sum := sha3.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// CountStates tallies outcomes by state.
func CountStates(outcomes []Outcome) map[State]int {
	counts := make(map[State]int, len(States))
	for _, o := range outcomes {
		counts[o.State]++
	}
	return counts
}
