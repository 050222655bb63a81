package report

import (
	"slices"
	"time"

	"github.com/nao1215/webindex/internal/crawler"
	"github.com/nao1215/webindex/internal/database"
	"github.com/nao1215/webindex/internal/model"
	"github.com/nao1215/webindex/internal/search"
)

// CrawlSummary describes a finished, or interrupted, crawl.
type CrawlSummary struct {
	RunID     int64               `json:"run_id,omitempty"`
	Seeds     []string            `json:"seeds"`
	Documents int                 `json:"documents"`
	Counts    map[model.State]int `json:"counts"`
	Terms     int                 `json:"terms,omitempty"`
	Elapsed   string              `json:"elapsed"`
	Error     string              `json:"error,omitempty"`

	// Problems lists outcomes worth a look: fetch errors and robots denials.
	Problems []model.Outcome `json:"problems,omitempty"`
}

// NewCrawlSummary summarizes res. res may be nil when the crawl failed
// before producing anything.
func NewCrawlSummary(seeds []string, runID int64, res *crawler.Result, elapsed time.Duration, err error) *CrawlSummary {
	s := &CrawlSummary{
		RunID:   runID,
		Seeds:   seeds,
		Counts:  make(map[model.State]int),
		Elapsed: elapsed.Round(time.Millisecond).String(),
	}
	if err != nil {
		s.Error = err.Error()
	}
	if res == nil {
		return s
	}

	s.Documents = len(res.Documents)
	s.Counts = res.Counts()
	for _, o := range res.Outcomes {
		if o.State == model.StateFetchError || o.State == model.StateRobotsDenied {
			s.Problems = append(s.Problems, o)
		}
	}
	return s
}

// Total returns the number of outcomes.
func (s *CrawlSummary) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// SearchReport holds the hits for one query.
type SearchReport struct {
	Query string       `json:"query"`
	Ready bool         `json:"index_ready"`
	Hits  []search.Hit `json:"hits"`
}

// NewSearchReport builds a SearchReport. A nil hits slice renders as [].
func NewSearchReport(query string, ready bool, hits []search.Hit) *SearchReport {
	if hits == nil {
		hits = []search.Hit{}
	}
	return &SearchReport{Query: query, Ready: ready, Hits: hits}
}

// HistoryReport is either a list of runs, the detail of one run, or a
// comparison of two runs, depending on which fields are set.
type HistoryReport struct {
	Runs     []database.Run      `json:"runs,omitempty"`
	Run      *database.Run       `json:"run,omitempty"`
	Counts   map[model.State]int `json:"counts,omitempty"`
	Outcomes []model.Outcome     `json:"outcomes,omitempty"`
	Diff     *database.RunDiff   `json:"diff,omitempty"`
}

// orderedStates returns the states present in counts in report order,
// followed by any unknown states sorted by name.
func orderedStates(counts map[model.State]int) []model.State {
	var states []model.State
	for _, st := range model.States {
		if counts[st] > 0 {
			states = append(states, st)
		}
	}
	var unknown []model.State
	for st, n := range counts {
		if n > 0 && !slices.Contains(model.States, st) {
			unknown = append(unknown, st)
		}
	}
	slices.Sort(unknown)
	return append(states, unknown...)
}
