package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/webindex/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose lists every outcome, not only problems.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteCrawl outputs the crawl summary.
func (w *SimpleWriter) WriteCrawl(summary *CrawlSummary) (int, error) {
	var sb strings.Builder

	section(&sb, "CRAWL SUMMARY")
	if summary.RunID != 0 {
		fmt.Fprintf(&sb, "Run:        #%d\n", summary.RunID)
	}
	fmt.Fprintf(&sb, "Seeds:      %s\n", strings.Join(summary.Seeds, ", "))
	fmt.Fprintf(&sb, "Documents:  %d\n", summary.Documents)
	if summary.Terms > 0 {
		fmt.Fprintf(&sb, "Terms:      %d\n", summary.Terms)
	}
	fmt.Fprintf(&sb, "Elapsed:    %s\n", summary.Elapsed)
	if summary.Error != "" {
		fmt.Fprintf(&sb, "Status:     ERROR - %s\n", summary.Error)
	} else {
		sb.WriteString("Status:     Complete\n")
	}
	sb.WriteString("\n")

	writeCounts(&sb, summary.Counts)

	if len(summary.Problems) > 0 {
		section(&sb, "PROBLEMS")
		for _, o := range summary.Problems {
			writeOutcome(&sb, o)
		}
		sb.WriteString("\n")
	}

	return w.output.Write([]byte(sb.String()))
}

// WriteSearch outputs one line per hit, highest score first.
func (w *SimpleWriter) WriteSearch(report *SearchReport) (int, error) {
	var sb strings.Builder

	if !report.Ready {
		sb.WriteString("index not loaded: run `webindex index` first\n")
	}
	if len(report.Hits) == 0 {
		fmt.Fprintf(&sb, "No results for %q\n", report.Query)
		return w.output.Write([]byte(sb.String()))
	}

	fmt.Fprintf(&sb, "%d result(s) for %q\n\n", len(report.Hits), report.Query)
	for i, hit := range report.Hits {
		fmt.Fprintf(&sb, "%3d. [%g] %s\n", i+1, hit.Score, hit.URL)
		if w.verbose {
			fmt.Fprintf(&sb, "     document %s, %d image(s), %d video(s)\n",
				hit.DocumentID, len(hit.Images), len(hit.Videos))
		}
	}
	return w.output.Write([]byte(sb.String()))
}

// WriteHistory outputs a run list, a run detail or a run comparison.
func (w *SimpleWriter) WriteHistory(report *HistoryReport) (int, error) {
	var sb strings.Builder

	switch {
	case report.Diff != nil:
		d := report.Diff
		section(&sb, fmt.Sprintf("RUN #%d -> RUN #%d", d.From, d.To))
		writeURLs(&sb, "Added", "+", d.Added)
		writeURLs(&sb, "Removed", "-", d.Removed)
		writeURLs(&sb, "Changed", "~", d.Changed)
		fmt.Fprintf(&sb, "Unchanged: %d\n", d.Unchanged)

	case report.Run != nil:
		r := report.Run
		section(&sb, fmt.Sprintf("RUN #%d", r.ID))
		fmt.Fprintf(&sb, "Started:    %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05 MST"))
		if d := r.Duration(); d > 0 {
			fmt.Fprintf(&sb, "Duration:   %s\n", d.Round(1e6))
		}
		fmt.Fprintf(&sb, "Seeds:      %s\n", strings.Join(r.Seeds, ", "))
		fmt.Fprintf(&sb, "Limits:     depth %d, %d pages\n", r.MaxDepth, r.PageLimit)
		fmt.Fprintf(&sb, "Documents:  %d\n", r.Documents)
		fmt.Fprintf(&sb, "Status:     %s\n", r.Status)
		if r.Error != "" {
			fmt.Fprintf(&sb, "Error:      %s\n", r.Error)
		}
		sb.WriteString("\n")
		writeCounts(&sb, report.Counts)
		if w.verbose && len(report.Outcomes) > 0 {
			section(&sb, "OUTCOMES")
			for _, o := range report.Outcomes {
				writeOutcome(&sb, o)
			}
		}

	default:
		if len(report.Runs) == 0 {
			sb.WriteString("No crawl runs recorded.\n")
			break
		}
		fmt.Fprintf(&sb, "%-6s %-20s %-10s %9s  %s\n", "RUN", "STARTED", "STATUS", "DOCUMENTS", "SEEDS")
		for _, r := range report.Runs {
			fmt.Fprintf(&sb, "%-6d %-20s %-10s %9d  %s\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status, r.Documents,
				strings.Join(r.Seeds, ", "))
		}
	}

	return w.output.Write([]byte(sb.String()))
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func writeCounts(sb *strings.Builder, counts map[model.State]int) {
	states := orderedStates(counts)
	if len(states) == 0 {
		return
	}
	section(sb, "OUTCOMES BY STATE")
	for _, st := range states {
		fmt.Fprintf(sb, "  %-26s %d\n", st, counts[st])
	}
	sb.WriteString("\n")
}

func writeOutcome(sb *strings.Builder, o model.Outcome) {
	fmt.Fprintf(sb, "  [%s] %s (depth %d)\n", o.State, o.URL, o.Depth)
	if o.Reason != "" {
		fmt.Fprintf(sb, "    %s\n", o.Reason)
	}
}

func writeURLs(sb *strings.Builder, title, marker string, urls []string) {
	if len(urls) == 0 {
		return
	}
	fmt.Fprintf(sb, "%s (%d):\n", title, len(urls))
	for _, u := range urls {
		fmt.Fprintf(sb, "  %s %s\n", marker, u)
	}
	sb.WriteString("\n")
}
