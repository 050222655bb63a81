package report

import "io"

// Writer renders command results.
type Writer interface {
	// WriteCrawl outputs a crawl summary.
	WriteCrawl(summary *CrawlSummary) (int, error)

	// WriteSearch outputs the hits of one query.
	WriteSearch(report *SearchReport) (int, error)

	// WriteHistory outputs crawl log data.
	WriteHistory(report *HistoryReport) (int, error)
}

// Format selects a Writer implementation.
type Format string

const (
	// FormatText is the human-readable terminal format.
	FormatText Format = "text"
	// FormatJSON is indented JSON.
	FormatJSON Format = "json"
	// FormatMarkdown is GitHub-flavored Markdown.
	FormatMarkdown Format = "markdown"
)

// FormatFor maps the CLI's --json and --markdown flags to a Format.
func FormatFor(jsonOutput, markdownOutput bool) Format {
	switch {
	case jsonOutput:
		return FormatJSON
	case markdownOutput:
		return FormatMarkdown
	default:
		return FormatText
	}
}

// NewWriter returns the Writer for format. Unknown formats fall back to text.
func NewWriter(output io.Writer, format Format) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
