package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/webindex/internal/model"
)

// MarkdownWriter outputs results in Markdown, built with nao1215/markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// WriteCrawl outputs the crawl summary.
func (w *MarkdownWriter) WriteCrawl(summary *CrawlSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Summary")
	md.PlainText("")

	rows := [][]string{
		{"Seeds", codeList(summary.Seeds)},
		{"Documents", strconv.Itoa(summary.Documents)},
		{"Elapsed", summary.Elapsed},
	}
	if summary.RunID != 0 {
		rows = append([][]string{{"Run", "#" + strconv.FormatInt(summary.RunID, 10)}}, rows...)
	}
	if summary.Terms > 0 {
		rows = append(rows, []string{"Terms", strconv.Itoa(summary.Terms)})
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	switch {
	case summary.Error != "":
		md.Cautionf("The crawl did not complete: %s", summary.Error)
	case len(summary.Problems) > 0:
		md.Warningf("%d URL(s) could not be indexed.", len(summary.Problems))
	default:
		md.Tip("Every reachable URL was processed.")
	}
	md.PlainText("")

	writeCountsMarkdown(md, summary.Counts)

	if len(summary.Problems) > 0 {
		md.H2("Problems")
		md.PlainText("")
		rows := make([][]string, 0, len(summary.Problems))
		for _, o := range summary.Problems {
			rows = append(rows, []string{"`" + o.URL + "`", string(o.State), cell(o.Reason)})
		}
		md.Table(markdown.TableSet{Header: []string{"URL", "State", "Reason"}, Rows: rows})
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// WriteSearch outputs the hits as a table.
func (w *MarkdownWriter) WriteSearch(report *SearchReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1f("Search: %s", report.Query)
	md.PlainText("")

	if !report.Ready {
		md.Note("The index is not loaded. Run `webindex index` first.")
		md.PlainText("")
	}
	if len(report.Hits) == 0 {
		md.PlainText("No results.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(report.Hits))
	for i, hit := range report.Hits {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(hit.Score, 'g', -1, 64),
			markdown.Link(hit.URL, hit.URL),
			strconv.Itoa(len(hit.Images)),
			strconv.Itoa(len(hit.Videos)),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Score", "URL", "Images", "Videos"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// WriteHistory outputs a run list, a run detail or a run comparison.
func (w *MarkdownWriter) WriteHistory(report *HistoryReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	switch {
	case report.Diff != nil:
		d := report.Diff
		md.H1f("Run #%d compared with run #%d", d.To, d.From)
		md.PlainText("")
		if !d.HasChanges() {
			md.Tip("No extracted page changed.")
			md.PlainText("")
		}
		for _, part := range []struct {
			title string
			urls  []string
		}{{"Added", d.Added}, {"Removed", d.Removed}, {"Changed", d.Changed}} {
			if len(part.urls) == 0 {
				continue
			}
			md.H2(part.title)
			md.PlainText("")
			md.BulletList(part.urls...)
			md.PlainText("")
		}
		md.PlainTextf("Unchanged: %d", d.Unchanged)

	case report.Run != nil:
		r := report.Run
		md.H1f("Run #%d", r.ID)
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Property", "Value"},
			Rows: [][]string{
				{"Started", r.StartedAt.Local().Format("2006-01-02 15:04:05 MST")},
				{"Seeds", codeList(r.Seeds)},
				{"Max depth", strconv.Itoa(r.MaxDepth)},
				{"Page limit", strconv.Itoa(r.PageLimit)},
				{"Documents", strconv.Itoa(r.Documents)},
				{"Status", string(r.Status)},
			},
		})
		md.PlainText("")
		writeCountsMarkdown(md, report.Counts)

	default:
		md.H1("Crawl History")
		md.PlainText("")
		if len(report.Runs) == 0 {
			md.PlainText("No crawl runs recorded.")
			break
		}
		rows := make([][]string, 0, len(report.Runs))
		for _, r := range report.Runs {
			rows = append(rows, []string{
				strconv.FormatInt(r.ID, 10),
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				string(r.Status),
				strconv.Itoa(r.Documents),
				codeList(r.Seeds),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Run", "Started", "Status", "Documents", "Seeds"},
			Rows:   rows,
		})
	}

	return len(md.String()), md.Build()
}

// writeCountsMarkdown writes the outcome table and a mermaid pie chart.
func writeCountsMarkdown(md *markdown.Markdown, counts map[model.State]int) {
	states := orderedStates(counts)
	if len(states) == 0 {
		return
	}

	md.H2("Outcomes")
	md.PlainText("")

	rows := make([][]string, 0, len(states))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcomes by state"),
		piechart.WithShowData(true),
	)
	for _, st := range states {
		rows = append(rows, []string{string(st), strconv.Itoa(counts[st])})
		chart.LabelAndIntValue(string(st), uint64(counts[st])) //nolint:gosec // counts are positive
	}
	md.Table(markdown.TableSet{Header: []string{"State", "Count"}, Rows: rows})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}

// cell escapes text for use inside a table cell.
func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
