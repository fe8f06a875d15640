package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/sitemirror/internal/model"
)

// maxMarkdownPages caps the page table so huge mirrors stay readable.
const maxMarkdownPages = 200

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
	version string
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, version string) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writePages(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Sitemirror Report")
	md.PlainText("")

	rows := [][]string{
		{"Root URL", "`" + report.RootURL + "`"},
		{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Max Depth", depthText(report.MaxDepth)},
		{"Depth Reached", strconv.Itoa(report.DepthReached)},
		{"Status", statusText(report)},
	}
	if report.OutputDir != "" {
		rows = append(rows, []string{"Output", "`" + report.OutputDir + "`"})
	}
	if d := report.Duration(); d > 0 {
		rows = append(rows, []string{"Duration", d.Round(1e6).String()})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Summary")
	md.PlainText("")

	counts := report.Counts()
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Stored", strconv.Itoa(counts[model.OutcomeStored])},
			{"Disallowed", strconv.Itoa(counts[model.OutcomeDisallowed])},
			{"Failed", strconv.Itoa(counts[model.OutcomeFailed])},
			{"Skipped", strconv.Itoa(counts[model.OutcomeSkipped])},
			{"**Total**", "**" + strconv.Itoa(len(report.Pages)) + "**"},
		},
	})
	md.PlainText("")
	md.PlainTextf("%s written.", formatBytes(report.TotalBytes()))
	md.PlainText("")

	if len(report.Pages) > 0 {
		w.writePieChart(md, counts)
	}
	w.writeAlert(md, report, counts)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.Outcome]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Outcome Distribution"),
		piechart.WithShowData(true),
	)
	for _, o := range model.Outcomes {
		if counts[o] > 0 {
			chart.LabelAndIntValue(o.String(), uint64(counts[o])) //nolint:gosec // counts are never negative
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport, counts map[model.Outcome]int) {
	switch {
	case report.Error != "":
		md.Cautionf("The run stopped early: %s", report.Error)
	case counts[model.OutcomeFailed] > 0:
		md.Warningf("%d URL(s) could not be fetched.", counts[model.OutcomeFailed])
	case counts[model.OutcomeSkipped] > 0:
		md.Importantf("The page cap was reached; %d URL(s) were not attempted.", counts[model.OutcomeSkipped])
	default:
		md.Tip("Every reachable page was mirrored.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Pages")
	md.PlainText("")

	if len(report.Pages) == 0 {
		md.PlainText("No pages were attempted.")
		md.PlainText("")
		return
	}

	pages := report.Pages
	if len(pages) > maxMarkdownPages {
		pages = pages[:maxMarkdownPages]
	}
	rows := make([][]string, len(pages))
	for i, p := range pages {
		status := "-"
		if p.StatusCode != 0 {
			status = strconv.Itoa(p.StatusCode)
		}
		path := p.Path
		if path == "" {
			path = "-"
		}
		rows[i] = []string{
			truncateString(p.URL, 60),
			strconv.Itoa(p.Depth),
			p.Outcome.String(),
			status,
			truncateString(path, 50),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Outcome", "Status", "Path"},
		Rows:   rows,
	})
	md.PlainText("")
	if len(report.Pages) > maxMarkdownPages {
		md.Note(fmt.Sprintf("%d more page(s) omitted.", len(report.Pages)-maxMarkdownPages))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	if w.version != "" {
		md.PlainTextf("*Report generated by [sitemirror %s](https://github.com/nao1215/sitemirror)*", w.version)
		return
	}
	md.PlainText("*Report generated by [sitemirror](https://github.com/nao1215/sitemirror)*")
}
