package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitemirror/internal/model"
)

// SimpleWriter outputs human-readable text reports.
type SimpleWriter struct {
	baseWriter

	// verbose lists every attempted URL instead of only the problems.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the full page listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writePages(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        SITEMIRROR REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Root URL:       %s\n", report.RootURL)
	if report.OutputDir != "" {
		fmt.Fprintf(sb, "Output:         %s\n", report.OutputDir)
	}
	fmt.Fprintf(sb, "Started:        %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if d := report.Duration(); d > 0 {
		fmt.Fprintf(sb, "Duration:       %s\n", d.Round(1e6))
	}
	fmt.Fprintf(sb, "Max Depth:      %s\n", depthText(report.MaxDepth))
	fmt.Fprintf(sb, "Depth Reached:  %d\n", report.DepthReached)
	fmt.Fprintf(sb, "Status:         %s\n", statusText(report))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	counts := report.Counts()
	fmt.Fprintf(sb, "  STORED:     %d\n", counts[model.OutcomeStored])
	fmt.Fprintf(sb, "  DISALLOWED: %d\n", counts[model.OutcomeDisallowed])
	fmt.Fprintf(sb, "  FAILED:     %d\n", counts[model.OutcomeFailed])
	fmt.Fprintf(sb, "  SKIPPED:    %d\n", counts[model.OutcomeSkipped])
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:      %d URLs, %s written\n", len(report.Pages), formatBytes(report.TotalBytes()))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePages(sb *strings.Builder, report *model.CrawlReport) {
	pages := make([]model.PageResult, 0, len(report.Pages))
	for _, p := range report.Pages {
		if w.verbose || p.Outcome != model.OutcomeStored {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	if w.verbose {
		sb.WriteString("PAGES\n")
	} else {
		sb.WriteString("NOT STORED\n")
	}
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, p := range pages {
		fmt.Fprintf(sb, "  [%s] %s (depth %d)\n", outcomeIndicator(p.Outcome), p.URL, p.Depth)
		if p.Path != "" && w.verbose {
			fmt.Fprintf(sb, "    Path: %s\n", p.Path)
		}
		if p.Error != "" {
			fmt.Fprintf(sb, "    Error: %s\n", p.Error)
		}
	}
	sb.WriteString("\n")
}

// outcomeIndicator returns a short marker for an outcome.
func outcomeIndicator(o model.Outcome) string {
	switch o {
	case model.OutcomeStored:
		return "+"
	case model.OutcomeDisallowed:
		return "robots"
	case model.OutcomeFailed:
		return "!"
	case model.OutcomeSkipped:
		return "-"
	default:
		return "?"
	}
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by sitemirror\n")
	sb.WriteString("https://github.com/nao1215/sitemirror\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
