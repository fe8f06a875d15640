package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/sitemirror/internal/model"
)

// Format names accepted by New.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned by New for unsupported format names.
var ErrUnknownFormat = errors.New("unknown report format")

// Formats lists the supported format names.
func Formats() []string {
	return []string{FormatText, FormatJSON, FormatMarkdown}
}

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.CrawlReport) (int, error)
}

// New returns the writer for format. version is embedded by the JSON and
// Markdown writers.
func New(format string, output io.Writer, version string) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return NewSimpleWriter(output), nil
	case FormatJSON:
		return NewFullJSONWriter(output, version, WithPrettyPrint()), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output, version), nil
	default:
		return nil, fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownFormat, format, strings.Join(Formats(), ", "))
	}
}

// MultiWriter writes to multiple Writers in turn.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText describes how a run ended.
func statusText(report *model.CrawlReport) string {
	switch {
	case report.Error != "":
		return "ERROR - " + report.Error
	case report.FinishedAt.IsZero():
		return "Running"
	default:
		return "Complete"
	}
}

// depthText renders a depth limit, where a negative value means unlimited.
func depthText(depth int) string {
	if depth < 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", depth)
}

// formatBytes renders a byte count with a binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
