package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/sitemirror/internal/model"
)

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in JSON format.
func (w *JSONWriter) Write(report *model.CrawlReport) (int, error) {
	return w.writeJSON(report)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Trailing newline for terminal output
	data = append(data, '\n')
	return w.output.Write(data)
}

// Summary holds per-outcome counts for quick access without walking pages.
type Summary struct {
	Stored     int   `json:"stored"`
	Disallowed int   `json:"disallowed"`
	Failed     int   `json:"failed"`
	Skipped    int   `json:"skipped"`
	TotalBytes int64 `json:"total_bytes"`
}

// JSONReport wraps a crawl report with the tool version and a summary.
type JSONReport struct {
	// Version is the sitemirror version that generated this report.
	Version string `json:"version"`

	// Summary carries the per-outcome counts.
	Summary Summary `json:"summary"`

	// Report is the full crawl report.
	Report *model.CrawlReport `json:"report"`
}

// NewJSONReport creates a JSONReport wrapper with version information.
func NewJSONReport(report *model.CrawlReport, version string) *JSONReport {
	counts := report.Counts()
	return &JSONReport{
		Version: version,
		Summary: Summary{
			Stored:     counts[model.OutcomeStored],
			Disallowed: counts[model.OutcomeDisallowed],
			Failed:     counts[model.OutcomeFailed],
			Skipped:    counts[model.OutcomeSkipped],
			TotalBytes: report.TotalBytes(),
		},
		Report: report,
	}
}

// FullJSONWriter outputs complete reports with the metadata wrapper.
type FullJSONWriter struct {
	*JSONWriter

	// version is the sitemirror version string.
	version string
}

// NewFullJSONWriter creates a FullJSONWriter.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the wrapped report.
func (w *FullJSONWriter) Write(report *model.CrawlReport) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version))
}
