package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rnks2003/proj-sitesense/internal/model"
)

// TextWriter outputs human-readable text reports.
// This format is designed for terminal display with score bands and clear
// section formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type TextWriter struct {
	baseWriter

	// showEmpty controls whether sections with no content are shown.
	showEmpty bool

	// verbose enables per-module detail sections in the output.
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with per-module details.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write renders the scan record in human-readable format. Failed scans
// render their failure message in place of scores; queued scans render a
// pending notice.
func (w *TextWriter) Write(record *model.ScanRecord) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, record)

	switch record.Status {
	case model.StatusFailed:
		sb.WriteString(fmt.Sprintf("Scan failed: %s\n\n", record.DisplayError()))

	case model.StatusQueued:
		sb.WriteString("Scan is queued. Results are not available yet.\n\n")

	default:
		summary, err := record.AggregatedReport()
		if err != nil {
			return 0, fmt.Errorf("decode aggregated report: %w", err)
		}
		w.writeScores(&sb, summary)
		w.writeRecommendations(&sb, summary)
		if w.verbose {
			w.writeModuleDetails(&sb, record)
		}
	}

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with scan information.
func (w *TextWriter) writeHeader(sb *strings.Builder, record *model.ScanRecord) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         SITESENSE REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Target URL:  %s\n", record.URL))
	sb.WriteString(fmt.Sprintf("Scan ID:     %s\n", record.ID))
	sb.WriteString(fmt.Sprintf("Created:     %s\n", record.CreatedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Status:      %s\n", record.Status))
	sb.WriteString("\n")
}

// writeScores writes the overall and per-category score section.
func (w *TextWriter) writeScores(sb *strings.Builder, summary *model.AggregatedReport) {
	if summary == nil {
		if w.showEmpty {
			sb.WriteString("No aggregated report available.\n\n")
		}
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SCORES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	overall := summary.RoundedOverallScore()
	sb.WriteString(fmt.Sprintf("  OVERALL:  %3d / 100  [%s]\n\n", overall, model.BandForScore(summary.OverallScore)))

	rounded := summary.RoundedModuleScores()
	for _, category := range summary.Categories() {
		sb.WriteString(fmt.Sprintf("  %-14s %3d  [%s]\n", category+":", rounded[category], model.BandForScore(summary.ModuleScores[category])))
	}
	sb.WriteString("\n")
}

// writeRecommendations writes the recommendations section.
func (w *TextWriter) writeRecommendations(sb *strings.Builder, summary *model.AggregatedReport) {
	if summary == nil {
		return
	}
	if len(summary.Recommendations) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RECOMMENDATIONS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(summary.Recommendations) == 0 {
		sb.WriteString("  No recommendations\n")
	} else {
		for _, rec := range summary.Recommendations {
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", rec.Category, rec.Text))
		}
	}
	sb.WriteString("\n")
}

// writeModuleDetails writes a detail section per analysis module. Module
// result documents differ in shape per module, so fields are extracted
// loosely and missing ones are skipped.
func (w *TextWriter) writeModuleDetails(sb *strings.Builder, record *model.ScanRecord) {
	details := moduleDetails(record)
	if len(details) == 0 && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("MODULE DETAILS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(details) == 0 {
		sb.WriteString("  No module details\n")
	}
	for _, d := range details {
		sb.WriteString(fmt.Sprintf("  * %s\n", d.Name))
		if d.Score != "" {
			sb.WriteString(fmt.Sprintf("    Score: %s\n", d.Score))
		}
		if d.Summary != "" {
			sb.WriteString(fmt.Sprintf("    Summary: %s\n", d.Summary))
		}
		if d.Issues != "" {
			sb.WriteString(fmt.Sprintf("    Issues: %s\n", d.Issues))
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *TextWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by SiteSense\n")
	sb.WriteString("https://github.com/rnks2003/proj-sitesense\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// ModuleDetail is the loosely-extracted display view of one module result.
type ModuleDetail struct {
	Name    string
	Score   string
	Summary string
	Issues  string
}

// moduleDetails extracts display fields from every module result except
// the aggregated report, which has its own sections.
//
// Design decision: module result documents are service-defined and vary
// by module, so we pull the few fields we display with gjson instead of
// maintaining per-module structs that would break on server changes.
func moduleDetails(record *model.ScanRecord) []ModuleDetail {
	details := make([]ModuleDetail, 0, len(record.ModuleResults))

	for _, mr := range record.ModuleResults {
		if mr.ModuleName == model.AggregatedReportModuleName || len(mr.ResultJSON) == 0 {
			continue
		}

		detail := ModuleDetail{Name: mr.ModuleName}
		if score := gjson.GetBytes(mr.ResultJSON, "score"); score.Exists() {
			detail.Score = fmt.Sprintf("%d", int(math.Round(score.Float())))
		}
		if summary := gjson.GetBytes(mr.ResultJSON, "summary"); summary.Exists() {
			detail.Summary = summary.String()
		}
		if issues := gjson.GetBytes(mr.ResultJSON, "issues.#"); issues.Exists() && issues.Int() > 0 {
			detail.Issues = fmt.Sprintf("%d found", issues.Int())
		}
		details = append(details, detail)
	}

	return details
}
