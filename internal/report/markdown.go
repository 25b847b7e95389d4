package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/rnks2003/proj-sitesense/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write renders the scan record in Markdown format.
func (w *MarkdownWriter) Write(record *model.ScanRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, record)

	switch record.Status {
	case model.StatusFailed:
		md.Cautionf("Scan failed: %s", record.DisplayError())
		md.PlainText("")

	case model.StatusQueued:
		md.Note("Scan is queued. Results are not available yet.")
		md.PlainText("")

	default:
		summary, err := record.AggregatedReport()
		if err != nil {
			return 0, fmt.Errorf("decode aggregated report: %w", err)
		}
		w.writeScores(md, summary)
		w.writeRecommendations(md, summary)
		w.writeModuleDetails(md, record)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, record *model.ScanRecord) {
	md.H1("SiteSense Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target URL", "`" + record.URL + "`"},
			{"Scan ID", "`" + record.ID + "`"},
			{"Created", record.CreatedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", w.statusText(record)},
		},
	})
	md.PlainText("")
}

// statusText returns the status cell text based on the scan state.
func (w *MarkdownWriter) statusText(record *model.ScanRecord) string {
	switch record.Status {
	case model.StatusCompleted:
		return "✅ Completed"
	case model.StatusFailed:
		return "❌ Failed"
	case model.StatusQueued:
		return "⏳ Queued"
	default:
		return string(record.Status)
	}
}

// writeScores writes the overall and per-category score section.
func (w *MarkdownWriter) writeScores(md *markdown.Markdown, summary *model.AggregatedReport) {
	md.H2("Scores")
	md.PlainText("")

	if summary == nil {
		md.PlainText("No aggregated report available.")
		md.PlainText("")
		return
	}

	rows := [][]string{
		{"**Overall**", "**" + strconv.Itoa(summary.RoundedOverallScore()) + "**", string(model.BandForScore(summary.OverallScore))},
	}
	rounded := summary.RoundedModuleScores()
	for _, category := range summary.Categories() {
		rows = append(rows, []string{
			category,
			strconv.Itoa(rounded[category]),
			string(model.BandForScore(summary.ModuleScores[category])),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Category", "Score", "Band"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(summary.ModuleScores) > 0 {
		w.writePieChart(md, summary)
	}

	w.writeAlert(md, summary)
}

// writePieChart writes a mermaid pie chart of the score distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.AggregatedReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Category Score Distribution"),
		piechart.WithShowData(true),
	)

	rounded := summary.RoundedModuleScores()
	for _, category := range summary.Categories() {
		if rounded[category] > 0 {
			chart.LabelAndIntValue(category, uint64(rounded[category]))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the overall score band.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *model.AggregatedReport) {
	overall := summary.RoundedOverallScore()
	switch model.BandForScore(summary.OverallScore) {
	case model.ScoreBandCritical:
		md.Cautionf("Overall score %d/100. The site has critical issues that need immediate attention.", overall)
	case model.ScoreBandWarn:
		md.Warningf("Overall score %d/100. Several areas of the site need work.", overall)
	case model.ScoreBandOK:
		md.Importantf("Overall score %d/100. The site is in acceptable shape with room to improve.", overall)
	default:
		md.Tip(fmt.Sprintf("Overall score %d/100. The site is in good shape.", overall))
	}
	md.PlainText("")
}

// writeRecommendations writes the recommendations section.
func (w *MarkdownWriter) writeRecommendations(md *markdown.Markdown, summary *model.AggregatedReport) {
	md.H2("Recommendations")
	md.PlainText("")

	if summary == nil || len(summary.Recommendations) == 0 {
		md.PlainText("No recommendations.")
		md.PlainText("")
		return
	}

	items := make([]string, 0, len(summary.Recommendations))
	for _, rec := range summary.Recommendations {
		items = append(items, fmt.Sprintf("**%s**: %s", rec.Category, rec.Text))
	}
	md.BulletList(items...)
	md.PlainText("")
}

// writeModuleDetails writes a table of per-module detail rows.
func (w *MarkdownWriter) writeModuleDetails(md *markdown.Markdown, record *model.ScanRecord) {
	details := moduleDetails(record)
	if len(details) == 0 {
		return
	}

	md.H2("Module Details")
	md.PlainText("")

	rows := make([][]string, len(details))
	for i, d := range details {
		score := d.Score
		if score == "" {
			score = "-"
		}
		summary := d.Summary
		if summary == "" {
			summary = "-"
		}
		issues := d.Issues
		if issues == "" {
			issues = "-"
		}
		rows[i] = []string{
			d.Name,
			score,
			truncateString(summary, 60),
			issues,
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Module", "Score", "Summary", "Issues"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [SiteSense](https://github.com/rnks2003/proj-sitesense)*")
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
