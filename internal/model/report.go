package model

import (
	"math"
	"sort"
)

// Recommendation is a single improvement suggestion from the aggregated
// report, tagged with the analysis category it belongs to.
type Recommendation struct {
	// Category is the analysis category (e.g. "security", "seo").
	Category string `json:"category"`

	// Text is the recommendation itself, displayed verbatim.
	Text string `json:"text"`
}

// AggregatedReport is the summary produced by the aggregated_report
// module: an overall score, per-category scores, and recommendations.
type AggregatedReport struct {
	// OverallScore is the combined site score on a 0-100 scale.
	OverallScore float64 `json:"overall_score"`

	// ModuleScores maps analysis categories to their 0-100 scores.
	ModuleScores map[string]float64 `json:"module_scores"`

	// Recommendations lists improvement suggestions in report order.
	Recommendations []Recommendation `json:"recommendations"`
}

// RoundedOverallScore returns the overall score rounded to the nearest
// integer for display.
func (r *AggregatedReport) RoundedOverallScore() int {
	return int(math.Round(r.OverallScore))
}

// RoundedModuleScores returns per-category scores rounded to the nearest
// integer, keyed by category.
func (r *AggregatedReport) RoundedModuleScores() map[string]int {
	scores := make(map[string]int, len(r.ModuleScores))
	for category, score := range r.ModuleScores {
		scores[category] = int(math.Round(score))
	}
	return scores
}

// Categories returns the report's categories in deterministic order.
// Map iteration order would make rendered reports unstable.
func (r *AggregatedReport) Categories() []string {
	categories := make([]string, 0, len(r.ModuleScores))
	for category := range r.ModuleScores {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// ScoreBand classifies a 0-100 score into a coarse quality band.
// The thresholds mirror the score-ring colors of the original UI.
type ScoreBand string

// Score bands from best to worst.
const (
	ScoreBandGood     ScoreBand = "good"
	ScoreBandOK       ScoreBand = "ok"
	ScoreBandWarn     ScoreBand = "needs work"
	ScoreBandCritical ScoreBand = "critical"
)

// BandForScore returns the band a score falls into.
func BandForScore(score float64) ScoreBand {
	switch {
	case score >= 80:
		return ScoreBandGood
	case score >= 60:
		return ScoreBandOK
	case score >= 40:
		return ScoreBandWarn
	default:
		return ScoreBandCritical
	}
}
