// Package aggregate merges per-part results into suite-level values.
// Every function is pure: inputs are never mutated.
package aggregate

import (
	"math"

	"github.com/verte-zerg/suitepractice/internal/model"
)

// SourceMultiSuite tags scores produced by Scores.
const SourceMultiSuite = "multi_suite_aggregated"

// Scores sums correct and total across results.
func Scores(results []model.PartResult) model.ScoreInfo {
	correct, total := 0, 0
	for _, r := range results {
		correct += r.ScoreInfo.Correct
		total += r.ScoreInfo.Total
	}
	accuracy := 0.0
	if total > 0 {
		accuracy = float64(correct) / float64(total)
	}
	return model.ScoreInfo{
		Correct:    correct,
		Total:      total,
		Accuracy:   accuracy,
		Percentage: roundPercent(accuracy * 100),
		Source:     SourceMultiSuite,
	}
}

// TotalDuration returns the summed part durations, or the elapsed wall clock
// seconds when that is larger.
func TotalDuration(results []model.PartResult, elapsedSeconds float64) float64 {
	sum := 0.0
	for _, r := range results {
		if math.IsNaN(r.Duration) || math.IsInf(r.Duration, 0) {
			continue
		}
		sum += r.Duration
	}
	if elapsedSeconds > sum {
		return elapsedSeconds
	}
	return sum
}

// roundPercent rounds half up, matching how scores are displayed elsewhere.
func roundPercent(v float64) int {
	return int(math.Floor(v + 0.5))
}
