package aggregate

import (
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/suitepractice/internal/model"
)

// SourceSuiteMode tags part scores that arrived without a source.
const SourceSuiteMode = "suite_mode_aggregated"

// SuiteID resolves the identity of a part result.
func SuiteID(part model.PartRef, payload model.PartPayload) string {
	if id := strings.TrimSpace(payload.SuiteID); id != "" {
		return id
	}
	if part.Label != "" {
		return part.Label
	}
	return part.ExamID
}

// Normalize converts a raw completion payload into a PartResult for part.
func Normalize(part model.PartRef, payload model.PartPayload, now time.Time) model.PartResult {
	score := payload.ScoreInfo
	answers := copyAnyMap(payload.Answers)

	comparison := payload.AnswerComparison
	if len(comparison) == 0 {
		comparison = score.Details
	}

	correct := score.Correct.Or(0)
	total := score.Total.Or(float64(len(answers)))

	fallbackAccuracy := 0.0
	if total > 0 {
		fallbackAccuracy = correct / total
	}
	accuracy := score.Accuracy.Or(fallbackAccuracy)
	percentage := score.Percentage.Or(accuracy * 100)

	source := score.Source
	if source == "" {
		source = SourceSuiteMode
	}

	suiteID := SuiteID(part, payload)
	errs := make([]model.SpellingError, 0, len(payload.SpellingErrors))
	for _, e := range payload.SpellingErrors {
		if e.SuiteID == "" {
			e.SuiteID = suiteID
		}
		if e.ExamID == "" {
			e.ExamID = part.ExamID
		}
		errs = append(errs, e)
	}

	return model.PartResult{
		SuiteID:  suiteID,
		ExamID:   part.ExamID,
		Title:    part.Title,
		Category: part.Category,
		Duration: payload.Duration.Or(0),
		ScoreInfo: model.ScoreInfo{
			Correct:    int(math.Round(correct)),
			Total:      int(math.Round(total)),
			Accuracy:   accuracy,
			Percentage: roundPercent(percentage),
			Source:     source,
		},
		Answers:          answers,
		CorrectAnswers:   copyAnyMap(payload.CorrectAnswers),
		AnswerComparison: copyComparisonMap(comparison),
		SpellingErrors:   errs,
		Timestamp:        now.UnixMilli(),
	}
}

// Append returns a new slice with result added after results.
func Append(results []model.PartResult, result model.PartResult) []model.PartResult {
	out := make([]model.PartResult, len(results), len(results)+1)
	copy(out, results)
	return append(out, result)
}

// Contains reports whether a result with suiteID is present.
func Contains(results []model.PartResult, suiteID string) bool {
	for _, r := range results {
		if r.SuiteID == suiteID {
			return true
		}
	}
	return false
}

func copyAnyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyComparisonMap(in map[string]model.AnswerComparison) map[string]model.AnswerComparison {
	out := make(map[string]model.AnswerComparison, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
