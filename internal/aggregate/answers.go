package aggregate

import "github.com/verte-zerg/suitepractice/internal/model"

const unknownSuite = "unknown"

// Key namespaces a question id with the part it belongs to.
func Key(suiteID, questionID string) string {
	if suiteID == "" {
		suiteID = unknownSuite
	}
	return suiteID + "::" + questionID
}

// Answers merges per-part answer maps under namespaced keys.
func Answers(results []model.PartResult) map[string]any {
	out := map[string]any{}
	for _, r := range results {
		for qid, answer := range r.Answers {
			out[Key(r.SuiteID, qid)] = answer
		}
	}
	return out
}

// AnswerComparisons merges per-part comparison maps under namespaced keys.
func AnswerComparisons(results []model.PartResult) map[string]model.AnswerComparison {
	out := map[string]model.AnswerComparison{}
	for _, r := range results {
		for qid, cmp := range r.AnswerComparison {
			out[Key(r.SuiteID, qid)] = cmp
		}
	}
	return out
}
