package aggregate

import (
	"strings"

	"github.com/verte-zerg/suitepractice/internal/model"
)

// SpellingErrors flattens the spelling errors of all results and merges
// entries whose words match case-insensitively. The first entry seen for a
// word is kept as the base; each further occurrence bumps its count and
// keeps the latest timestamp. Output preserves first-seen order.
func SpellingErrors(results []model.PartResult) []model.SpellingError {
	index := map[string]int{}
	out := []model.SpellingError{}
	for _, r := range results {
		for _, e := range r.SpellingErrors {
			if e.Word == "" {
				continue
			}
			key := strings.ToLower(e.Word)
			pos, ok := index[key]
			if !ok {
				index[key] = len(out)
				out = append(out, e)
				continue
			}
			existing := &out[pos]
			count := existing.ErrorCount
			if count <= 0 {
				count = 1
			}
			existing.ErrorCount = count + 1
			if e.Timestamp > existing.Timestamp {
				existing.Timestamp = e.Timestamp
			}
		}
	}
	return out
}
