package suite

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/verte-zerg/suitepractice/internal/model"
)

// ErrMissingCategory is returned when the exam index has no exam for a category.
var ErrMissingCategory = errors.New("no exam available for category")

// DefaultCategories is the default suite layout.
var DefaultCategories = []string{"P1", "P2", "P3"}

// BuildSequence picks one random exam of examType per category from index.
func BuildSequence(index []model.ExamIndexEntry, categories []string, examType string, rnd *rand.Rand) ([]model.PartRef, error) {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	if examType == "" {
		examType = DefaultRecordType
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	byCategory := map[string][]model.ExamIndexEntry{}
	for _, entry := range index {
		if entry.ID == "" || !strings.EqualFold(entry.Type, examType) {
			continue
		}
		cat := strings.ToUpper(strings.TrimSpace(entry.Category))
		byCategory[cat] = append(byCategory[cat], entry)
	}

	sequence := make([]model.PartRef, 0, len(categories))
	for _, raw := range categories {
		cat := strings.ToUpper(strings.TrimSpace(raw))
		pool := byCategory[cat]
		if len(pool) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingCategory, cat)
		}
		pick := pool[rnd.Intn(len(pool))]
		sequence = append(sequence, model.PartRef{
			ExamID:   pick.ID,
			Label:    cat,
			Title:    pick.Title,
			Category: cat,
		})
	}
	return sequence, nil
}
