// Package suite runs multi-part practice suites: it sequences parts across
// execution surfaces, gates completions and persists one aggregated record.
package suite

import (
	"time"

	"github.com/verte-zerg/suitepractice/internal/model"
	"github.com/verte-zerg/suitepractice/internal/surface"
)

// Status is the lifecycle state of a SuiteSession.
type Status string

// Session states.
const (
	StatusActive     Status = "active"
	StatusCompleting Status = "completing"
	StatusDone       Status = "done"
)

// Metadata describes where a suite came from.
type Metadata struct {
	Source     string
	Type       string
	BaseExamID string
}

// SuiteSession is the state of one running suite.
type SuiteSession struct {
	ID         string
	BaseExamID string
	Sequence   []model.PartRef
	// ActiveIndex never decreases.
	ActiveIndex       int
	ActiveExamID      string
	Window            surface.MaybeHandle
	ExpectedSessionID string
	StartTime         time.Time
	LastUpdate        time.Time
	Status            Status
	Metadata          Metadata
	Entries           []model.PartResult

	// record is built once per session so retried saves write the same record.
	record *model.PracticeRecord
	done   chan struct{}
}

// ActivePart returns the part currently expected to complete.
func (s *SuiteSession) ActivePart() model.PartRef {
	return s.Sequence[s.ActiveIndex]
}

// Stalled reports whether the active part was accepted but the next part
// could not be opened yet.
func (s *SuiteSession) Stalled() bool {
	return s.Status == StatusActive &&
		len(s.Entries) > s.ActiveIndex &&
		s.ActiveIndex+1 < len(s.Sequence)
}

func (s *SuiteSession) snapshot() SuiteSession {
	out := *s
	out.Sequence = append([]model.PartRef(nil), s.Sequence...)
	out.Entries = append([]model.PartResult(nil), s.Entries...)
	out.record = nil
	out.done = nil
	return out
}

func partName(p model.PartRef) string {
	if p.Title != "" {
		return p.Title
	}
	if p.Label != "" {
		return p.Label
	}
	return p.ExamID
}
