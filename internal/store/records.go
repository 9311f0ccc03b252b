package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/suitepractice/internal/model"
)

// Storage keys.
const (
	KeyPracticeRecords = "practice_records"
	KeyExamIndex       = "exam_index"
	KeyActiveExamIndex = "active_exam_index_key"
)

// DefaultMaxRecords caps the practice_records collection.
const DefaultMaxRecords = 1000

// Records manages the practice_records collection stored in a KV.
// Entries written by other recorders are preserved as raw JSON.
type Records struct {
	kv  KV
	max int
}

// NewRecords returns a Records over kv. A non-positive max uses DefaultMaxRecords.
func NewRecords(kv KV, max int) *Records {
	if max <= 0 {
		max = DefaultMaxRecords
	}
	return &Records{kv: kv, max: max}
}

type recordHeader struct {
	ID         any    `json:"id"`
	MultiSuite bool   `json:"multiSuite"`
	SuiteMode  bool   `json:"suiteMode"`
	Frequency  string `json:"frequency"`
	StartTime  string `json:"startTime"`
	Date       string `json:"date"`
	EndTime    string `json:"endTime"`
	Metadata   struct {
		Frequency   string `json:"frequency"`
		StartedAt   string `json:"startedAt"`
		CompletedAt string `json:"completedAt"`
	} `json:"metadata"`
}

func (h recordHeader) id() string {
	if h.ID == nil {
		return ""
	}
	return fmt.Sprint(h.ID)
}

func (h recordHeader) isSuite() bool {
	return h.MultiSuite || h.SuiteMode || h.Frequency == "suite" || h.Metadata.Frequency == "suite"
}

func (h recordHeader) startedAt() (time.Time, bool) {
	for _, v := range []string{h.StartTime, h.Metadata.StartedAt, h.Date, h.EndTime, h.Metadata.CompletedAt} {
		if v == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (r *Records) load(ctx context.Context) ([]json.RawMessage, error) {
	var raw json.RawMessage
	found, err := r.kv.Get(ctx, KeyPracticeRecords, &raw)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		// Not a list; treat the collection as empty.
		return nil, nil
	}
	return list, nil
}

func headerOf(raw json.RawMessage) (recordHeader, bool) {
	var h recordHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return recordHeader{}, false
	}
	return h, true
}

// Append stores rec as the newest record. It returns false without writing
// when a record with the same id already exists.
func (r *Records) Append(ctx context.Context, rec model.PracticeRecord) (bool, error) {
	list, err := r.load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load practice records: %w", err)
	}
	for _, raw := range list {
		if h, ok := headerOf(raw); ok && h.id() == rec.ID {
			return false, nil
		}
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to encode practice record: %w", err)
	}
	next := make([]json.RawMessage, 0, len(list)+1)
	next = append(next, encoded)
	next = append(next, list...)
	if len(next) > r.max {
		next = next[:r.max]
	}
	if err := r.kv.Set(ctx, KeyPracticeRecords, next); err != nil {
		return false, fmt.Errorf("failed to save practice records: %w", err)
	}
	return true, nil
}

// Has reports whether a record with id exists.
func (r *Records) Has(ctx context.Context, id string) (bool, error) {
	list, err := r.load(ctx)
	if err != nil {
		return false, err
	}
	for _, raw := range list {
		if h, ok := headerOf(raw); ok && h.id() == id {
			return true, nil
		}
	}
	return false, nil
}

// List returns the records newest first. Entries that do not decode as
// practice records are skipped.
func (r *Records) List(ctx context.Context) ([]model.PracticeRecord, error) {
	list, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]model.PracticeRecord, 0, len(list))
	for _, raw := range list {
		var rec model.PracticeRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// CountSuitesOn counts suite records that started on the same calendar day
// as day, in day's location.
func (r *Records) CountSuitesOn(ctx context.Context, day time.Time) (int, error) {
	list, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	y, m, d := day.Date()
	count := 0
	for _, raw := range list {
		h, ok := headerOf(raw)
		if !ok || !h.isSuite() {
			continue
		}
		started, ok := h.startedAt()
		if !ok {
			continue
		}
		ry, rm, rd := started.In(day.Location()).Date()
		if ry == y && rm == m && rd == d {
			count++
		}
	}
	return count, nil
}

// LoadExamIndex reads the active exam index, falling back to exam_index.
func LoadExamIndex(ctx context.Context, kv KV) ([]model.ExamIndexEntry, error) {
	key := KeyExamIndex
	var active string
	if _, err := kv.Get(ctx, KeyActiveExamIndex, &active); err == nil && strings.TrimSpace(active) != "" {
		key = strings.TrimSpace(active)
	}
	var entries []model.ExamIndexEntry
	if _, err := kv.Get(ctx, key, &entries); err != nil {
		return nil, fmt.Errorf("failed to load exam index: %w", err)
	}
	if len(entries) == 0 && key != KeyExamIndex {
		if _, err := kv.Get(ctx, KeyExamIndex, &entries); err != nil {
			return nil, fmt.Errorf("failed to load exam index: %w", err)
		}
	}
	out := entries[:0]
	for _, e := range entries {
		if e.ID != "" {
			out = append(out, e)
		}
	}
	return out, nil
}

// SaveExamIndex replaces the default exam index.
func SaveExamIndex(ctx context.Context, kv KV, entries []model.ExamIndexEntry) error {
	if err := kv.Set(ctx, KeyExamIndex, entries); err != nil {
		return err
	}
	return kv.Set(ctx, KeyActiveExamIndex, KeyExamIndex)
}
