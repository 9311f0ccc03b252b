package suite

import (
	"context"
	"fmt"
	"time"

	"github.com/verte-zerg/suitepractice/internal/aggregate"
	"github.com/verte-zerg/suitepractice/internal/model"
	"github.com/verte-zerg/suitepractice/internal/notify"
)

// finalizeLocked saves the aggregated record and clears the session.
// On failure the session keeps its completing status.
func (c *Coordinator) finalizeLocked(ctx context.Context, s *SuiteSession) error {
	if s.record == nil {
		count, err := c.records.CountSuitesOn(ctx, s.StartTime)
		if err != nil {
			c.logger.Error("failed to count suites", "suite", s.ID, "err", err)
			c.notifier.ShowMessage(notify.NoticeSaveFailed, notify.LevelError)
			return fmt.Errorf("failed to count suites: %w", err)
		}
		rec := buildRecord(s, count+1, c.now())
		s.record = &rec
	}

	added, err := c.records.Append(ctx, *s.record)
	if err != nil {
		c.logger.Error("failed to save suite record", "suite", s.ID, "err", err)
		c.notifier.ShowMessage(notify.NoticeSaveFailed, notify.LevelError)
		return fmt.Errorf("failed to save suite record: %w", err)
	}
	if !added {
		c.logger.Info("suite record already saved", "suite", s.ID)
	}

	c.closeWindow(s)
	c.reg.clear()
	c.logger.Info("suite complete", "suite", s.ID, "parts", len(s.Entries),
		"percentage", s.record.Percentage)
	c.notifier.ShowMessage(notify.NoticeComplete, notify.LevelSuccess)
	return nil
}

func buildRecord(s *SuiteSession, sequence int, end time.Time) model.PracticeRecord {
	entries := append([]model.PartResult(nil), s.Entries...)
	score := aggregate.Scores(entries)
	elapsed := end.Sub(s.StartTime).Round(time.Second).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	title := fmt.Sprintf("Suite practice %s #%d", s.StartTime.Local().Format("01-02"), sequence)
	started := s.StartTime.UTC().Format(time.RFC3339Nano)
	completed := end.UTC().Format(time.RFC3339Nano)

	return model.PracticeRecord{
		ID:               s.ID,
		ExamID:           s.BaseExamID,
		Title:            title,
		Type:             s.Metadata.Type,
		MultiSuite:       true,
		SuiteMode:        true,
		Frequency:        "suite",
		Date:             end,
		StartTime:        s.StartTime,
		EndTime:          end,
		Duration:         aggregate.TotalDuration(entries, elapsed),
		TotalQuestions:   score.Total,
		CorrectAnswers:   score.Correct,
		Accuracy:         score.Accuracy,
		Percentage:       score.Percentage,
		ScoreInfo:        score,
		Answers:          aggregate.Answers(entries),
		AnswerComparison: aggregate.AnswerComparisons(entries),
		SpellingErrors:   aggregate.SpellingErrors(entries),
		SuiteEntries:     entries,
		SuiteSequence:    sequence,
		SessionID:        s.ID,
		Source:           s.Metadata.Source,
		Metadata: map[string]any{
			"examTitle":      title,
			"frequency":      "suite",
			"suiteSequence":  sequence,
			"suiteSessionId": s.ID,
			"startedAt":      started,
			"completedAt":    completed,
		},
	}
}

// partRecord turns one accepted part into a standalone record.
func partRecord(s *SuiteSession, entry model.PartResult, end time.Time) model.PracticeRecord {
	finished := end
	if entry.Timestamp > 0 {
		finished = time.UnixMilli(entry.Timestamp)
	}
	started := finished.Add(-time.Duration(entry.Duration * float64(time.Second)))
	title := entry.Title
	if title == "" {
		title = entry.ExamID
	}
	return model.PracticeRecord{
		ID:               s.ID + "_" + entry.SuiteID,
		ExamID:           entry.ExamID,
		Title:            title,
		Type:             s.Metadata.Type,
		Date:             finished,
		StartTime:        started,
		EndTime:          finished,
		Duration:         entry.Duration,
		TotalQuestions:   entry.ScoreInfo.Total,
		CorrectAnswers:   entry.ScoreInfo.Correct,
		Accuracy:         entry.ScoreInfo.Accuracy,
		Percentage:       entry.ScoreInfo.Percentage,
		ScoreInfo:        entry.ScoreInfo,
		Answers:          entry.Answers,
		AnswerComparison: entry.AnswerComparison,
		SpellingErrors:   entry.SpellingErrors,
		SessionID:        s.ID,
		Source:           s.Metadata.Source,
	}
}
