package suite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/verte-zerg/suitepractice/internal/aggregate"
	"github.com/verte-zerg/suitepractice/internal/launcher"
	"github.com/verte-zerg/suitepractice/internal/model"
	"github.com/verte-zerg/suitepractice/internal/notify"
	"github.com/verte-zerg/suitepractice/internal/surface"
)

// HandleCompletion accepts the result of examID. It returns true when the
// result was accepted or already recorded, and false when it was ignored or
// the next part could not be opened. An error is returned only when the
// finished suite could not be saved; the session then stays completing.
func (c *Coordinator) HandleCompletion(ctx context.Context, examID string, payload model.PartPayload) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handleLocked(ctx, examID, payload)
}

// Deliver routes an inbound surface message. Only completion messages that
// echo the expected handshake id reach HandleCompletion.
func (c *Coordinator) Deliver(ctx context.Context, env surface.Envelope) (bool, error) {
	switch surface.NormalizeType(env.Message.Type) {
	case surface.TypePracticeComplete:
	case surface.TypeSessionReady:
		c.logger.Debug("surface ready", "handle", env.HandleID, "exam", env.ExamID)
		return false, nil
	default:
		c.logger.Debug("ignoring surface message", "type", env.Message.Type, "handle", env.HandleID)
		return false, nil
	}

	var payload model.PartPayload
	if len(env.Message.Data) > 0 {
		if err := json.Unmarshal(env.Message.Data, &payload); err != nil {
			c.logger.Warn("dropping malformed completion", "handle", env.HandleID, "err", err)
			return false, nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.reg.current()
	if !ok {
		c.logger.Debug("completion without suite", "exam", env.ExamID)
		return false, nil
	}
	examID := env.ExamID
	if payload.ExamID != "" {
		if examID != "" && payload.ExamID != examID {
			c.logger.Debug("stale completion on reused surface", "suite", s.ID,
				"handle", env.HandleID, "loaded", examID, "payload", payload.ExamID)
			return false, nil
		}
		examID = payload.ExamID
	}
	if examID == "" {
		examID = launcher.ExamIDFromSessionID(payload.SessionID)
	}

	switch payload.SessionID {
	case "":
		if examID != s.ActiveExamID {
			c.logger.Debug("stale completion", "suite", s.ID, "exam", examID, "active", s.ActiveExamID)
			return false, nil
		}
		payload.SessionID = s.ExpectedSessionID
	case s.ExpectedSessionID:
	default:
		c.logger.Debug("handshake mismatch", "suite", s.ID, "expected", s.ExpectedSessionID, "got", payload.SessionID)
		return false, nil
	}
	return c.handleLocked(ctx, examID, payload)
}

func (c *Coordinator) handleLocked(ctx context.Context, examID string, payload model.PartPayload) (bool, error) {
	s, ok := c.reg.current()
	if !ok {
		c.logger.Debug("completion without suite", "exam", examID)
		return false, nil
	}
	if examID != s.ActiveExamID {
		c.logger.Debug("stale completion", "suite", s.ID, "exam", examID, "active", s.ActiveExamID)
		return false, nil
	}

	// The active part already has an entry while the next launch is pending
	// or the final save is outstanding.
	if len(s.Entries) > s.ActiveIndex {
		c.logger.Debug("duplicate completion", "suite", s.ID, "exam", examID)
		return true, nil
	}
	part := s.ActivePart()
	result := aggregate.Normalize(part, payload, c.now())
	if aggregate.Contains(s.Entries, result.SuiteID) {
		c.logger.Debug("duplicate completion", "suite", s.ID, "part", result.SuiteID)
		return true, nil
	}
	s.Entries = aggregate.Append(s.Entries, result)
	s.LastUpdate = c.now()
	c.logger.Info("part completed", "suite", s.ID, "part", result.SuiteID,
		"correct", result.ScoreInfo.Correct, "total", result.ScoreInfo.Total)

	if s.ActiveIndex+1 < len(s.Sequence) {
		return c.advanceLocked(ctx, s), nil
	}

	s.Status = StatusCompleting
	if err := c.finalizeLocked(ctx, s); err != nil {
		return false, err
	}
	return true, nil
}

// advanceLocked opens the part after the active one. On a fatal launch
// failure the session is left untouched so the launch can be retried.
func (c *Coordinator) advanceLocked(ctx context.Context, s *SuiteSession) bool {
	current := s.ActivePart()
	nextIndex := s.ActiveIndex + 1
	next := s.Sequence[nextIndex]

	previous, hadWindow := s.Window.Get()
	launch, err := c.launcher.AdvanceTo(ctx, next, s.Window, launcher.Request{
		SuiteSessionID: s.ID,
		SequenceIndex:  nextIndex,
	})
	if err != nil {
		c.logger.Error("failed to open next part", "suite", s.ID, "exam", next.ExamID, "err", err)
		c.notifier.ShowMessage(notify.NoticeCannotContinue, notify.LevelError)
		return false
	}

	if hadWindow && previous.ID() != launch.Handle.ID() {
		c.closeHandle(previous)
	}
	s.ActiveIndex = nextIndex
	s.ActiveExamID = next.ExamID
	s.Window = surface.Some(launch.Handle)
	s.ExpectedSessionID = launch.ExpectedSessionID
	s.LastUpdate = c.now()
	c.notifier.ShowMessage(fmt.Sprintf(notify.NoticeContinue, partName(current), partName(next)), notify.LevelSuccess)
	return true
}
