package suite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/suitepractice/internal/launcher"
	"github.com/verte-zerg/suitepractice/internal/model"
	"github.com/verte-zerg/suitepractice/internal/notify"
	"github.com/verte-zerg/suitepractice/internal/surface"
)

// DefaultRecordType is the record type used when none is configured.
const DefaultRecordType = "reading"

var (
	// ErrNotStalled is returned by RetryLaunch when nothing is waiting to open.
	ErrNotStalled = errors.New("suite is not waiting for a part to open")
	// ErrNotCompleting is returned by Finalize before the last part is accepted.
	ErrNotCompleting = errors.New("suite is not completing")
	// ErrPartTimeout is returned by Serve when a part did not complete in time.
	ErrPartTimeout = errors.New("part did not complete in time")
	// ErrInboxClosed is returned by Serve when the inbox channel is closed.
	ErrInboxClosed = errors.New("surface inbox closed")
)

// RecordStore persists practice records.
type RecordStore interface {
	Append(ctx context.Context, rec model.PracticeRecord) (bool, error)
	CountSuitesOn(ctx context.Context, day time.Time) (int, error)
}

// Coordinator owns the suite session. All session mutation happens under mu.
type Coordinator struct {
	mu  sync.Mutex
	reg registry

	launcher    *launcher.Launcher
	records     RecordStore
	notifier    notify.Notifier
	logger      *slog.Logger
	now         func() time.Time
	suiteIDs    func() string
	sessionIDs  func(examID string) string
	partTimeout time.Duration
	recordType  string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSuiteIDs replaces the suite session id generator.
func WithSuiteIDs(gen func() string) Option {
	return func(c *Coordinator) {
		if gen != nil {
			c.suiteIDs = gen
		}
	}
}

// WithSessionIDs replaces the per-part handshake id generator.
func WithSessionIDs(gen func(examID string) string) Option {
	return func(c *Coordinator) {
		c.sessionIDs = gen
	}
}

// WithPartTimeout abandons the suite when a part does not complete within d.
// Zero disables the timeout.
func WithPartTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.partTimeout = d
		}
	}
}

// WithRecordType sets the type of persisted records.
func WithRecordType(typ string) Option {
	return func(c *Coordinator) {
		if typ != "" {
			c.recordType = typ
		}
	}
}

// New returns a Coordinator that opens parts through opener and saves
// records to records.
func New(opener surface.Opener, records RecordStore, notifier notify.Notifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		records:    records,
		notifier:   notifier,
		logger:     slog.Default(),
		now:        time.Now,
		suiteIDs:   func() string { return "suite_" + uuid.NewString() },
		recordType: DefaultRecordType,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = notify.Discard{}
	}
	launchOpts := []launcher.Option{launcher.WithLogger(c.logger)}
	if c.sessionIDs != nil {
		launchOpts = append(launchOpts, launcher.WithSessionIDs(c.sessionIDs))
	} else {
		launchOpts = append(launchOpts, launcher.WithSessionIDs(launcher.NewSessionIDGenerator(c.now).Next))
	}
	c.launcher = launcher.New(opener, launchOpts...)
	return c
}

// Start creates a session for sequence and opens its first part.
// A second Start while a session exists is rejected with ErrSessionActive.
func (c *Coordinator) Start(ctx context.Context, sequence []model.PartRef, meta Metadata) (SuiteSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(sequence) == 0 {
		return SuiteSession{}, ErrEmptySequence
	}
	if existing, ok := c.reg.current(); ok {
		c.logger.Warn("suite already running", "suite", existing.ID)
		c.notifier.ShowMessage(notify.NoticeInProgress, notify.LevelWarning)
		return SuiteSession{}, ErrSessionActive
	}

	now := c.now()
	if meta.Type == "" {
		meta.Type = c.recordType
	}
	id := c.suiteIDs()
	base := meta.BaseExamID
	if base == "" {
		base = "suite-" + id
	}
	s := &SuiteSession{
		ID:           id,
		BaseExamID:   base,
		Sequence:     append([]model.PartRef(nil), sequence...),
		ActiveExamID: sequence[0].ExamID,
		Window:       surface.None(),
		StartTime:    now,
		LastUpdate:   now,
		Status:       StatusActive,
		Metadata:     meta,
	}
	if err := c.reg.start(s); err != nil {
		return SuiteSession{}, err
	}

	launch, err := c.launcher.AdvanceTo(ctx, sequence[0], surface.None(), launcher.Request{SuiteSessionID: s.ID})
	if err != nil {
		c.reg.clear()
		c.logger.Error("failed to open first part", "suite", s.ID, "exam", sequence[0].ExamID, "err", err)
		c.notifier.ShowMessage(notify.NoticeCannotContinue, notify.LevelError)
		return SuiteSession{}, fmt.Errorf("failed to start suite: %w", err)
	}
	s.Window = surface.Some(launch.Handle)
	s.ExpectedSessionID = launch.ExpectedSessionID
	c.logger.Info("suite started", "suite", s.ID, "parts", len(sequence), "exam", s.ActiveExamID)
	c.notifier.ShowMessage(fmt.Sprintf(notify.NoticeStarted, partName(sequence[0])), notify.LevelInfo)
	return s.snapshot(), nil
}

// Current returns a copy of the active session.
func (c *Coordinator) Current() (SuiteSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.reg.current()
	if !ok {
		return SuiteSession{}, false
	}
	return s.snapshot(), true
}

// Clear discards the active session without saving anything.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.reg.current(); ok {
		c.closeWindow(s)
	}
	c.reg.clear()
}

// RetryLaunch opens the next part of a stalled suite again.
func (c *Coordinator) RetryLaunch(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.reg.current()
	if !ok {
		return false, ErrNoSession
	}
	if !s.Stalled() {
		return false, ErrNotStalled
	}
	return c.advanceLocked(ctx, s), nil
}

// Finalize retries saving a suite whose last part was accepted.
func (c *Coordinator) Finalize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.reg.current()
	if !ok {
		return ErrNoSession
	}
	if s.Status != StatusCompleting {
		return ErrNotCompleting
	}
	return c.finalizeLocked(ctx, s)
}

// Abandon ends the suite early. Accepted parts are saved as single-part
// records, the window is closed and the session is cleared.
func (c *Coordinator) Abandon(ctx context.Context, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.reg.current()
	if !ok {
		return ErrNoSession
	}
	return c.abandonLocked(ctx, s, reason)
}

func (c *Coordinator) abandonLocked(ctx context.Context, s *SuiteSession, reason string) error {
	end := c.now()
	var errs []error
	for _, entry := range s.Entries {
		rec := partRecord(s, entry, end)
		if _, err := c.records.Append(ctx, rec); err != nil {
			errs = append(errs, fmt.Errorf("failed to save part %s: %w", entry.SuiteID, err))
		}
	}
	c.closeWindow(s)
	c.reg.clear()
	c.logger.Warn("suite abandoned", "suite", s.ID, "reason", reason, "saved_parts", len(s.Entries)-len(errs))
	c.notifier.ShowMessage(fmt.Sprintf(notify.NoticeAbandoned, reason), notify.LevelWarning)
	return errors.Join(errs...)
}

// Serve feeds envelopes from inbox into Deliver until the session ends,
// ctx is done, or the part timeout elapses.
func (c *Coordinator) Serve(ctx context.Context, inbox <-chan surface.Envelope) error {
	done, ok := c.doneChan()
	if !ok {
		return ErrNoSession
	}
	for {
		var timeout <-chan time.Time
		var timer *time.Timer
		if wait, ok := c.timeoutIn(); ok {
			timer = time.NewTimer(wait)
			timeout = timer.C
		}

		var err error
		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		case env, open := <-inbox:
			if !open {
				err = ErrInboxClosed
				break
			}
			if _, derr := c.Deliver(ctx, env); derr != nil {
				c.logger.Error("failed to handle completion", "exam", env.ExamID, "err", derr)
			}
		case <-timeout:
			if c.abandonIfTimedOut(ctx) {
				err = ErrPartTimeout
			}
		}
		if timer != nil {
			timer.Stop()
		}
		if err != nil {
			return err
		}
		select {
		case <-done:
			return nil
		default:
		}
	}
}

func (c *Coordinator) doneChan() (<-chan struct{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.reg.current()
	if !ok {
		return nil, false
	}
	return s.done, true
}

// timeoutIn returns how long the active part may still run.
func (c *Coordinator) timeoutIn() (time.Duration, bool) {
	if c.partTimeout <= 0 {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.reg.current()
	if !ok || s.Status != StatusActive {
		return 0, false
	}
	wait := c.partTimeout - c.now().Sub(s.LastUpdate)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

func (c *Coordinator) abandonIfTimedOut(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.reg.current()
	if !ok || s.Status != StatusActive {
		return false
	}
	if c.now().Sub(s.LastUpdate) < c.partTimeout {
		return false
	}
	reason := fmt.Sprintf("%s did not complete within %s", partName(s.ActivePart()), c.partTimeout)
	if err := c.abandonLocked(ctx, s, reason); err != nil {
		c.logger.Error("failed to save parts of abandoned suite", "suite", s.ID, "err", err)
	}
	return true
}

// closeWindow closes the session window if it is still open.
func (c *Coordinator) closeWindow(s *SuiteSession) {
	if h, ok := s.Window.Get(); ok {
		c.closeHandle(h)
	}
	s.Window = surface.None()
}

func (c *Coordinator) closeHandle(h surface.Handle) {
	if h.Closed() {
		return
	}
	if err := h.Close(); err != nil {
		c.logger.Debug("failed to close surface", "handle", h.ID(), "err", err)
	}
}
