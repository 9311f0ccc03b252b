// Package launcher opens suite parts on execution surfaces.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/verte-zerg/suitepractice/internal/model"
	"github.com/verte-zerg/suitepractice/internal/surface"
)

// ErrNoHandle is recorded when an opener returns neither a handle nor an error.
var ErrNoHandle = errors.New("opener returned no surface")

// Failure reports that a part could not be opened.
type Failure struct {
	ExamID   string
	Fatal    bool
	ReuseErr error
	FreshErr error
}

func (f *Failure) Error() string {
	if f.ReuseErr != nil {
		return fmt.Sprintf("failed to open part %s: reuse: %v; fresh: %v", f.ExamID, f.ReuseErr, f.FreshErr)
	}
	return fmt.Sprintf("failed to open part %s: %v", f.ExamID, f.FreshErr)
}

func (f *Failure) Unwrap() []error {
	var errs []error
	if f.ReuseErr != nil {
		errs = append(errs, f.ReuseErr)
	}
	if f.FreshErr != nil {
		errs = append(errs, f.FreshErr)
	}
	return errs
}

// Launch is a part that was successfully opened.
type Launch struct {
	Handle surface.Handle
	// Reused is set when the existing surface was redirected.
	Reused bool
	// ExpectedSessionID is the handshake id bound to Handle and the part.
	ExpectedSessionID string
}

// Request carries the suite context of an advance.
type Request struct {
	SuiteSessionID string
	SequenceIndex  int
}

// Launcher applies the reuse-or-fallback policy.
type Launcher struct {
	opener surface.Opener
	ids    func(examID string) string
	logger *slog.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithSessionIDs replaces the handshake id generator.
func WithSessionIDs(gen func(examID string) string) Option {
	return func(l *Launcher) {
		if gen != nil {
			l.ids = gen
		}
	}
}

// New returns a Launcher backed by opener.
func New(opener surface.Opener, opts ...Option) *Launcher {
	l := &Launcher{
		opener: opener,
		ids:    NewSessionIDGenerator(time.Now).Next,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AdvanceTo loads part, redirecting existing when it is still open and
// falling back to exactly one fresh surface otherwise. When both attempts
// fail it returns a fatal *Failure.
func (l *Launcher) AdvanceTo(ctx context.Context, part model.PartRef, existing surface.MaybeHandle, req Request) (Launch, error) {
	sessionID := l.ids(part.ExamID)
	opts := surface.OpenOptions{
		SessionID:      sessionID,
		SuiteSessionID: req.SuiteSessionID,
		SequenceIndex:  req.SequenceIndex,
	}

	var reuseErr error
	if h, ok := existing.Live(); ok {
		opts.Reuse = surface.Some(h)
		opened, err := l.attempt(ctx, part.ExamID, opts)
		if err == nil {
			return Launch{Handle: opened, Reused: opened.ID() == h.ID(), ExpectedSessionID: sessionID}, nil
		}
		reuseErr = err
		l.logger.Warn("reusing surface failed, opening a new one", "exam", part.ExamID, "handle", h.ID(), "err", err)
	}

	opts.Reuse = surface.None()
	opened, err := l.attempt(ctx, part.ExamID, opts)
	if err != nil {
		return Launch{}, &Failure{ExamID: part.ExamID, Fatal: true, ReuseErr: reuseErr, FreshErr: err}
	}
	return Launch{Handle: opened, ExpectedSessionID: sessionID}, nil
}

func (l *Launcher) attempt(ctx context.Context, examID string, opts surface.OpenOptions) (h surface.Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h = nil
			err = fmt.Errorf("opener panicked: %v", r)
		}
	}()
	h, err = l.opener.Open(ctx, examID, opts)
	if err != nil {
		return nil, err
	}
	if h == nil || h.Closed() {
		return nil, ErrNoHandle
	}
	return h, nil
}
