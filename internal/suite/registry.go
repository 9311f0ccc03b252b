package suite

import "errors"

var (
	// ErrEmptySequence is returned when a suite is started without parts.
	ErrEmptySequence = errors.New("suite sequence is empty")
	// ErrSessionActive is returned when a suite is already running.
	ErrSessionActive = errors.New("a suite session is already active")
	// ErrNoSession is returned when an operation needs a running suite.
	ErrNoSession = errors.New("no active suite session")
)

// registry holds at most one session.
type registry struct {
	session *SuiteSession
}

func (r *registry) start(s *SuiteSession) error {
	if len(s.Sequence) == 0 {
		return ErrEmptySequence
	}
	if r.session != nil {
		return ErrSessionActive
	}
	s.done = make(chan struct{})
	r.session = s
	return nil
}

func (r *registry) current() (*SuiteSession, bool) {
	return r.session, r.session != nil
}

func (r *registry) clear() {
	if r.session == nil {
		return
	}
	r.session.Status = StatusDone
	close(r.session.done)
	r.session = nil
}
