// Package surface defines execution surfaces that host one suite part at a time.
package surface

import "context"

// Handle is an open execution surface.
type Handle interface {
	// ID identifies the surface instance.
	ID() string
	// Closed reports whether the surface was closed, by us or externally.
	Closed() bool
	// Close releases the surface.
	Close() error
}

// MaybeHandle is either Some(handle) or None.
type MaybeHandle struct {
	h Handle
}

// Some wraps h. A nil h yields None.
func Some(h Handle) MaybeHandle {
	return MaybeHandle{h: h}
}

// None returns the empty MaybeHandle.
func None() MaybeHandle {
	return MaybeHandle{}
}

// Get returns the handle and whether one is present.
func (m MaybeHandle) Get() (Handle, bool) {
	return m.h, m.h != nil
}

// Live returns the handle only when present and not closed.
func (m MaybeHandle) Live() (Handle, bool) {
	if m.h == nil || m.h.Closed() {
		return nil, false
	}
	return m.h, true
}

// OpenOptions describe how a part should be loaded.
type OpenOptions struct {
	// Reuse asks the opener to redirect an existing surface.
	Reuse MaybeHandle
	// SessionID is the handshake id the part must echo on completion.
	SessionID      string
	SuiteSessionID string
	SequenceIndex  int
}

// Opener loads exams into execution surfaces. A nil handle or an error
// means the attempt failed; neither is fatal on its own.
type Opener interface {
	Open(ctx context.Context, examID string, opts OpenOptions) (Handle, error)
}
