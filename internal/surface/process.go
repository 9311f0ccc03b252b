package surface

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"
)

// ErrForeignHandle is returned when asked to reuse a handle this opener did not create.
var ErrForeignHandle = errors.New("handle was not opened by this surface")

// ProcessOpener hosts each surface in a runner process. Parts are loaded by
// writing LOAD_PART lines to the runner's stdin; every JSON line the runner
// prints on stdout is forwarded to the inbox.
type ProcessOpener struct {
	command []string
	inbox   chan<- Envelope
	logger  *slog.Logger
}

// NewProcessOpener returns an opener that starts command for each fresh surface.
func NewProcessOpener(command []string, inbox chan<- Envelope, logger *slog.Logger) (*ProcessOpener, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, fmt.Errorf("surface command is empty")
	}
	if inbox == nil {
		return nil, fmt.Errorf("surface inbox is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessOpener{command: command, inbox: inbox, logger: logger}, nil
}

// Open implements Opener.
func (o *ProcessOpener) Open(ctx context.Context, examID string, opts OpenOptions) (Handle, error) {
	load := LoadPart{
		ExamID:         examID,
		SessionID:      opts.SessionID,
		SuiteSessionID: opts.SuiteSessionID,
		SequenceIndex:  opts.SequenceIndex,
	}
	if h, ok := opts.Reuse.Live(); ok {
		ph, ok := h.(*processHandle)
		if !ok {
			return nil, ErrForeignHandle
		}
		if err := ph.load(load); err != nil {
			return nil, err
		}
		return ph, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h, err := o.spawn()
	if err != nil {
		return nil, err
	}
	if err := h.load(load); err != nil {
		if cerr := h.Close(); cerr != nil {
			// Best-effort close of a surface that never loaded.
			_ = cerr
		}
		return nil, err
	}
	return h, nil
}

func (o *ProcessOpener) spawn() (*processHandle, error) {
	cmd := exec.Command(o.command[0], o.command[1:]...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open surface stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open surface stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start surface: %w", err)
	}
	h := &processHandle{
		id:     uuid.NewString(),
		cmd:    cmd,
		stdin:  stdin,
		inbox:  o.inbox,
		stop:   make(chan struct{}),
		logger: o.logger,
	}
	go h.run(stdout)
	o.logger.Debug("surface started", "handle", h.id, "pid", cmd.Process.Pid)
	return h, nil
}

type processHandle struct {
	id     string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	inbox  chan<- Envelope
	logger *slog.Logger

	mu     sync.Mutex
	examID string
	closed bool

	// writeMu serializes stdin writes so a stuck runner never blocks mu.
	writeMu sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
}

func (h *processHandle) ID() string {
	return h.id
}

func (h *processHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *processHandle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.stopOnce.Do(func() { close(h.stop) })

	h.writeMu.Lock()
	msg, err := NewMessage(TypeForceClose, map[string]string{"handleId": h.id})
	if err == nil {
		if werr := WriteMessage(h.stdin, msg); werr != nil {
			// The runner may already be gone.
			_ = werr
		}
	}
	cerr := h.stdin.Close()
	h.writeMu.Unlock()

	if h.cmd != nil && h.cmd.Process != nil {
		if kerr := h.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			return fmt.Errorf("failed to stop surface: %w", kerr)
		}
	}
	if cerr != nil && !errors.Is(cerr, os.ErrClosed) && !errors.Is(cerr, io.ErrClosedPipe) {
		return fmt.Errorf("failed to close surface stdin: %w", cerr)
	}
	return nil
}

func (h *processHandle) load(load LoadPart) error {
	msg, err := NewMessage(TypeLoadPart, load)
	if err != nil {
		return err
	}
	if h.Closed() {
		return fmt.Errorf("surface %s is closed", h.id)
	}
	h.writeMu.Lock()
	err = WriteMessage(h.stdin, msg)
	h.writeMu.Unlock()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("surface %s is closed", h.id)
	}
	h.examID = load.ExamID
	return nil
}

func (h *processHandle) currentExam() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.examID
}

func (h *processHandle) run(stdout io.Reader) {
	reader := NewReader(stdout)
read:
	for {
		msg, err := reader.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Warn("surface read failed", "handle", h.id, "err", err)
			}
			break
		}
		env := Envelope{HandleID: h.id, ExamID: h.currentExam(), Message: msg}
		select {
		case h.inbox <- env:
		case <-h.stop:
			break read
		}
	}
	if err := h.cmd.Wait(); err != nil {
		h.logger.Debug("surface exited", "handle", h.id, "err", err)
	}
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	h.stopOnce.Do(func() { close(h.stop) })
}
