// Package notify shows short user-facing notices.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Level is the severity of a notice.
type Level string

// Notice levels.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice texts.
const (
	NoticeStarted        = "Suite practice started: %s"
	NoticeContinue       = "Finished %s, continuing with %s"
	NoticeComplete       = "Suite practice complete, results saved"
	NoticeCannotContinue = "Could not open the next part; suite practice is paused"
	NoticeInProgress     = "A suite practice session is already in progress"
	NoticeSaveFailed     = "Failed to save suite practice results"
	NoticeAbandoned      = "Suite practice ended early: %s"
)

// Notifier displays fire-and-forget notices.
type Notifier interface {
	ShowMessage(text string, level Level)
}

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
)

// Terminal writes one notice per line, styled when w is a color terminal.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewTerminal returns a Terminal writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, color: shouldUseColor(w)}
}

// ShowMessage implements Notifier.
func (t *Terminal) ShowMessage(text string, level Level) {
	line := fmt.Sprintf("[%s] %s", level, text)
	if t.color {
		line = styleFor(level).Render(line)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprintln(t.w, line); err != nil {
		// Best-effort notice output.
		_ = err
	}
}

func styleFor(level Level) lipgloss.Style {
	switch level {
	case LevelSuccess:
		return successStyle
	case LevelWarning:
		return warningStyle
	case LevelError:
		return errorStyle
	default:
		return infoStyle
	}
}

func shouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// Message is a recorded notice.
type Message struct {
	Text  string
	Level Level
}

// Recorder keeps notices in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// ShowMessage implements Notifier.
func (r *Recorder) ShowMessage(text string, level Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Text: text, Level: level})
}

// Messages returns a copy of the recorded notices.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Has reports whether text was shown at any level.
func (r *Recorder) Has(text string) bool {
	for _, m := range r.Messages() {
		if m.Text == text {
			return true
		}
	}
	return false
}

// Discard drops every notice.
type Discard struct{}

// ShowMessage implements Notifier.
func (Discard) ShowMessage(string, Level) {}
