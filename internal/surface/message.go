package surface

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Message types exchanged with a surface.
const (
	TypeLoadPart         = "LOAD_PART"
	TypeSessionReady     = "SESSION_READY"
	TypePracticeComplete = "PRACTICE_COMPLETE"
	TypeForceClose       = "SUITE_FORCE_CLOSE"
)

// Message is one JSON line on the surface wire.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Envelope is an inbound message stamped with the surface it came from.
type Envelope struct {
	HandleID string
	// ExamID is the exam the surface had loaded when it emitted the message.
	ExamID  string
	Message Message
}

// LoadPart is the payload of a LOAD_PART message.
type LoadPart struct {
	ExamID         string `json:"examId"`
	SessionID      string `json:"sessionId"`
	SuiteSessionID string `json:"suiteSessionId,omitempty"`
	SequenceIndex  int    `json:"sequenceIndex"`
}

// NewMessage encodes data into a message of the given type.
func NewMessage(typ string, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s: %w", typ, err)
	}
	return Message{Type: typ, Data: raw}, nil
}

// NormalizeType maps legacy lower-case type names to their canonical form.
func NormalizeType(typ string) string {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "practice_complete", "practice-complete":
		return TypePracticeComplete
	case "session_ready", "session-ready":
		return TypeSessionReady
	default:
		return strings.TrimSpace(typ)
	}
}

// WriteMessage writes msg as a single JSON line.
func WriteMessage(w io.Writer, msg Message) error {
	line, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	line = append(line, '\n')
	if _, err := w.Write(line); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Reader decodes JSON-line messages. Lines that are not valid messages are
// skipped so that stray output from a surface does not stop the stream.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next message, or io.EOF at the end of the stream.
func (r *Reader) Next() (Message, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		msg.Type = NormalizeType(msg.Type)
		if msg.Type == "" {
			continue
		}
		return msg, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Message{}, err
	}
	return Message{}, io.EOF
}
