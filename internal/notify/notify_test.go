package notify

import (
	"bytes"
	"strings"
	"testing"
)

func TestTerminalPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	n := NewTerminal(&buf)
	n.ShowMessage(NoticeComplete, LevelSuccess)
	n.ShowMessage("second", LevelWarning)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
	if lines[0] != "[success] "+NoticeComplete {
		t.Fatalf("unexpected line %q", lines[0])
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("expected no escape codes for a non-terminal writer")
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.ShowMessage("a", LevelInfo)
	r.ShowMessage(NoticeCannotContinue, LevelError)

	msgs := r.Messages()
	if len(msgs) != 2 || msgs[1].Level != LevelError {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if !r.Has(NoticeCannotContinue) || r.Has("missing") {
		t.Fatalf("unexpected Has result")
	}
	msgs[0].Text = "mutated"
	if r.Messages()[0].Text != "a" {
		t.Fatalf("Messages must return a copy")
	}
}

func TestStyleForLevels(t *testing.T) {
	if styleFor(LevelError).GetBold() != true {
		t.Fatalf("expected bold error style")
	}
	if styleFor(Level("other")).GetBold() {
		t.Fatalf("expected plain info style for unknown levels")
	}
}
