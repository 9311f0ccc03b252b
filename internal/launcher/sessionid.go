package launcher

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// SessionIDGenerator issues handshake ids of the form
// <examId>_<unixMillis>_<9 base36 chars>.
type SessionIDGenerator struct {
	now func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSessionIDGenerator returns a generator seeded with the current time.
func NewSessionIDGenerator(now func() time.Time) *SessionIDGenerator {
	if now == nil {
		now = time.Now
	}
	return &SessionIDGenerator{
		now: now,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns a fresh id for examID.
func (g *SessionIDGenerator) Next(examID string) string {
	g.mu.Lock()
	var suffix [9]byte
	for i := range suffix {
		suffix[i] = base36[g.rnd.Intn(len(base36))]
	}
	g.mu.Unlock()

	stamp := fmt.Sprintf("%d_%s", g.now().UnixMilli(), suffix[:])
	normalized := strings.Join(strings.Fields(examID), "-")
	if normalized == "" {
		return "session_" + stamp
	}
	return normalized + "_" + stamp
}

// ExamIDFromSessionID returns the exam id prefix of a handshake id.
func ExamIDFromSessionID(sessionID string) string {
	parts := strings.Split(sessionID, "_")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[:len(parts)-2], "_")
}
