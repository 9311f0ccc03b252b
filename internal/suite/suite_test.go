package suite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/verte-zerg/suitepractice/internal/model"
	"github.com/verte-zerg/suitepractice/internal/notify"
	"github.com/verte-zerg/suitepractice/internal/store"
	"github.com/verte-zerg/suitepractice/internal/surface"
)

type fakeHandle struct {
	id     string
	closed atomic.Bool
}

func (h *fakeHandle) ID() string   { return h.id }
func (h *fakeHandle) Closed() bool { return h.closed.Load() }
func (h *fakeHandle) Close() error { h.closed.Store(true); return nil }

type fakeOpener struct {
	mu        sync.Mutex
	next      int
	failReuse bool
	failFresh bool
	opened    []*fakeHandle
	calls     []surface.OpenOptions
}

func (o *fakeOpener) Open(_ context.Context, _ string, opts surface.OpenOptions) (surface.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, opts)
	if h, ok := opts.Reuse.Live(); ok {
		if o.failReuse {
			return nil, errors.New("redirect blocked")
		}
		return h, nil
	}
	if o.failFresh {
		return nil, errors.New("popup blocked")
	}
	o.next++
	h := &fakeHandle{id: fmt.Sprintf("h%d", o.next)}
	o.opened = append(o.opened, h)
	return h, nil
}

func (o *fakeOpener) set(failReuse, failFresh bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failReuse = failReuse
	o.failFresh = failFresh
}

// memKV stores JSON values in memory.
type memKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	failSet error
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}}
}

func (m *memKV) Get(_ context.Context, key string, dst any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *memKV) Set(_ context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memKV) setFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSet = err
}

type fixture struct {
	coord    *Coordinator
	opener   *fakeOpener
	kv       *memKV
	records  *store.Records
	notices  *notify.Recorder
	sequence []model.PartRef
	now      time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		opener:  &fakeOpener{},
		kv:      newMemKV(),
		notices: &notify.Recorder{},
		now:     time.Date(2024, 3, 5, 9, 0, 0, 0, time.Local),
		sequence: []model.PartRef{
			{ExamID: "p1-a", Label: "P1", Title: "Alpha"},
			{ExamID: "p2-b", Label: "P2", Title: "Beta"},
			{ExamID: "p3-c", Label: "P3", Title: "Gamma"},
		},
	}
	f.records = store.NewRecords(f.kv, 0)
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return f.now }),
		WithSuiteIDs(func() string { return "suite_1" }),
		WithSessionIDs(func(examID string) string { return examID + "_sid" }),
	}
	f.coord = New(f.opener, f.records, f.notices, append(base, opts...)...)
	return f
}

func (f *fixture) start(t *testing.T) SuiteSession {
	t.Helper()
	s, err := f.coord.Start(context.Background(), f.sequence, Metadata{Source: "test"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return s
}

func (f *fixture) complete(t *testing.T, examID string, correct, total int) bool {
	t.Helper()
	f.now = f.now.Add(10 * time.Minute)
	ok, err := f.coord.HandleCompletion(context.Background(), examID, payload(correct, total))
	if err != nil {
		t.Fatalf("complete %s: %v", examID, err)
	}
	return ok
}

func payload(correct, total int) model.PartPayload {
	return model.PartPayload{
		Duration: model.Num(600),
		ScoreInfo: model.PayloadScore{
			Correct: model.Num(float64(correct)),
			Total:   model.Num(float64(total)),
		},
		Answers: map[string]any{"q1": "A"},
		SpellingErrors: []model.SpellingError{
			{Word: "Receive", UserInput: "recieve", Timestamp: 100},
		},
	}
}

func TestSuiteCompletesWithReuseAndFallback(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	original, _ := s.Window.Get()
	if s.ActiveExamID != "p1-a" || s.ExpectedSessionID != "p1-a_sid" || s.Status != StatusActive {
		t.Fatalf("unexpected initial session %+v", s)
	}

	if !f.complete(t, "p1-a", 10, 13) {
		t.Fatalf("expected P1 to continue")
	}
	cur, _ := f.coord.Current()
	if h, _ := cur.Window.Get(); h.ID() != original.ID() {
		t.Fatalf("expected P2 to reuse the window, got %s", h.ID())
	}

	f.opener.set(true, false)
	if !f.complete(t, "p2-b", 9, 13) {
		t.Fatalf("expected P2 to continue through fallback")
	}
	cur, _ = f.coord.Current()
	replacement, _ := cur.Window.Get()
	if replacement.ID() == original.ID() {
		t.Fatalf("expected a new window after fallback")
	}
	if !original.Closed() {
		t.Fatalf("expected the replaced window to be closed")
	}
	if f.notices.Has(notify.NoticeCannotContinue) {
		t.Fatalf("fallback must not show the cannot-continue notice")
	}

	if !f.complete(t, "p3-c", 11, 14) {
		t.Fatalf("expected P3 to finalize")
	}
	if _, ok := f.coord.Current(); ok {
		t.Fatalf("expected session to be cleared")
	}
	if !f.notices.Has(notify.NoticeComplete) || f.notices.Has(notify.NoticeCannotContinue) {
		t.Fatalf("unexpected notices %+v", f.notices.Messages())
	}
	if !replacement.Closed() {
		t.Fatalf("expected the window to be closed after completion")
	}

	records, err := f.records.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
	rec := records[0]
	if rec.ID != "suite_1" || !rec.MultiSuite || len(rec.SuiteEntries) != 3 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.ScoreInfo.Correct != 30 || rec.ScoreInfo.Total != 40 || rec.ScoreInfo.Percentage != 75 {
		t.Fatalf("unexpected aggregated score %+v", rec.ScoreInfo)
	}
	if rec.Title != "Suite practice 03-05 #1" || rec.SuiteSequence != 1 {
		t.Fatalf("unexpected title %q (#%d)", rec.Title, rec.SuiteSequence)
	}
	if rec.Duration != 1800 {
		t.Fatalf("expected summed duration 1800, got %v", rec.Duration)
	}
	for _, key := range []string{"P1::q1", "P2::q1", "P3::q1"} {
		if _, ok := rec.Answers[key]; !ok {
			t.Fatalf("missing namespaced answer %s in %v", key, rec.Answers)
		}
	}
	if len(rec.SpellingErrors) != 1 || rec.SpellingErrors[0].ErrorCount != 3 {
		t.Fatalf("expected merged spelling errors, got %+v", rec.SpellingErrors)
	}
}

func TestStaleCompletionIgnored(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	if f.complete(t, "p2-b", 1, 1) {
		t.Fatalf("expected stale completion to be rejected")
	}
	cur, _ := f.coord.Current()
	if len(cur.Entries) != 0 || cur.ActiveIndex != 0 {
		t.Fatalf("stale completion must not change the session: %+v", cur)
	}
}

func TestCompletionWithoutSession(t *testing.T) {
	f := newFixture(t)
	if f.complete(t, "p1-a", 1, 1) {
		t.Fatalf("expected false without a session")
	}
}

func TestFatalLaunchLeavesSessionAndRetries(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.opener.set(true, true)

	if f.complete(t, "p1-a", 5, 10) {
		t.Fatalf("expected false on fatal launch failure")
	}
	if !f.notices.Has(notify.NoticeCannotContinue) {
		t.Fatalf("expected cannot-continue notice")
	}
	cur, ok := f.coord.Current()
	if !ok || cur.ActiveIndex != 0 || cur.ActiveExamID != "p1-a" || len(cur.Entries) != 1 || !cur.Stalled() {
		t.Fatalf("expected stalled session with accepted part, got %+v", cur)
	}

	if !f.complete(t, "p1-a", 5, 10) {
		t.Fatalf("expected duplicate completion to report true")
	}
	cur, _ = f.coord.Current()
	if len(cur.Entries) != 1 {
		t.Fatalf("duplicate must not append, got %d entries", len(cur.Entries))
	}

	f.opener.set(false, false)
	ok, err := f.coord.RetryLaunch(context.Background())
	if err != nil || !ok {
		t.Fatalf("retry: ok=%v err=%v", ok, err)
	}
	cur, _ = f.coord.Current()
	if cur.ActiveIndex != 1 || cur.ActiveExamID != "p2-b" || cur.ExpectedSessionID != "p2-b_sid" {
		t.Fatalf("expected advance to P2 after retry, got %+v", cur)
	}
	if _, err := f.coord.RetryLaunch(context.Background()); !errors.Is(err, ErrNotStalled) {
		t.Fatalf("expected ErrNotStalled, got %v", err)
	}
}

func TestPersistenceFailureKeepsSessionForRetry(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.complete(t, "p1-a", 1, 2)
	f.complete(t, "p2-b", 1, 2)

	saveErr := errors.New("disk full")
	f.kv.setFailure(saveErr)
	ok, err := f.coord.HandleCompletion(context.Background(), "p3-c", payload(2, 2))
	if ok || !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got ok=%v err=%v", ok, err)
	}
	cur, exists := f.coord.Current()
	if !exists || cur.Status != StatusCompleting || len(cur.Entries) != 3 {
		t.Fatalf("expected completing session, got %+v", cur)
	}
	if !f.notices.Has(notify.NoticeSaveFailed) {
		t.Fatalf("expected save-failed notice")
	}

	ok, err = f.coord.HandleCompletion(context.Background(), "p3-c", payload(2, 2))
	if !ok || err != nil {
		t.Fatalf("expected duplicate during completing, got ok=%v err=%v", ok, err)
	}

	f.kv.setFailure(nil)
	if err := f.coord.Finalize(context.Background()); err != nil {
		t.Fatalf("finalize retry: %v", err)
	}
	if err := f.coord.Finalize(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after finalize, got %v", err)
	}
	records, _ := f.records.List(context.Background())
	if len(records) != 1 || len(records[0].SuiteEntries) != 3 {
		t.Fatalf("expected one complete record, got %+v", records)
	}
}

func TestFinalizeBeforeLastPart(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	if err := f.coord.Finalize(context.Background()); !errors.Is(err, ErrNotCompleting) {
		t.Fatalf("expected ErrNotCompleting, got %v", err)
	}
}

func TestTitleCountsEarlierSuitesThatDay(t *testing.T) {
	f := newFixture(t)
	earlier := model.PracticeRecord{ID: "old", MultiSuite: true, StartTime: f.now.Add(-time.Hour)}
	if _, err := f.records.Append(context.Background(), earlier); err != nil {
		t.Fatalf("seed: %v", err)
	}
	f.sequence = f.sequence[:1]
	f.start(t)
	f.complete(t, "p1-a", 1, 1)

	records, _ := f.records.List(context.Background())
	if len(records) != 2 || records[0].Title != "Suite practice 03-05 #2" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func envelope(t *testing.T, examID string, p model.PartPayload) surface.Envelope {
	t.Helper()
	msg, err := surface.NewMessage(surface.TypePracticeComplete, p)
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	return surface.Envelope{HandleID: "h1", ExamID: examID, Message: msg}
}

func TestDeliverChecksHandshake(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()

	wrong := payload(1, 1)
	wrong.SessionID = "p1-a_other"
	if ok, err := f.coord.Deliver(ctx, envelope(t, "p1-a", wrong)); ok || err != nil {
		t.Fatalf("expected mismatched handshake to be dropped, got ok=%v err=%v", ok, err)
	}

	ready := surface.Envelope{ExamID: "p1-a", Message: surface.Message{Type: surface.TypeSessionReady}}
	if ok, _ := f.coord.Deliver(ctx, ready); ok {
		t.Fatalf("ready message must not complete a part")
	}

	matching := payload(1, 1)
	matching.SessionID = "p1-a_sid"
	if ok, err := f.coord.Deliver(ctx, envelope(t, "p1-a", matching)); !ok || err != nil {
		t.Fatalf("expected matching handshake to be accepted, got ok=%v err=%v", ok, err)
	}

	anonymous := payload(1, 1)
	anonymous.ExamID = "p2-b"
	if ok, err := f.coord.Deliver(ctx, envelope(t, "", anonymous)); !ok || err != nil {
		t.Fatalf("expected empty session id to be accepted, got ok=%v err=%v", ok, err)
	}
	cur, _ := f.coord.Current()
	if cur.ActiveExamID != "p3-c" || len(cur.Entries) != 2 {
		t.Fatalf("unexpected session after deliveries %+v", cur)
	}
}

func TestDeliverDropsEarlierPartOnReusedSurface(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx := context.Background()
	if !f.complete(t, "p1-a", 1, 2) {
		t.Fatalf("expected P1 to be accepted")
	}
	cur, _ := f.coord.Current()
	if h, ok := cur.Window.Get(); !ok || h.ID() != "h1" {
		t.Fatalf("expected P2 to reuse h1, got %+v", cur.Window)
	}

	// The reused surface now labels its messages with P2.
	late := payload(0, 2)
	late.ExamID = "p1-a"
	if ok, err := f.coord.Deliver(ctx, envelope(t, "p2-b", late)); ok || err != nil {
		t.Fatalf("expected late P1 result to be dropped, got ok=%v err=%v", ok, err)
	}

	lateWithHandshake := payload(0, 2)
	lateWithHandshake.SessionID = "p1-a_sid"
	if ok, err := f.coord.Deliver(ctx, envelope(t, "p2-b", lateWithHandshake)); ok || err != nil {
		t.Fatalf("expected old handshake to be dropped, got ok=%v err=%v", ok, err)
	}

	anonymous := payload(0, 2)
	anonymous.ExamID = "p1-a"
	if ok, err := f.coord.Deliver(ctx, envelope(t, "", anonymous)); ok || err != nil {
		t.Fatalf("expected anonymous P1 result to be dropped, got ok=%v err=%v", ok, err)
	}

	cur, _ = f.coord.Current()
	if cur.ActiveExamID != "p2-b" || len(cur.Entries) != 1 {
		t.Fatalf("stray results changed the session: %+v", cur)
	}

	own := payload(2, 2)
	own.SessionID = "p2-b_sid"
	if ok, err := f.coord.Deliver(ctx, envelope(t, "p2-b", own)); !ok || err != nil {
		t.Fatalf("expected P2 result to be accepted, got ok=%v err=%v", ok, err)
	}
	cur, _ = f.coord.Current()
	if cur.ActiveExamID != "p3-c" || len(cur.Entries) != 2 || cur.Entries[1].ExamID != "p2-b" {
		t.Fatalf("unexpected session after P2: %+v", cur)
	}
}

func TestStalledResubmitWithNewSuiteIDIsDuplicate(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.opener.set(true, true)
	if f.complete(t, "p1-a", 1, 2) {
		t.Fatalf("expected false on fatal launch failure")
	}

	again := payload(2, 2)
	again.SuiteID = "setA"
	ok, err := f.coord.HandleCompletion(context.Background(), "p1-a", again)
	if !ok || err != nil {
		t.Fatalf("expected resubmit to count as duplicate, got ok=%v err=%v", ok, err)
	}
	cur, _ := f.coord.Current()
	if cur.ActiveIndex != 0 || len(cur.Entries) != 1 {
		t.Fatalf("resubmit must not append: %+v", cur)
	}

	f.opener.set(false, false)
	if ok, err := f.coord.RetryLaunch(context.Background()); !ok || err != nil {
		t.Fatalf("retry: ok=%v err=%v", ok, err)
	}
	f.complete(t, "p2-b", 1, 2)
	f.complete(t, "p3-c", 1, 2)

	records, err := f.records.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || len(records[0].SuiteEntries) != len(f.sequence) {
		t.Fatalf("expected one entry per part, got %+v", records)
	}
	if records[0].SuiteEntries[0].ScoreInfo.Correct != 1 {
		t.Fatalf("first accepted result must be kept, got %+v", records[0].SuiteEntries[0])
	}
}

type failingHandle struct{ fakeHandle }

func (h *failingHandle) Close() error { return errors.New("runner hung") }

func TestCloseHandleLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := newFixture(t, WithLogger(logger))

	f.coord.closeHandle(&failingHandle{fakeHandle{id: "h9"}})
	if !strings.Contains(buf.String(), "failed to close surface") || !strings.Contains(buf.String(), "runner hung") {
		t.Fatalf("expected close failure to be logged, got %q", buf.String())
	}

	buf.Reset()
	closed := &failingHandle{fakeHandle{id: "h10"}}
	closed.closed.Store(true)
	f.coord.closeHandle(closed)
	if buf.Len() != 0 {
		t.Fatalf("closed handle must be skipped, got %q", buf.String())
	}
}

func TestStartErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.coord.Start(ctx, nil, Metadata{}); !errors.Is(err, ErrEmptySequence) {
		t.Fatalf("expected ErrEmptySequence, got %v", err)
	}

	f.start(t)
	if _, err := f.coord.Start(ctx, f.sequence, Metadata{}); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
	if !f.notices.Has(notify.NoticeInProgress) {
		t.Fatalf("expected in-progress notice")
	}
	cur, _ := f.coord.Current()
	if cur.ID != "suite_1" || cur.Metadata.Type != DefaultRecordType || cur.BaseExamID != "suite-suite_1" {
		t.Fatalf("first session must survive, got %+v", cur)
	}
}

func TestStartFailsWhenFirstPartCannotOpen(t *testing.T) {
	f := newFixture(t)
	f.opener.set(false, true)
	if _, err := f.coord.Start(context.Background(), f.sequence, Metadata{}); err == nil {
		t.Fatalf("expected start to fail")
	}
	if _, ok := f.coord.Current(); ok {
		t.Fatalf("failed start must not leave a session")
	}
	if !f.notices.Has(notify.NoticeCannotContinue) {
		t.Fatalf("expected cannot-continue notice")
	}
}

func TestAbandonSavesPartsIndividually(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)
	window, _ := s.Window.Get()
	f.complete(t, "p1-a", 3, 4)

	if err := f.coord.Abandon(context.Background(), "interrupted"); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if _, ok := f.coord.Current(); ok {
		t.Fatalf("expected session to be cleared")
	}
	if !window.Closed() {
		t.Fatalf("expected window to be closed")
	}
	records, _ := f.records.List(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected one single-part record, got %d", len(records))
	}
	if rec := records[0]; rec.MultiSuite || rec.ExamID != "p1-a" || rec.ScoreInfo.Correct != 3 || rec.ID != "suite_1_P1" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !f.notices.Has(fmt.Sprintf(notify.NoticeAbandoned, "interrupted")) {
		t.Fatalf("expected abandoned notice, got %+v", f.notices.Messages())
	}
	if err := f.coord.Abandon(context.Background(), "again"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestServeRunsSuiteToCompletion(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	inbox := make(chan surface.Envelope, 8)
	for _, exam := range []string{"p1-a", "p2-b", "p3-c"} {
		p := payload(1, 2)
		p.SessionID = exam + "_sid"
		inbox <- envelope(t, exam, p)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.coord.Serve(ctx, inbox); err != nil {
		t.Fatalf("serve: %v", err)
	}
	records, _ := f.records.List(context.Background())
	if len(records) != 1 || len(records[0].SuiteEntries) != 3 {
		t.Fatalf("expected one suite record, got %+v", records)
	}
	if err := f.coord.Serve(ctx, inbox); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession without a suite, got %v", err)
	}
}

func TestServeStopsOnContext(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.coord.Serve(ctx, make(chan surface.Envelope)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if _, ok := f.coord.Current(); !ok {
		t.Fatalf("cancelling Serve must not clear the session")
	}
}

func TestServeAbandonsAfterPartTimeout(t *testing.T) {
	notices := &notify.Recorder{}
	kv := newMemKV()
	coord := New(&fakeOpener{}, store.NewRecords(kv, 0), notices,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithPartTimeout(20*time.Millisecond))
	seq := []model.PartRef{{ExamID: "p1-a", Label: "P1"}, {ExamID: "p2-b", Label: "P2"}}
	if _, err := coord.Start(context.Background(), seq, Metadata{}); err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := coord.Serve(ctx, make(chan surface.Envelope)); !errors.Is(err, ErrPartTimeout) {
		t.Fatalf("expected ErrPartTimeout, got %v", err)
	}
	if _, ok := coord.Current(); ok {
		t.Fatalf("expected timed out session to be cleared")
	}
	if len(notices.Messages()) < 2 {
		t.Fatalf("expected start and abandon notices, got %+v", notices.Messages())
	}
}

func TestBuildSequence(t *testing.T) {
	index := []model.ExamIndexEntry{
		{ID: "p1-a", Title: "Alpha", Type: "reading", Category: "P1"},
		{ID: "p1-b", Title: "Bravo", Type: "reading", Category: "p1"},
		{ID: "p2-a", Title: "Charlie", Type: "Reading", Category: "P2"},
		{ID: "p3-l", Title: "Listening", Type: "listening", Category: "P3"},
		{ID: "p3-a", Title: "Delta", Type: "reading", Category: "P3"},
	}
	seq, err := BuildSequence(index, nil, "", rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(seq) != 3 {
		t.Fatalf("expected three parts, got %d", len(seq))
	}
	if seq[0].Label != "P1" || (seq[0].ExamID != "p1-a" && seq[0].ExamID != "p1-b") {
		t.Fatalf("unexpected P1 pick %+v", seq[0])
	}
	if seq[1].ExamID != "p2-a" || seq[2].ExamID != "p3-a" || seq[2].Title != "Delta" {
		t.Fatalf("unexpected sequence %+v", seq)
	}

	_, err = BuildSequence(index, []string{"P1", "P4"}, "reading", nil)
	if !errors.Is(err, ErrMissingCategory) {
		t.Fatalf("expected ErrMissingCategory, got %v", err)
	}
}
