package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rnks2003/proj-sitesense/internal/api"
	"github.com/rnks2003/proj-sitesense/internal/model"
)

// fakeClock records requested delays and returns immediately. An optional
// hook runs before each sleep so tests can interleave controller calls
// with the poll loop.
type fakeClock struct {
	mu      sync.Mutex
	sleeps  []time.Duration
	onSleep func(d time.Duration)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	hook := c.onSleep
	c.mu.Unlock()
	if hook != nil {
		hook(d)
	}
	return nil
}

func (c *fakeClock) slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type getResult struct {
	rec *model.ScanRecord
	err error
}

// fakeRemote serves scripted responses. Get results are consumed in
// order; the last one repeats once the script is exhausted.
type fakeRemote struct {
	mu         sync.Mutex
	createRec  *model.ScanRecord
	createErr  error
	getResults []getResult
	getCalls   int
	deleted    []string
	deleteErr  error
	cleared    bool
	clearErr   error
	listRecs   []model.ScanRecord
	listErr    error
}

func (r *fakeRemote) List(_ context.Context) ([]model.ScanRecord, error) {
	return r.listRecs, r.listErr
}

func (r *fakeRemote) Create(_ context.Context, _ string) (*model.ScanRecord, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	rec := *r.createRec
	return &rec, nil
}

func (r *fakeRemote) Get(_ context.Context, _ string) (*model.ScanRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.getCalls
	if idx >= len(r.getResults) {
		idx = len(r.getResults) - 1
	}
	r.getCalls++
	res := r.getResults[idx]
	if res.err != nil {
		return nil, res.err
	}
	rec := *res.rec
	return &rec, nil
}

func (r *fakeRemote) getCallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getCalls
}

func (r *fakeRemote) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return r.deleteErr
}

func (r *fakeRemote) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = true
	return r.clearErr
}

// fakeStore is a map-backed Store with injectable failures.
type fakeStore struct {
	mu        sync.Mutex
	records   map[string]*model.ScanRecord
	puts      int
	putErr    error
	getErr    error
	getAllErr error
	deleteErr error
	clearErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*model.ScanRecord)}
}

func (s *fakeStore) Put(_ context.Context, record *model.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.puts++
	rec := *record
	s.records[record.ID] = &rec
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*model.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) GetAll(_ context.Context) ([]model.ScanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getAllErr != nil {
		return nil, s.getAllErr
	}
	out := make([]model.ScanRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.records, id)
	return nil
}

func (s *fakeStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.records = make(map[string]*model.ScanRecord)
	return nil
}

func (s *fakeStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func (s *fakeStore) stored(id string) *model.ScanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

// recordingSink captures status lines and history refresh notifications.
type recordingSink struct {
	mu             sync.Mutex
	statuses       []string
	historyChanges int
}

func (s *recordingSink) Status(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, text)
}

func (s *recordingSink) HistoryChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyChanges++
}

func (s *recordingSink) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.statuses...)
}

func (s *recordingSink) historyChanged() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyChanges
}

func (s *recordingSink) contains(text string) bool {
	for _, line := range s.lines() {
		if line == text {
			return true
		}
	}
	return false
}

func queuedRecord(id string) *model.ScanRecord {
	return &model.ScanRecord{
		ID:        id,
		URL:       "https://example.com",
		Status:    model.StatusQueued,
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func completedRecord(id string) *model.ScanRecord {
	rec := queuedRecord(id)
	rec.Status = model.StatusCompleted
	return rec
}

func failedRecord(id, message string) *model.ScanRecord {
	rec := queuedRecord(id)
	rec.Status = model.StatusFailed
	rec.ErrorMessage = message
	return rec
}

func testPolicy() Policy {
	p := DefaultPolicy()
	p.TransportRetries = 0
	return p
}

func newTestController(remote Remote, store Store, sink Sink, clock Clock, policy Policy) *Controller {
	return New(remote, store,
		WithSink(sink),
		WithClock(clock),
		WithPolicy(policy),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestControllerCreate(t *testing.T) {
	t.Parallel()

	t.Run("invalid URL is rejected without a network call", func(t *testing.T) {
		t.Parallel()

		remote := &fakeRemote{}
		sink := &recordingSink{}
		c := newTestController(remote, newFakeStore(), sink, &fakeClock{}, testPolicy())

		if _, err := c.Create(context.Background(), "not a url"); err == nil {
			t.Fatal("Create() with invalid URL should return an error")
		}
		if got := remote.getCallCount(); got != 0 {
			t.Errorf("remote should not be contacted, got %d calls", got)
		}
		if !sink.contains("Please enter a valid URL") {
			t.Errorf("expected validation status line, got %v", sink.lines())
		}
	})

	t.Run("queued scan is polled to completion", func(t *testing.T) {
		t.Parallel()

		remote := &fakeRemote{
			createRec: queuedRecord("scan-1"),
			getResults: []getResult{
				{rec: queuedRecord("scan-1")},
				{rec: queuedRecord("scan-1")},
				{rec: completedRecord("scan-1")},
			},
		}
		store := newFakeStore()
		sink := &recordingSink{}
		clock := &fakeClock{}
		c := newTestController(remote, store, sink, clock, testPolicy())

		record, err := c.Create(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if record.Status != model.StatusCompleted {
			t.Errorf("Status = %q, want %q", record.Status, model.StatusCompleted)
		}
		if got := c.State(); got != StateResults {
			t.Errorf("State() = %v, want %v", got, StateResults)
		}
		if got := c.CurrentScanID(); got != "scan-1" {
			t.Errorf("CurrentScanID() = %q, want %q", got, "scan-1")
		}
		if !sink.contains("Creating scan...") {
			t.Errorf("missing creation status, got %v", sink.lines())
		}
		// Both the queued record and the completed record are cached.
		if got := store.putCount(); got != 2 {
			t.Errorf("store puts = %d, want 2", got)
		}
		if got := store.stored("scan-1"); got == nil || got.Status != model.StatusCompleted {
			t.Errorf("cached record = %+v, want completed", got)
		}
		// Two queued responses, each with one poll interval delay.
		want := []time.Duration{DefaultPolicy().PollInterval, DefaultPolicy().PollInterval}
		got := clock.slept()
		if len(got) != len(want) {
			t.Fatalf("sleeps = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("sleep[%d] = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("creation failure resets to idle after the error delay", func(t *testing.T) {
		t.Parallel()

		remote := &fakeRemote{createErr: errors.New("service unavailable")}
		sink := &recordingSink{}
		clock := &fakeClock{}
		c := newTestController(remote, newFakeStore(), sink, clock, testPolicy())

		if _, err := c.Create(context.Background(), "https://example.com"); err == nil {
			t.Fatal("Create() should propagate the creation error")
		}
		if !sink.contains("Error: service unavailable") {
			t.Errorf("missing error status, got %v", sink.lines())
		}
		if got := c.State(); got != StateIdle {
			t.Errorf("State() = %v, want %v", got, StateIdle)
		}
		sleeps := clock.slept()
		if len(sleeps) != 1 || sleeps[0] != DefaultPolicy().CreateErrorResetDelay {
			t.Errorf("sleeps = %v, want single %v", sleeps, DefaultPolicy().CreateErrorResetDelay)
		}
	})
}

func TestControllerPollFailure(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{
		createRec: queuedRecord("scan-2"),
		getResults: []getResult{
			{rec: queuedRecord("scan-2")},
			{rec: failedRecord("scan-2", "robots.txt unreachable")},
		},
	}
	store := newFakeStore()
	sink := &recordingSink{}
	clock := &fakeClock{}
	c := newTestController(remote, store, sink, clock, testPolicy())

	record, err := c.Create(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if record.Status != model.StatusFailed {
		t.Errorf("Status = %q, want %q", record.Status, model.StatusFailed)
	}
	if !sink.contains("Scan failed: robots.txt unreachable") {
		t.Errorf("missing failure status, got %v", sink.lines())
	}
	if got := c.State(); got != StateError {
		t.Errorf("State() = %v, want %v", got, StateError)
	}
	// The failed record reaches the cache, and the redisplay reloads it
	// from there without another remote read.
	if got := store.stored("scan-2"); got == nil || got.Status != model.StatusFailed {
		t.Errorf("cached record = %+v, want failed", got)
	}
	foundRedisplay := false
	for _, d := range clock.slept() {
		if d == DefaultPolicy().FailureRedisplayDelay {
			foundRedisplay = true
		}
	}
	if !foundRedisplay {
		t.Errorf("expected a %v redisplay delay, got %v", DefaultPolicy().FailureRedisplayDelay, clock.slept())
	}
}

func TestControllerPollTimeout(t *testing.T) {
	t.Parallel()

	t.Run("still queued after the follow-up read", func(t *testing.T) {
		t.Parallel()

		policy := testPolicy()
		policy.MaxPollAttempts = 3

		remote := &fakeRemote{
			createRec:  queuedRecord("scan-3"),
			getResults: []getResult{{rec: queuedRecord("scan-3")}},
		}
		sink := &recordingSink{}
		clock := &fakeClock{}
		c := newTestController(remote, newFakeStore(), sink, clock, policy)

		_, err := c.Create(context.Background(), "https://example.com")
		if !errors.Is(err, ErrPollTimeout) {
			t.Fatalf("Create() error = %v, want ErrPollTimeout", err)
		}
		if !sink.contains("Scan timed out") {
			t.Errorf("missing timeout status, got %v", sink.lines())
		}
		if got := c.State(); got != StateError {
			t.Errorf("State() = %v, want %v", got, StateError)
		}
		// Budget polls plus exactly one follow-up read, no resumed polling.
		if got := remote.getCallCount(); got != policy.MaxPollAttempts+1 {
			t.Errorf("remote reads = %d, want %d", got, policy.MaxPollAttempts+1)
		}
	})

	t.Run("scan completed during the fallback delay", func(t *testing.T) {
		t.Parallel()

		policy := testPolicy()
		policy.MaxPollAttempts = 2

		remote := &fakeRemote{
			createRec: queuedRecord("scan-4"),
			getResults: []getResult{
				{rec: queuedRecord("scan-4")},
				{rec: queuedRecord("scan-4")},
				{rec: completedRecord("scan-4")},
			},
		}
		store := newFakeStore()
		sink := &recordingSink{}
		c := newTestController(remote, store, sink, &fakeClock{}, policy)

		record, err := c.Create(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if record.Status != model.StatusCompleted {
			t.Errorf("Status = %q, want %q", record.Status, model.StatusCompleted)
		}
		if got := c.State(); got != StateResults {
			t.Errorf("State() = %v, want %v", got, StateResults)
		}
		if got := store.stored("scan-4"); got == nil || got.Status != model.StatusCompleted {
			t.Errorf("cached record = %+v, want completed", got)
		}
	})
}

func TestControllerLoad(t *testing.T) {
	t.Parallel()

	t.Run("cached completed record needs no remote read", func(t *testing.T) {
		t.Parallel()

		remote := &fakeRemote{getResults: []getResult{{err: errors.New("should not be called")}}}
		store := newFakeStore()
		if err := store.Put(context.Background(), completedRecord("scan-5")); err != nil {
			t.Fatal(err)
		}
		c := newTestController(remote, store, &recordingSink{}, &fakeClock{}, testPolicy())

		record, err := c.Load(context.Background(), "scan-5")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if record.Status != model.StatusCompleted {
			t.Errorf("Status = %q, want %q", record.Status, model.StatusCompleted)
		}
		if got := remote.getCallCount(); got != 0 {
			t.Errorf("remote reads = %d, want 0", got)
		}
		if got := c.State(); got != StateResults {
			t.Errorf("State() = %v, want %v", got, StateResults)
		}
	})

	t.Run("cached failed record shows the stored message", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		if err := store.Put(context.Background(), failedRecord("scan-6", "")); err != nil {
			t.Fatal(err)
		}
		sink := &recordingSink{}
		c := newTestController(&fakeRemote{}, store, sink, &fakeClock{}, testPolicy())

		if _, err := c.Load(context.Background(), "scan-6"); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !sink.contains("Scan failed: Unknown error") {
			t.Errorf("missing fallback failure message, got %v", sink.lines())
		}
		if got := c.State(); got != StateError {
			t.Errorf("State() = %v, want %v", got, StateError)
		}
	})

	t.Run("cache miss falls back to the remote and backfills", func(t *testing.T) {
		t.Parallel()

		remote := &fakeRemote{getResults: []getResult{{rec: completedRecord("scan-7")}}}
		store := newFakeStore()
		sink := &recordingSink{}
		c := newTestController(remote, store, sink, &fakeClock{}, testPolicy())

		record, err := c.Load(context.Background(), "scan-7")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if record.Status != model.StatusCompleted {
			t.Errorf("Status = %q, want %q", record.Status, model.StatusCompleted)
		}
		if got := store.stored("scan-7"); got == nil {
			t.Error("completed record should be backfilled into the cache")
		}
		if got := sink.historyChanged(); got != 1 {
			t.Errorf("history refreshes = %d, want 1", got)
		}
	})

	t.Run("unreadable cache is treated as a miss", func(t *testing.T) {
		t.Parallel()

		remote := &fakeRemote{getResults: []getResult{{rec: completedRecord("scan-8")}}}
		store := newFakeStore()
		store.getErr = errors.New("database locked")
		c := newTestController(remote, store, &recordingSink{}, &fakeClock{}, testPolicy())

		record, err := c.Load(context.Background(), "scan-8")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if record.ID != "scan-8" {
			t.Errorf("ID = %q, want %q", record.ID, "scan-8")
		}
	})

	t.Run("unknown scan surfaces the remote error", func(t *testing.T) {
		t.Parallel()

		notFound := &api.StatusError{Operation: "get scan", Code: 404, Detail: "Scan not found"}
		remote := &fakeRemote{getResults: []getResult{{err: notFound}}}
		c := newTestController(remote, newFakeStore(), &recordingSink{}, &fakeClock{}, testPolicy())

		if _, err := c.Load(context.Background(), "missing"); !errors.Is(err, api.ErrNotFound) {
			t.Fatalf("Load() error = %v, want ErrNotFound", err)
		}
		if got := c.State(); got != StateError {
			t.Errorf("State() = %v, want %v", got, StateError)
		}
	})
}

func TestControllerSupersede(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{
		createRec:  queuedRecord("scan-9"),
		getResults: []getResult{{rec: queuedRecord("scan-9")}},
	}
	store := newFakeStore()
	if err := store.Put(context.Background(), completedRecord("other")); err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{}
	c := newTestController(remote, store, sink, nil, testPolicy())

	// Deleting the active scan from the sleep hook supersedes the poll
	// loop mid-flight.
	clock := &fakeClock{}
	clock.onSleep = func(time.Duration) {
		clock.mu.Lock()
		first := len(clock.sleeps) == 1
		clock.mu.Unlock()
		if first {
			if err := c.Delete(context.Background(), "scan-9"); err != nil {
				t.Errorf("Delete() error = %v", err)
			}
		}
	}
	c.clock = clock

	if _, err := c.Create(context.Background(), "https://example.com"); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("Create() error = %v, want ErrSuperseded", err)
	}
	if got := c.State(); got != StateIdle {
		t.Errorf("State() = %v, want %v", got, StateIdle)
	}
	if got := c.CurrentScanID(); got != "" {
		t.Errorf("CurrentScanID() = %q, want empty", got)
	}
}

func TestControllerDelete(t *testing.T) {
	t.Parallel()

	t.Run("removes locally and remotely", func(t *testing.T) {
		t.Parallel()

		remote := &fakeRemote{}
		store := newFakeStore()
		if err := store.Put(context.Background(), completedRecord("scan-10")); err != nil {
			t.Fatal(err)
		}
		sink := &recordingSink{}
		c := newTestController(remote, store, sink, &fakeClock{}, testPolicy())

		if err := c.Delete(context.Background(), "scan-10"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if got := store.stored("scan-10"); got != nil {
			t.Error("record should be removed from the cache")
		}
		if len(remote.deleted) != 1 || remote.deleted[0] != "scan-10" {
			t.Errorf("remote deletions = %v, want [scan-10]", remote.deleted)
		}
		if got := sink.historyChanged(); got != 1 {
			t.Errorf("history refreshes = %d, want 1", got)
		}
	})

	t.Run("remote failure does not undo the local delete", func(t *testing.T) {
		t.Parallel()

		remote := &fakeRemote{deleteErr: errors.New("connection refused")}
		store := newFakeStore()
		if err := store.Put(context.Background(), completedRecord("scan-11")); err != nil {
			t.Fatal(err)
		}
		c := newTestController(remote, store, &recordingSink{}, &fakeClock{}, testPolicy())

		if err := c.Delete(context.Background(), "scan-11"); err == nil {
			t.Fatal("Delete() should report the remote failure")
		}
		if got := store.stored("scan-11"); got != nil {
			t.Error("local delete should stand despite the remote failure")
		}
	})
}

func TestControllerClearAll(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{}
	store := newFakeStore()
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Put(context.Background(), completedRecord(id)); err != nil {
			t.Fatal(err)
		}
	}
	sink := &recordingSink{}
	c := newTestController(remote, store, sink, &fakeClock{}, testPolicy())

	if err := c.ClearAll(context.Background()); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if records, _ := store.GetAll(context.Background()); len(records) != 0 {
		t.Errorf("cache holds %d records after clear, want 0", len(records))
	}
	if !remote.cleared {
		t.Error("remote clear should be requested")
	}
	if got := c.State(); got != StateIdle {
		t.Errorf("State() = %v, want %v", got, StateIdle)
	}
}

func TestControllerHistory(t *testing.T) {
	t.Parallel()

	t.Run("served from the cache", func(t *testing.T) {
		t.Parallel()

		remote := &fakeRemote{listErr: errors.New("should not be called")}
		store := newFakeStore()
		if err := store.Put(context.Background(), completedRecord("scan-12")); err != nil {
			t.Fatal(err)
		}
		c := newTestController(remote, store, &recordingSink{}, &fakeClock{}, testPolicy())

		records, err := c.History(context.Background())
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(records) != 1 {
			t.Errorf("len(records) = %d, want 1", len(records))
		}
	})

	t.Run("falls back to the remote listing", func(t *testing.T) {
		t.Parallel()

		remote := &fakeRemote{listRecs: []model.ScanRecord{*completedRecord("scan-13")}}
		store := newFakeStore()
		store.getAllErr = errors.New("database locked")
		c := newTestController(remote, store, &recordingSink{}, &fakeClock{}, testPolicy())

		records, err := c.History(context.Background())
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(records) != 1 || records[0].ID != "scan-13" {
			t.Errorf("records = %v, want the remote listing", records)
		}
	})
}

func TestControllerTransportRetry(t *testing.T) {
	t.Parallel()

	t.Run("transient transport failure is retried", func(t *testing.T) {
		t.Parallel()

		policy := testPolicy()
		policy.TransportRetries = 2

		remote := &fakeRemote{
			createRec: queuedRecord("scan-14"),
			getResults: []getResult{
				{err: errors.New("connection reset")},
				{rec: completedRecord("scan-14")},
			},
		}
		c := newTestController(remote, newFakeStore(), &recordingSink{}, &fakeClock{}, policy)

		record, err := c.Create(context.Background(), "https://example.com")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if record.Status != model.StatusCompleted {
			t.Errorf("Status = %q, want %q", record.Status, model.StatusCompleted)
		}
		if got := remote.getCallCount(); got != 2 {
			t.Errorf("remote reads = %d, want 2", got)
		}
	})

	t.Run("HTTP error responses are not retried", func(t *testing.T) {
		t.Parallel()

		policy := testPolicy()
		policy.TransportRetries = 5

		notFound := &api.StatusError{Operation: "get scan", Code: 404, Detail: "Scan not found"}
		remote := &fakeRemote{
			createRec:  queuedRecord("scan-15"),
			getResults: []getResult{{err: notFound}},
		}
		c := newTestController(remote, newFakeStore(), &recordingSink{}, &fakeClock{}, policy)

		if _, err := c.Create(context.Background(), "https://example.com"); !errors.Is(err, api.ErrNotFound) {
			t.Fatalf("Create() error = %v, want ErrNotFound", err)
		}
		if got := remote.getCallCount(); got != 1 {
			t.Errorf("remote reads = %d, want 1 (no retries)", got)
		}
	})
}
