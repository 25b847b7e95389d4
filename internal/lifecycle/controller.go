package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/rnks2003/proj-sitesense/internal/api"
	"github.com/rnks2003/proj-sitesense/internal/config"
	"github.com/rnks2003/proj-sitesense/internal/model"
)

// State is the controller's observable lifecycle state for the active scan.
type State int

// Controller states.
const (
	// StateIdle means no scan is selected.
	StateIdle State = iota

	// StateCreating means a scan creation request is in flight.
	StateCreating

	// StatePolling means the active scan is queued and being polled.
	StatePolling

	// StateResults means the active scan completed and results are shown.
	StateResults

	// StateError means the active scan failed or the last operation
	// surfaced an error.
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCreating:
		return "creating"
	case StatePolling:
		return "polling"
	case StateResults:
		return "displaying-results"
	case StateError:
		return "displaying-error"
	default:
		return "unknown"
	}
}

// Remote is the subset of the scan service client the controller uses.
type Remote interface {
	List(ctx context.Context) ([]model.ScanRecord, error)
	Create(ctx context.Context, target string) (*model.ScanRecord, error)
	Get(ctx context.Context, id string) (*model.ScanRecord, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Store is the subset of the local cache the controller uses.
type Store interface {
	Put(ctx context.Context, record *model.ScanRecord) error
	Get(ctx context.Context, id string) (*model.ScanRecord, error)
	GetAll(ctx context.Context) ([]model.ScanRecord, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Policy bundles the timing constants governing a scan lifecycle.
type Policy struct {
	// PollInterval is the delay between status polls.
	PollInterval time.Duration

	// MaxPollAttempts bounds the number of polls before timing out.
	MaxPollAttempts int

	// FailureRedisplayDelay is the pause between showing a failure
	// message and re-loading the scan into its terminal display.
	FailureRedisplayDelay time.Duration

	// TimeoutFallbackDelay is the pause before the single direct read
	// that follows an exhausted polling budget.
	TimeoutFallbackDelay time.Duration

	// CreateErrorResetDelay is the pause before returning to idle after
	// a failed creation.
	CreateErrorResetDelay time.Duration

	// TransportRetries is the number of backoff retries applied to a
	// poll read that fails at the transport level. Non-success HTTP
	// responses are never retried; the service answered.
	TransportRetries uint64
}

// DefaultPolicy returns the standard lifecycle policy.
func DefaultPolicy() Policy {
	return Policy{
		PollInterval:          config.DefaultPollInterval,
		MaxPollAttempts:       config.DefaultMaxPollAttempts,
		FailureRedisplayDelay: config.DefaultFailureRedisplayDelay,
		TimeoutFallbackDelay:  config.DefaultTimeoutFallbackDelay,
		CreateErrorResetDelay: config.DefaultCreateErrorResetDelay,
		TransportRetries:      3,
	}
}

// PolicyFromConfig builds a Policy from application configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	p := DefaultPolicy()
	p.PollInterval = cfg.PollInterval
	p.MaxPollAttempts = cfg.MaxPollAttempts
	p.FailureRedisplayDelay = cfg.FailureRedisplayDelay
	p.TimeoutFallbackDelay = cfg.TimeoutFallbackDelay
	p.CreateErrorResetDelay = cfg.CreateErrorResetDelay
	return p
}

// Controller orchestrates scan creation, polling, loading, and deletion,
// reconciling the remote service with the local cache. One scan is active
// at a time; starting a new Create or Load supersedes any sequence still
// in flight and silences its side effects.
type Controller struct {
	remote Remote
	store  Store
	sink   Sink
	logger *slog.Logger
	clock  Clock
	policy Policy

	// mu guards the fields below.
	mu         sync.Mutex
	state      State
	currentID  string
	generation uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithSink sets the presentation sink. Defaults to NopSink.
func WithSink(sink Sink) Option {
	return func(c *Controller) {
		c.sink = sink
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithClock sets the clock used for poll delays. Tests inject a fake.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithPolicy sets the lifecycle timing policy.
func WithPolicy(policy Policy) Option {
	return func(c *Controller) {
		c.policy = policy
	}
}

// New creates a Controller over the given remote client and local store.
func New(remote Remote, store Store, opts ...Option) *Controller {
	c := &Controller{
		remote: remote,
		store:  store,
		sink:   NopSink{},
		clock:  realClock{},
		policy: DefaultPolicy(),
		state:  StateIdle,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentScanID returns the active scan's identifier, or empty when idle.
func (c *Controller) CurrentScanID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID
}

// begin starts a new lifecycle sequence: it supersedes any sequence in
// flight, records the new state and active scan, and returns the
// generation token the sequence must present for its side effects.
func (c *Controller) begin(state State, scanID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = state
	c.currentID = scanID
	return c.generation
}

// stale reports whether the sequence holding gen has been superseded.
func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation
}

// setState transitions the state, unless the sequence is superseded.
func (c *Controller) setState(gen uint64, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.state = state
}

// setCurrent records the active scan id, unless the sequence is superseded.
func (c *Controller) setCurrent(gen uint64, scanID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return
	}
	c.currentID = scanID
}

// emitStatus forwards a status line to the sink, unless superseded.
func (c *Controller) emitStatus(gen uint64, text string) {
	if c.stale(gen) {
		return
	}
	c.sink.Status(text)
}

// persist writes a record to the cache and refreshes the history view.
// Cache failures are logged and swallowed: the in-memory record remains
// the source for rendering even when persistence fails.
func (c *Controller) persist(ctx context.Context, gen uint64, record *model.ScanRecord) {
	if c.stale(gen) {
		return
	}

	if err := c.store.Put(ctx, record); err != nil {
		c.logger.Warn("failed to cache scan record", "scan_id", record.ID, "error", err)
	}

	if !c.stale(gen) {
		c.sink.HistoryChanged()
	}
}

// Create validates the target URL, submits a new scan, caches the queued
// record, and polls it to a terminal state. Validation failures are
// reported without any network call.
func (c *Controller) Create(ctx context.Context, target string) (*model.ScanRecord, error) {
	if err := api.ValidateTargetURL(target); err != nil {
		c.sink.Status("Please enter a valid URL")
		return nil, err
	}

	gen := c.begin(StateCreating, "")
	c.emitStatus(gen, "Creating scan...")

	record, err := c.remote.Create(ctx, target)
	if err != nil {
		c.emitStatus(gen, "Error: "+err.Error())
		if sleepErr := c.clock.Sleep(ctx, c.policy.CreateErrorResetDelay); sleepErr != nil {
			return nil, errors.Join(err, sleepErr)
		}
		c.setState(gen, StateIdle)
		return nil, err
	}

	c.setCurrent(gen, record.ID)
	c.persist(ctx, gen, record)

	return c.poll(ctx, gen, record)
}

// Load selects an existing scan: cache first, then the remote service.
// A cached record is used as-is with no implicit remote refresh; a cached
// queued record re-enters polling from the cached snapshot. A completed
// record fetched from the remote service is backfilled into the cache so
// subsequent loads of the same id need no second fetch.
func (c *Controller) Load(ctx context.Context, id string) (*model.ScanRecord, error) {
	gen := c.begin(StatePolling, id)
	c.emitStatus(gen, "Loading scan...")

	cached, err := c.store.Get(ctx, id)
	if err != nil {
		// Treat an unreadable cache as a miss and fall back to the
		// remote source.
		c.logger.Warn("cache read failed, falling back to remote", "scan_id", id, "error", err)
		cached = nil
	}

	if cached != nil {
		return c.display(ctx, gen, cached, false)
	}

	record, err := c.remote.Get(ctx, id)
	if err != nil {
		c.emitStatus(gen, "Error: "+err.Error())
		c.setState(gen, StateError)
		return nil, err
	}

	return c.display(ctx, gen, record, true)
}

// display routes a loaded record to its terminal presentation, or back
// into polling when it is still queued. backfill persists completed
// records that came from the remote fallback path.
func (c *Controller) display(ctx context.Context, gen uint64, record *model.ScanRecord, backfill bool) (*model.ScanRecord, error) {
	switch record.Status {
	case model.StatusCompleted:
		if backfill {
			c.persist(ctx, gen, record)
		}
		c.setState(gen, StateResults)
		return record, nil

	case model.StatusFailed:
		c.emitStatus(gen, "Scan failed: "+record.DisplayError())
		c.setState(gen, StateError)
		return record, nil

	case model.StatusQueued:
		c.emitStatus(gen, "Scan is queued...")
		return c.poll(ctx, gen, record)

	default:
		c.logger.Warn("unknown scan status", "scan_id", record.ID, "status", record.Status)
		c.emitStatus(gen, fmt.Sprintf("Status: %s...", record.Status))
		return c.poll(ctx, gen, record)
	}
}

// poll drives a queued scan to a terminal state. Polls are strictly
// sequential: the next tick is scheduled only after the previous response
// is processed. The attempt budget gives a hard ceiling; when it is
// exhausted the controller reports a timeout and performs exactly one
// direct follow-up read instead of resuming polling.
func (c *Controller) poll(ctx context.Context, gen uint64, record *model.ScanRecord) (*model.ScanRecord, error) {
	c.setState(gen, StatePolling)

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.stale(gen) {
			return nil, ErrSuperseded
		}

		if attempts >= c.policy.MaxPollAttempts {
			c.emitStatus(gen, "Scan timed out")
			if err := c.clock.Sleep(ctx, c.policy.TimeoutFallbackDelay); err != nil {
				return nil, err
			}
			return c.directLoad(ctx, gen, record.ID)
		}

		fetched, err := c.getWithRetry(ctx, record.ID)
		if err != nil {
			c.emitStatus(gen, "Error: "+err.Error())
			c.setState(gen, StateError)
			return nil, err
		}
		if c.stale(gen) {
			return nil, ErrSuperseded
		}

		c.emitStatus(gen, fmt.Sprintf("Status: %s...", fetched.Status))

		switch fetched.Status {
		case model.StatusCompleted:
			c.persist(ctx, gen, fetched)
			c.setState(gen, StateResults)
			return fetched, nil

		case model.StatusFailed:
			c.persist(ctx, gen, fetched)
			c.emitStatus(gen, "Scan failed: "+fetched.DisplayError())
			if err := c.clock.Sleep(ctx, c.policy.FailureRedisplayDelay); err != nil {
				return nil, err
			}
			// Re-entering Load is idempotent for a terminal record and
			// leaves the controller in its terminal display state.
			return c.Load(ctx, fetched.ID)

		default:
			attempts++
			if err := c.clock.Sleep(ctx, c.policy.PollInterval); err != nil {
				return nil, err
			}
		}
	}
}

// directLoad is the single follow-up read after an exhausted poll budget.
// Unlike Load it never re-enters polling: a still-queued scan yields
// ErrPollTimeout.
func (c *Controller) directLoad(ctx context.Context, gen uint64, id string) (*model.ScanRecord, error) {
	record, err := c.remote.Get(ctx, id)
	if err != nil {
		c.emitStatus(gen, "Error: "+err.Error())
		c.setState(gen, StateError)
		return nil, err
	}

	switch record.Status {
	case model.StatusCompleted:
		c.persist(ctx, gen, record)
		c.setState(gen, StateResults)
		return record, nil

	case model.StatusFailed:
		c.persist(ctx, gen, record)
		c.emitStatus(gen, "Scan failed: "+record.DisplayError())
		c.setState(gen, StateError)
		return record, nil

	default:
		c.setState(gen, StateError)
		return record, ErrPollTimeout
	}
}

// getWithRetry reads a scan's status, retrying transport-level failures
// with exponential backoff up to the policy's retry budget. Non-success
// HTTP responses are permanent: the service answered, so retrying would
// only repeat the same result.
func (c *Controller) getWithRetry(ctx context.Context, id string) (*model.ScanRecord, error) {
	var record *model.ScanRecord

	operation := func() error {
		fetched, err := c.remote.Get(ctx, id)
		if err != nil {
			var se *api.StatusError
			if errors.As(err, &se) {
				return backoff.Permanent(err)
			}
			c.logger.Debug("poll transport failure, will retry", "scan_id", id, "error", err)
			return err
		}
		record = fetched
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxElapsedTime = 0 // Bounded by retry count, not elapsed time.

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(expBackoff, c.policy.TransportRetries), ctx))
	if err != nil {
		return nil, fmt.Errorf("poll scan %s: %w", id, err)
	}
	return record, nil
}

// History returns the scan history, newest first. The cache backs the
// view; when it is unavailable the remote listing is used instead.
func (c *Controller) History(ctx context.Context) ([]model.ScanRecord, error) {
	records, err := c.store.GetAll(ctx)
	if err != nil {
		c.logger.Warn("cache listing failed, falling back to remote", "error", err)
		return c.remote.List(ctx)
	}
	return records, nil
}

// Delete removes a scan from the local cache and requests remote deletion.
// The two steps are independent: a remote failure never rolls back a
// successful local delete, and vice versa. Deleting the active scan
// supersedes any in-flight sequence and returns the controller to idle.
func (c *Controller) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.currentID == id {
		c.generation++
		c.state = StateIdle
		c.currentID = ""
	}
	c.mu.Unlock()

	localErr := c.store.Delete(ctx, id)
	if localErr != nil {
		c.logger.Warn("failed to delete scan from cache", "scan_id", id, "error", localErr)
	} else {
		c.sink.HistoryChanged()
	}

	remoteErr := c.remote.Delete(ctx, id)
	if remoteErr != nil {
		c.logger.Warn("failed to delete scan from service", "scan_id", id, "error", remoteErr)
	}

	return errors.Join(localErr, remoteErr)
}

// ClearAll empties the local scan cache and requests a remote clear, with
// the same independent-failure semantics as Delete.
func (c *Controller) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	c.generation++
	c.state = StateIdle
	c.currentID = ""
	c.mu.Unlock()

	localErr := c.store.Clear(ctx)
	if localErr != nil {
		c.logger.Warn("failed to clear scan cache", "error", localErr)
	} else {
		c.sink.HistoryChanged()
	}

	remoteErr := c.remote.Clear(ctx)
	if remoteErr != nil {
		c.logger.Warn("failed to clear scans on service", "error", remoteErr)
	}

	return errors.Join(localErr, remoteErr)
}
