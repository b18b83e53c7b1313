// Package store holds the client-side state slices (session, expenses,
// dashboard, assistant) and the operations that sync them with the backend.
//
// Every store is safe for concurrent use. Operations block until the backend
// answers; callers that want several in flight run them on separate
// goroutines. Results are folded back under the store's mutex according to
// the store's ordering policy, and Snapshot always returns a copy that
// shares no memory with the store.
//
// Stores never call each other. The only shared value is the session
// credential, which the session store writes and the transport reads.
package store

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/mmynk/spendsync/internal/apiclient"
	"github.com/mmynk/spendsync/internal/metrics"
	"github.com/mmynk/spendsync/internal/resource"
)

// API is the transport used by the stores. *apiclient.Client implements it.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any, fallback string) error
	Post(ctx context.Context, path string, body, out any, fallback string) error
	Put(ctx context.Context, path string, body, out any, fallback string) error
	Delete(ctx context.Context, path string, fallback string) error
	Upload(ctx context.Context, path, field string, file apiclient.File, out any, fallback string) error
}

var _ API = (*apiclient.Client)(nil)

// Deps are the collaborators shared by all stores.
type Deps struct {
	API API

	// Policy decides how racing responses to the same operation are ordered.
	Policy resource.Policy

	// Metrics may be nil.
	Metrics *metrics.Recorder

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now defaults to time.Now. Used for "today" and message timestamps.
	Now func() time.Time

	// OnChange is called after every state change, outside the store's lock.
	OnChange func()
}

// base carries what every store needs to run and settle an operation.
type base struct {
	name     string
	api      API
	policy   resource.Policy
	metrics  *metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time
	onChange func()
}

func newBase(name string, deps Deps) base {
	b := base{
		name:     name,
		api:      deps.API,
		policy:   deps.Policy,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      deps.Now,
		onChange: deps.OnChange,
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.logger = b.logger.With("store", name)
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

func (b *base) changed() {
	if b.onChange != nil {
		b.onChange()
	}
}

// begin starts a tracked request under mu.
func (b *base) begin(mu *sync.Mutex, tr *resource.Tracker, op string) (resource.Ticket, time.Time) {
	mu.Lock()
	ticket := tr.Begin()
	mu.Unlock()
	b.logger.Debug("Operation started", "operation", op, "ticket", ticket)
	b.changed()
	return ticket, time.Now()
}

// settle folds the result of a tracked request back into the store. apply
// runs under mu only when the tracker accepts the result. err is returned
// unchanged so callers can return settle's result directly.
func (b *base) settle(mu *sync.Mutex, tr *resource.Tracker, ticket resource.Ticket, op string, start time.Time, err error, apply func()) error {
	outcome := metrics.OutcomeOK
	mu.Lock()
	switch {
	case err != nil:
		if !tr.Reject(ticket, err) {
			outcome = metrics.OutcomeStale
		} else {
			outcome = metrics.OutcomeError
		}
	case tr.Fulfill(ticket):
		if apply != nil {
			apply()
		}
	default:
		outcome = metrics.OutcomeStale
	}
	mu.Unlock()

	b.record(op, outcome, ticket, start, err)
	b.changed()
	return err
}

// runGroup executes an independent request tracked by g under mu. apply runs
// under mu on success, unless g was reset while the request was in flight.
func (b *base) runGroup(mu *sync.Mutex, g *resource.Group, op string, call func() error, apply func()) error {
	mu.Lock()
	epoch := g.Begin()
	mu.Unlock()
	b.changed()
	start := time.Now()

	err := call()

	outcome := metrics.OutcomeOK
	mu.Lock()
	switch {
	case !g.Done(epoch, err):
		outcome = metrics.OutcomeStale
	case err != nil:
		outcome = metrics.OutcomeError
	case apply != nil:
		apply()
	}
	mu.Unlock()

	b.record(op, outcome, 0, start, err)
	b.changed()
	return err
}

func (b *base) record(op, outcome string, ticket resource.Ticket, start time.Time, err error) {
	b.metrics.Observe(b.name, op, outcome, start)
	switch outcome {
	case metrics.OutcomeError:
		b.logger.Warn("Operation failed", "operation", op, "ticket", ticket, "error", err)
	case metrics.OutcomeStale:
		b.logger.Debug("Discarded stale result", "operation", op, "ticket", ticket)
	default:
		b.logger.Debug("Operation settled", "operation", op, "ticket", ticket)
	}
}
