// Package coordinator composes the stores into one read model. It is the
// only place that performs operations spanning several stores: restoring a
// session on start-up, logging out, and the add-then-upload expense flow.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/spendsync/internal/apiclient"
	"github.com/mmynk/spendsync/internal/credential"
	"github.com/mmynk/spendsync/internal/metrics"
	"github.com/mmynk/spendsync/internal/models"
	"github.com/mmynk/spendsync/internal/resource"
	"github.com/mmynk/spendsync/internal/store"
)

// Options configure a Coordinator. The zero value is usable.
type Options struct {
	// Policy orders racing responses within a store.
	Policy resource.Policy
	// Credentials persists the session credential. Nil keeps it in memory.
	Credentials credential.Store
	// Registerer receives the operation metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	Logger     *slog.Logger
	Now        func() time.Time
}

// State is one consistent view of every store.
type State struct {
	Session   store.SessionState
	Expenses  store.ExpenseState
	Dashboard store.DashboardState
	Assistant store.AssistantState
}

// PartialFailure reports a multi-step operation whose first step succeeded
// and a later one failed. The effects of the successful steps are kept.
type PartialFailure struct {
	// Expense is the record created by the first step.
	Expense models.Expense
	Step    string
	Err     error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("expense %s was saved but %s failed: %v", e.Expense.ID, e.Step, e.Err)
}

func (e *PartialFailure) Unwrap() error {
	return e.Err
}

// Coordinator owns the session, expense, dashboard and assistant stores.
type Coordinator struct {
	session   *store.Session
	expenses  *store.Expenses
	dashboard *store.Dashboard
	assistant *store.Assistant
	logger    *slog.Logger

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// New wires the stores to client. The client's credential source is set to
// the session store, so client must not yet be in use.
func New(client *apiclient.Client, opts Options) (*Coordinator, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var rec *metrics.Recorder
	if opts.Registerer != nil {
		var err error
		rec, err = metrics.NewRecorder(opts.Registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	c := &Coordinator{
		logger: logger,
		subs:   make(map[int]chan struct{}),
	}
	deps := store.Deps{
		API:      client,
		Policy:   opts.Policy,
		Metrics:  rec,
		Logger:   logger,
		Now:      opts.Now,
		OnChange: c.notify,
	}
	c.session = store.NewSession(deps, opts.Credentials)
	c.expenses = store.NewExpenses(deps)
	c.dashboard = store.NewDashboard(deps)
	c.assistant = store.NewAssistant(deps)
	client.SetCredentialSource(c.session)
	return c, nil
}

func (c *Coordinator) Session() *store.Session     { return c.session }
func (c *Coordinator) Expenses() *store.Expenses   { return c.expenses }
func (c *Coordinator) Dashboard() *store.Dashboard { return c.dashboard }
func (c *Coordinator) Assistant() *store.Assistant { return c.assistant }

// State returns a snapshot of every store. Each store is copied under its
// own lock, so stores may be from slightly different instants.
func (c *Coordinator) State() State {
	return State{
		Session:   c.session.Snapshot(),
		Expenses:  c.expenses.Snapshot(),
		Dashboard: c.dashboard.Snapshot(),
		Assistant: c.assistant.Snapshot(),
	}
}

// Subscribe returns a channel that receives a value after state changes.
// Notifications coalesce: a slow reader sees one pending tick, not one per
// change. Call cancel to stop receiving; the channel is then closed.
func (c *Coordinator) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (c *Coordinator) notify() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Restore loads a persisted credential and validates it with the backend.
// An invalid credential clears itself; that is not reported as an error.
func (c *Coordinator) Restore(ctx context.Context) error {
	if err := c.session.Restore(ctx); err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}
	if c.session.Credential() == "" {
		return nil
	}
	if err := c.session.FetchCurrentUser(ctx); err != nil {
		c.logger.Info("Stored credential rejected", "error", err)
	}
	return nil
}

// Logout signs out and empties every store. Results of requests started
// before Logout are discarded.
func (c *Coordinator) Logout(ctx context.Context) {
	c.session.Logout(ctx)
	c.expenses.Reset()
	c.dashboard.Reset()
	c.assistant.Reset()
}

// SubmitExpense adds an expense and, when receipt is not nil, attaches it
// once the expense exists. If the upload fails the created expense stays
// listed and a *PartialFailure is returned.
func (c *Coordinator) SubmitExpense(ctx context.Context, in models.ExpenseInput, receipt *apiclient.File) (models.Expense, error) {
	created, err := c.expenses.Add(ctx, in)
	if err != nil {
		return models.Expense{}, err
	}
	if receipt == nil {
		return created, nil
	}

	updated, err := c.expenses.UploadReceipt(ctx, created.ID, *receipt)
	if err != nil {
		return created, &PartialFailure{Expense: created, Step: "receipt upload", Err: err}
	}
	return updated, nil
}

// Chat appends the user's message and asks for a reply.
func (c *Coordinator) Chat(ctx context.Context, text string) error {
	if _, err := c.assistant.PostUserMessage(text); err != nil {
		return err
	}
	return c.assistant.SendChatMessage(ctx, text)
}

// Refresh reloads the expense listing with its current query, the dashboard
// and the spending trend concurrently. Every failure is also recorded on its
// store.
func (c *Coordinator) Refresh(ctx context.Context) error {
	query := c.expenses.Snapshot().Query
	calls := []func() error{
		func() error { return c.expenses.Fetch(ctx, query) },
		func() error { return c.dashboard.Fetch(ctx) },
		func() error { return c.dashboard.FetchTrend(ctx, store.DefaultTrendMonths) },
	}

	errs := make([]error, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = call()
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
