package store

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/mmynk/spendsync/internal/apiclient"
	"github.com/mmynk/spendsync/internal/models"
	"github.com/mmynk/spendsync/internal/resource"
)

const (
	msgFetchExpensesFailed = "Failed to fetch expenses"
	msgAddExpenseFailed    = "Failed to add expense"
	msgUpdateExpenseFailed = "Failed to update expense"
	msgDeleteExpenseFailed = "Failed to delete expense"
	msgUploadReceiptFailed = "Failed to upload receipt"
)

// ExpenseState is a snapshot of the expense store.
type ExpenseState struct {
	// Items is in server order, newest first.
	Items      []models.Expense
	Page       int
	TotalPages int

	// Query is the filter of the listing currently shown.
	Query models.ExpenseQuery

	// List tracks fetches. Mutation tracks add, update, delete and uploads.
	List     resource.State
	Mutation resource.State
}

// Expenses owns the current page of the expense listing.
type Expenses struct {
	base

	mu         sync.Mutex
	items      []models.Expense
	page       int
	totalPages int
	query      models.ExpenseQuery
	list       *resource.Tracker
	mutations  resource.Group
}

// NewExpenses creates an empty expense store showing page 1 of 1.
func NewExpenses(deps Deps) *Expenses {
	return &Expenses{
		base:       newBase("expenses", deps),
		page:       1,
		totalPages: 1,
		list:       resource.NewTracker(deps.Policy),
	}
}

// Snapshot returns a copy of the current state.
func (e *Expenses) Snapshot() ExpenseState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return ExpenseState{
		Items:      cloneExpenses(e.items),
		Page:       e.page,
		TotalPages: e.totalPages,
		Query:      e.query,
		List:       e.list.State(),
		Mutation:   e.mutations.State(),
	}
}

// Fetch replaces the listing with the page matching q. When several fetches
// race, the store's policy picks which response ends up shown.
func (e *Expenses) Fetch(ctx context.Context, q models.ExpenseQuery) error {
	ticket, start := e.begin(&e.mu, e.list, "fetch")

	var page models.ExpensePage
	err := e.api.Get(ctx, "/expenses", expenseQueryValues(q), &page, msgFetchExpensesFailed)
	return e.settle(&e.mu, e.list, ticket, "fetch", start, err, func() {
		e.items = page.Expenses
		e.totalPages = page.TotalPages
		e.page = page.CurrentPage
		e.query = q
	})
}

// Add validates in, posts it, and puts the created expense at the head of
// the listing without refetching. Validation failures never reach the network.
func (e *Expenses) Add(ctx context.Context, in models.ExpenseInput) (models.Expense, error) {
	draft, err := in.Validate(e.now())
	if err != nil {
		return models.Expense{}, err
	}

	var created models.Expense
	err = e.runGroup(&e.mu, &e.mutations, "add", func() error {
		return e.api.Post(ctx, "/expenses", draft, &created, msgAddExpenseFailed)
	}, func() {
		e.items = prependExpense(e.items, created)
	})
	return created, err
}

// Update sends patch for id and replaces the matching listed expense with
// the server's record. If id is not on the current page the listing is left
// as is; the update still succeeds.
func (e *Expenses) Update(ctx context.Context, id string, patch models.ExpensePatch) (models.Expense, error) {
	if id == "" {
		return models.Expense{}, &models.ValidationError{Field: "id", Message: "expense id is required"}
	}
	if err := patch.Validate(e.now()); err != nil {
		return models.Expense{}, err
	}

	var updated models.Expense
	err := e.runGroup(&e.mu, &e.mutations, "update", func() error {
		return e.api.Put(ctx, "/expenses/"+url.PathEscape(id), patch, &updated, msgUpdateExpenseFailed)
	}, func() {
		replaceExpense(e.items, updated)
	})
	return updated, err
}

// Delete removes id on the server and from the listing. Deleting an id that
// is not listed, or that the server no longer has, is not an error.
func (e *Expenses) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &models.ValidationError{Field: "id", Message: "expense id is required"}
	}
	return e.runGroup(&e.mu, &e.mutations, "delete", func() error {
		err := e.api.Delete(ctx, "/expenses/"+url.PathEscape(id), msgDeleteExpenseFailed)
		if remote, ok := apiclient.AsRemote(err); ok && remote.Status == http.StatusNotFound {
			return nil
		}
		return err
	}, func() {
		e.items = removeExpense(e.items, id)
	})
}

// UploadReceipt attaches file to an expense that already exists on the
// server and replaces the listed expense with the updated record.
func (e *Expenses) UploadReceipt(ctx context.Context, id string, file apiclient.File) (models.Expense, error) {
	if id == "" {
		return models.Expense{}, &models.ValidationError{Field: "id", Message: "expense id is required"}
	}
	if file.Body == nil {
		return models.Expense{}, &models.ValidationError{Field: "receipt", Message: "receipt file is required"}
	}

	var updated models.Expense
	err := e.runGroup(&e.mu, &e.mutations, "upload_receipt", func() error {
		return e.api.Upload(ctx, "/expenses/"+url.PathEscape(id)+"/receipt", "receipt", file, &updated, msgUploadReceiptFailed)
	}, func() {
		replaceExpense(e.items, updated)
	})
	return updated, err
}

// ClearError drops recorded listing and mutation failures.
func (e *Expenses) ClearError() {
	e.mu.Lock()
	e.list.ClearError()
	e.mutations.ClearError()
	e.mu.Unlock()
	e.changed()
}

// Reset empties the store, e.g. after logout. Fetches and mutations still in
// flight are discarded when they settle.
func (e *Expenses) Reset() {
	e.mu.Lock()
	e.items = nil
	e.page = 1
	e.totalPages = 1
	e.query = models.ExpenseQuery{}
	e.list.Reset()
	e.mutations.Reset()
	e.mu.Unlock()
	e.changed()
}

func expenseQueryValues(q models.ExpenseQuery) url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Category != "" {
		v.Set("category", string(q.Category))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// prependExpense returns a new slice with x first. An existing entry with the
// same ID is dropped so identities stay unique.
func prependExpense(items []models.Expense, x models.Expense) []models.Expense {
	out := make([]models.Expense, 0, len(items)+1)
	out = append(out, x)
	for _, it := range items {
		if it.ID != x.ID {
			out = append(out, it)
		}
	}
	return out
}

// replaceExpense overwrites the entry with x's ID in place. Snapshots never
// alias items, so in-place writes are safe.
func replaceExpense(items []models.Expense, x models.Expense) bool {
	for i := range items {
		if items[i].ID == x.ID {
			items[i] = x
			return true
		}
	}
	return false
}

func removeExpense(items []models.Expense, id string) []models.Expense {
	out := items[:0:0]
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func cloneExpenses(items []models.Expense) []models.Expense {
	if items == nil {
		return nil
	}
	out := make([]models.Expense, len(items))
	copy(out, items)
	return out
}
