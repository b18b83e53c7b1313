package apitest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/spendsync/internal/auth"
	"github.com/mmynk/spendsync/internal/models"
)

// memoryDB holds all backend state. Expenses are kept per user in insertion
// order.
type memoryDB struct {
	mu       sync.Mutex
	accounts map[string]auth.Account // by email
	profiles map[string]models.Profile
	expenses map[string][]models.Expense
	seq      map[string]int // insertion sequence per expense ID
	next     int
}

var _ auth.AccountStorage = (*memoryDB)(nil)

func newMemoryDB() *memoryDB {
	return &memoryDB{
		accounts: make(map[string]auth.Account),
		profiles: make(map[string]models.Profile),
		expenses: make(map[string][]models.Expense),
		seq:      make(map[string]int),
	}
}

func (db *memoryDB) CreateAccount(_ context.Context, account auth.Account) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.accounts[account.User.Email]; ok {
		return auth.ErrEmailExists
	}
	db.accounts[account.User.Email] = account
	return nil
}

func (db *memoryDB) AccountByEmail(_ context.Context, email string) (auth.Account, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	account, ok := db.accounts[email]
	if !ok {
		return auth.Account{}, auth.ErrAccountNotFound
	}
	return account, nil
}

func (db *memoryDB) userByID(id string) (models.User, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, a := range db.accounts {
		if a.User.ID == id {
			return a.User, true
		}
	}
	return models.User{}, false
}

func (db *memoryDB) initProfile(user models.User, currency string, budget decimal.Decimal) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.profiles[user.ID] = models.Profile{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"avatar":        user.Avatar,
		"currency":      currency,
		"monthlyBudget": budget.InexactFloat64(),
	}
}

func (db *memoryDB) profile(userID string) models.Profile {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.profiles[userID].Clone()
}

// updateProfile merges fields into the profile and mirrors name, email and
// avatar onto the account.
func (db *memoryDB) updateProfile(userID string, fields map[string]any) models.Profile {
	db.mu.Lock()
	defer db.mu.Unlock()

	p := db.profiles[userID]
	if p == nil {
		p = models.Profile{"id": userID}
	}
	for k, v := range fields {
		p[k] = v
	}
	db.profiles[userID] = p

	for email, a := range db.accounts {
		if a.User.ID != userID {
			continue
		}
		a.User.Name = p.String("name")
		a.User.Avatar = p.String("avatar")
		if newEmail := strings.ToLower(p.String("email")); newEmail != "" && newEmail != email {
			delete(db.accounts, email)
			a.User.Email = newEmail
		}
		db.accounts[a.User.Email] = a
		break
	}
	return p.Clone()
}

func (db *memoryDB) budget(userID string) decimal.Decimal {
	db.mu.Lock()
	defer db.mu.Unlock()
	switch v := db.profiles[userID]["monthlyBudget"].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.NewFromInt(DefaultBudget)
}

func (db *memoryDB) insertExpense(userID string, e models.Expense) models.Expense {
	db.mu.Lock()
	defer db.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	db.next++
	db.seq[e.ID] = db.next
	db.expenses[userID] = append(db.expenses[userID], e)
	return e
}

// listExpenses returns userID's expenses newest first: by date, then by
// insertion for the same date.
func (db *memoryDB) listExpenses(userID string) []models.Expense {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := append([]models.Expense(nil), db.expenses[userID]...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date)
		}
		return db.seq[out[i].ID] > db.seq[out[j].ID]
	})
	return out
}

// updateExpense applies fn to the stored expense and returns the result.
func (db *memoryDB) updateExpense(userID, id string, fn func(*models.Expense)) (models.Expense, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	items := db.expenses[userID]
	for i := range items {
		if items[i].ID == id {
			fn(&items[i])
			return items[i], true
		}
	}
	return models.Expense{}, false
}

func (db *memoryDB) deleteExpense(userID, id string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	items := db.expenses[userID]
	for i := range items {
		if items[i].ID == id {
			db.expenses[userID] = append(items[:i:i], items[i+1:]...)
			delete(db.seq, id)
			return true
		}
	}
	return false
}
