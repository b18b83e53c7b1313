package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxDescriptionLength bounds Expense.Description, in characters.
	MaxDescriptionLength = 200
	// MaxNotesLength bounds Expense.Notes, in characters.
	MaxNotesLength = 500
)

// Category is an expense category. The client offers a fixed set, but values
// outside it that arrive from the server are kept as-is.
type Category string

const (
	CategoryFood          Category = "Food & Dining"
	CategoryTransport     Category = "Transportation"
	CategoryShopping      Category = "Shopping"
	CategoryEntertainment Category = "Entertainment"
	CategoryBills         Category = "Bills & Utilities"
	CategoryHealthcare    Category = "Healthcare"
	CategoryEducation     Category = "Education"
	CategoryTravel        Category = "Travel"
	CategoryOther         Category = "Other"
)

// Categories lists the known categories in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryEntertainment,
	CategoryBills,
	CategoryHealthcare,
	CategoryEducation,
	CategoryTravel,
	CategoryOther,
}

// Known reports whether c is one of Categories.
func (c Category) Known() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// PaymentMethod is how an expense was paid. Like Category, unknown values
// from the server are preserved.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "Cash"
	PaymentCreditCard   PaymentMethod = "Credit Card"
	PaymentDebitCard    PaymentMethod = "Debit Card"
	PaymentUPI          PaymentMethod = "UPI"
	PaymentBankTransfer PaymentMethod = "Bank Transfer"
	PaymentOther        PaymentMethod = "Other"
)

// PaymentMethods lists the known payment methods in display order.
var PaymentMethods = []PaymentMethod{
	PaymentCash,
	PaymentCreditCard,
	PaymentDebitCard,
	PaymentUPI,
	PaymentBankTransfer,
	PaymentOther,
}

// Known reports whether p is one of PaymentMethods.
func (p PaymentMethod) Known() bool {
	for _, k := range PaymentMethods {
		if p == k {
			return true
		}
	}
	return false
}

// Expense is a recorded expense as returned by the backend.
type Expense struct {
	// ID is assigned by the backend. The client never generates one.
	ID string `json:"id"`

	Description   string        `json:"description"`
	Amount        Amount        `json:"amount"`
	Category      Category      `json:"category"`
	Date          Date          `json:"date"`
	PaymentMethod PaymentMethod `json:"paymentMethod,omitempty"`
	Notes         string        `json:"notes,omitempty"`

	// HasReceipt is only set by the backend after a receipt upload succeeded.
	HasReceipt bool   `json:"hasReceipt"`
	ReceiptURL string `json:"receiptUrl,omitempty"`

	// AICategorized marks expenses whose category was chosen by the assistant.
	AICategorized bool `json:"aiCategorized,omitempty"`
}

// ExpenseInput is raw form input for a new expense. Amount and Date are
// strings exactly as typed by the user.
type ExpenseInput struct {
	Description   string
	Amount        string
	Category      Category
	Date          string
	PaymentMethod PaymentMethod
	Notes         string
}

// ExpenseDraft is a validated expense ready to be posted. It has no ID.
type ExpenseDraft struct {
	Description   string        `json:"description"`
	Amount        Amount        `json:"amount"`
	Category      Category      `json:"category"`
	Date          Date          `json:"date"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Notes         string        `json:"notes,omitempty"`
}

// Validate checks the input against the form rules and returns a draft.
// now decides what "today" is; dates after it are rejected. Empty category
// and payment method default to Other.
func (in ExpenseInput) Validate(now time.Time) (ExpenseDraft, error) {
	description := strings.TrimSpace(in.Description)
	if err := validateDescription(description); err != nil {
		return ExpenseDraft{}, err
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return ExpenseDraft{}, err
	}

	date := NewDate(now)
	if strings.TrimSpace(in.Date) != "" {
		date, err = ParseDate(strings.TrimSpace(in.Date))
		if err != nil {
			return ExpenseDraft{}, err
		}
	}
	if date.After(NewDate(now)) {
		return ExpenseDraft{}, invalid("date", "date cannot be in the future")
	}

	category := in.Category
	if category == "" {
		category = CategoryOther
	}
	if !category.Known() {
		return ExpenseDraft{}, invalid("category", "unknown category %q", category)
	}

	method := in.PaymentMethod
	if method == "" {
		method = PaymentOther
	}
	if !method.Known() {
		return ExpenseDraft{}, invalid("paymentMethod", "unknown payment method %q", method)
	}

	if err := validateNotes(in.Notes); err != nil {
		return ExpenseDraft{}, err
	}

	return ExpenseDraft{
		Description:   description,
		Amount:        amount,
		Category:      category,
		Date:          date,
		PaymentMethod: method,
		Notes:         in.Notes,
	}, nil
}

// ExpensePatch carries only the fields being changed. Nil fields are omitted
// from the request body.
type ExpensePatch struct {
	Description   *string        `json:"description,omitempty"`
	Amount        *Amount        `json:"amount,omitempty"`
	Category      *Category      `json:"category,omitempty"`
	Date          *Date          `json:"date,omitempty"`
	PaymentMethod *PaymentMethod `json:"paymentMethod,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.Description == nil && p.Amount == nil && p.Category == nil &&
		p.Date == nil && p.PaymentMethod == nil && p.Notes == nil
}

// Validate applies the same field rules as ExpenseInput.Validate to the
// fields present in the patch.
func (p ExpensePatch) Validate(now time.Time) error {
	if p.IsEmpty() {
		return invalid("", "patch has no fields")
	}
	if p.Description != nil {
		if err := validateDescription(strings.TrimSpace(*p.Description)); err != nil {
			return err
		}
	}
	if p.Amount != nil && p.Amount.LessThan(MinAmount) {
		return invalid("amount", "amount must be at least %s", MinAmount.StringFixed(2))
	}
	if p.Date != nil && p.Date.After(NewDate(now)) {
		return invalid("date", "date cannot be in the future")
	}
	if p.Category != nil && !p.Category.Known() {
		return invalid("category", "unknown category %q", *p.Category)
	}
	if p.PaymentMethod != nil && !p.PaymentMethod.Known() {
		return invalid("paymentMethod", "unknown payment method %q", *p.PaymentMethod)
	}
	if p.Notes != nil {
		return validateNotes(*p.Notes)
	}
	return nil
}

func validateDescription(s string) error {
	if s == "" {
		return invalid("description", "description is required")
	}
	if utf8.RuneCountInString(s) > MaxDescriptionLength {
		return invalid("description", "description must be at most %d characters", MaxDescriptionLength)
	}
	return nil
}

func validateNotes(s string) error {
	if utf8.RuneCountInString(s) > MaxNotesLength {
		return invalid("notes", "notes must be at most %d characters", MaxNotesLength)
	}
	return nil
}

// ExpenseQuery filters an expense listing. Zero values are omitted.
type ExpenseQuery struct {
	Page     int
	Category Category
	Search   string
}

// ExpensePage is the listing payload of GET /expenses.
type ExpensePage struct {
	Expenses    []Expense `json:"expenses"`
	TotalPages  int       `json:"totalPages"`
	CurrentPage int       `json:"currentPage"`
}
