package calculator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/spendsync/internal/models"
)

func expense(category models.Category, amount, date string) models.Expense {
	d, err := models.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return models.Expense{Category: category, Amount: models.MustAmount(amount), Date: d}
}

var now = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func TestStats(t *testing.T) {
	expenses := []models.Expense{
		expense(models.CategoryFood, "30", "2024-03-01"),
		expense(models.CategoryTravel, "70", "2024-03-10"),
		expense(models.CategoryFood, "50", "2024-02-20"),
		expense(models.CategoryFood, "999", "2023-03-10"),
	}

	stats := Stats(expenses, decimal.NewFromInt(500), now)

	if !stats.TotalSpent.Equal(decimal.NewFromInt(100)) {
		t.Errorf("TotalSpent = %s, want 100", stats.TotalSpent)
	}
	if stats.TotalTransactions != 2 {
		t.Errorf("TotalTransactions = %d, want 2", stats.TotalTransactions)
	}
	if !stats.BudgetRemaining.Equal(decimal.NewFromInt(400)) {
		t.Errorf("BudgetRemaining = %s, want 400", stats.BudgetRemaining)
	}
	if !stats.AvgTransaction.Equal(decimal.NewFromInt(50)) {
		t.Errorf("AvgTransaction = %s, want 50", stats.AvgTransaction)
	}
	if stats.MonthlyChange.Spent != 100 {
		t.Errorf("MonthlyChange.Spent = %v, want 100", stats.MonthlyChange.Spent)
	}
	if stats.MonthlyChange.Transactions != 100 {
		t.Errorf("MonthlyChange.Transactions = %v, want 100", stats.MonthlyChange.Transactions)
	}
	if stats.MonthlyChange.Avg != 0 {
		t.Errorf("MonthlyChange.Avg = %v, want 0", stats.MonthlyChange.Avg)
	}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name          string
		before, after string
		want          float64
	}{
		{name: "increase", before: "100", after: "150", want: 50},
		{name: "decrease", before: "200", after: "50", want: -75},
		{name: "from zero", before: "0", after: "10", want: 0},
		{name: "rounded", before: "3", after: "4", want: 33.3},
		{name: "negative base", before: "-100", after: "-50", want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentChange(decimal.RequireFromString(tt.before), decimal.RequireFromString(tt.after))
			if got != tt.want {
				t.Errorf("PercentChange(%s, %s) = %v, want %v", tt.before, tt.after, got, tt.want)
			}
		})
	}
}

func TestBreakdown(t *testing.T) {
	t.Run("largest first with colors", func(t *testing.T) {
		got := Breakdown([]models.Expense{
			expense(models.CategoryFood, "25", "2024-03-01"),
			expense(models.CategoryTravel, "50", "2024-03-02"),
			expense(models.CategoryFood, "25", "2024-03-03"),
			expense("Pets", "100", "2024-03-04"),
		})

		want := []struct {
			name  string
			pct   float64
			color string
		}{
			{"Pets", 50, "bg-primary"},
			{string(models.CategoryFood), 25, "bg-accent"},
			{string(models.CategoryTravel), 25, "bg-success"},
		}
		if len(got) != len(want) {
			t.Fatalf("got %d slices, want %d", len(got), len(want))
		}
		for i, w := range want {
			if got[i].Name != w.name || got[i].Percentage != w.pct || got[i].Color != w.color {
				t.Errorf("slice %d = %+v, want %+v", i, got[i], w)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		got := Breakdown(nil)
		if got == nil || len(got) != 0 {
			t.Errorf("Breakdown(nil) = %#v, want empty non-nil slice", got)
		}
	})
}

func TestTrend(t *testing.T) {
	expenses := []models.Expense{
		expense(models.CategoryFood, "10", "2024-03-01"),
		expense(models.CategoryFood, "5.5", "2024-03-09"),
		expense(models.CategoryFood, "20", "2024-01-31"),
		expense(models.CategoryFood, "40", "2023-12-31"),
	}

	got := Trend(expenses, 4, now)

	want := []struct {
		period string
		amount string
	}{
		{"2023-12", "40"},
		{"2024-01", "20"},
		{"2024-02", "0"},
		{"2024-03", "15.5"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Period != w.period || !got[i].Amount.Equal(decimal.RequireFromString(w.amount)) {
			t.Errorf("point %d = %s %s, want %s %s", i, got[i].Period, got[i].Amount, w.period, w.amount)
		}
	}
}

func TestPeriodPrev(t *testing.T) {
	p := Period{Year: 2024, Month: time.January}.Prev()
	if p.Year != 2023 || p.Month != time.December {
		t.Errorf("Prev() = %v, want 2023-12", p)
	}
}
