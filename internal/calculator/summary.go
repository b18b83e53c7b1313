package calculator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/spendsync/internal/models"
)

// Palette assigns display colors to breakdown slices in order of size.
var Palette = []string{"bg-primary", "bg-accent", "bg-success", "bg-warning", "bg-secondary"}

var hundred = decimal.NewFromInt(100)

// Period is a calendar month in UTC.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	y, m, _ := t.UTC().Date()
	return Period{Year: y, Month: m}
}

// Prev returns the month before p.
func (p Period) Prev() Period {
	if p.Month == time.January {
		return Period{Year: p.Year - 1, Month: time.December}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Contains reports whether d falls in p.
func (p Period) Contains(d models.Date) bool {
	return PeriodOf(d.Time) == p
}

func (p Period) String() string {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// totals is the spending of one period.
type totals struct {
	spent decimal.Decimal
	count int
}

func (t totals) avg() decimal.Decimal {
	if t.count == 0 {
		return decimal.Zero
	}
	return t.spent.Div(decimal.NewFromInt(int64(t.count))).Round(2)
}

func sum(expenses []models.Expense, p Period) totals {
	var t totals
	for _, e := range expenses {
		if p.Contains(e.Date) {
			t.spent = t.spent.Add(e.Amount.Decimal)
			t.count++
		}
	}
	return t
}

// Stats computes the dashboard stats for the month containing now, with
// changes expressed as percentages against the previous month.
func Stats(expenses []models.Expense, budget decimal.Decimal, now time.Time) models.DashboardStats {
	period := PeriodOf(now)
	cur := sum(expenses, period)
	prev := sum(expenses, period.Prev())

	remaining := budget.Sub(cur.spent)
	prevRemaining := budget.Sub(prev.spent)

	return models.DashboardStats{
		TotalSpent:        models.NewAmount(cur.spent),
		TotalTransactions: cur.count,
		BudgetRemaining:   models.NewAmount(remaining),
		AvgTransaction:    models.NewAmount(cur.avg()),
		MonthlyChange: models.MonthlyChange{
			Spent:        PercentChange(prev.spent, cur.spent),
			Transactions: PercentChange(decimal.NewFromInt(int64(prev.count)), decimal.NewFromInt(int64(cur.count))),
			Budget:       PercentChange(prevRemaining, remaining),
			Avg:          PercentChange(prev.avg(), cur.avg()),
		},
	}
}

// PercentChange returns the change from before to after in percent, rounded
// to one decimal. A change from zero is reported as 0.
func PercentChange(before, after decimal.Decimal) float64 {
	if before.IsZero() {
		return 0
	}
	f, _ := after.Sub(before).Div(before.Abs()).Mul(hundred).Round(1).Float64()
	return f
}

// Breakdown groups expenses by category, largest first. Percentages are of
// the overall total and rounded to whole numbers.
func Breakdown(expenses []models.Expense) []models.CategoryBreakdown {
	byCategory := make(map[models.Category]decimal.Decimal)
	total := decimal.Zero
	for _, e := range expenses {
		byCategory[e.Category] = byCategory[e.Category].Add(e.Amount.Decimal)
		total = total.Add(e.Amount.Decimal)
	}
	if total.IsZero() {
		return []models.CategoryBreakdown{}
	}

	out := make([]models.CategoryBreakdown, 0, len(byCategory))
	for c, amount := range byCategory {
		pct, _ := amount.Div(total).Mul(hundred).Round(0).Float64()
		out = append(out, models.CategoryBreakdown{
			Name:       string(c),
			Amount:     models.NewAmount(amount),
			Percentage: pct,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount.Decimal); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	for i := range out {
		out[i].Color = Palette[i%len(Palette)]
	}
	return out
}

// Trend returns monthly totals for the months ending with the one that
// contains now, oldest first. Months without spending are reported as zero.
func Trend(expenses []models.Expense, months int, now time.Time) []models.TrendPoint {
	if months <= 0 {
		return []models.TrendPoint{}
	}
	periods := make([]Period, months)
	p := PeriodOf(now)
	for i := months - 1; i >= 0; i-- {
		periods[i] = p
		p = p.Prev()
	}

	out := make([]models.TrendPoint, months)
	for i, period := range periods {
		out[i] = models.TrendPoint{
			Period: period.String(),
			Amount: models.NewAmount(sum(expenses, period).spent),
		}
	}
	return out
}
