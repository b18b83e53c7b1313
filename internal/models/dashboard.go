package models

// DashboardStats summarizes spending for the current period.
type DashboardStats struct {
	TotalSpent        Amount        `json:"totalSpent"`
	TotalTransactions int           `json:"totalTransactions"`
	BudgetRemaining   Amount        `json:"budgetRemaining"`
	AvgTransaction    Amount        `json:"avgTransaction"`
	MonthlyChange     MonthlyChange `json:"monthlyChange"`
}

// MonthlyChange holds percentage changes against the previous month.
type MonthlyChange struct {
	Spent        float64 `json:"spent"`
	Transactions float64 `json:"transactions"`
	Budget       float64 `json:"budget"`
	Avg          float64 `json:"avg"`
}

// CategoryBreakdown is one slice of the category chart.
type CategoryBreakdown struct {
	Name       string  `json:"name"`
	Amount     Amount  `json:"amount"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// TrendPoint is total spending for one period (a month, "2024-01").
type TrendPoint struct {
	Period string `json:"month"`
	Amount Amount `json:"amount"`
}

// Dashboard is the payload of GET /dashboard. Its three parts describe the
// same moment and are always replaced together.
type Dashboard struct {
	Stats             *DashboardStats     `json:"stats"`
	CategoryBreakdown []CategoryBreakdown `json:"categoryBreakdown"`
	RecentExpenses    []Expense           `json:"recentExpenses"`
}
