package store

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/mmynk/spendsync/internal/models"
	"github.com/mmynk/spendsync/internal/resource"
)

// DefaultTrendMonths is how far back FetchTrend looks when asked for zero months.
const DefaultTrendMonths = 6

const (
	msgFetchDashboardFailed = "Failed to fetch dashboard data"
	msgFetchTrendFailed     = "Failed to fetch spending trend"
)

// DashboardState is a snapshot of the dashboard store.
type DashboardState struct {
	Stats             *models.DashboardStats
	CategoryBreakdown []models.CategoryBreakdown
	RecentExpenses    []models.Expense
	SpendingTrend     []models.TrendPoint

	// Summary tracks the stats/breakdown/recent fetch, Trend the trend fetch.
	Summary resource.State
	Trend   resource.State
}

// Dashboard holds server-computed aggregates. It has no local mutations.
type Dashboard struct {
	base

	mu        sync.Mutex
	stats     *models.DashboardStats
	breakdown []models.CategoryBreakdown
	recent    []models.Expense
	trend     []models.TrendPoint
	summaryTr *resource.Tracker
	trendTr   *resource.Tracker
}

// NewDashboard creates an empty dashboard store.
func NewDashboard(deps Deps) *Dashboard {
	return &Dashboard{
		base:      newBase("dashboard", deps),
		summaryTr: resource.NewTracker(deps.Policy),
		trendTr:   resource.NewTracker(deps.Policy),
	}
}

// Snapshot returns a copy of the current state.
func (d *Dashboard) Snapshot() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := DashboardState{
		CategoryBreakdown: append([]models.CategoryBreakdown(nil), d.breakdown...),
		RecentExpenses:    cloneExpenses(d.recent),
		SpendingTrend:     append([]models.TrendPoint(nil), d.trend...),
		Summary:           d.summaryTr.State(),
		Trend:             d.trendTr.State(),
	}
	if d.stats != nil {
		stats := *d.stats
		st.Stats = &stats
	}
	return st
}

// Fetch replaces stats, category breakdown and recent expenses together from
// a single response; they are never updated independently.
func (d *Dashboard) Fetch(ctx context.Context) error {
	ticket, start := d.begin(&d.mu, d.summaryTr, "fetch")

	var payload models.Dashboard
	err := d.api.Get(ctx, "/dashboard", nil, &payload, msgFetchDashboardFailed)
	return d.settle(&d.mu, d.summaryTr, ticket, "fetch", start, err, func() {
		d.stats = payload.Stats
		d.breakdown = payload.CategoryBreakdown
		d.recent = payload.RecentExpenses
	})
}

// FetchTrend replaces only the spending trend. months <= 0 means
// DefaultTrendMonths.
func (d *Dashboard) FetchTrend(ctx context.Context, months int) error {
	if months <= 0 {
		months = DefaultTrendMonths
	}
	ticket, start := d.begin(&d.mu, d.trendTr, "fetch_trend")

	var trend []models.TrendPoint
	query := url.Values{"months": {strconv.Itoa(months)}}
	err := d.api.Get(ctx, "/dashboard/trend", query, &trend, msgFetchTrendFailed)
	return d.settle(&d.mu, d.trendTr, ticket, "fetch_trend", start, err, func() {
		d.trend = trend
	})
}

// ClearError drops recorded failures.
func (d *Dashboard) ClearError() {
	d.mu.Lock()
	d.summaryTr.ClearError()
	d.trendTr.ClearError()
	d.mu.Unlock()
	d.changed()
}

// Reset empties the store.
func (d *Dashboard) Reset() {
	d.mu.Lock()
	d.stats = nil
	d.breakdown = nil
	d.recent = nil
	d.trend = nil
	d.summaryTr.Reset()
	d.trendTr.Reset()
	d.mu.Unlock()
	d.changed()
}
