package store

import (
	"context"
	"net/http"
	"testing"

	"github.com/mmynk/spendsync/internal/models"
	"github.com/mmynk/spendsync/internal/resource"
)

func TestDashboardFetch(t *testing.T) {
	env, cleanup := setupTestEnv(t, resource.SettledLast)
	defer cleanup()
	ctx := context.Background()
	env.login(t)

	env.seed("Groceries", string(models.CategoryFood), 0)

	if err := env.dashboard.Fetch(ctx); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	st := env.dashboard.Snapshot()
	if st.Stats == nil || st.Stats.TotalTransactions != 1 {
		t.Fatalf("unexpected stats: %+v", st.Stats)
	}
	if len(st.CategoryBreakdown) != 1 || len(st.RecentExpenses) != 1 {
		t.Errorf("breakdown/recent = %d/%d, want 1/1", len(st.CategoryBreakdown), len(st.RecentExpenses))
	}
	if st.Summary.Status != resource.Settled || st.Trend.Status != resource.Idle {
		t.Errorf("summary/trend status = %v/%v", st.Summary.Status, st.Trend.Status)
	}

	// A failed refresh keeps every part of the previous snapshot.
	env.seed("Taxi", string(models.CategoryTransport), 0)
	env.srv.FailNext("GET /dashboard", http.StatusInternalServerError, "")
	if err := env.dashboard.Fetch(ctx); err == nil {
		t.Fatal("expected Fetch to fail")
	}
	after := env.dashboard.Snapshot()
	if after.Stats.TotalTransactions != 1 || len(after.CategoryBreakdown) != 1 || len(after.RecentExpenses) != 1 {
		t.Errorf("snapshot changed on error: %+v", after)
	}
	if msg := remoteMessage(t, after.Summary); msg != msgFetchDashboardFailed {
		t.Errorf("error = %q, want %q", msg, msgFetchDashboardFailed)
	}

	// Mutating the copy does not reach the store.
	after.Stats.TotalTransactions = 99
	if env.dashboard.Snapshot().Stats.TotalTransactions != 1 {
		t.Error("snapshot shares memory with the store")
	}
}

func TestDashboardTrendIsIndependent(t *testing.T) {
	env, cleanup := setupTestEnv(t, resource.SettledLast)
	defer cleanup()
	ctx := context.Background()
	env.login(t)

	if err := env.dashboard.FetchTrend(ctx, 0); err != nil {
		t.Fatalf("FetchTrend failed: %v", err)
	}
	st := env.dashboard.Snapshot()
	if len(st.SpendingTrend) != DefaultTrendMonths {
		t.Errorf("got %d trend points, want %d", len(st.SpendingTrend), DefaultTrendMonths)
	}
	if st.Stats != nil || st.Summary.Status != resource.Idle {
		t.Error("FetchTrend touched the summary")
	}

	if err := env.dashboard.FetchTrend(ctx, 3); err != nil {
		t.Fatalf("FetchTrend failed: %v", err)
	}
	if got := len(env.dashboard.Snapshot().SpendingTrend); got != 3 {
		t.Errorf("got %d trend points, want 3", got)
	}

	env.srv.FailNext("GET /dashboard/trend", http.StatusInternalServerError, "")
	_ = env.dashboard.FetchTrend(ctx, 3)
	if err := env.dashboard.Fetch(ctx); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	st = env.dashboard.Snapshot()
	if st.Trend.Status != resource.Failed || st.Summary.Status != resource.Settled {
		t.Errorf("trend/summary status = %v/%v, want failed/settled", st.Trend.Status, st.Summary.Status)
	}

	env.dashboard.ClearError()
	if st := env.dashboard.Snapshot().Trend; st.Err != nil {
		t.Errorf("trend error after ClearError = %v", st.Err)
	}
}
