package store

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/spendsync/internal/apiclient"
	"github.com/mmynk/spendsync/internal/apitest"
	"github.com/mmynk/spendsync/internal/credential"
	"github.com/mmynk/spendsync/internal/metrics"
	"github.com/mmynk/spendsync/internal/models"
	"github.com/mmynk/spendsync/internal/resource"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "password123"
)

// testEnv wires every store to one fake backend.
type testEnv struct {
	srv       *apitest.Server
	persist   *credential.Memory
	metrics   *metrics.Recorder
	session   *Session
	expenses  *Expenses
	dashboard *Dashboard
	assistant *Assistant
	user      models.User
}

// setupTestEnv starts a backend with one account and returns stores that
// are not yet logged in, plus a cleanup function.
func setupTestEnv(t *testing.T, policy resource.Policy) (*testEnv, func()) {
	t.Helper()

	srv := apitest.New(apitest.Options{PageSize: 2})
	server := httptest.NewServer(srv.Handler())

	auth, err := srv.CreateUser(testEmail, testPassword, "Ada")
	if err != nil {
		server.Close()
		t.Fatalf("failed to create user: %v", err)
	}

	client, err := apiclient.New(server.URL, nil)
	if err != nil {
		server.Close()
		t.Fatalf("failed to create client: %v", err)
	}

	rec, err := metrics.NewRecorder(prometheus.NewRegistry())
	if err != nil {
		server.Close()
		t.Fatalf("failed to create recorder: %v", err)
	}

	deps := Deps{API: client, Policy: policy, Metrics: rec}
	env := &testEnv{
		srv:       srv,
		persist:   credential.NewMemory(""),
		metrics:   rec,
		expenses:  NewExpenses(deps),
		dashboard: NewDashboard(deps),
		assistant: NewAssistant(deps),
		user:      auth.User,
	}
	env.session = NewSession(deps, env.persist)
	client.SetCredentialSource(env.session)

	return env, server.Close
}

// login signs the session in or fails the test.
func (e *testEnv) login(t *testing.T) {
	t.Helper()
	if err := e.session.Login(context.Background(), testEmail, testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

func (e *testEnv) seed(desc, category string, daysAgo int) models.Expense {
	return e.srv.SeedExpense(e.user.ID, models.Expense{
		Description: desc,
		Amount:      models.MustAmount("10"),
		Category:    models.Category(category),
		Date:        models.NewDate(time.Now().AddDate(0, 0, -daysAgo)),
	})
}

func ids(items []models.Expense) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func remoteMessage(t *testing.T, st resource.State) string {
	t.Helper()
	if st.Status != resource.Failed {
		t.Fatalf("status = %v, want failed", st.Status)
	}
	remote, ok := apiclient.AsRemote(st.Err)
	if !ok {
		t.Fatalf("error %v is not a RemoteError", st.Err)
	}
	return remote.Message
}

// waitArrived blocks until the held request reaches the backend.
func waitArrived(t *testing.T, g *apitest.Gate) {
	t.Helper()
	select {
	case <-g.Arrived():
	case <-time.After(5 * time.Second):
		t.Fatal("held request never arrived")
	}
}
