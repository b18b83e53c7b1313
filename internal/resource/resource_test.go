package resource

import (
	"errors"
	"testing"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker(SettledLast)
	if got := tr.State().Status; got != Idle {
		t.Fatalf("initial status = %v, want idle", got)
	}

	ticket := tr.Begin()
	if !tr.State().Loading() {
		t.Fatal("expected pending after Begin")
	}

	boom := errors.New("boom")
	if !tr.Reject(ticket, boom) {
		t.Fatal("expected rejection to be recorded")
	}
	st := tr.State()
	if st.Status != Failed || !errors.Is(st.Err, boom) {
		t.Fatalf("state = %+v, want failed(boom)", st)
	}

	// Starting a new request clears the previous error.
	ticket = tr.Begin()
	if st := tr.State(); st.Err != nil || st.Status != Pending {
		t.Fatalf("state after Begin = %+v, want pending without error", st)
	}
	if !tr.Fulfill(ticket) {
		t.Fatal("expected fulfillment to be applied")
	}
	if got := tr.State().Status; got != Settled {
		t.Fatalf("status = %v, want settled", got)
	}
}

func TestTrackerOrdering(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name        string
		policy      Policy
		run         func(tr *Tracker, first, second Ticket) (applyFirst, applySecond bool)
		wantStatus  Status
		wantApplied [2]bool
	}{
		{
			name:   "settled last applies the older response when it settles last",
			policy: SettledLast,
			run: func(tr *Tracker, first, second Ticket) (bool, bool) {
				b := tr.Fulfill(second)
				a := tr.Fulfill(first)
				return a, b
			},
			wantStatus:  Settled,
			wantApplied: [2]bool{true, true},
		},
		{
			name:   "dispatched last discards the older response",
			policy: DispatchedLast,
			run: func(tr *Tracker, first, second Ticket) (bool, bool) {
				b := tr.Fulfill(second)
				a := tr.Fulfill(first)
				return a, b
			},
			wantStatus:  Settled,
			wantApplied: [2]bool{false, true},
		},
		{
			name:   "stale rejection does not overwrite newer success",
			policy: SettledLast,
			run: func(tr *Tracker, first, second Ticket) (bool, bool) {
				b := tr.Fulfill(second)
				a := tr.Reject(first, boom)
				return a, b
			},
			wantStatus:  Settled,
			wantApplied: [2]bool{false, true},
		},
		{
			name:   "newer rejection settling last fails the collection",
			policy: SettledLast,
			run: func(tr *Tracker, first, second Ticket) (bool, bool) {
				a := tr.Fulfill(first)
				b := tr.Reject(second, boom)
				return a, b
			},
			wantStatus:  Failed,
			wantApplied: [2]bool{true, true},
		},
		{
			name:   "older success after newer failure is applied",
			policy: SettledLast,
			run: func(tr *Tracker, first, second Ticket) (bool, bool) {
				b := tr.Reject(second, boom)
				a := tr.Fulfill(first)
				return a, b
			},
			wantStatus:  Settled,
			wantApplied: [2]bool{true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(tt.policy)
			first := tr.Begin()
			second := tr.Begin()

			a, b := tt.run(tr, first, second)
			if a != tt.wantApplied[0] || b != tt.wantApplied[1] {
				t.Errorf("applied = [%v %v], want %v", a, b, tt.wantApplied)
			}
			if got := tr.State().Status; got != tt.wantStatus {
				t.Errorf("status = %v, want %v", got, tt.wantStatus)
			}
			if tr.Outstanding() != 0 {
				t.Errorf("outstanding = %d, want 0", tr.Outstanding())
			}
		})
	}
}

func TestTrackerPendingAndErrorExclusive(t *testing.T) {
	tr := NewTracker(SettledLast)
	first := tr.Begin()
	tr.Begin()

	tr.Reject(first, errors.New("boom"))
	st := tr.State()
	if st.Status != Pending || st.Err != nil {
		t.Fatalf("state = %+v, want pending without error while a request is outstanding", st)
	}
}

func TestTrackerClearErrorAndReset(t *testing.T) {
	tr := NewTracker(SettledLast)
	tr.Reject(tr.Begin(), errors.New("boom"))

	tr.ClearError()
	if st := tr.State(); st.Status != Settled || st.Err != nil {
		t.Fatalf("state = %+v, want settled", st)
	}

	pending := tr.Begin()
	tr.Reset()
	if got := tr.State().Status; got != Pending {
		t.Fatalf("status after reset with outstanding request = %v, want pending", got)
	}
	tr.Fulfill(pending)
	tr.Reset()
	if got := tr.State().Status; got != Idle {
		t.Fatalf("status after reset = %v, want idle", got)
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{SettledLast, DispatchedLast} {
		got, err := ParsePolicy(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePolicy(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParsePolicy("random"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestTrackerResetDiscardsEarlierRequests(t *testing.T) {
	tr := NewTracker(SettledLast)
	before := tr.Begin()
	tr.Reset()

	after := tr.Begin()
	if !tr.Fulfill(after) {
		t.Fatal("expected request begun after reset to be applied")
	}
	if tr.Fulfill(before) {
		t.Error("expected request begun before reset to be discarded")
	}
	if got := tr.State().Status; got != Settled {
		t.Errorf("status = %v, want settled", got)
	}

	late := tr.Begin()
	tr.Reset()
	if tr.Reject(late, errors.New("boom")) {
		t.Error("expected rejection begun before reset to be discarded")
	}
	if st := tr.State(); st.Status != Idle || st.Err != nil {
		t.Errorf("state = %+v, want idle", st)
	}
}

func TestGroupKeepsEveryFailure(t *testing.T) {
	var g Group
	if got := g.State().Status; got != Idle {
		t.Fatalf("initial status = %v, want idle", got)
	}

	boom := errors.New("boom")
	first := g.Begin()
	second := g.Begin()
	g.Done(first, boom)
	if st := g.State(); st.Status != Pending || st.Err != nil {
		t.Fatalf("state = %+v, want pending while a request is outstanding", st)
	}
	g.Done(second, nil)
	if st := g.State(); st.Status != Failed || !errors.Is(st.Err, boom) {
		t.Fatalf("state = %+v, want failed(boom)", st)
	}

	g.Done(g.Begin(), nil)
	if st := g.State(); st.Status != Settled || st.Err != nil {
		t.Fatalf("state = %+v, want settled", st)
	}

	g.Reset()
	if got := g.State().Status; got != Idle {
		t.Fatalf("status after reset = %v, want idle", got)
	}
}

func TestGroupResetDiscardsEarlierRequests(t *testing.T) {
	var g Group
	before := g.Begin()
	g.Reset()

	if st := g.State(); st.Status != Idle {
		t.Fatalf("state after reset = %+v, want idle", st)
	}
	if g.Done(before, nil) {
		t.Error("request begun before Reset accepted")
	}
	if g.Done(before, errors.New("late failure")) {
		t.Error("failure begun before Reset accepted")
	}
	if st := g.State(); st.Status != Idle || st.Err != nil {
		t.Errorf("stale results changed state: %+v", st)
	}

	after := g.Begin()
	if !g.Done(after, nil) {
		t.Error("request begun after Reset rejected")
	}
	if got := g.State().Status; got != Settled {
		t.Errorf("status = %v, want settled", got)
	}
}
