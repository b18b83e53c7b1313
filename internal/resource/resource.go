// Package resource tracks the lifecycle of one logical remote operation and
// decides which of several racing responses gets applied.
//
// A Tracker is not safe for concurrent use on its own. Stores call it while
// holding their own mutex, so the ticket bookkeeping and the state change it
// guards happen atomically.
package resource

import "fmt"

// Status is the lifecycle tag of a collection.
type Status int

const (
	// Idle means no request has been made yet.
	Idle Status = iota
	// Pending means at least one request is outstanding.
	Pending
	// Settled means the last request finished successfully.
	Settled
	// Failed means the last request finished with an error.
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Settled:
		return "settled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Policy decides what happens when responses settle out of dispatch order.
type Policy int

const (
	// SettledLast applies every successful response in the order it settles,
	// so the response that settles last determines the final state.
	SettledLast Policy = iota
	// DispatchedLast discards a successful response if a request dispatched
	// after it has already been applied.
	DispatchedLast
)

func (p Policy) String() string {
	switch p {
	case SettledLast:
		return "settled-last"
	case DispatchedLast:
		return "dispatched-last"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses the String form of a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "settled-last":
		return SettledLast, nil
	case "dispatched-last":
		return DispatchedLast, nil
	default:
		return SettledLast, fmt.Errorf("unknown ordering policy %q", s)
	}
}

// Ticket identifies one dispatched request.
type Ticket uint64

// State is the observable lifecycle of a collection. Err is only set when
// Status is Failed.
type State struct {
	Status Status
	Err    error
}

// Loading reports whether a request is outstanding.
func (s State) Loading() bool {
	return s.Status == Pending
}

// Tracker sequences the requests of one logical operation.
type Tracker struct {
	policy      Policy
	next        Ticket
	outstanding int
	applied     Ticket
	floor       Ticket
	state       State
	// rest is the state to show once nothing is outstanding.
	rest State
}

// NewTracker returns an idle tracker using policy.
func NewTracker(policy Policy) *Tracker {
	return &Tracker{policy: policy}
}

// State returns the current lifecycle.
func (t *Tracker) State() State {
	return t.state
}

// Outstanding returns how many requests have begun but not settled.
func (t *Tracker) Outstanding() int {
	return t.outstanding
}

// Begin registers a new request. Any previous error is cleared.
func (t *Tracker) Begin() Ticket {
	t.next++
	t.outstanding++
	t.rest.Err = nil
	if t.rest.Status == Failed {
		t.rest.Status = Settled
	}
	t.state = State{Status: Pending}
	return t.next
}

// Fulfill settles ticket successfully and reports whether its result should
// be applied. A false return is a stale discard.
func (t *Tracker) Fulfill(ticket Ticket) bool {
	t.settle()
	if ticket <= t.floor || (t.policy == DispatchedLast && ticket < t.applied) {
		t.refresh()
		return false
	}
	if ticket > t.applied {
		t.applied = ticket
	}
	t.rest = State{Status: Settled}
	t.refresh()
	return true
}

// Reject settles ticket with err and reports whether the error was recorded.
// A rejection is discarded when a request dispatched after it has already
// been applied, so a stale failure never overwrites a newer success.
func (t *Tracker) Reject(ticket Ticket, err error) bool {
	t.settle()
	if ticket <= t.floor || ticket < t.applied {
		t.refresh()
		return false
	}
	t.rest = State{Status: Failed, Err: err}
	t.refresh()
	return true
}

// Reset returns the tracker to Idle. Requests begun before the reset still
// count as outstanding, but their results are discarded when they settle.
func (t *Tracker) Reset() {
	t.floor = t.next
	t.applied = t.next
	t.rest = State{}
	t.refresh()
}

// ClearError drops a recorded failure.
func (t *Tracker) ClearError() {
	if t.rest.Status == Failed {
		t.rest = State{Status: Settled}
	}
	t.refresh()
}

func (t *Tracker) settle() {
	if t.outstanding > 0 {
		t.outstanding--
	}
}

// refresh derives the visible state. While any request is outstanding the
// tracker stays Pending, so a recorded error is never visible together with
// a loading flag; the latest accepted settlement decides what shows after.
func (t *Tracker) refresh() {
	if t.outstanding > 0 {
		t.state = State{Status: Pending}
		return
	}
	t.state = t.rest
}

// Epoch identifies the generation of a Group. Reset starts a new one.
type Epoch uint64

// Group tracks independent requests that never supersede each other, such as
// mutations of different records. Every failure is kept until the group goes
// quiet or a new request begins. Requests begun before Reset are stale.
type Group struct {
	epoch       Epoch
	outstanding int
	err         error
	settled     bool
}

// Begin registers a new request and clears the previous error. Pass the
// returned epoch to Done.
func (g *Group) Begin() Epoch {
	g.outstanding++
	g.err = nil
	return g.epoch
}

// Done settles one request and reports whether its result belongs to the
// current epoch. A stale request changes nothing.
func (g *Group) Done(epoch Epoch, err error) bool {
	if epoch != g.epoch {
		return false
	}
	if g.outstanding > 0 {
		g.outstanding--
	}
	g.settled = true
	if err != nil {
		g.err = err
	}
	return true
}

// ClearError drops a recorded failure.
func (g *Group) ClearError() {
	g.err = nil
}

// Reset forgets the recorded failure and history. Requests still in flight
// become stale.
func (g *Group) Reset() {
	g.epoch++
	g.outstanding = 0
	g.err = nil
	g.settled = false
}

// State returns the lifecycle of the group.
func (g *Group) State() State {
	switch {
	case g.outstanding > 0:
		return State{Status: Pending}
	case g.err != nil:
		return State{Status: Failed, Err: g.err}
	case g.settled:
		return State{Status: Settled}
	default:
		return State{}
	}
}
