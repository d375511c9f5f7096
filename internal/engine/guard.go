package engine

import (
	"errors"
	"sync"
)

// SubmissionState tracks the lifecycle of the single registration attempt.
type SubmissionState int

const (
	NotAttempted SubmissionState = iota
	InFlight
	Accepted
	Rejected
)

func (s SubmissionState) String() string {
	switch s {
	case NotAttempted:
		return "not_attempted"
	case InFlight:
		return "in_flight"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

var (
	ErrNotInFlight = errors.New("guard: no submission in flight")
	ErrNotRejected = errors.New("guard: submission not rejected")
	ErrRearmSpent  = errors.New("guard: retry already spent")
)

// Guard makes duplicate registrations structurally impossible: state only
// moves forward, and the sole exception — one re-arm after a retryable
// rejection — is bounded to a single use per process run. Mutex-guarded so
// the at-most-once property holds even if the loop is ever parallelized
// across multiple price sources.
type Guard struct {
	mu      sync.Mutex
	state   SubmissionState
	rearmed bool
}

func NewGuard() *Guard { return &Guard{} }

// TryBegin claims the right to submit, moving NotAttempted to InFlight.
// Every call after the first returns false regardless of how the first
// attempt ended.
func (g *Guard) TryBegin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != NotAttempted {
		return false
	}
	g.state = InFlight
	return true
}

// Complete records the result of the in-flight submission.
func (g *Guard) Complete(accepted bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != InFlight {
		return ErrNotInFlight
	}
	if accepted {
		g.state = Accepted
	} else {
		g.state = Rejected
	}
	return nil
}

// Rearm grants exactly one further attempt after a retryable rejection.
func (g *Guard) Rearm() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Rejected {
		return ErrNotRejected
	}
	if g.rearmed {
		return ErrRearmSpent
	}
	g.rearmed = true
	g.state = NotAttempted
	return nil
}

func (g *Guard) State() SubmissionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}
