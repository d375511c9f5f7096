// Package engine implements the registration-trigger loop: poll the burn
// cost for a subnet, compare it to the operator's ceiling, and submit
// exactly one burned_register extrinsic once the cost is acceptable.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/subtensor-tools/regsniper/internal/metrics"
)

// Request identifies what is being registered.
type Request struct {
	Coldkey string // SS58 address of the paying coldkey, for logs only
	Hotkey  []byte // 32-byte public key of the hotkey to register
	Netuid  uint16
}

// SignedTx is an opaque signed extrinsic produced by a Signer and passed
// through to ChainClient.Submit.
type SignedTx any

// Receipt describes a finalized registration.
type Receipt struct {
	BlockHash     string
	ExtrinsicHash string
}

// ChainClient is the engine's view of the node connection. Implementations
// convert transport and dispatch errors into this package's taxonomy; the
// engine never reasons about raw RPC errors.
type ChainClient interface {
	BurnCost(ctx context.Context) (uint64, error)
	AccountNonce(ctx context.Context) (uint32, error)
	Submit(ctx context.Context, tx SignedTx) (*Receipt, error)
}

// Signer builds and signs the registration extrinsic.
type Signer interface {
	Sign(ctx context.Context, req Request, nonce uint32) (SignedTx, error)
}

// Notifier receives submission attempts and terminal outcomes.
type Notifier interface {
	SubmissionAttempted(ctx context.Context, price uint64)
	OutcomeReached(ctx context.Context, o Outcome)
}

type noopNotifier struct{}

func (noopNotifier) SubmissionAttempted(context.Context, uint64) {}
func (noopNotifier) OutcomeReached(context.Context, Outcome)     {}

// SubmitError is a classified submission failure. Retryable failures may
// no longer hold on a later attempt (stale price, nonce conflict);
// terminal ones cannot change within this run (already registered,
// insufficient balance).
type SubmitError struct {
	Reason    string
	Retryable bool
}

func (e *SubmitError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("submit failed (retryable): %s", e.Reason)
	}
	return fmt.Sprintf("submit failed: %s", e.Reason)
}

// OutcomeKind is the terminal classification of a run.
type OutcomeKind int

const (
	Registered OutcomeKind = iota
	GaveUp
	Cancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case Registered:
		return "registered"
	case GaveUp:
		return "gave_up"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a run.
type Outcome struct {
	Kind    OutcomeKind
	Receipt *Receipt
	Reason  string
}

// Snapshot is a point-in-time view of the engine for the status endpoint.
type Snapshot struct {
	State      string    `json:"state"`
	LastPrice  uint64    `json:"last_price_rao"`
	Ceiling    uint64    `json:"ceiling_rao"`
	Polls      uint64    `json:"polls"`
	ReadErrors uint64    `json:"read_errors"`
	Attempts   uint64    `json:"attempts"`
	StartedAt  time.Time `json:"started_at"`
}

// Params configures an Engine.
type Params struct {
	Client  ChainClient
	Signer  Signer
	Request Request
	Ceiling uint64 // RAO

	PollInterval   time.Duration
	BackoffBase    time.Duration
	BackoffMax     time.Duration
	OverallTimeout time.Duration // zero disables the overall retry budget

	Notifier Notifier
	Log      *zap.Logger
}

// Engine composes the evaluator, guard, and scheduler into the end-to-end
// control loop. One engine per process run; it owns the chain connection
// and key material for its lifetime.
type Engine struct {
	client   ChainClient
	signer   Signer
	req      Request
	ceiling  uint64
	guard    *Guard
	sched    *Scheduler
	notifier Notifier
	log      *zap.Logger

	mu   sync.Mutex
	snap Snapshot
}

func New(p Params) *Engine {
	if p.Log == nil {
		p.Log = zap.NewNop()
	}
	if p.Notifier == nil {
		p.Notifier = noopNotifier{}
	}
	if p.PollInterval <= 0 {
		p.PollInterval = 12 * time.Second
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = time.Second
	}
	if p.BackoffMax <= 0 {
		p.BackoffMax = time.Minute
	}
	return &Engine{
		client:   p.Client,
		signer:   p.Signer,
		req:      p.Request,
		ceiling:  p.Ceiling,
		guard:    NewGuard(),
		sched:    NewScheduler(p.PollInterval, p.BackoffBase, p.BackoffMax, p.OverallTimeout, p.Log),
		notifier: p.Notifier,
		log:      p.Log,
		snap:     Snapshot{State: "starting", Ceiling: p.Ceiling},
	}
}

// Snapshot returns the current engine state for status reporting.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

func (e *Engine) update(fn func(*Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.snap)
}

// Run executes the registration loop until a terminal outcome is reached.
func (e *Engine) Run(ctx context.Context) Outcome {
	e.update(func(s *Snapshot) {
		s.State = "polling"
		s.StartedAt = time.Now()
	})
	e.log.Info("registration engine started",
		zap.String("coldkey", e.req.Coldkey),
		zap.Uint16("netuid", e.req.Netuid),
		zap.Uint64("max_cost_rao", e.ceiling))

	var out Outcome
	err := e.sched.Run(ctx, func(ctx context.Context) (bool, error) {
		return e.poll(ctx, &out)
	})

	switch {
	case err == nil:
	case ctx.Err() != nil:
		// Only the run context decides Cancelled. A deadline wrapped inside
		// a read error (websocket call timeouts) must stay GaveUp.
		out = Outcome{Kind: Cancelled, Reason: "stopped by operator"}
	default:
		out = Outcome{Kind: GaveUp, Reason: err.Error()}
	}

	e.update(func(s *Snapshot) { s.State = out.Kind.String() })
	e.notifier.OutcomeReached(context.WithoutCancel(ctx), out)
	return out
}

// poll runs one read-evaluate-submit cycle.
func (e *Engine) poll(ctx context.Context, out *Outcome) (bool, error) {
	readStart := time.Now()
	price, err := e.client.BurnCost(ctx)
	if err != nil {
		metrics.ReadErrors.Inc()
		e.update(func(s *Snapshot) { s.ReadErrors++ })
		return false, fmt.Errorf("read burn cost: %w", err)
	}
	metrics.Polls.Inc()
	metrics.BurnCost.Set(float64(price))
	metrics.PhaseDuration.WithLabelValues("read").Observe(time.Since(readStart).Seconds())
	e.update(func(s *Snapshot) {
		s.Polls++
		s.LastPrice = price
	})

	if Evaluate(price, e.ceiling) == Wait {
		e.log.Info("burn cost above ceiling, waiting",
			zap.Uint64("burn_cost_rao", price),
			zap.Uint64("max_cost_rao", e.ceiling))
		return false, nil
	}

	if !e.guard.TryBegin() {
		// Another path already committed the submission. Cannot happen in
		// a single-threaded run, but the invariant must not depend on that.
		*out = Outcome{Kind: GaveUp, Reason: "submission already committed"}
		return true, nil
	}

	e.log.Info("burn cost at or below ceiling, submitting",
		zap.Uint64("burn_cost_rao", price),
		zap.Uint64("max_cost_rao", e.ceiling))
	return e.submit(ctx, price, out)
}

// submit builds, signs, and submits the registration, then classifies the
// result into the outcome taxonomy.
func (e *Engine) submit(ctx context.Context, price uint64, out *Outcome) (bool, error) {
	e.update(func(s *Snapshot) {
		s.State = "submitting"
		s.Attempts++
	})
	metrics.SubmitAttempts.Inc()
	e.notifier.SubmissionAttempted(ctx, price)

	nonce, err := e.client.AccountNonce(ctx)
	if err != nil {
		// Counts as a retryable submission failure: release the single
		// retry and resume polling.
		return e.reject(out, &SubmitError{
			Reason:    fmt.Sprintf("fetch nonce: %v", err),
			Retryable: true,
		})
	}

	tx, err := e.signer.Sign(ctx, e.req, nonce)
	if err != nil {
		return e.reject(out, &SubmitError{
			Reason:    fmt.Sprintf("sign extrinsic: %v", err),
			Retryable: false,
		})
	}

	submitStart := time.Now()
	receipt, err := e.client.Submit(ctx, tx)
	if err != nil {
		if ctx.Err() != nil {
			// The extrinsic may still be finalized by the chain after we
			// stop watching.
			e.log.Warn("cancelled with submission in flight, extrinsic may still land")
			return false, ctx.Err()
		}
		var serr *SubmitError
		if !errors.As(err, &serr) {
			serr = &SubmitError{Reason: err.Error(), Retryable: true}
		}
		return e.reject(out, serr)
	}
	metrics.PhaseDuration.WithLabelValues("submit").Observe(time.Since(submitStart).Seconds())

	if err := e.guard.Complete(true); err != nil {
		e.log.Error("guard transition failed", zap.Error(err))
	}
	*out = Outcome{Kind: Registered, Receipt: receipt}
	e.log.Info("registration finalized",
		zap.String("block", receipt.BlockHash),
		zap.String("extrinsic", receipt.ExtrinsicHash))
	return true, nil
}

// reject records a failed submission and decides between one more attempt
// and giving up.
func (e *Engine) reject(out *Outcome, serr *SubmitError) (bool, error) {
	if err := e.guard.Complete(false); err != nil {
		e.log.Error("guard transition failed", zap.Error(err))
	}
	if serr.Retryable {
		if err := e.guard.Rearm(); err == nil {
			e.log.Warn("submission failed, will retry once",
				zap.String("reason", serr.Reason))
			e.update(func(s *Snapshot) { s.State = "polling" })
			return false, nil
		}
		e.log.Warn("submission failed and retry already spent",
			zap.String("reason", serr.Reason))
	}
	*out = Outcome{Kind: GaveUp, Reason: serr.Reason}
	return true, nil
}
