package saga

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"atelier/crm"
)

// ErrAlreadyRunning is returned when an advance is requested for an order
// whose saga has not yet reached a terminal state.
var ErrAlreadyRunning = errors.New("saga: already running for this order")

// InvoiceGenerator issues the invoice for an order.
type InvoiceGenerator interface {
	GenerateInvoice(ctx context.Context, orderID int64) (*crm.InvoiceResult, error)
}

// ReceiptGenerator issues the fiscal receipt for an order.
type ReceiptGenerator interface {
	GenerateReceipt(ctx context.Context, orderID int64) (*crm.ReceiptResult, error)
}

// OrderMover advances an order to the next zone.
type OrderMover interface {
	MoveOrder(ctx context.Context, family string, orderID, userID int64) error
}

// Emitter observes every state transition. Called outside the runner's lock
// with a copy of the state.
type Emitter interface {
	EmitSagaState(st State)
}

// Runner executes advancement sagas, at most one in flight per order ID.
// The single-flight guard is enforced here, not by the CRM: a second advance
// for the same order is rejected before any network call.
type Runner struct {
	invoices InvoiceGenerator
	receipts ReceiptGenerator
	mover    OrderMover
	emitter  Emitter
	family   string

	mu     sync.Mutex
	active map[int64]*State
}

func NewRunner(inv InvoiceGenerator, rec ReceiptGenerator, mover OrderMover, emitter Emitter, family string) *Runner {
	return &Runner{
		invoices: inv,
		receipts: rec,
		mover:    mover,
		emitter:  emitter,
		family:   family,
		active:   make(map[int64]*State),
	}
}

// Run executes the full saga for one order, blocking until it reaches
// muta-done or error. A terminal state from a previous run is replaced; an
// in-flight run causes ErrAlreadyRunning.
func (r *Runner) Run(ctx context.Context, orderID, userID int64) (State, error) {
	st, err := r.begin(orderID, userID)
	if err != nil {
		return State{}, err
	}

	// Step 1: invoice.
	r.transition(st, nil)
	inv, err := r.invoices.GenerateInvoice(ctx, orderID)
	if err != nil {
		return r.abort(st, stepMessage("factura", err)), nil
	}
	r.transition(st, func() {
		st.Invoice = &InvoiceRef{Series: inv.Series, Number: inv.Number}
	})

	// Step 2: receipt. A failure here leaves the invoice generated
	// server-side; that is surfaced, not rolled back.
	r.transition(st, nil)
	rec, err := r.receipts.GenerateReceipt(ctx, orderID)
	if err != nil {
		return r.abort(st, stepMessage("bon", err)), nil
	}
	r.transition(st, func() {
		st.Receipt = rec.Path
	})

	// Step 3: move.
	r.transition(st, nil)
	if err := r.mover.MoveOrder(ctx, r.family, orderID, userID); err != nil {
		return r.abort(st, stepMessage("mutare", err)), nil
	}
	r.transition(st, nil)

	return r.snapshot(orderID), nil
}

func (r *Runner) begin(orderID, userID int64) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.active[orderID]; ok && !cur.Step.Terminal() {
		return nil, ErrAlreadyRunning
	}
	st := &State{
		RunID:     uuid.New().String(),
		OrderID:   orderID,
		UserID:    userID,
		Step:      StepIdle,
		StartedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.active[orderID] = st
	return st, nil
}

// transition advances st one step under the lock, applying extra (if any)
// before emitting a copy.
func (r *Runner) transition(st *State, extra func()) {
	r.mu.Lock()
	if err := st.advance(); err != nil {
		// Unreachable while Run drives transitions in order.
		r.mu.Unlock()
		panic(err)
	}
	if extra != nil {
		extra()
	}
	copied := *st
	r.mu.Unlock()
	r.emit(copied)
}

func (r *Runner) abort(st *State, msg string) State {
	r.mu.Lock()
	st.fail(msg)
	copied := *st
	r.mu.Unlock()
	r.emit(copied)
	return copied
}

func (r *Runner) emit(st State) {
	if r.emitter != nil {
		r.emitter.EmitSagaState(st)
	}
}

func (r *Runner) snapshot(orderID int64) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.active[orderID]
}

// State returns the last known saga state for an order, terminal or not.
func (r *Runner) State(orderID int64) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.active[orderID]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// InFlight returns the IDs of orders whose saga is currently between idle
// and a terminal state. The feed hides these so an order never renders in
// two zones mid-move.
func (r *Runner) InFlight() map[int64]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]bool)
	for id, st := range r.active {
		if !st.Step.Terminal() && st.Step != StepIdle {
			out[id] = true
		}
	}
	return out
}

// Forget drops a terminal saga record, letting the order be re-triggered
// cleanly after the operator dismisses the error.
func (r *Runner) Forget(orderID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.active[orderID]; ok && st.Step.Terminal() {
		delete(r.active, orderID)
	}
}

func stepMessage(step string, err error) string {
	var apiErr *crm.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fmt.Sprintf("eroare la %s: %v", step, err)
}
