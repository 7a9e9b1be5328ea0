package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"atelier/feed"
	"atelier/saga"
)

// ErrBusy is returned when a start or advance is requested for an order that
// already has one in flight.
var ErrBusy = errors.New("dispatch: action already in flight for this order")

// ErrNotOffered is returned when the requested action is not available for
// the order in the active zone.
var ErrNotOffered = errors.New("dispatch: action not offered for this order")

// Transitions is the slice of the CRM client the dispatcher needs.
type Transitions interface {
	StartOrder(ctx context.Context, family string, orderID, userID int64) error
	MoveOrder(ctx context.Context, family string, orderID, userID int64) error
}

// Dispatcher decides which action an order gets in the active zone and
// executes it. One action per order at a time; unrelated orders proceed
// concurrently.
type Dispatcher struct {
	crm     Transitions
	feed    *feed.Feed
	sagas   *saga.Runner
	emitter Emitter
	family  string

	mu       sync.Mutex
	inflight map[int64]Action
}

func NewDispatcher(t Transitions, f *feed.Feed, sagas *saga.Runner, emitter Emitter, family string) *Dispatcher {
	return &Dispatcher{
		crm:      t,
		feed:     f,
		sagas:    sagas,
		emitter:  emitter,
		family:   family,
		inflight: make(map[int64]Action),
	}
}

// InFlight returns the action currently running for an order, if any.
func (d *Dispatcher) InFlight(orderID int64) (Action, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.inflight[orderID]
	return a, ok
}

func (d *Dispatcher) claim(orderID int64, a Action) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inflight[orderID]; busy {
		return false
	}
	d.inflight[orderID] = a
	return true
}

func (d *Dispatcher) release(orderID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inflight, orderID)
}

// Start begins processing an order in the active zone. On success the
// started-flag flips locally; no refetch.
func (d *Dispatcher) Start(ctx context.Context, orderID, userID int64) error {
	order, ok := d.feed.Get(orderID)
	if !ok {
		return fmt.Errorf("dispatch: order %d not in feed", orderID)
	}
	zone := d.feed.Zone()
	if !CanStart(&order, d.family, zone) {
		return ErrNotOffered
	}
	if !d.claim(orderID, ActionStart) {
		return ErrBusy
	}
	defer d.release(orderID)

	if err := d.crm.StartOrder(ctx, d.family, orderID, userID); err != nil {
		log.Printf("dispatch: start order %d: %v", orderID, err)
		d.emitter.EmitTransitionFailed(orderID, userID, zone, string(ActionStart), err.Error())
		return err
	}

	d.feed.MarkStarted(orderID, d.family)
	d.emitter.EmitOrderStarted(orderID, userID, zone)
	return nil
}

// Advance moves an order to the next zone. For the bindery this runs the
// billing saga; everywhere else it is a single move call. Either way the
// order leaves the feed on success and the engine refetches behind it.
func (d *Dispatcher) Advance(ctx context.Context, orderID, userID int64) error {
	order, ok := d.feed.Get(orderID)
	if !ok {
		return fmt.Errorf("dispatch: order %d not in feed", orderID)
	}
	zone := d.feed.Zone()
	if !CanAdvance(&order, d.family, zone) {
		return ErrNotOffered
	}
	if !d.claim(orderID, ActionAdvance) {
		return ErrBusy
	}
	defer d.release(orderID)

	if SagaZone(d.family, zone) {
		return d.advanceViaSaga(ctx, orderID, userID, zone)
	}

	if err := d.crm.MoveOrder(ctx, d.family, orderID, userID); err != nil {
		log.Printf("dispatch: move order %d: %v", orderID, err)
		d.emitter.EmitTransitionFailed(orderID, userID, zone, string(ActionAdvance), err.Error())
		return err
	}

	d.feed.Remove(orderID)
	d.emitter.EmitOrderAdvanced(orderID, userID, zone)
	return nil
}

func (d *Dispatcher) advanceViaSaga(ctx context.Context, orderID, userID int64, zone string) error {
	// A previous failed run must be dismissed before re-triggering.
	d.sagas.Forget(orderID)

	st, err := d.sagas.Run(ctx, orderID, userID)
	if err != nil {
		return err
	}
	if st.Step == saga.StepError {
		d.emitter.EmitTransitionFailed(orderID, userID, zone, string(ActionAdvance), st.Message)
		return fmt.Errorf("dispatch: advance order %d: %s", orderID, st.Message)
	}

	d.feed.Remove(orderID)
	d.emitter.EmitOrderAdvanced(orderID, userID, zone)
	return nil
}
