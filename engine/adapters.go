package engine

import (
	"atelier/crm"
	"atelier/saga"
)

// dispatchEmitter bridges the dispatch package's emitter interface to the EventBus.
type dispatchEmitter struct {
	bus *EventBus
}

func (e *dispatchEmitter) EmitOrderStarted(orderID, userID int64, zone string) {
	e.bus.Emit(Event{Type: EventOrderStarted, Payload: OrderStartedEvent{
		OrderID: orderID,
		UserID:  userID,
		Zone:    zone,
	}})
}

func (e *dispatchEmitter) EmitOrderAdvanced(orderID, userID int64, zone string) {
	e.bus.Emit(Event{Type: EventOrderAdvanced, Payload: OrderAdvancedEvent{
		OrderID: orderID,
		UserID:  userID,
		Zone:    zone,
	}})
}

func (e *dispatchEmitter) EmitTransitionFailed(orderID, userID int64, zone, action, detail string) {
	e.bus.Emit(Event{Type: EventTransitionFailed, Payload: TransitionFailedEvent{
		OrderID: orderID,
		UserID:  userID,
		Zone:    zone,
		Action:  action,
		Detail:  detail,
	}})
}

// sagaEmitter bridges saga state transitions to the EventBus.
type sagaEmitter struct {
	bus *EventBus
}

func (e *sagaEmitter) EmitSagaState(st saga.State) {
	e.bus.Emit(Event{Type: EventSagaStateChanged, Payload: SagaStateChangedEvent{State: st}})
}

// pollerEmitter bridges the status poller's snapshots to the EventBus.
type pollerEmitter struct {
	bus *EventBus
}

func (e *pollerEmitter) EmitSnapshot(zone string, snap *crm.StatusSnapshot, ok bool) {
	e.bus.Emit(Event{Type: EventSnapshotUpdated, Payload: SnapshotUpdatedEvent{
		Zone:     zone,
		Snapshot: snap,
		OK:       ok,
	}})
}
