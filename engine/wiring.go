package engine

import (
	"context"
	"fmt"

	"atelier/messaging"
	"atelier/saga"
)

func (e *Engine) wireEventHandlers() {
	// A successful start is a local transition; audit and publish it.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OrderStartedEvent)
		e.logFn("engine: order %d started in %s by user %d", ev.OrderID, ev.Zone, ev.UserID)
		e.db.AppendAudit("order", ev.OrderID, "started", ev.Zone, actorName(ev.UserID))
		e.enqueueEvent(messaging.KindOrderStarted, messaging.OrderEvent{
			OrderID: ev.OrderID,
			UserID:  ev.UserID,
			Zone:    ev.Zone,
		})
	}, EventOrderStarted)

	// An advanced order already left the local list; refetch behind it so the
	// view converges with the CRM.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OrderAdvancedEvent)
		e.logFn("engine: order %d advanced out of %s by user %d", ev.OrderID, ev.Zone, ev.UserID)
		e.db.AppendAudit("order", ev.OrderID, "advanced", ev.Zone, actorName(ev.UserID))
		e.enqueueEvent(messaging.KindOrderAdvanced, messaging.OrderEvent{
			OrderID: ev.OrderID,
			UserID:  ev.UserID,
			Zone:    ev.Zone,
		})
		go e.RefreshFeed(ev.Zone)
	}, EventOrderAdvanced)

	// Failed transitions stay visible in the audit trail and downstream.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(TransitionFailedEvent)
		e.logFn("engine: %s for order %d in %s failed: %s", ev.Action, ev.OrderID, ev.Zone, ev.Detail)
		e.db.AppendAudit("order", ev.OrderID, ev.Action+"-failed", ev.Detail, actorName(ev.UserID))
		e.enqueueEvent(messaging.KindSagaFailed, messaging.OrderEvent{
			OrderID: ev.OrderID,
			UserID:  ev.UserID,
			Zone:    ev.Zone,
			Detail:  ev.Detail,
		})
	}, EventTransitionFailed)

	// Saga steps: log every transition, audit only terminal success. The
	// error path is audited by the transition-failed handler above.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SagaStateChangedEvent)
		st := ev.State
		e.logFn("engine: saga %s order %d: %s (%d%%)", st.RunID, st.OrderID, st.Step, st.Progress)
		if st.Step == saga.StepMoveDone {
			detail := ""
			if st.Invoice != nil {
				detail = fmt.Sprintf("factura %s %d", st.Invoice.Series, st.Invoice.Number)
			}
			e.db.AppendAudit("saga", st.OrderID, "completed", detail, actorName(st.UserID))
		}
	}, EventSagaStateChanged)

	// Fresh counters cache through zonestate; a fresh (non-cached) snapshot
	// means zone contents changed server-side, so the feed reloads once.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(SnapshotUpdatedEvent)
		e.zoneState.Set(context.Background(), ev.Zone, ev.Snapshot)
		if ev.OK && !ev.Snapshot.FromCache {
			e.RefreshFeed(ev.Zone)
		}
	}, EventSnapshotUpdated)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ZoneSelectedEvent)
		e.db.AppendAudit("zone", 0, "selected", ev.Zone, actorName(e.session.UserID()))
	}, EventZoneSelected)

	// The poller runs exactly while the shift timer does.
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ShiftStartedEvent)
		e.poller.Start()
		e.db.AppendAudit("shift", ev.UserID, "started", "", actorName(ev.UserID))
		e.enqueueEvent(messaging.KindShiftStarted, messaging.ShiftEvent{UserID: ev.UserID})
	}, EventShiftStarted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ShiftStoppedEvent)
		e.poller.Stop()
		e.db.AppendAudit("shift", ev.UserID, "stopped", "", actorName(ev.UserID))
		e.enqueueEvent(messaging.KindShiftStopped, messaging.ShiftEvent{UserID: ev.UserID})
	}, EventShiftStopped)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		e.logFn("engine: %s", ev.Detail)
	}, EventCRMConnected, EventCRMDisconnected, EventMessagingConnected, EventMessagingDisconnected)
}

// enqueueEvent queues a floor event for the messaging drainer.
func (e *Engine) enqueueEvent(kind string, payload any) {
	env := messaging.NewEnvelope(kind, e.cfg.CRM.ZoneFamily, payload)
	data, _ := env.Encode()
	topic := messaging.EventTopic(e.cfg.Messaging.TopicPrefix, kind)
	if err := e.db.EnqueueOutbox(topic, data, kind); err != nil {
		e.logFn("engine: enqueue %s: %v", kind, err)
	}
}

func actorName(userID int64) string {
	if userID == 0 {
		return "system"
	}
	return fmt.Sprintf("user:%d", userID)
}
