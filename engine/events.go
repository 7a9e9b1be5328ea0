package engine

import (
	"atelier/crm"
	"atelier/saga"
)

const (
	EventOrderStarted EventType = iota + 1
	EventOrderAdvanced
	EventTransitionFailed
	EventSagaStateChanged
	EventSnapshotUpdated
	EventFeedRefreshed
	EventFeedRefreshFailed
	EventZoneSelected
	EventShiftStarted
	EventShiftStopped
	EventCRMConnected
	EventCRMDisconnected
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type OrderStartedEvent struct {
	OrderID int64
	UserID  int64
	Zone    string
}

type OrderAdvancedEvent struct {
	OrderID int64
	UserID  int64
	Zone    string
}

type TransitionFailedEvent struct {
	OrderID int64
	UserID  int64
	Zone    string
	Action  string
	Detail  string
}

type SagaStateChangedEvent struct {
	State saga.State
}

type SnapshotUpdatedEvent struct {
	Zone     string
	Snapshot *crm.StatusSnapshot
	OK       bool
}

type FeedRefreshedEvent struct {
	Zone  string
	Count int
}

type FeedRefreshFailedEvent struct {
	Zone   string
	Detail string
}

type ZoneSelectedEvent struct {
	Zone string
}

type ShiftStartedEvent struct {
	UserID int64
}

type ShiftStoppedEvent struct {
	UserID int64
}

type ConnectionEvent struct {
	Detail string
}
