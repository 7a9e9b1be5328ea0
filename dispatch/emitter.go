package dispatch

// Emitter is the interface adapters must satisfy to bridge transition events
// to the engine.
type Emitter interface {
	EmitOrderStarted(orderID, userID int64, zone string)
	EmitOrderAdvanced(orderID, userID int64, zone string)
	EmitTransitionFailed(orderID, userID int64, zone, action, detail string)
}
