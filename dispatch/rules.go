package dispatch

import "atelier/crm"

// Action is what the board offers for an order in the active zone.
type Action string

const (
	ActionStart   Action = "start"
	ActionAdvance Action = "advance"
	ActionNone    Action = "none"
)

// startZones lists, per zone family, the zones where starting an order is
// meaningful. Elsewhere the started-flag is owned by another stage.
var startZones = map[string]map[string]bool{
	crm.FamilyGravare: {
		crm.ZoneGravare: true,
		crm.ZoneDPD:     true,
		crm.ZoneFAN:     true,
	},
	crm.FamilyLegatorie: {
		crm.ZoneLegatorie: true,
		crm.ZoneDPD:       true,
		crm.ZoneFAN:       true,
	},
}

// advanceSuppressed lists, per zone family, the zones where advancing is never
// offered: production proper and the other stage's home zone. Parked zones
// (client approval, processing, on hold, pending) still get the move button so
// a stuck order can be pushed along.
var advanceSuppressed = map[string]map[string]bool{
	crm.FamilyGravare: {
		crm.ZoneProductie: true,
		crm.ZoneLegatorie: true,
	},
	crm.FamilyLegatorie: {
		crm.ZoneProductie: true,
		crm.ZoneGravare:   true,
	},
}

// CanStart reports whether the Start action is offered for an order in the
// given zone.
func CanStart(o *crm.Order, family, zone string) bool {
	return !o.Started(family) && startZones[family][zone]
}

// CanAdvance reports whether the Advance action is offered.
func CanAdvance(o *crm.Order, family, zone string) bool {
	return o.Started(family) && !advanceSuppressed[family][zone]
}

// ActionFor returns the single action offered for an order, Start and
// Advance being mutually exclusive.
func ActionFor(o *crm.Order, family, zone string) Action {
	if CanStart(o, family, zone) {
		return ActionStart
	}
	if CanAdvance(o, family, zone) {
		return ActionAdvance
	}
	return ActionNone
}

// SagaZone reports whether advancing out of this zone requires the billing
// saga instead of a single move call. Only the bindery needs invoice and
// receipt before the move.
func SagaZone(family, zone string) bool {
	return family == crm.FamilyLegatorie && zone == crm.ZoneLegatorie
}
