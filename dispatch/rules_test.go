package dispatch

import (
	"testing"

	"atelier/crm"
)

func TestActionFor(t *testing.T) {
	cases := []struct {
		name    string
		started bool
		family  string
		zone    string
		want    Action
	}{
		{"unstarted in bindery", false, crm.FamilyLegatorie, crm.ZoneLegatorie, ActionStart},
		{"started in bindery", true, crm.FamilyLegatorie, crm.ZoneLegatorie, ActionAdvance},
		{"unstarted in dpd", false, crm.FamilyLegatorie, crm.ZoneDPD, ActionStart},
		{"unstarted in fan", false, crm.FamilyGravare, crm.ZoneFAN, ActionStart},
		{"unstarted in productie", false, crm.FamilyLegatorie, crm.ZoneProductie, ActionNone},
		{"started in productie", true, crm.FamilyLegatorie, crm.ZoneProductie, ActionNone},
		{"started in onhold", true, crm.FamilyLegatorie, crm.ZoneOnHold, ActionAdvance},
		{"started in pending", true, crm.FamilyGravare, crm.ZonePending, ActionAdvance},
		{"started in client approval", true, crm.FamilyLegatorie, crm.ZoneAprobareClient, ActionAdvance},
		{"started in procesare", true, crm.FamilyGravare, crm.ZoneProcesare, ActionAdvance},
		{"started in dpd", true, crm.FamilyGravare, crm.ZoneDPD, ActionAdvance},
		{"unstarted engraving family in bindery zone", false, crm.FamilyGravare, crm.ZoneLegatorie, ActionNone},
		{"started engraving family in bindery zone", true, crm.FamilyGravare, crm.ZoneLegatorie, ActionNone},
		{"started bindery family in engraving zone", true, crm.FamilyLegatorie, crm.ZoneGravare, ActionNone},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			o := crm.Order{}
			if c.started {
				if c.family == crm.FamilyGravare {
					o.StartedEngraving = true
				} else {
					o.StartedBindery = true
				}
			}
			if got := ActionFor(&o, c.family, c.zone); got != c.want {
				t.Errorf("ActionFor = %s, want %s", got, c.want)
			}
		})
	}
}

func TestActionsMutuallyExclusive(t *testing.T) {
	for _, started := range []bool{false, true} {
		o := crm.Order{StartedBindery: crm.FlexBool(started)}
		canStart := CanStart(&o, crm.FamilyLegatorie, crm.ZoneLegatorie)
		canAdvance := CanAdvance(&o, crm.FamilyLegatorie, crm.ZoneLegatorie)
		if canStart && canAdvance {
			t.Errorf("started=%v: both actions offered", started)
		}
	}
}

func TestSagaZone(t *testing.T) {
	cases := []struct {
		family string
		zone   string
		want   bool
	}{
		{crm.FamilyLegatorie, crm.ZoneLegatorie, true},
		{crm.FamilyLegatorie, crm.ZoneDPD, false},
		{crm.FamilyGravare, crm.ZoneLegatorie, false},
		{crm.FamilyGravare, crm.ZoneGravare, false},
	}
	for _, c := range cases {
		if got := SagaZone(c.family, c.zone); got != c.want {
			t.Errorf("SagaZone(%s, %s) = %v, want %v", c.family, c.zone, got, c.want)
		}
	}
}
