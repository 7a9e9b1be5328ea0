package zonestate

import (
	"context"
	"testing"
	"time"

	"atelier/crm"
)

func TestMemoryFallbackWithoutRedis(t *testing.T) {
	m := NewManager(nil, time.Minute)

	snap := &crm.StatusSnapshot{
		Counts: map[string]crm.ZoneCount{"legatorie": {Total: 4}},
	}
	m.Set(context.Background(), crm.ZoneLegatorie, snap)

	got := m.Get(context.Background(), crm.ZoneLegatorie)
	if got.Total("legatorie") != 4 {
		t.Errorf("total = %d, want 4", got.Total("legatorie"))
	}
}

func TestGetUnknownZoneReturnsZeroedCachedSnapshot(t *testing.T) {
	m := NewManager(nil, time.Minute)

	got := m.Get(context.Background(), crm.ZoneDPD)
	if got == nil {
		t.Fatal("Get never returns nil")
	}
	if !got.FromCache {
		t.Error("placeholder snapshot must be marked cached so it never forces a reload")
	}
	if got.Total("legatorie") != 0 {
		t.Error("placeholder snapshot must be zeroed")
	}
}

func TestSetOverwritesPerZone(t *testing.T) {
	m := NewManager(nil, time.Minute)

	m.Set(context.Background(), crm.ZoneLegatorie, &crm.StatusSnapshot{
		Counts: map[string]crm.ZoneCount{"legatorie": {Total: 1}},
	})
	m.Set(context.Background(), crm.ZoneLegatorie, &crm.StatusSnapshot{
		Counts: map[string]crm.ZoneCount{"legatorie": {Total: 8}},
	})
	m.Set(context.Background(), crm.ZoneDPD, &crm.StatusSnapshot{
		Counts: map[string]crm.ZoneCount{"dpd": {Total: 3}},
	})

	if got := m.Get(context.Background(), crm.ZoneLegatorie); got.Total("legatorie") != 8 {
		t.Errorf("legatorie total = %d, want 8", got.Total("legatorie"))
	}
	if got := m.Get(context.Background(), crm.ZoneDPD); got.Total("dpd") != 3 {
		t.Errorf("dpd total = %d, want 3", got.Total("dpd"))
	}
}
