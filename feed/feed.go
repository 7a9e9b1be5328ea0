// Package feed owns the in-memory order list for the active zone and the
// derivation pipeline that turns it into the displayed view.
package feed

import (
	"sync"
	"time"

	"atelier/crm"
)

// Feed holds the current zone's orders. All mutation goes through its
// methods; readers get copies.
type Feed struct {
	mu       sync.RWMutex
	zone     string
	orders   []crm.Order
	loadedAt time.Time
	lastErr  error
}

func New(zone string) *Feed {
	return &Feed{zone: zone}
}

// Zone returns the zone the current list belongs to.
func (f *Feed) Zone() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.zone
}

// SetOrders replaces the list after a successful load.
func (f *Feed) SetOrders(zone string, orders []crm.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zone = zone
	f.orders = append([]crm.Order(nil), orders...)
	f.loadedAt = time.Now()
	f.lastErr = nil
}

// Reset empties the list after a failed load, keeping the error as the
// ambient "could not refresh" signal.
func (f *Feed) Reset(zone string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zone = zone
	f.orders = nil
	f.loadedAt = time.Now()
	f.lastErr = err
}

// Orders returns a copy of the raw (underived) list.
func (f *Feed) Orders() []crm.Order {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]crm.Order(nil), f.orders...)
}

// LastError returns the error from the most recent failed load, nil after a
// successful one.
func (f *Feed) LastError() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastErr
}

// LoadedAt returns when the list was last replaced or reset.
func (f *Feed) LoadedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loadedAt
}

// Len returns the raw list length.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.orders)
}

// MarkStarted flips the zone family's started-flag on one order in place.
// This is the single local-transition point: a successful start call updates
// the view without a refetch. Returns false when the order is not present.
func (f *Feed) MarkStarted(orderID int64, family string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID != orderID {
			continue
		}
		if family == crm.FamilyGravare {
			f.orders[i].StartedEngraving = true
		} else {
			f.orders[i].StartedBindery = true
		}
		return true
	}
	return false
}

// Remove drops an order from the list, used when it has advanced out of the
// zone and the caller wants it gone before the refetch lands.
func (f *Feed) Remove(orderID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == orderID {
			f.orders = append(f.orders[:i], f.orders[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns a copy of one order by ID.
func (f *Feed) Get(orderID int64) (crm.Order, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for i := range f.orders {
		if f.orders[i].ID == orderID {
			return f.orders[i], true
		}
	}
	return crm.Order{}, false
}

// ShipDates returns the distinct formatted shipping dates present in the
// list, newest first, for the date filter row.
func (f *Feed) ShipDates() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	seen := map[string]bool{}
	var dates []string
	for i := range f.orders {
		d := f.orders[i].ShipDateLabel()
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}
	// DD.MM.YYYY sorts newest-first by comparing reversed components.
	for i := 0; i < len(dates); i++ {
		for j := i + 1; j < len(dates); j++ {
			if dateKey(dates[j]) > dateKey(dates[i]) {
				dates[i], dates[j] = dates[j], dates[i]
			}
		}
	}
	return dates
}

func dateKey(d string) string {
	// "DD.MM.YYYY" -> "YYYY.MM.DD"
	if len(d) == 10 && d[2] == '.' && d[5] == '.' {
		return d[6:] + "." + d[3:5] + "." + d[:2]
	}
	return d
}
