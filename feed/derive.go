package feed

import (
	"sort"
	"strconv"
	"strings"

	"atelier/crm"
)

// Kind filters orders by graphics type.
type Kind string

const (
	KindAll      Kind = "all"
	KindGravare  Kind = "gravare"
	KindPrintare Kind = "printare"
)

// Filter is the view state the derivation pipeline applies. Zero value means
// no filtering beyond the started-first sort.
type Filter struct {
	ProductID string
	ShipDate  string // formatted label, e.g. "24.12.2026"
	Search    string
	Kind      Kind

	// Family selects which started-flag drives the sort.
	Family string

	// InFlight holds order IDs currently mid-saga; they are hidden so an
	// order never shows in two zones while moving.
	InFlight map[int64]bool
}

// Derive computes the displayed view from the raw list. It is pure: the
// input slice is never mutated and equal inputs produce identical output.
// Filters apply in a fixed order, then a stable sort puts started orders
// first.
func Derive(orders []crm.Order, f Filter) []crm.Order {
	out := make([]crm.Order, 0, len(orders))
	for i := range orders {
		if keep(&orders[i], &f) {
			out = append(out, orders[i])
		}
	}

	family := f.Family
	if family == "" {
		family = crm.FamilyGravare
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Started(family) && !out[j].Started(family)
	})
	return out
}

func keep(o *crm.Order, f *Filter) bool {
	if f.ProductID != "" && !hasProduct(o, f.ProductID) {
		return false
	}
	if f.ShipDate != "" && o.ShipDateLabel() != f.ShipDate {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		name := strings.ToLower(o.FullName())
		id := strconv.FormatInt(o.ID, 10)
		if !strings.Contains(name, term) && !strings.Contains(id, term) {
			return false
		}
	}
	switch f.Kind {
	case KindGravare:
		if !o.Engraving {
			return false
		}
	case KindPrintare:
		if !o.Printing {
			return false
		}
	}
	if f.InFlight[o.ID] {
		return false
	}
	return true
}

func hasProduct(o *crm.Order, productID string) bool {
	for i := range o.Products {
		if o.Products[i].ProductID == productID {
			return true
		}
	}
	return false
}
