package crm

import (
	"bytes"
	"encoding/json"
	"path"
	"strconv"
	"strings"
	"time"
)

// FlexBool decodes the CRM's boolean-ish fields, which arrive as true/false,
// 0/1, "0"/"1", "true"/"false", "" or null depending on the endpoint.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", `""`, "0", `"0"`, "false", `"false"`, `"no"`:
		*b = false
		return nil
	case "true", `"true"`, "1", `"1"`, `"yes"`:
		*b = true
		return nil
	}
	// Any other non-empty string or number counts as set.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = strings.TrimSpace(s) != ""
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*b = n != 0
		return nil
	}
	*b = false
	return nil
}

func (b FlexBool) Bool() bool { return bool(b) }

// FlexQuantity decodes quantities the CRM serializes as either numbers or
// numeric strings.
type FlexQuantity float64

func (q *FlexQuantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*q = FlexQuantity(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*q = 0
		return nil
	}
	*q = FlexQuantity(n)
	return nil
}

// DifferingAnnexes is sent either as {"anexe_diferite_comanda":"1"} or as a
// bare scalar.
type DifferingAnnexes bool

func (d *DifferingAnnexes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var wrap struct {
			Flag FlexBool `json:"anexe_diferite_comanda"`
		}
		if err := json.Unmarshal(data, &wrap); err != nil {
			return err
		}
		*d = DifferingAnnexes(wrap.Flag)
		return nil
	}
	var b FlexBool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*d = DifferingAnnexes(b)
	return nil
}

type ShippingDetails struct {
	FirstName string `json:"_shipping_first_name"`
	LastName  string `json:"_shipping_last_name"`
}

// Product is one line item of an order. Annex files are keyed by
// material/finish code (wenge, alb, plexi, ...).
type Product struct {
	ProductID    string            `json:"id_produs"`
	Name         string            `json:"nume"`
	Item         int               `json:"item"`
	Image        string            `json:"poza"`
	Quantity     FlexQuantity      `json:"quantity"`
	Annexes      map[string]string `json:"anexe"`
	AnnexesAlpha map[string]string `json:"anexe_alpha"`
}

// GraphicsFile is a downloadable production file attached to an order.
type GraphicsFile struct {
	Name string `json:"nume"`
	File string `json:"fisier"`
}

// Order is one customer order as the CRM returns it from a zone feed.
type Order struct {
	ID              int64           `json:"ID"`
	ShippingDetails ShippingDetails `json:"shipping_details"`
	Carrier         string          `json:"ramburs"`
	TransportMethod string          `json:"metodatransportcustom"`
	PostStatus      string          `json:"post_status"`
	ShipDate        string          `json:"expediere"`
	IntakeDate      string          `json:"post_date"`
	TotalPieces     int             `json:"total_buc"`
	TotalFormatted  string          `json:"order_total_formatted"`

	// Per-zone started flags. Only the flag matching the board's zone
	// family is meaningful for a given feed.
	StartedEngraving FlexBool `json:"logprogravare"`
	StartedBindery   FlexBool `json:"logprolegatorie"`

	Engraving bool `json:"gravare"`
	Printing  bool `json:"printare"`

	DifferingAnnexes DifferingAnnexes `json:"anexe_diferite_comanda"`
	PenAttention     FlexBool         `json:"atentie_pix"`
	Redone           FlexBool         `json:"refacut"`
	RedoneReason     string           `json:"motiv_refacut"`

	Products      []Product      `json:"produse_finale"`
	Gallery       []string       `json:"previzualizare_galerie"`
	GraphicsFiles []GraphicsFile `json:"download_fisiere_grafica"`
	Missing       []string       `json:"lipsuri"`
}

// FullName returns the customer shipping name as displayed on the board.
func (o *Order) FullName() string {
	return strings.TrimSpace(o.ShippingDetails.FirstName + " " + o.ShippingDetails.LastName)
}

// Started reports whether processing has begun in the given zone family.
func (o *Order) Started(family string) bool {
	if family == FamilyGravare {
		return o.StartedEngraving.Bool()
	}
	return o.StartedBindery.Bool()
}

// QuantityMismatch reports whether any line item has quantity above one.
func (o *Order) QuantityMismatch() bool {
	for _, p := range o.Products {
		if p.Quantity > 1 {
			return true
		}
	}
	return false
}

// ShipDateLabel formats the shipping date the way the board renders and
// compares it: DD.MM.YYYY with no comma.
func (o *Order) ShipDateLabel() string {
	return FormatDateLabel(o.ShipDate)
}

// FormatDateLabel parses a CRM datetime and renders the date part. Unparseable
// values pass through stripped of commas so string comparison still works.
func FormatDateLabel(s string) string {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02.01.2006")
		}
	}
	s = strings.ReplaceAll(s, ",", "")
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

// Extensions the laser takes directly; everything else goes to the printer.
var engravingExtensions = map[string]bool{
	".cdr": true,
	".dxf": true,
	".svg": true,
	".ai":  true,
	".eps": true,
}

// SplitGraphicsFiles classifies an order's production files into engraving
// and print groups by file extension.
func SplitGraphicsFiles(files []GraphicsFile) (engraving, print []GraphicsFile) {
	for _, f := range files {
		ext := strings.ToLower(path.Ext(f.File))
		if engravingExtensions[ext] {
			engraving = append(engraving, f)
		} else {
			print = append(print, f)
		}
	}
	return engraving, print
}

// ZoneCount is one named bucket of the aggregate snapshot.
type ZoneCount struct {
	Total int `json:"total"`
}

// StatusSnapshot is the per-zone aggregate counter set. FromCache reports
// whether the CRM answered from its cache layer; a live (non-cached) answer
// means the order feed is stale and should be reloaded.
type StatusSnapshot struct {
	Counts    map[string]ZoneCount `json:"statusuri"`
	FromCache bool                 `json:"from_cache"`
}

// Total returns the counter for a named bucket, zero when absent.
func (s *StatusSnapshot) Total(bucket string) int {
	if s == nil {
		return 0
	}
	return s.Counts[bucket].Total
}

// InvoiceResult identifies a generated invoice.
type InvoiceResult struct {
	Series string `json:"serie"`
	Number int    `json:"numar"`
}

// ReceiptResult identifies a generated fiscal receipt.
type ReceiptResult struct {
	Path string
}

// Timesheet is the employee's shift state for today.
type Timesheet struct {
	Running bool `json:"pontaj_pornit"`
	Minutes int  `json:"minute"`
}

// WorkDay is one entry of the current month's work history.
type WorkDay struct {
	Date    string `json:"data"`
	Minutes int    `json:"minute"`
}

// StockItem is one row of the read-only stock report.
type StockItem struct {
	ID    int64        `json:"id"`
	Name  string       `json:"nume"`
	Stock FlexQuantity `json:"numar_stoc"`
}

// StudyItem is one row of the production study list. The three done-flags are
// null until someone works the item in the matching zone.
type StudyItem struct {
	ID       int64     `json:"id"`
	Name     string    `json:"nume"`
	Cut      *FlexBool `json:"am_debitat"`
	Engraved *FlexBool `json:"am_gravat"`
	Printed  *FlexBool `json:"am_printat"`
}

// Pending reports whether the study item still needs floor work: engraved
// items and rows with no zone touched at all are filtered out.
func (s *StudyItem) Pending() bool {
	if s.Engraved != nil && s.Engraved.Bool() {
		return false
	}
	if s.Engraved == nil && s.Cut == nil && s.Printed == nil {
		return false
	}
	return true
}
