// Package saga runs the three-step advancement workflow that moves an order
// out of the bindery zone: generate invoice, generate receipt, move. Steps
// are strictly sequential, there are no retries and no compensation; an
// invoice left behind by a failed receipt step is an accepted outcome the
// operator sees and resolves.
package saga

import (
	"fmt"
	"time"
)

// Step is the saga's position. Transitions only move forward; any in-flight
// step may jump to StepError and stay there until the operator re-triggers.
type Step int

const (
	StepIdle Step = iota
	StepInvoiceStart
	StepInvoiceDone
	StepReceiptStart
	StepReceiptDone
	StepMoveStart
	StepMoveDone
	StepError
)

var stepNames = map[Step]string{
	StepIdle:         "idle",
	StepInvoiceStart: "factura-start",
	StepInvoiceDone:  "factura-done",
	StepReceiptStart: "bon-start",
	StepReceiptDone:  "bon-done",
	StepMoveStart:    "muta-start",
	StepMoveDone:     "muta-done",
	StepError:        "error",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

var stepProgress = map[Step]int{
	StepIdle:         0,
	StepInvoiceStart: 10,
	StepInvoiceDone:  33,
	StepReceiptStart: 45,
	StepReceiptDone:  66,
	StepMoveStart:    85,
	StepMoveDone:     100,
}

// Progress maps a step to its fixed percentage. StepError has no percentage
// of its own; State keeps the one reached before failing.
func (s Step) Progress() int {
	return stepProgress[s]
}

// Terminal reports whether the saga can no longer advance.
func (s Step) Terminal() bool {
	return s == StepMoveDone || s == StepError
}

// State is a saga instance for one order. It is copied out to observers on
// every transition.
type State struct {
	RunID   string
	OrderID int64
	UserID  int64

	Step     Step
	Progress int
	Message  string

	Invoice *InvoiceRef
	Receipt string

	StartedAt time.Time
	UpdatedAt time.Time
}

// InvoiceRef identifies the invoice produced by the first step.
type InvoiceRef struct {
	Series string `json:"serie"`
	Number int    `json:"numar"`
}

// next is the only legal forward transition from each non-terminal step.
var next = map[Step]Step{
	StepIdle:         StepInvoiceStart,
	StepInvoiceStart: StepInvoiceDone,
	StepInvoiceDone:  StepReceiptStart,
	StepReceiptStart: StepReceiptDone,
	StepReceiptDone:  StepMoveStart,
	StepMoveStart:    StepMoveDone,
}

// advance moves the state one step forward. It is the single transition
// point, so illegal jumps and repeats cannot happen.
func (st *State) advance() error {
	to, ok := next[st.Step]
	if !ok {
		return fmt.Errorf("saga: no transition from %s", st.Step)
	}
	st.Step = to
	st.Progress = to.Progress()
	st.UpdatedAt = time.Now()
	return nil
}

// fail moves the state to the terminal error step, keeping the progress
// percentage already reached so the indicator freezes where it stopped.
func (st *State) fail(msg string) {
	st.Step = StepError
	st.Message = msg
	st.UpdatedAt = time.Now()
}
