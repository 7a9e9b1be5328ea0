package saga

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"sync"
	"testing"

	"atelier/crm"
)

type fakeBilling struct {
	mu          sync.Mutex
	invoiceErr  error
	receiptErr  error
	moveErr     error
	invoiceGate chan struct{}

	invoiceCalls int
	receiptCalls int
	moveCalls    int
}

func (f *fakeBilling) GenerateInvoice(ctx context.Context, orderID int64) (*crm.InvoiceResult, error) {
	f.mu.Lock()
	f.invoiceCalls++
	gate := f.invoiceGate
	err := f.invoiceErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &crm.InvoiceResult{Series: "DAN", Number: 4521}, nil
}

func (f *fakeBilling) GenerateReceipt(ctx context.Context, orderID int64) (*crm.ReceiptResult, error) {
	f.mu.Lock()
	f.receiptCalls++
	err := f.receiptErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &crm.ReceiptResult{Path: "/bonuri/4521.pdf"}, nil
}

func (f *fakeBilling) MoveOrder(ctx context.Context, family string, orderID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moveCalls++
	return f.moveErr
}

type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) EmitSagaState(st State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
}

func (r *stateRecorder) steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Step, len(r.states))
	for i, st := range r.states {
		out[i] = st.Step
	}
	return out
}

func newTestRunner(fb *fakeBilling, rec *stateRecorder) *Runner {
	return NewRunner(fb, fb, fb, rec, crm.FamilyLegatorie)
}

func TestRunFullSequence(t *testing.T) {
	fb := &fakeBilling{}
	rec := &stateRecorder{}
	r := newTestRunner(fb, rec)

	st, err := r.Run(context.Background(), 100, 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Step != StepMoveDone || st.Progress != 100 {
		t.Fatalf("final state = %s (%d%%), want muta-done (100%%)", st.Step, st.Progress)
	}
	if st.Invoice == nil || st.Invoice.Series != "DAN" || st.Invoice.Number != 4521 {
		t.Errorf("invoice ref = %+v", st.Invoice)
	}
	if st.Receipt != "/bonuri/4521.pdf" {
		t.Errorf("receipt = %q", st.Receipt)
	}

	wantSteps := []Step{
		StepInvoiceStart, StepInvoiceDone,
		StepReceiptStart, StepReceiptDone,
		StepMoveStart, StepMoveDone,
	}
	if !reflect.DeepEqual(rec.steps(), wantSteps) {
		t.Errorf("emitted steps = %v, want %v", rec.steps(), wantSteps)
	}

	wantProgress := []int{10, 33, 45, 66, 85, 100}
	for i, st := range rec.states {
		if st.Progress != wantProgress[i] {
			t.Errorf("step %s progress = %d, want %d", st.Step, st.Progress, wantProgress[i])
		}
	}
}

func TestRunReceiptFailureStopsBeforeMove(t *testing.T) {
	fb := &fakeBilling{receiptErr: &crm.APIError{Status: 200, Message: "stoc epuizat"}}
	rec := &stateRecorder{}
	r := newTestRunner(fb, rec)

	st, err := r.Run(context.Background(), 100, 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Step != StepError {
		t.Fatalf("step = %s, want error", st.Step)
	}
	if st.Message != "stoc epuizat" {
		t.Errorf("message = %q, want server text", st.Message)
	}
	// Progress freezes where it stopped: the receipt step had begun.
	if st.Progress != 45 {
		t.Errorf("progress = %d, want 45", st.Progress)
	}
	// The invoice already exists server-side; the state keeps the reference.
	if st.Invoice == nil {
		t.Error("invoice ref should survive the failure")
	}
	if fb.moveCalls != 0 {
		t.Errorf("move calls = %d, the move must never run after a failed receipt", fb.moveCalls)
	}
}

func TestRunInvoiceFailureStopsImmediately(t *testing.T) {
	fb := &fakeBilling{invoiceErr: errors.New("connection refused")}
	rec := &stateRecorder{}
	r := newTestRunner(fb, rec)

	st, err := r.Run(context.Background(), 100, 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Step != StepError {
		t.Fatalf("step = %s, want error", st.Step)
	}
	if fb.receiptCalls != 0 || fb.moveCalls != 0 {
		t.Error("later steps must not run after a failed invoice")
	}
	if st.Progress != 10 {
		t.Errorf("progress = %d, want 10", st.Progress)
	}
}

func TestRunSingleFlightPerOrder(t *testing.T) {
	gate := make(chan struct{})
	fb := &fakeBilling{invoiceGate: gate}
	r := newTestRunner(fb, &stateRecorder{})

	done := make(chan State)
	go func() {
		st, _ := r.Run(context.Background(), 100, 5)
		done <- st
	}()

	// Wait for the first run to claim the order.
	for !r.InFlight()[100] {
		runtime.Gosched()
	}

	_, err := r.Run(context.Background(), 100, 5)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second run err = %v, want ErrAlreadyRunning", err)
	}
	if fb.invoiceCalls != 1 {
		t.Errorf("invoice calls = %d, the duplicate must be rejected before any network call", fb.invoiceCalls)
	}

	// An unrelated order is not blocked.
	go func() { close(gate) }()
	<-done

	st2, err := r.Run(context.Background(), 200, 5)
	if err != nil {
		t.Fatalf("unrelated order: %v", err)
	}
	if st2.Step != StepMoveDone {
		t.Errorf("unrelated order step = %s", st2.Step)
	}
}

func TestRunReplacesTerminalState(t *testing.T) {
	fb := &fakeBilling{invoiceErr: errors.New("boom")}
	r := newTestRunner(fb, &stateRecorder{})

	first, _ := r.Run(context.Background(), 100, 5)
	if first.Step != StepError {
		t.Fatalf("setup: step = %s", first.Step)
	}

	// A terminal run does not block the retrigger.
	fb.mu.Lock()
	fb.invoiceErr = nil
	fb.mu.Unlock()

	second, err := r.Run(context.Background(), 100, 5)
	if err != nil {
		t.Fatalf("retrigger: %v", err)
	}
	if second.Step != StepMoveDone {
		t.Errorf("retrigger step = %s, want muta-done", second.Step)
	}
	if second.RunID == first.RunID {
		t.Error("retrigger must get a fresh run ID")
	}
}

func TestForgetOnlyDropsTerminalRuns(t *testing.T) {
	gate := make(chan struct{})
	fb := &fakeBilling{invoiceGate: gate}
	r := newTestRunner(fb, &stateRecorder{})

	done := make(chan struct{})
	go func() {
		r.Run(context.Background(), 100, 5)
		close(done)
	}()
	for !r.InFlight()[100] {
		runtime.Gosched()
	}

	r.Forget(100)
	if _, ok := r.State(100); !ok {
		t.Fatal("Forget must not drop an in-flight run")
	}

	close(gate)
	<-done

	r.Forget(100)
	if _, ok := r.State(100); ok {
		t.Fatal("Forget should drop the terminal run")
	}
}

func TestInFlightExcludesTerminal(t *testing.T) {
	fb := &fakeBilling{}
	r := newTestRunner(fb, &stateRecorder{})

	r.Run(context.Background(), 100, 5)
	if inflight := r.InFlight(); inflight[100] {
		t.Error("completed saga should not be in flight")
	}
}

func TestStepProgressTable(t *testing.T) {
	cases := []struct {
		step Step
		name string
		pct  int
	}{
		{StepIdle, "idle", 0},
		{StepInvoiceStart, "factura-start", 10},
		{StepInvoiceDone, "factura-done", 33},
		{StepReceiptStart, "bon-start", 45},
		{StepReceiptDone, "bon-done", 66},
		{StepMoveStart, "muta-start", 85},
		{StepMoveDone, "muta-done", 100},
	}
	for _, c := range cases {
		if c.step.String() != c.name {
			t.Errorf("step %d name = %q, want %q", c.step, c.step.String(), c.name)
		}
		if c.step.Progress() != c.pct {
			t.Errorf("step %s progress = %d, want %d", c.name, c.step.Progress(), c.pct)
		}
	}
	if !StepMoveDone.Terminal() || !StepError.Terminal() {
		t.Error("muta-done and error are terminal")
	}
	if StepReceiptDone.Terminal() {
		t.Error("bon-done is not terminal")
	}
}
