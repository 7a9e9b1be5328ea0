package dispatch

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"

	"atelier/crm"
	"atelier/feed"
	"atelier/saga"
)

type fakeCRM struct {
	mu        sync.Mutex
	startErr  error
	moveErr   error
	startGate chan struct{}

	startCalls   int
	moveCalls    int
	invoiceCalls int
	receiptCalls int
	lastFamily   string
	lastUserID   int64
}

func (f *fakeCRM) StartOrder(ctx context.Context, family string, orderID, userID int64) error {
	f.mu.Lock()
	f.startCalls++
	f.lastFamily = family
	f.lastUserID = userID
	gate := f.startGate
	err := f.startErr
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return err
}

func (f *fakeCRM) MoveOrder(ctx context.Context, family string, orderID, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moveCalls++
	f.lastFamily = family
	return f.moveErr
}

func (f *fakeCRM) GenerateInvoice(ctx context.Context, orderID int64) (*crm.InvoiceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoiceCalls++
	return &crm.InvoiceResult{Series: "DAN", Number: 1}, nil
}

func (f *fakeCRM) GenerateReceipt(ctx context.Context, orderID int64) (*crm.ReceiptResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptCalls++
	return &crm.ReceiptResult{Path: "/bon.pdf"}, nil
}

type recordingEmitter struct {
	mu       sync.Mutex
	started  []int64
	advanced []int64
	failed   []string
}

func (r *recordingEmitter) EmitOrderStarted(orderID, userID int64, zone string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, orderID)
}

func (r *recordingEmitter) EmitOrderAdvanced(orderID, userID int64, zone string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanced = append(r.advanced, orderID)
}

func (r *recordingEmitter) EmitTransitionFailed(orderID, userID int64, zone, action, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, detail)
}

func newTestDispatcher(zone string, orders ...crm.Order) (*Dispatcher, *fakeCRM, *recordingEmitter, *feed.Feed) {
	fc := &fakeCRM{}
	em := &recordingEmitter{}
	f := feed.New(zone)
	f.SetOrders(zone, orders)
	sagas := saga.NewRunner(fc, fc, fc, nil, crm.FamilyLegatorie)
	d := NewDispatcher(fc, f, sagas, em, crm.FamilyLegatorie)
	return d, fc, em, f
}

func TestStartFlipsFlagLocally(t *testing.T) {
	d, fc, em, f := newTestDispatcher(crm.ZoneLegatorie, crm.Order{ID: 100})

	if err := d.Start(context.Background(), 100, 5); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if fc.startCalls != 1 || fc.lastFamily != crm.FamilyLegatorie || fc.lastUserID != 5 {
		t.Errorf("start call = %d calls family %s user %d", fc.startCalls, fc.lastFamily, fc.lastUserID)
	}
	o, _ := f.Get(100)
	if !o.StartedBindery.Bool() {
		t.Error("started flag must flip locally without a refetch")
	}
	if len(em.started) != 1 || em.started[0] != 100 {
		t.Errorf("started events = %v", em.started)
	}
}

func TestStartNotOfferedWhenAlreadyStarted(t *testing.T) {
	d, fc, _, _ := newTestDispatcher(crm.ZoneLegatorie, crm.Order{ID: 100, StartedBindery: true})

	err := d.Start(context.Background(), 100, 5)
	if !errors.Is(err, ErrNotOffered) {
		t.Fatalf("err = %v, want ErrNotOffered", err)
	}
	if fc.startCalls != 0 {
		t.Error("offered check must run before any network call")
	}
}

func TestStartFailureLeavesFlagUntouched(t *testing.T) {
	d, fc, em, f := newTestDispatcher(crm.ZoneLegatorie, crm.Order{ID: 100})
	fc.startErr = errors.New("boom")

	if err := d.Start(context.Background(), 100, 5); err == nil {
		t.Fatal("want error")
	}
	o, _ := f.Get(100)
	if o.StartedBindery.Bool() {
		t.Error("flag must not flip on failure")
	}
	if len(em.failed) != 1 {
		t.Errorf("failed events = %v", em.failed)
	}
}

func TestStartMissingOrder(t *testing.T) {
	d, _, _, _ := newTestDispatcher(crm.ZoneLegatorie)
	if err := d.Start(context.Background(), 999, 5); err == nil {
		t.Fatal("want error for missing order")
	}
}

func TestStartRejectsConcurrentDuplicate(t *testing.T) {
	gate := make(chan struct{})
	d, fc, _, _ := newTestDispatcher(crm.ZoneDPD, crm.Order{ID: 100})
	fc.startGate = gate

	done := make(chan error, 1)
	go func() { done <- d.Start(context.Background(), 100, 5) }()

	for {
		if _, busy := d.InFlight(100); busy {
			break
		}
		runtime.Gosched()
	}

	if err := d.Start(context.Background(), 100, 5); !errors.Is(err, ErrBusy) {
		t.Fatalf("duplicate err = %v, want ErrBusy", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("first start: %v", err)
	}
	if fc.startCalls != 1 {
		t.Errorf("start calls = %d, want 1", fc.startCalls)
	}
}

func TestAdvanceSingleMoveOutsideBindery(t *testing.T) {
	d, fc, em, f := newTestDispatcher(crm.ZoneDPD, crm.Order{ID: 100, StartedBindery: true})

	if err := d.Advance(context.Background(), 100, 5); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if fc.moveCalls != 1 {
		t.Errorf("move calls = %d, want 1", fc.moveCalls)
	}
	if fc.invoiceCalls != 0 || fc.receiptCalls != 0 {
		t.Error("billing must not run outside the bindery zone")
	}
	if _, ok := f.Get(100); ok {
		t.Error("advanced order should leave the feed")
	}
	if len(em.advanced) != 1 {
		t.Errorf("advanced events = %v", em.advanced)
	}
}

func TestAdvanceRunsSagaInBindery(t *testing.T) {
	d, fc, em, f := newTestDispatcher(crm.ZoneLegatorie, crm.Order{ID: 100, StartedBindery: true})

	if err := d.Advance(context.Background(), 100, 5); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if fc.invoiceCalls != 1 || fc.receiptCalls != 1 || fc.moveCalls != 1 {
		t.Errorf("calls = invoice %d receipt %d move %d, want 1 each",
			fc.invoiceCalls, fc.receiptCalls, fc.moveCalls)
	}
	if _, ok := f.Get(100); ok {
		t.Error("advanced order should leave the feed")
	}
	if len(em.advanced) != 1 {
		t.Errorf("advanced events = %v", em.advanced)
	}
}

func TestAdvanceNotOfferedUpstream(t *testing.T) {
	d, fc, _, _ := newTestDispatcher(crm.ZoneProductie, crm.Order{ID: 100, StartedBindery: true})

	err := d.Advance(context.Background(), 100, 5)
	if !errors.Is(err, ErrNotOffered) {
		t.Fatalf("err = %v, want ErrNotOffered", err)
	}
	if fc.moveCalls != 0 {
		t.Error("no network call for a suppressed zone")
	}
}

func TestAdvanceMoveFailureKeepsOrder(t *testing.T) {
	d, fc, em, f := newTestDispatcher(crm.ZoneDPD, crm.Order{ID: 100, StartedBindery: true})
	fc.moveErr = errors.New("boom")

	if err := d.Advance(context.Background(), 100, 5); err == nil {
		t.Fatal("want error")
	}
	if _, ok := f.Get(100); !ok {
		t.Error("failed advance must not drop the order")
	}
	if len(em.failed) != 1 {
		t.Errorf("failed events = %v", em.failed)
	}
}
