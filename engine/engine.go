package engine

import (
	"context"
	"log"
	"time"

	"atelier/config"
	"atelier/crm"
	"atelier/dispatch"
	"atelier/feed"
	"atelier/messaging"
	"atelier/saga"
	"atelier/session"
	"atelier/store"
	"atelier/zonestate"
)

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	CRMClient  *crm.Client
	Session    *session.Manager
	ZoneState  *zonestate.Manager
	MsgClient  *messaging.Client
	LogFunc    LogFunc
}

// Engine owns the runtime wiring: the feed, the saga runner, the dispatcher
// and the status poller, glued together over the EventBus.
type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	crmClient  *crm.Client
	session    *session.Manager
	zoneState  *zonestate.Manager
	msgClient  *messaging.Client
	feed       *feed.Feed
	sagas      *saga.Runner
	dispatcher *dispatch.Dispatcher
	poller     *crm.Poller
	Events     *EventBus
	logFn      LogFunc
	stopChan   chan struct{}

	crmConnected bool
	msgConnected bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	return &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		crmClient:  c.CRMClient,
		session:    c.Session,
		zoneState:  c.ZoneState,
		msgClient:  c.MsgClient,
		Events:     NewEventBus(),
		logFn:      logFn,
		stopChan:   make(chan struct{}),
	}
}

func (e *Engine) Start() {
	family := e.cfg.CRM.ZoneFamily
	zone := e.session.ActiveZone()
	if zone == "" {
		zone = e.cfg.CRM.DefaultZone
	}

	// Create emitter adapters
	de := &dispatchEmitter{bus: e.Events}
	se := &sagaEmitter{bus: e.Events}
	pe := &pollerEmitter{bus: e.Events}

	e.feed = feed.New(zone)
	e.sagas = saga.NewRunner(e.crmClient, e.crmClient, e.crmClient, se, family)
	e.dispatcher = dispatch.NewDispatcher(e.crmClient, e.feed, e.sagas, de, family)
	e.poller = crm.NewPoller(e.crmClient, pe, zone, e.cfg.Poll.Interval)

	// Wire event handlers
	e.wireEventHandlers()

	// Emit initial connection status
	e.checkConnectionStatus()

	// Start periodic connection health check
	go e.connectionHealthLoop()

	// Initial load; the poller only runs once the shift timer does.
	if e.session.Authenticated() {
		go func() {
			e.RefreshFeed(zone)
			e.syncShift()
		}()
	}

	e.logFn("engine: started (family %s, zone %s)", family, zone)
}

func (e *Engine) Stop() {
	select {
	case e.stopChan <- struct{}{}:
	default:
	}
	if e.poller != nil {
		e.poller.Stop()
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                    { return e.db }
func (e *Engine) AppConfig() *config.Config        { return e.cfg }
func (e *Engine) ConfigPath() string               { return e.configPath }
func (e *Engine) CRMClient() *crm.Client           { return e.crmClient }
func (e *Engine) Session() *session.Manager        { return e.session }
func (e *Engine) Feed() *feed.Feed                 { return e.feed }
func (e *Engine) Sagas() *saga.Runner              { return e.sagas }
func (e *Engine) Dispatcher() *dispatch.Dispatcher { return e.dispatcher }
func (e *Engine) Poller() *crm.Poller              { return e.poller }
func (e *Engine) ZoneState() *zonestate.Manager    { return e.zoneState }
func (e *Engine) MsgClient() *messaging.Client     { return e.msgClient }

// SelectZone switches the active zone: the choice is persisted, the feed
// reloads for the new zone and the poller follows.
func (e *Engine) SelectZone(zone string) error {
	if err := e.session.SetActiveZone(zone); err != nil {
		return err
	}
	e.Events.Emit(Event{Type: EventZoneSelected, Payload: ZoneSelectedEvent{Zone: zone}})
	e.RefreshFeed(zone)
	go e.poller.SetZone(zone)
	return nil
}

// RefreshFeed reloads the order list for a zone from the CRM. On failure the
// list empties rather than going stale.
func (e *Engine) RefreshFeed(zone string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.CRM.Timeout)
	defer cancel()

	orders, err := e.crmClient.ListOrders(ctx, e.cfg.CRM.ZoneFamily, zone)
	if err != nil {
		e.logFn("engine: refresh feed for %s: %v", zone, err)
		e.feed.Reset(zone, err)
		e.Events.Emit(Event{Type: EventFeedRefreshFailed, Payload: FeedRefreshFailedEvent{Zone: zone, Detail: err.Error()}})
		return
	}
	e.feed.SetOrders(zone, orders)
	e.Events.Emit(Event{Type: EventFeedRefreshed, Payload: FeedRefreshedEvent{Zone: zone, Count: len(orders)}})
}

// ManualRefresh reloads the feed and the counters for the active zone on
// operator request, independent of the poll interval.
func (e *Engine) ManualRefresh() {
	e.RefreshFeed(e.feed.Zone())
	go e.poller.PollNow()
}

// StartShift clocks the employee in and starts the status poller.
func (e *Engine) StartShift(ctx context.Context) error {
	userID := e.session.UserID()
	if err := e.crmClient.StartTimer(ctx, userID); err != nil {
		return err
	}
	e.Events.Emit(Event{Type: EventShiftStarted, Payload: ShiftStartedEvent{UserID: userID}})
	return nil
}

// StopShift clocks the employee out and stops the status poller.
func (e *Engine) StopShift(ctx context.Context) error {
	userID := e.session.UserID()
	if err := e.crmClient.StopTimer(ctx, userID); err != nil {
		return err
	}
	e.Events.Emit(Event{Type: EventShiftStopped, Payload: ShiftStoppedEvent{UserID: userID}})
	return nil
}

// syncShift aligns the poller with the CRM's view of the shift timer, so a
// restart mid-shift resumes polling.
func (e *Engine) syncShift() {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.CRM.Timeout)
	defer cancel()

	ts, err := e.crmClient.GetTimesheet(ctx, e.session.UserID())
	if err != nil {
		e.logFn("engine: sync shift: %v", err)
		return
	}
	if ts.Running && !e.poller.Running() {
		e.logFn("engine: shift timer already running, resuming poller")
		e.poller.Start()
	}
}

// ReconfigureCRM applies CRM config changes live.
func (e *Engine) ReconfigureCRM() {
	e.crmClient.Reconfigure(e.cfg.CRM.BaseURL, e.cfg.CRM.Timeout)
	e.logFn("engine: CRM reconfigured (%s)", e.cfg.CRM.BaseURL)
	e.checkConnectionStatus()
}

// ReconfigureMessaging reconnects messaging with current config.
func (e *Engine) ReconfigureMessaging() {
	if err := e.msgClient.Reconfigure(&e.cfg.Messaging); err != nil {
		e.logFn("engine: messaging reconfigure error: %v", err)
	} else {
		e.logFn("engine: messaging reconfigured (%s)", e.cfg.Messaging.Backend)
	}
	e.checkConnectionStatus()
}

func (e *Engine) checkConnectionStatus() {
	// CRM
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.crmClient.Ping(ctx); err == nil {
		if !e.crmConnected {
			e.crmConnected = true
			e.Events.Emit(Event{Type: EventCRMConnected, Payload: ConnectionEvent{Detail: "CRM connected"}})
		}
	} else {
		if e.crmConnected {
			e.crmConnected = false
			e.Events.Emit(Event{Type: EventCRMDisconnected, Payload: ConnectionEvent{Detail: err.Error()}})
		}
	}

	// Messaging
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
		}
	} else {
		if e.msgConnected {
			e.msgConnected = false
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
		}
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}
