package crm

import (
	"context"
	"log"
	"sync"
	"time"
)

// SnapshotEmitter receives every snapshot the poller produces. Failed fetches
// are reported with ok=false and a zeroed snapshot.
type SnapshotEmitter interface {
	EmitSnapshot(zone string, snap *StatusSnapshot, ok bool)
}

// Poller refreshes the aggregate counters for the active zone on a fixed
// interval. It only runs while the employee's shift timer is running; the
// engine starts and stops it on timer transitions.
type Poller struct {
	client   *Client
	emitter  SnapshotEmitter
	interval time.Duration

	mu      sync.Mutex
	zone    string
	stopCh  chan struct{}
	running bool
}

func NewPoller(client *Client, emitter SnapshotEmitter, zone string, interval time.Duration) *Poller {
	return &Poller{
		client:   client,
		emitter:  emitter,
		interval: interval,
		zone:     zone,
	}
}

// SetZone switches the polled zone and fetches it immediately.
func (p *Poller) SetZone(zone string) {
	p.mu.Lock()
	p.zone = zone
	p.mu.Unlock()
	p.PollNow()
}

// Zone returns the currently polled zone.
func (p *Poller) Zone() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.zone
}

func (p *Poller) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	go p.loop(stopCh)
	log.Printf("crm: status poller started (every %s)", p.interval)
}

func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()
	log.Printf("crm: status poller stopped")
}

// Running reports whether the interval loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// PollNow fetches the snapshot once, outside the interval. Used on zone
// selection and manual refresh.
func (p *Poller) PollNow() {
	p.poll()
}

func (p *Poller) loop(stopCh chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	zone := p.Zone()
	if zone == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.interval+5*time.Second)
	defer cancel()

	snap, err := p.client.GetStatusSnapshot(ctx, zone)
	if err != nil {
		// Counters are best-effort display data: fall back to zeroes.
		// FromCache stays true so a failed fetch never forces a feed reload.
		log.Printf("crm: snapshot fetch for %s: %v", zone, err)
		p.emitter.EmitSnapshot(zone, &StatusSnapshot{FromCache: true}, false)
		return
	}
	p.emitter.EmitSnapshot(zone, snap, true)
}
