package messaging

import (
	"log"
	"sync"
	"time"

	"atelier/store"
)

// OutboxDrainer ships queued floor events to the messaging backend.
type OutboxDrainer struct {
	db       *store.DB
	client   *Client
	interval time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

func NewOutboxDrainer(db *store.DB, client *Client, interval time.Duration) *OutboxDrainer {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxDrainer{db: db, client: client, interval: interval}
}

func (d *OutboxDrainer) Start() {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	stopCh := d.stopCh
	d.mu.Unlock()

	go d.loop(stopCh)
}

func (d *OutboxDrainer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.running = false
	close(d.stopCh)
}

func (d *OutboxDrainer) loop(stopCh chan struct{}) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			d.drain()
		}
	}
}

func (d *OutboxDrainer) drain() {
	if !d.client.IsConnected() {
		return
	}
	msgs, err := d.db.ListPendingOutbox(50)
	if err != nil {
		log.Printf("messaging: list outbox: %v", err)
		return
	}
	for _, m := range msgs {
		if err := d.client.Publish(m.Topic, m.Payload); err != nil {
			// Leave the message queued; next pass retries in order.
			log.Printf("messaging: publish %s (%s): %v", m.Topic, m.Kind, err)
			return
		}
		if err := d.db.MarkOutboxSent(m.ID); err != nil {
			log.Printf("messaging: mark sent %d: %v", m.ID, err)
			return
		}
	}
}
