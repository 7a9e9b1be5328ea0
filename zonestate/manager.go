// Package zonestate caches the latest per-zone aggregate snapshot:
// write-through to Redis with an in-memory fallback, so the board keeps
// showing the last counters when Redis is down.
package zonestate

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"atelier/crm"
)

const keyPrefix = "atelier:zonestate:"

type Manager struct {
	rdb *redis.Client
	ttl time.Duration

	mu   sync.RWMutex
	last map[string]*crm.StatusSnapshot
}

// NewManager wraps an optional Redis client; nil disables the cache layer
// and the manager works purely in memory.
func NewManager(rdb *redis.Client, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Manager{
		rdb:  rdb,
		ttl:  ttl,
		last: make(map[string]*crm.StatusSnapshot),
	}
}

// Set stores a snapshot for a zone, memory first, then Redis best-effort.
func (m *Manager) Set(ctx context.Context, zone string, snap *crm.StatusSnapshot) {
	m.mu.Lock()
	m.last[zone] = snap
	m.mu.Unlock()

	if m.rdb == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := m.rdb.Set(ctx, keyPrefix+zone, data, m.ttl).Err(); err != nil {
		log.Printf("zonestate: redis set %s: %v", zone, err)
	}
}

// Get reads the snapshot for a zone: Redis first, then the in-memory copy,
// then a zeroed snapshot. Never errors; counters are best-effort data.
func (m *Manager) Get(ctx context.Context, zone string) *crm.StatusSnapshot {
	if m.rdb != nil {
		data, err := m.rdb.Get(ctx, keyPrefix+zone).Bytes()
		if err == nil {
			var snap crm.StatusSnapshot
			if json.Unmarshal(data, &snap) == nil {
				return &snap
			}
		} else if err != redis.Nil {
			log.Printf("zonestate: redis get %s: %v", zone, err)
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if snap, ok := m.last[zone]; ok {
		return snap
	}
	return &crm.StatusSnapshot{FromCache: true}
}
