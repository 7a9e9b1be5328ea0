// Package session is the single owner of the operator's auth token, identity
// and persisted zone choice. Everything that needs the token or user ID gets
// it from here; nothing else reads or writes the persisted row.
package session

import (
	"log"
	"sync"

	"atelier/store"
)

type Manager struct {
	mu  sync.RWMutex
	db  *store.DB
	cur store.SessionRow
}

// Load restores the persisted session at startup.
func Load(db *store.DB) (*Manager, error) {
	row, err := db.GetSession()
	if err != nil {
		return nil, err
	}
	m := &Manager{db: db, cur: *row}
	if m.cur.UserID != 0 {
		log.Printf("session: restored for user %d (%s)", m.cur.UserID, m.cur.UserName)
	}
	return m, nil
}

// SetAuth stores credentials after the UI completes the CRM login.
func (m *Manager) SetAuth(token string, userID int64, userName string) error {
	m.mu.Lock()
	m.cur.Token = token
	m.cur.UserID = userID
	m.cur.UserName = userName
	row := m.cur
	m.mu.Unlock()
	return m.db.SaveSession(&row)
}

// Clear wipes credentials on logout. The zone choice survives.
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.cur.Token = ""
	m.cur.UserID = 0
	m.cur.UserName = ""
	m.mu.Unlock()
	return m.db.ClearSession()
}

// Token implements crm.TokenSource.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.Token
}

func (m *Manager) UserID() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.UserID
}

func (m *Manager) UserName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.UserName
}

// Authenticated reports whether an operator is logged in.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.Token != "" && m.cur.UserID != 0
}

// ActiveZone returns the persisted zone choice, empty when never set.
func (m *Manager) ActiveZone() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur.ActiveZone
}

// SetActiveZone persists the zone choice so it survives a restart.
func (m *Manager) SetActiveZone(zone string) error {
	m.mu.Lock()
	m.cur.ActiveZone = zone
	row := m.cur
	m.mu.Unlock()
	return m.db.SaveSession(&row)
}
