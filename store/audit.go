package store

// AuditEntry is one recorded floor action.
type AuditEntry struct {
	ID        int64  `json:"id"`
	Entity    string `json:"entity"`
	EntityID  int64  `json:"entity_id"`
	Action    string `json:"action"`
	Detail    string `json:"detail"`
	Actor     string `json:"actor"`
	CreatedAt string `json:"created_at"`
}

// AppendAudit records an action against an entity. Best-effort: callers
// ignore the error for display-only trails.
func (db *DB) AppendAudit(entity string, entityID int64, action, detail, actor string) error {
	_, err := db.Exec(db.Q(`INSERT INTO audit (entity, entity_id, action, detail, actor) VALUES (?, ?, ?, ?, ?)`),
		entity, entityID, action, detail, actor)
	return err
}

// ListAudit returns the most recent entries, newest first.
func (db *DB) ListAudit(limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(db.Q(`SELECT id, entity, entity_id, action, detail, actor, created_at FROM audit ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Entity, &e.EntityID, &e.Action, &e.Detail, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListAuditForEntity returns the trail for one entity, oldest first.
func (db *DB) ListAuditForEntity(entity string, entityID int64) ([]AuditEntry, error) {
	rows, err := db.Query(db.Q(`SELECT id, entity, entity_id, action, detail, actor, created_at FROM audit WHERE entity=? AND entity_id=? ORDER BY id ASC`), entity, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Entity, &e.EntityID, &e.Action, &e.Detail, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
