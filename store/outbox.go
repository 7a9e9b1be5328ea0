package store

import "fmt"

// OutboxMessage is a floor event queued for the messaging backend.
type OutboxMessage struct {
	ID      int64
	Topic   string
	Payload []byte
	Kind    string
}

// EnqueueOutbox queues a message for the drainer.
func (db *DB) EnqueueOutbox(topic string, payload []byte, kind string) error {
	_, err := db.Exec(db.Q(`INSERT INTO outbox (topic, payload, kind) VALUES (?, ?, ?)`),
		topic, payload, kind)
	return err
}

// ListPendingOutbox returns unsent messages, oldest first.
func (db *DB) ListPendingOutbox(limit int) ([]OutboxMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(db.Q(`SELECT id, topic, payload, kind FROM outbox WHERE sent_at IS NULL ORDER BY id ASC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.Kind); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkOutboxSent stamps a message as delivered.
func (db *DB) MarkOutboxSent(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET sent_at=datetime('now','localtime') WHERE id=?`), id)
	return err
}

// PruneOutbox deletes sent messages older than the given number of days.
func (db *DB) PruneOutbox(days int) error {
	if db.driver == "postgres" {
		_, err := db.Exec(Rebind(`DELETE FROM outbox WHERE sent_at IS NOT NULL AND sent_at < NOW() - make_interval(days => ?)`), days)
		return err
	}
	_, err := db.Exec(`DELETE FROM outbox WHERE sent_at IS NOT NULL AND sent_at < datetime('now','localtime', ?)`, fmt.Sprintf("-%d days", days))
	return err
}
