package store

import "database/sql"

// SessionRow is the single persisted operator session.
type SessionRow struct {
	Token      string
	UserID     int64
	UserName   string
	ActiveZone string
}

// GetSession loads the persisted session. A missing row returns an empty
// session, not an error.
func (db *DB) GetSession() (*SessionRow, error) {
	row := db.QueryRow(db.Q(`SELECT token, user_id, user_name, active_zone FROM session WHERE id=1`))
	var s SessionRow
	err := row.Scan(&s.Token, &s.UserID, &s.UserName, &s.ActiveZone)
	if err == sql.ErrNoRows {
		return &SessionRow{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSession upserts the single session row.
func (db *DB) SaveSession(s *SessionRow) error {
	res, err := db.Exec(db.Q(`UPDATE session SET token=?, user_id=?, user_name=?, active_zone=?, updated_at=datetime('now','localtime') WHERE id=1`),
		s.Token, s.UserID, s.UserName, s.ActiveZone)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = db.Exec(db.Q(`INSERT INTO session (id, token, user_id, user_name, active_zone) VALUES (1, ?, ?, ?, ?)`),
		s.Token, s.UserID, s.UserName, s.ActiveZone)
	return err
}

// ClearSession wipes credentials but keeps the persisted zone choice, which
// survives logout by design.
func (db *DB) ClearSession() error {
	_, err := db.Exec(db.Q(`UPDATE session SET token='', user_id=0, user_name='', updated_at=datetime('now','localtime') WHERE id=1`))
	return err
}
