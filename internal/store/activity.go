package store

import (
	"time"

	"github.com/pavelanni/studybuddy/internal/model"
)

// AppendActivity inserts a log entry and returns its id.
func (s *Store) AppendActivity(email string, action model.ActivityAction, at time.Time) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO activity_log (email, action, timestamp) VALUES (?, ?, ?)`,
		email, action, at.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListActivity returns log entries in insertion order. An empty email returns every entry.
func (s *Store) ListActivity(email string) ([]model.ActivityEntry, error) {
	query := `SELECT id, email, action, timestamp FROM activity_log`
	var args []any
	if email != "" {
		query += ` WHERE email = ?`
		args = append(args, email)
	}
	query += ` ORDER BY id`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.ActivityEntry
	for rows.Next() {
		var e model.ActivityEntry
		if err := rows.Scan(&e.ID, &e.Email, &e.Action, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
