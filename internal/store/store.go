package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer keeps read-modify-write sequences serialized and lets
	// ":memory:" databases survive across calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		email TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		recovery_answer TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profiles (
		email TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		college TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		subject TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0 CHECK (score >= 0)
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS activity_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL,
		action TEXT NOT NULL,
		timestamp DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS study_tasks (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		position INTEGER NOT NULL,
		task TEXT NOT NULL,
		subject TEXT NOT NULL,
		deadline TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending'
	);
	CREATE INDEX IF NOT EXISTS idx_study_tasks_owner ON study_tasks(owner, position);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}
