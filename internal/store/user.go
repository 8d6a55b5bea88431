package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/studybuddy/internal/model"
)

// CreateCredential inserts a new credential. It returns model.ErrAlreadyExists
// when the email is already registered.
func (s *Store) CreateCredential(c model.Credential) error {
	res, err := s.db.Exec(
		`INSERT INTO credentials (email, password_hash, recovery_answer, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		c.Email, c.PasswordHash, c.RecoveryAnswer, time.Now().UTC(),
	)
	if err != nil {
		slog.Error("failed to create credential", "email", c.Email, "error", err)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("credential %s: %w", c.Email, model.ErrAlreadyExists)
	}
	slog.Info("created credential", "email", c.Email)
	return nil
}

// GetCredential returns the credential for an email, or nil if none exists.
func (s *Store) GetCredential(email string) (*model.Credential, error) {
	var c model.Credential
	err := s.db.QueryRow(
		`SELECT email, password_hash, recovery_answer, created_at FROM credentials WHERE email = ?`, email,
	).Scan(&c.Email, &c.PasswordHash, &c.RecoveryAnswer, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCredentials returns all credentials ordered by email.
func (s *Store) ListCredentials() ([]model.Credential, error) {
	rows, err := s.db.Query(
		`SELECT email, password_hash, recovery_answer, created_at FROM credentials ORDER BY email`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var creds []model.Credential
	for rows.Next() {
		var c model.Credential
		if err := rows.Scan(&c.Email, &c.PasswordHash, &c.RecoveryAnswer, &c.CreatedAt); err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// UpdatePasswordHash overwrites the stored hash for an email.
func (s *Store) UpdatePasswordHash(email, hash string) error {
	res, err := s.db.Exec(`UPDATE credentials SET password_hash = ? WHERE email = ?`, hash, email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("credential %s: %w", email, model.ErrNotFound)
	}
	return nil
}

// CredentialCount returns the total number of registered emails.
func (s *Store) CredentialCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM credentials`).Scan(&count)
	return count, err
}
