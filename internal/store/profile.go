package store

import (
	"database/sql"
	"fmt"

	"github.com/pavelanni/studybuddy/internal/model"
)

// SaveProfile replaces every column of the profile stored for p.Email.
func (s *Store) SaveProfile(p model.Profile) error {
	_, err := s.db.Exec(
		`INSERT INTO profiles (email, name, college, department, subject, score)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET
		   name = excluded.name,
		   college = excluded.college,
		   department = excluded.department,
		   subject = excluded.subject,
		   score = excluded.score`,
		p.Email, p.Name, p.College, p.Department, p.Subject, p.Score,
	)
	return err
}

// GetProfile returns the profile for an email, or nil if none is stored.
func (s *Store) GetProfile(email string) (*model.Profile, error) {
	var p model.Profile
	err := s.db.QueryRow(
		`SELECT email, name, college, department, subject, score FROM profiles WHERE email = ?`, email,
	).Scan(&p.Email, &p.Name, &p.College, &p.Department, &p.Subject, &p.Score)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProfiles returns all profiles ordered by email.
func (s *Store) ListProfiles() ([]model.Profile, error) {
	rows, err := s.db.Query(`SELECT email, name, college, department, subject, score FROM profiles ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var profiles []model.Profile
	for rows.Next() {
		var p model.Profile
		if err := rows.Scan(&p.Email, &p.Name, &p.College, &p.Department, &p.Subject, &p.Score); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// DeleteProfile removes the profile for an email.
func (s *Store) DeleteProfile(email string) error {
	_, err := s.db.Exec(`DELETE FROM profiles WHERE email = ?`, email)
	return err
}

// SetProfileScore overwrites the score of an existing profile.
func (s *Store) SetProfileScore(email string, score int) error {
	res, err := s.db.Exec(`UPDATE profiles SET score = ? WHERE email = ?`, score, email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("profile %s: %w", email, model.ErrNotFound)
	}
	return nil
}
