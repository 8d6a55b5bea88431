// Package auth implements credential management and the login session lifecycle.
package auth

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/studybuddy/internal/model"
)

// Store is the persistence the auth service needs.
type Store interface {
	CreateCredential(c model.Credential) error
	GetCredential(email string) (*model.Credential, error)
	UpdatePasswordHash(email, hash string) error
	SaveProfile(p model.Profile) error
	GetProfile(email string) (*model.Profile, error)
	AppendActivity(email string, action model.ActivityAction, at time.Time) (int64, error)
	CreateAuthSession(email string, ttl time.Duration) (string, error)
	GetAuthSession(token string) (*model.AuthSession, error)
	DeleteAuthSession(token string) error
}

// SessionDiscarder drops transient per-session state when a user logs out.
type SessionDiscarder interface {
	Discard(token string) error
}

// SignUpRequest carries the sign-up form.
type SignUpRequest struct {
	Email          string
	Password       string
	RecoveryAnswer string
	Name           string
	College        string
	Department     string
	Subject        string
}

// Service owns credentials, profiles created at sign-up, and login sessions.
type Service struct {
	store   Store
	discard SessionDiscarder
	ttl     time.Duration
	now     func() time.Time
}

// New creates an auth service. discard may be nil.
func New(s Store, discard SessionDiscarder, ttl time.Duration) *Service {
	return &Service{store: s, discard: discard, ttl: ttl, now: time.Now}
}

// CreateCredential stores a hashed password and the verbatim recovery answer.
func (s *Service) CreateCredential(email, password, recoveryAnswer string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" || strings.TrimSpace(recoveryAnswer) == "" {
		return fmt.Errorf("email, password and recovery answer are required: %w", model.ErrValidation)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateCredential(model.Credential{
		Email:          email,
		PasswordHash:   hash,
		RecoveryAnswer: recoveryAnswer,
	})
}

// Verify reports whether email exists and password matches its stored hash.
func (s *Service) Verify(email, password string) (bool, error) {
	cred, err := s.store.GetCredential(normalizeEmail(email))
	if err != nil {
		return false, err
	}
	if cred == nil {
		return false, nil
	}
	return CheckPassword(cred.PasswordHash, password), nil
}

// Reset overwrites the password when the recovery answer matches,
// ignoring case and surrounding whitespace.
func (s *Service) Reset(email, recoveryAnswer, newPassword string) error {
	email = normalizeEmail(email)
	if newPassword == "" {
		return fmt.Errorf("new password is required: %w", model.ErrValidation)
	}
	cred, err := s.store.GetCredential(email)
	if err != nil {
		return err
	}
	if cred == nil {
		return fmt.Errorf("credential %s: %w", email, model.ErrNotFound)
	}
	if !strings.EqualFold(strings.TrimSpace(cred.RecoveryAnswer), strings.TrimSpace(recoveryAnswer)) {
		return model.ErrRecoveryMismatch
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePasswordHash(email, hash); err != nil {
		return err
	}
	slog.Info("password reset", "email", email)
	return nil
}

// SignUp creates the credential and a profile with score 0.
func (s *Service) SignUp(req SignUpRequest) (*model.Profile, error) {
	for _, f := range []string{req.Name, req.College, req.Department, req.Subject} {
		if strings.TrimSpace(f) == "" {
			return nil, fmt.Errorf("all profile fields are required: %w", model.ErrValidation)
		}
	}
	if err := s.CreateCredential(req.Email, req.Password, req.RecoveryAnswer); err != nil {
		return nil, err
	}
	p := model.Profile{
		Email:      normalizeEmail(req.Email),
		Name:       strings.TrimSpace(req.Name),
		College:    strings.TrimSpace(req.College),
		Department: strings.TrimSpace(req.Department),
		Subject:    strings.TrimSpace(req.Subject),
	}
	if err := s.store.SaveProfile(p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	slog.Info("signed up", "email", p.Email)
	return &p, nil
}

// Login verifies the credentials, records the event, and opens a session.
// A user without a stored profile gets a blank one.
func (s *Service) Login(email, password string) (*model.UserSession, error) {
	email = normalizeEmail(email)
	ok, err := s.Verify(email, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrInvalidCredentials
	}

	profile, err := s.store.GetProfile(email)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		profile = &model.Profile{Email: email}
		if err := s.store.SaveProfile(*profile); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}
	}

	if _, err := s.store.AppendActivity(email, model.ActionLogin, s.now()); err != nil {
		return nil, fmt.Errorf("log login: %w", err)
	}
	token, err := s.store.CreateAuthSession(email, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &model.UserSession{Token: token, Profile: *profile}, nil
}

// Resolve returns the session for token, or nil when it is unknown, expired,
// or its profile is gone.
func (s *Service) Resolve(token string) (*model.UserSession, error) {
	if token == "" {
		return nil, nil
	}
	authSess, err := s.store.GetAuthSession(token)
	if err != nil || authSess == nil {
		return nil, err
	}
	profile, err := s.store.GetProfile(authSess.Email)
	if err != nil || profile == nil {
		return nil, err
	}
	return &model.UserSession{Token: token, Profile: *profile}, nil
}

// Logout records the event, ends the session, and discards its quiz state.
func (s *Service) Logout(token string) error {
	authSess, err := s.store.GetAuthSession(token)
	if err != nil {
		return err
	}
	if authSess == nil {
		return nil
	}
	if _, err := s.store.AppendActivity(authSess.Email, model.ActionLogout, s.now()); err != nil {
		return fmt.Errorf("log logout: %w", err)
	}
	if s.discard != nil {
		if err := s.discard.Discard(token); err != nil {
			slog.Warn("failed to discard session state", "error", err)
		}
	}
	return s.store.DeleteAuthSession(token)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
