package model

import (
	"context"
	"time"
)

// Credential is the stored login secret for one email.
type Credential struct {
	Email          string
	PasswordHash   string
	RecoveryAnswer string
	CreatedAt      time.Time
}

// Profile is a student's identity card and latest quiz score.
type Profile struct {
	Email      string `json:"email" yaml:"email"`
	Name       string `json:"name" yaml:"name"`
	College    string `json:"college" yaml:"college"`
	Department string `json:"dept" yaml:"dept"`
	Subject    string `json:"subject" yaml:"subject"`
	Score      int    `json:"score" yaml:"score"`
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UserSession is the per-request identity: the auth token and the profile it resolves to.
type UserSession struct {
	Token   string
	Profile Profile
}

// ActivityAction is the kind of event written to the activity log.
type ActivityAction string

const (
	ActionLogin  ActivityAction = "Login"
	ActionLogout ActivityAction = "Logout"
)

// ActivityEntry is one row of the append-only activity log.
type ActivityEntry struct {
	ID        int64          `json:"id" yaml:"id"`
	Email     string         `json:"email" yaml:"email"`
	Action    ActivityAction `json:"action" yaml:"action"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
}

// TaskStatus is the completion state of a study task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "Pending"
	TaskCompleted TaskStatus = "Completed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	return s == TaskPending || s == TaskCompleted
}

// DeadlineLayout is the date format used for task deadlines.
const DeadlineLayout = "2006-01-02"

// StudyTask is one entry of a student's planner.
type StudyTask struct {
	ID       string     `json:"id" yaml:"id"`
	Owner    string     `json:"-" yaml:"-"`
	Task     string     `json:"task" yaml:"task"`
	Subject  string     `json:"subject" yaml:"subject"`
	Deadline string     `json:"deadline" yaml:"deadline"`
	Status   TaskStatus `json:"status" yaml:"status"`
}

// AppConfig holds runtime parameters set via CLI flags.
type AppConfig struct {
	BasePath       string        // URL prefix for sub-path deployments (e.g. "/ru")
	SecureCookies  bool          // Set Secure flag on cookies (disable for local dev)
	SessionTTL     time.Duration // Lifetime of a login session
	MaxUploadBytes int64         // Upper bound for note uploads
}

type sessionCtxKey struct{}

// ContextWithSession stores the logged-in user session in the request context.
func ContextWithSession(ctx context.Context, s *UserSession) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFromContext retrieves the logged-in user session from context, or nil.
func SessionFromContext(ctx context.Context) *UserSession {
	s, _ := ctx.Value(sessionCtxKey{}).(*UserSession)
	return s
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
