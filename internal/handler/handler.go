package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/studybuddy/internal/auth"
	"github.com/pavelanni/studybuddy/internal/extract"
	"github.com/pavelanni/studybuddy/internal/handler/views"
	appI18n "github.com/pavelanni/studybuddy/internal/i18n"
	"github.com/pavelanni/studybuddy/internal/llm"
	"github.com/pavelanni/studybuddy/internal/model"
	"github.com/pavelanni/studybuddy/internal/planner"
	"github.com/pavelanni/studybuddy/internal/quiz"
)

// Assistant is the text side of the AI gateway used by the study modes.
type Assistant interface {
	Explain(ctx context.Context, topic string) (string, error)
	Ask(ctx context.Context, query string) (string, error)
	Summarize(ctx context.Context, text string) (string, error)
}

// Services bundles the domain services the handlers call.
type Services struct {
	Auth      *auth.Service
	Planner   *planner.Service
	Quiz      *quiz.Service
	Assistant Assistant
	Extractor *extract.Extractor
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	auth      *auth.Service
	planner   *planner.Service
	quiz      *quiz.Service
	assistant Assistant
	extractor *extract.Extractor
	config    model.AppConfig
}

// New creates a new Handler.
func New(svc Services, cfg model.AppConfig) (*Handler, error) {
	if svc.Auth == nil || svc.Planner == nil || svc.Quiz == nil || svc.Assistant == nil || svc.Extractor == nil {
		return nil, errors.New("handler: all services are required")
	}
	return &Handler{
		auth:      svc.Auth,
		planner:   svc.Planner,
		quiz:      svc.Quiz,
		assistant: svc.Assistant,
		extractor: svc.Extractor,
		config:    cfg,
	}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Use(h.limitBody)
	r.Use(h.csrfMiddleware)

	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Post("/signup", h.handleSignUp)
	r.Post("/reset", h.handleReset)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/", h.handleDashboard)
		r.Get("/explain", h.handleExplainPage)
		r.Post("/explain", h.handleExplain)
		r.Get("/ask", h.handleAskPage)
		r.Post("/ask", h.handleAsk)
		r.Get("/summarize", h.handleSummarizePage)
		r.Post("/summarize", h.handleSummarize)

		r.Get("/quiz", h.handleQuizPage)
		r.Post("/quiz/generate", h.handleQuizGenerate)
		r.Post("/quiz/answer", h.handleQuizAnswer)
		r.Post("/quiz/reset", h.handleQuizReset)

		r.Get("/planner", h.handlePlannerPage)
		r.Post("/planner", h.handleAddTask)
		r.Post("/planner/{taskID}/toggle", h.handleToggleTask)
		r.Post("/planner/{taskID}/delete", h.handleDeleteTask)
	})
}

// BasePathMiddleware stores the configured base path in the request context
// so views can build links.
func (h *Handler) BasePathMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := model.ContextWithBasePath(r.Context(), h.config.BasePath)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// limitBody caps request bodies slightly above the upload limit so the
// multipart envelope fits.
func (h *Handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.config.MaxUploadBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes+1<<20)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) path(p string) string {
	return h.config.BasePath + p
}

func (h *Handler) cookiePath() string {
	if h.config.BasePath != "" {
		return h.config.BasePath + "/"
	}
	return "/"
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := model.SessionFromContext(r.Context())
	render(w, r, http.StatusOK, views.DashboardPage(sess.Profile))
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		slog.Error("render error", "error", err)
	}
}

// failure maps a service error to a translated message and an HTTP status.
func failure(ctx context.Context, err error) (string, int) {
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		return appI18n.T(ctx, "RateLimited"), http.StatusTooManyRequests
	case errors.Is(err, llm.ErrTransient):
		return appI18n.T(ctx, "AIUnavailable"), http.StatusBadGateway
	case errors.Is(err, quiz.ErrInvalidFormat):
		return appI18n.T(ctx, "InvalidQuizJSON"), http.StatusBadGateway
	case errors.Is(err, quiz.ErrNotRunning), errors.Is(err, quiz.ErrNotFinished):
		return appI18n.T(ctx, "QuizNotRunning"), http.StatusConflict
	case errors.Is(err, quiz.ErrInvalidOption):
		return appI18n.T(ctx, "InvalidOption"), http.StatusBadRequest
	case errors.Is(err, extract.ErrUnsupported):
		return appI18n.T(ctx, "UnsupportedFile"), http.StatusUnsupportedMediaType
	case errors.Is(err, extract.ErrNoContent):
		return appI18n.T(ctx, "NoReadableContent"), http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrNotFound):
		return appI18n.T(ctx, "TaskNotFound"), http.StatusNotFound
	case errors.Is(err, model.ErrValidation), errors.Is(err, quiz.ErrInvalidCount),
		errors.Is(err, quiz.ErrAtLastQuestion), errors.Is(err, quiz.ErrNotLastQuestion),
		errors.Is(err, model.ErrIndexOutOfRange):
		return appI18n.T(ctx, "FieldsRequired"), http.StatusBadRequest
	}
	slog.Error("request failed", "error", err)
	return appI18n.T(ctx, "InternalError"), http.StatusInternalServerError
}
