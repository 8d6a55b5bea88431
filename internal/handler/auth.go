package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/studybuddy/internal/auth"
	"github.com/pavelanni/studybuddy/internal/handler/views"
	appI18n "github.com/pavelanni/studybuddy/internal/i18n"
	"github.com/pavelanni/studybuddy/internal/model"
)

const (
	sessionCookieName = "session"
	csrfCookieName    = "csrf_token"
	maxFormMemory     = 32 << 20
)

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	token, err := generateCSRFToken()
	if err != nil {
		slog.Error("failed to generate CSRF token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return r, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     h.cookiePath(),
		HttpOnly: false,
		Secure:   h.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return r.WithContext(model.ContextWithCSRFToken(r.Context(), token)), true
}

// parseForm parses urlencoded or multipart bodies up front so the CSRF
// check sees the token and oversized uploads fail with 413.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxFormMemory)
	}
	return r.ParseForm()
}

func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			r, ok := h.setCSRFCookie(w, r)
			if ok {
				next.ServeHTTP(w, r)
			}
			return
		}

		if err := parseForm(r); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				msg := appI18n.Td(r.Context(), "FileTooLarge", map[string]any{"MB": h.config.MaxUploadBytes >> 20})
				http.Error(w, msg, http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			slog.Warn("CSRF cookie missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		formToken := r.FormValue("csrf_token")
		if formToken == "" {
			slog.Warn("CSRF form token missing")
			http.Error(w, "csrf token missing", http.StatusForbidden)
			return
		}

		if len(formToken) != len(cookie.Value) || subtle.ConstantTimeCompare([]byte(formToken), []byte(cookie.Value)) != 1 {
			slog.Warn("CSRF token mismatch")
			http.Error(w, "invalid csrf token", http.StatusForbidden)
			return
		}

		r, ok := h.setCSRFCookie(w, r)
		if ok {
			next.ServeHTTP(w, r)
		}
	})
}

// requireAuth loads the session named by the cookie and its profile into
// the request context, or sends the client to the login page.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.redirectToLogin(w, r)
			return
		}

		sess, err := h.auth.Resolve(cookie.Value)
		if err != nil {
			slog.Error("failed to resolve session", "error", err)
			h.redirectToLogin(w, r)
			return
		}
		if sess == nil {
			h.clearSessionCookie(w)
			h.redirectToLogin(w, r)
			return
		}

		ctx := model.ContextWithSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	loginPath := h.path("/login")
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", loginPath)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if sess, _ := h.auth.Resolve(cookie.Value); sess != nil {
			http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
			return
		}
	}
	render(w, r, http.StatusOK, views.LoginPage(views.LoginView{}))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	sess, err := h.auth.Login(email, password)
	if errors.Is(err, model.ErrInvalidCredentials) {
		h.renderLogin(w, r, http.StatusUnauthorized, views.LoginView{
			Flash: views.Flash{Error: appI18n.T(r.Context(), "LoginError")},
			Email: email,
		})
		return
	}
	if err != nil {
		slog.Error("login failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     h.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
		MaxAge:   int(h.config.SessionTTL.Seconds()),
	})
	slog.Info("logged in", "email", sess.Profile.Email)
	http.Redirect(w, r, h.path("/"), http.StatusSeeOther)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	_, err := h.auth.SignUp(auth.SignUpRequest{
		Email:          r.FormValue("email"),
		Password:       r.FormValue("password"),
		RecoveryAnswer: r.FormValue("fav_place"),
		Name:           r.FormValue("name"),
		College:        r.FormValue("college"),
		Department:     r.FormValue("dept"),
		Subject:        r.FormValue("subject"),
	})
	ctx := r.Context()
	switch {
	case err == nil:
		h.renderLogin(w, r, http.StatusOK, views.LoginView{
			Flash: views.Flash{Notice: appI18n.T(ctx, "SignUpSuccess")},
			Email: r.FormValue("email"),
		})
	case errors.Is(err, model.ErrValidation):
		h.renderLogin(w, r, http.StatusBadRequest, views.LoginView{Flash: views.Flash{Error: appI18n.T(ctx, "FieldsRequired")}})
	case errors.Is(err, model.ErrAlreadyExists):
		h.renderLogin(w, r, http.StatusConflict, views.LoginView{Flash: views.Flash{Error: appI18n.T(ctx, "AccountExists")}})
	default:
		slog.Error("sign-up failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	err := h.auth.Reset(r.FormValue("email"), r.FormValue("fav_place"), r.FormValue("new_password"))
	ctx := r.Context()
	switch {
	case err == nil:
		h.renderLogin(w, r, http.StatusOK, views.LoginView{
			Flash: views.Flash{Notice: appI18n.T(ctx, "ResetSuccess")},
			Email: r.FormValue("email"),
		})
	case errors.Is(err, model.ErrValidation):
		h.renderLogin(w, r, http.StatusBadRequest, views.LoginView{Flash: views.Flash{Error: appI18n.T(ctx, "FieldsRequired")}})
	case errors.Is(err, model.ErrNotFound):
		h.renderLogin(w, r, http.StatusNotFound, views.LoginView{Flash: views.Flash{Error: appI18n.T(ctx, "UnknownEmail")}})
	case errors.Is(err, model.ErrRecoveryMismatch):
		h.renderLogin(w, r, http.StatusUnauthorized, views.LoginView{Flash: views.Flash{Error: appI18n.T(ctx, "RecoveryMismatch")}})
	default:
		slog.Error("password reset failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.auth.Logout(cookie.Value); err != nil {
			slog.Error("logout failed", "error", err)
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, h.path("/login"), http.StatusSeeOther)
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     h.cookiePath(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, v views.LoginView) {
	render(w, r, status, views.LoginPage(v))
}
