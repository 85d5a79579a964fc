package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/studyforge/examgen/internal/model"
	"github.com/studyforge/examgen/internal/store"
)

const sessionCookieName = "session"

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=Teacher Student"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resetRequest struct {
	Email       string `json:"email" validate:"required,email"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.bind(w, r, &req) {
		return
	}

	_, err := h.store.Register(req.Name, req.Email, req.Password, model.UserRole(req.Role))
	if errors.Is(err, store.ErrEmailTaken) {
		h.respondError(w, r, http.StatusConflict, "EmailTaken")
		return
	}
	if err != nil {
		slog.Error("register failed", "email", req.Email, "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"message": localized(r, "RegistrationOK"),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.bind(w, r, &req) {
		return
	}

	user, err := h.store.Authenticate(req.Email, req.Password)
	if err != nil {
		slog.Error("authenticate failed", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	if user == nil {
		h.respondError(w, r, http.StatusUnauthorized, "LoginError")
		return
	}

	token, err := h.auth.Issue(user)
	if err != nil {
		slog.Error("issue session token", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	respondJSON(w, http.StatusOK, map[string]any{"user": publicUser(user)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Attributes must match the login cookie so the browser replaces it.
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.config.SecureCookies,
	})
	respondJSON(w, http.StatusOK, map[string]string{})
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !h.bind(w, r, &req) {
		return
	}

	err := h.store.ResetPassword(req.Email, req.NewPassword)
	if errors.Is(err, store.ErrNotFound) {
		h.respondError(w, r, http.StatusNotFound, "EmailNotFound")
		return
	}
	if err != nil {
		slog.Error("reset password failed", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": localized(r, "PasswordResetOK"),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"user": publicUser(user)})
}

// requireAuth checks the session cookie and loads the current user into
// the request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		claims, err := h.auth.Validate(cookie.Value)
		if err != nil {
			h.respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		user, err := h.store.Get(claims.Email)
		if err != nil || user == nil {
			h.respondError(w, r, http.StatusUnauthorized, "Unauthorized")
			return
		}
		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the
// allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				respondJSON(w, http.StatusUnauthorized, map[string]string{"error": localized(r, "Unauthorized")})
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			respondJSON(w, http.StatusForbidden, map[string]string{"error": localized(r, "TeacherOnly")})
		})
	}
}

func publicUser(u *model.User) map[string]any {
	if u == nil {
		return nil
	}
	return map[string]any{
		"email": u.Email,
		"name":  u.Name,
		"role":  u.Role,
	}
}
