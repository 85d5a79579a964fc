// Package handler exposes the JSON API and the embedded frontend.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/generative-ai-go/genai"

	"github.com/studyforge/examgen/internal/auth"
	"github.com/studyforge/examgen/internal/document"
	appI18n "github.com/studyforge/examgen/internal/i18n"
	"github.com/studyforge/examgen/internal/llm"
	"github.com/studyforge/examgen/internal/model"
	"github.com/studyforge/examgen/internal/store"
)

// AIClient is the slice of the Gemini client the handlers use.
type AIClient interface {
	document.Uploader
	GenerateExam(ctx context.Context, parts []genai.Part, spec model.GenerationSpec) (*model.Exam, error)
	AddQuestion(ctx context.Context, parts []genai.Part, t model.QuestionType) (*model.GeneratedQuestion, error)
	DeleteFile(ctx context.Context, name string)
}

var _ AIClient = (*llm.Client)(nil)

// Config holds runtime parameters set via CLI flags.
type Config struct {
	AppURL        string // public base URL used in shared exam links
	ChunkPages    int    // page-range size for PDF chunk uploads
	SecureCookies bool   // Secure flag on session cookies (disable for local dev)
	MaxUploadMB   int64  // per-request upload limit
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	llm       AIClient
	auth      *auth.Service
	materials *document.Cache
	validate  *validator.Validate
	config    Config
}

// New creates a new Handler.
func New(s *store.Store, l AIClient, a *auth.Service, materials *document.Cache, cfg Config) *Handler {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 64
	}
	return &Handler{
		store:     s,
		llm:       l,
		auth:      a,
		materials: materials,
		validate:  validator.New(),
		config:    cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", h.handleSignup)
		api.Post("/auth/login", h.handleLogin)
		api.Post("/auth/logout", h.handleLogout)
		api.Post("/auth/reset", h.handleResetPassword)

		api.Group(func(priv chi.Router) {
			priv.Use(h.requireAuth)
			priv.Get("/auth/me", h.handleMe)
			priv.Get("/exams", h.handleFetchExam)
			priv.Post("/exams/score", h.handleScoreExam)

			priv.Group(func(teach chi.Router) {
				teach.Use(requireRole(model.UserRoleTeacher))
				teach.Post("/exams/generate", h.handleGenerate)
				teach.Post("/exams/questions", h.handleAddQuestion)
				teach.Post("/exams/publish", h.handlePublish)
			})
		})
	})

	r.Handle("/*", h.staticHandler())
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError sends a localized error message.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	respondJSON(w, status, map[string]string{"error": localized(r, msgID)})
}

// localized resolves a message ID against the request's localizer.
func localized(r *http.Request, msgID string) string {
	return appI18n.T(r.Context(), msgID)
}

// bind decodes a JSON request body into dst and validates it. On failure a
// 400 response has already been written.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ValidationError")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ValidationError")
		return false
	}
	return true
}
