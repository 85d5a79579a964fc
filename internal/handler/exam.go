package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/studyforge/examgen/internal/document"
	appI18n "github.com/studyforge/examgen/internal/i18n"
	"github.com/studyforge/examgen/internal/model"
	"github.com/studyforge/examgen/internal/token"
)

// handleGenerate takes uploaded course materials plus question counts and
// returns a freshly generated exam together with a source ID that lets the
// teacher request additional questions without re-uploading anything.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.config.MaxUploadMB << 20); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "ValidationError")
		return
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		h.respondError(w, r, http.StatusBadRequest, "NoFiles")
		return
	}

	spec := model.GenerationSpec{
		NumMCQ:   formInt(r, "num_mcq", 10),
		NumShort: formInt(r, "num_short", 3),
		NumLong:  formInt(r, "num_long", 3),
	}

	var materials []document.Material
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			h.respondError(w, r, http.StatusBadRequest, "ValidationError")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.respondError(w, r, http.StatusBadRequest, "ValidationError")
			return
		}
		materials = append(materials, document.Material{Name: fh.Filename, Data: data})
	}

	prep, err := document.NewPreparer(h.llm, h.config.ChunkPages).Prepare(r.Context(), materials)
	if err != nil {
		slog.Error("prepare materials", "error", err)
		h.respondError(w, r, http.StatusUnprocessableEntity, "GenerationFailed")
		return
	}

	exam, err := h.llm.GenerateExam(r.Context(), prep.Parts, spec)
	if err != nil {
		slog.Error("generate exam", "error", err)
		// The prep never reaches the cache, so release its uploads here
		// instead of leaving them for the eviction hook.
		for _, name := range prep.FileNames {
			h.llm.DeleteFile(r.Context(), name)
		}
		h.respondError(w, r, http.StatusBadGateway, "GenerationFailed")
		return
	}

	sourceID := h.materials.Put(*prep)
	respondJSON(w, http.StatusOK, map[string]any{
		"exam":      exam,
		"source_id": sourceID,
	})
}

type addQuestionRequest struct {
	SourceID string `json:"source_id" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=mcq short long"`
}

// handleAddQuestion generates one extra question of the requested type from
// previously uploaded materials. The source expires with the cache, in which
// case the teacher has to regenerate from scratch.
func (h *Handler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var req addQuestionRequest
	if !h.bind(w, r, &req) {
		return
	}

	prep, ok := h.materials.Get(req.SourceID)
	if !ok {
		h.respondError(w, r, http.StatusGone, "SourceExpired")
		return
	}

	q, err := h.llm.AddQuestion(r.Context(), prep.Parts, model.QuestionType(req.Type))
	if err != nil {
		slog.Error("add question", "type", req.Type, "error", err)
		h.respondError(w, r, http.StatusBadGateway, "GenerationFailed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"question": q})
}

type publishRequest struct {
	Exam model.Exam `json:"exam"`
}

// handlePublish encodes the edited exam into a shareable link. Nothing is
// stored server-side; the token in the link is the exam.
func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if !h.bind(w, r, &req) {
		return
	}
	if req.Exam.Empty() {
		h.respondError(w, r, http.StatusBadRequest, "ValidationError")
		return
	}

	tok, err := token.Encode(&req.Exam)
	if err != nil {
		slog.Error("encode exam token", "error", err)
		h.respondError(w, r, http.StatusInternalServerError, "InternalError")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"token":   tok,
		"url":     h.config.AppURL + "/exam.html?exam_id=" + url.QueryEscape(tok),
		"message": localized(r, "ExamPublished"),
	})
}

// handleFetchExam decodes an exam token for the student view.
func (h *Handler) handleFetchExam(w http.ResponseWriter, r *http.Request) {
	exam, err := token.Decode(r.URL.Query().Get("exam_id"))
	if err != nil {
		h.respondError(w, r, http.StatusUnprocessableEntity, "InvalidExamLink")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"exam": exam})
}

type scoreRequest struct {
	ExamID  string   `json:"exam_id" validate:"required"`
	Answers []string `json:"answers"`
}

// handleScoreExam grades the MCQ section of a submitted exam. Written
// answers are left to the teacher.
func (h *Handler) handleScoreExam(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !h.bind(w, r, &req) {
		return
	}

	exam, err := token.Decode(req.ExamID)
	if err != nil {
		h.respondError(w, r, http.StatusUnprocessableEntity, "InvalidExamLink")
		return
	}

	score, total := exam.ScoreMCQ(req.Answers)
	respondJSON(w, http.StatusOK, map[string]any{
		"score": score,
		"total": total,
		"message": appI18n.Td(r.Context(), "ScoreResult", map[string]any{
			"Score": score,
			"Total": total,
		}),
	})
}

func formInt(r *http.Request, key string, def int) int {
	v := r.FormValue(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
