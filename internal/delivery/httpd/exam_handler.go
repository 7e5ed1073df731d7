package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.examService.ListPublished(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, exams)
}

func (h *Handler) GetExamQuestions(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "exam_id")
	if examID == "" {
		writeError(w, http.StatusBadRequest, "Exam ID is required")
		return
	}

	questions, err := h.examService.GetQuestions(r.Context(), examID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"questions": questions,
	})
}
