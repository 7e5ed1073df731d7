package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetStudentResults(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "student_id")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "Student ID is required")
		return
	}

	results, err := h.reportingService.GetStudentResults(r.Context(), studentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, results)
}

func (h *Handler) GetStudentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reportingService.GetStudentStats(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, stats)
}

func (h *Handler) GetExamResults(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "exam_id")
	if examID == "" {
		writeError(w, http.StatusBadRequest, "Exam ID is required")
		return
	}

	results, err := h.reportingService.GetExamResults(r.Context(), examID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, results)
}

func (h *Handler) GetLiveUpdates(w http.ResponseWriter, r *http.Request) {
	updates, err := h.reportingService.GetLiveUpdates(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, updates)
}
