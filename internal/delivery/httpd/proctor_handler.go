package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/examguard/proctoring-service/internal/models"
)

func (h *Handler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	var req models.StartAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ExamID == "" || req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "exam_id and student_id are required")
		return
	}

	result, err := h.proctorService.StartAttempt(r.Context(), req.ExamID, req.StudentID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, result)
}

func (h *Handler) StartProctoring(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attempt_id")

	var req models.StartProctoringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	if err := h.proctorService.StartProctoring(r.Context(), attemptID, req.StudentID); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"status":  "started",
		"message": "Camera proctoring initialized",
	})
}

func (h *Handler) SubmitFrame(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attempt_id")

	var req models.SubmitFrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.StudentID == "" || req.ImageData == "" {
		writeError(w, http.StatusBadRequest, "student_id and image_data are required")
		return
	}

	result, err := h.proctorService.ProcessFrame(r.Context(), attemptID, req.StudentID, req.ImageData, req.Timestamp)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, result)
}

func (h *Handler) ReportViolation(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attempt_id")

	var req models.ReportViolationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	result, err := h.proctorService.RecordBehaviorEvent(r.Context(), attemptID, req.StudentID, req.Type)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, result)
}

func (h *Handler) FinalizeAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attempt_id")

	var req models.FinalizeAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.StudentID == "" {
		writeError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	result, err := h.gradingService.FinalizeAttempt(r.Context(), attemptID, req.StudentID, req.Answers)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, result)
}
