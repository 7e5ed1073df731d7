package httpd

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/service"
)

type Handler struct {
	proctorService   service.ProctorService
	gradingService   service.GradingService
	examService      service.ExamService
	reportingService service.ReportingService
	health           *HealthChecker
	logger           zerolog.Logger
}

func NewHandler(
	proctorService service.ProctorService,
	gradingService service.GradingService,
	examService service.ExamService,
	reportingService service.ReportingService,
	health *HealthChecker,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		proctorService:   proctorService,
		gradingService:   gradingService,
		examService:      examService,
		reportingService: reportingService,
		health:           health,
		logger:           logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/exams", func(r chi.Router) {
			r.Get("/", h.ListExams)
			r.Get("/{exam_id}/questions", h.GetExamQuestions)
		})

		api.Route("/attempts", func(r chi.Router) {
			r.Post("/", h.StartAttempt)
			r.Post("/{attempt_id}/proctoring", h.StartProctoring)
			r.Post("/{attempt_id}/frames", h.SubmitFrame)
			r.Post("/{attempt_id}/violations", h.ReportViolation)
			r.Post("/{attempt_id}/submit", h.FinalizeAttempt)
		})

		api.Get("/students/{student_id}/results", h.GetStudentResults)

		api.Route("/reports", func(r chi.Router) {
			r.Get("/students", h.GetStudentStats)
			r.Get("/exams/{exam_id}", h.GetExamResults)
			r.Get("/live", h.GetLiveUpdates)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// handleServiceError maps the service layer's typed errors to status codes.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrAttemptNotFound), errors.Is(err, service.ErrExamNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAttemptSubmitted),
		errors.Is(err, service.ErrInvalidAttempt),
		errors.Is(err, service.ErrSessionNotActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrFrameDecode):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrUnknownQuestion), errors.Is(err, service.ErrInvalidViolation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error().Err(err).Msg("Internal error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
