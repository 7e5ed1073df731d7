package httpd

import (
	"net/http"
	"time"

	"github.com/examguard/proctoring-service/internal/models"
	"github.com/examguard/proctoring-service/internal/repository"
)

type HealthChecker struct {
	attemptRepo  repository.AttemptRepository
	rabbitRepo   repository.RabbitMQRepository
	evidenceRepo repository.EvidenceRepository
	startedAt    time.Time
}

func NewHealthChecker(
	attemptRepo repository.AttemptRepository,
	rabbitRepo repository.RabbitMQRepository,
	evidenceRepo repository.EvidenceRepository,
) *HealthChecker {
	return &HealthChecker{
		attemptRepo:  attemptRepo,
		rabbitRepo:   rabbitRepo,
		evidenceRepo: evidenceRepo,
		startedAt:    time.Now(),
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbOK := h.health.attemptRepo.Ping(ctx) == nil
	rabbitOK := h.health.rabbitRepo.Healthy()
	evidenceOK := h.health.evidenceRepo.Healthy(ctx)

	status := "healthy"
	code := http.StatusOK
	if !dbOK {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, models.HealthCheckResponse{
		Status:    status,
		Database:  dbOK,
		RabbitMQ:  rabbitOK,
		Evidence:  evidenceOK,
		Uptime:    time.Since(h.health.startedAt).Round(time.Second).String(),
		Timestamp: time.Now(),
	})
}
