package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/models"
	"github.com/examguard/proctoring-service/internal/repository"
	"github.com/examguard/proctoring-service/internal/service/analyzer"
	"github.com/examguard/proctoring-service/internal/worker"
	"github.com/examguard/proctoring-service/internal/worker/queue"
)

type ProctorService interface {
	StartAttempt(ctx context.Context, examID, studentID string) (*models.StartAttemptResponse, error)
	StartProctoring(ctx context.Context, attemptID, studentID string) error
	ProcessFrame(ctx context.Context, attemptID, studentID, imageData string, timestamp int64) (*models.SubmitFrameResponse, error)
	RecordBehaviorEvent(ctx context.Context, attemptID, studentID, violationType string) (*models.ReportViolationResponse, error)
}

type ProctorConfig struct {
	TerminationThreshold int
	Exchange             string
}

type proctorService struct {
	attemptRepo   repository.AttemptRepository
	violationRepo repository.ViolationRepository
	examRepo      repository.ExamRepository
	evidenceRepo  repository.EvidenceRepository
	frameAnalyzer *analyzer.FrameAnalyzer
	publisher     queue.RabbitMQPublisher
	pool          *worker.WorkerPool
	logger        zerolog.Logger
	config        ProctorConfig

	// locks serializes counter updates per attempt so two near-simultaneous
	// increments can never read the same pre-update value. Different attempts
	// proceed in parallel. Shared with the grading service.
	locks *AttemptLocks
}

func NewProctorService(
	attemptRepo repository.AttemptRepository,
	violationRepo repository.ViolationRepository,
	examRepo repository.ExamRepository,
	evidenceRepo repository.EvidenceRepository,
	frameAnalyzer *analyzer.FrameAnalyzer,
	publisher queue.RabbitMQPublisher,
	pool *worker.WorkerPool,
	locks *AttemptLocks,
	logger zerolog.Logger,
	config ProctorConfig,
) ProctorService {
	if config.TerminationThreshold <= 0 {
		config.TerminationThreshold = 3
	}
	return &proctorService{
		attemptRepo:   attemptRepo,
		violationRepo: violationRepo,
		examRepo:      examRepo,
		evidenceRepo:  evidenceRepo,
		frameAnalyzer: frameAnalyzer,
		publisher:     publisher,
		pool:          pool,
		locks:         locks,
		logger:        logger,
		config:        config,
	}
}

func (s *proctorService) StartAttempt(ctx context.Context, examID, studentID string) (*models.StartAttemptResponse, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}
	if exam == nil || !exam.IsPublished {
		return nil, ErrExamNotFound
	}

	existing, err := s.attemptRepo.GetByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up attempt: %w", err)
	}

	if existing != nil {
		if existing.Submitted {
			return nil, ErrAttemptSubmitted
		}
		// Re-entry resumes the same attempt; a second row is never created.
		return &models.StartAttemptResponse{
			AttemptID: existing.ID,
			ExamID:    existing.ExamID,
			Status:    existing.Status(),
			Resumed:   true,
			StartTime: existing.StartTime,
		}, nil
	}

	now := time.Now()
	attempt := &models.ExamAttempt{
		ID:        uuid.New().String(),
		ExamID:    examID,
		StudentID: studentID,
		StartTime: now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.Info().
		Str("attempt_id", attempt.ID).
		Str("exam_id", examID).
		Str("student_id", studentID).
		Msg("Exam attempt started")

	return &models.StartAttemptResponse{
		AttemptID: attempt.ID,
		ExamID:    examID,
		Status:    models.AttemptStatusActive,
		StartTime: now,
	}, nil
}

func (s *proctorService) StartProctoring(ctx context.Context, attemptID, studentID string) error {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("failed to load attempt: %w", err)
	}
	if attempt == nil {
		return ErrAttemptNotFound
	}
	if attempt.StudentID != studentID || attempt.Submitted {
		return ErrInvalidAttempt
	}

	// Idempotent: starting an already-started session is a no-op.
	if attempt.CameraSession {
		return nil
	}

	if err := s.attemptRepo.SetCameraSession(ctx, attemptID, true); err != nil {
		return fmt.Errorf("failed to start camera session: %w", err)
	}

	s.logger.Info().Str("attempt_id", attemptID).Msg("Camera proctoring started")
	return nil
}

func (s *proctorService) ProcessFrame(ctx context.Context, attemptID, studentID, imageData string, timestamp int64) (*models.SubmitFrameResponse, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}
	if attempt.StudentID != studentID || attempt.Submitted {
		return nil, ErrInvalidAttempt
	}
	if !attempt.CameraSession {
		return nil, ErrSessionNotActive
	}

	if attempt.Terminated {
		// Terminal state is settled; late frames change nothing.
		return &models.SubmitFrameResponse{
			CameraWarningCount: attempt.CameraCount,
			TotalViolations:    attempt.TotalViolations(),
			Terminated:         true,
		}, nil
	}

	frame, raw, err := analyzer.DecodeFrame(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFrameDecode, err)
	}

	// Analysis is stateless and runs outside the critical section; only the
	// verdict's application to the counter is serialized.
	verdict := s.frameAnalyzer.Analyze(frame)

	if !verdict.Detected {
		return &models.SubmitFrameResponse{
			Message:            verdict.Message,
			CameraWarningCount: attempt.CameraCount,
			TotalViolations:    attempt.TotalViolations(),
			Terminated:         attempt.Terminated,
		}, nil
	}

	evidenceKey := fmt.Sprintf("attempts/%s/frames/%s.jpg", attemptID, uuid.New().String())
	s.pool.Submit(func() {
		uploadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.evidenceRepo.Store(uploadCtx, evidenceKey, raw, "image/jpeg"); err != nil {
			s.logger.Error().Err(err).Str("key", evidenceKey).Msg("Failed to store evidence frame")
		}
	})

	confidence := verdict.Confidence
	updated, err := s.recordViolation(ctx, attemptID, studentID, models.SourceCamera, verdict.Type, &confidence, &evidenceKey)
	if err != nil {
		return nil, err
	}

	return &models.SubmitFrameResponse{
		ViolationDetected:  true,
		Type:               verdict.Type,
		Confidence:         verdict.Confidence,
		Message:            verdict.Message,
		CameraWarningCount: updated.CameraCount,
		TotalViolations:    updated.TotalViolations(),
		Terminated:         updated.Terminated,
	}, nil
}

func (s *proctorService) RecordBehaviorEvent(ctx context.Context, attemptID, studentID, violationType string) (*models.ReportViolationResponse, error) {
	if violationType == "" {
		violationType = models.ViolationTabSwitch
	}

	updated, err := s.recordViolation(ctx, attemptID, studentID, models.SourceBehavior, violationType, nil, nil)
	if err != nil {
		return nil, err
	}

	return &models.ReportViolationResponse{
		TotalViolations: updated.TotalViolations(),
		Terminated:      updated.Terminated,
		Warning:         updated.TotalViolations() >= 1,
	}, nil
}

// recordViolation is the single indivisible unit of the aggregator:
// increment, append the event, evaluate the termination threshold — all
// inside the attempt's critical section and one transaction.
func (s *proctorService) recordViolation(
	ctx context.Context,
	attemptID, studentID string,
	source models.ViolationSource,
	violationType string,
	confidence *float64,
	evidenceKey *string,
) (*models.ExamAttempt, error) {
	lock := s.locks.Get(attemptID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.attemptRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	attempt, err := s.attemptRepo.GetByIDForUpdate(ctx, tx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}
	if attempt.StudentID != studentID {
		return nil, ErrInvalidAttempt
	}
	if attempt.Submitted {
		// Submitted is terminal the instant it commits; a violation reported
		// after that is never retroactively applied.
		return nil, errors.Join(ErrInvalidAttempt, ErrAttemptSubmitted)
	}
	if attempt.Terminated {
		// Re-triggering termination is a no-op; return the settled state.
		return attempt, nil
	}

	switch source {
	case models.SourceBehavior:
		attempt.BehaviorCount++
	case models.SourceCamera:
		attempt.CameraCount++
	default:
		return nil, ErrInvalidViolation
	}

	event := &models.ViolationEvent{
		ID:          uuid.New().String(),
		AttemptID:   attempt.ID,
		ExamID:      attempt.ExamID,
		StudentID:   attempt.StudentID,
		Source:      source,
		Type:        violationType,
		Confidence:  confidence,
		EvidenceKey: evidenceKey,
		CreatedAt:   time.Now(),
	}

	if err := s.violationRepo.InsertTx(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("failed to append violation event: %w", err)
	}

	total := attempt.TotalViolations()
	attempt.CheatingCount = total

	terminatedNow := false
	if total >= s.config.TerminationThreshold {
		attempt.Terminated = true
		terminatedNow = true
		// Downstream reporting must never see terminated=true with a count
		// below the threshold.
		if attempt.CheatingCount < s.config.TerminationThreshold {
			attempt.CheatingCount = s.config.TerminationThreshold
		}
	}

	if err := s.attemptRepo.UpdateCountersTx(ctx, tx, attempt); err != nil {
		return nil, fmt.Errorf("failed to update attempt counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit violation: %w", err)
	}

	s.logger.Info().
		Str("attempt_id", attempt.ID).
		Str("source", string(source)).
		Str("type", violationType).
		Int("total_violations", total).
		Bool("terminated", attempt.Terminated).
		Msg("Violation recorded")

	s.publishViolation(attempt, event, total, terminatedNow)

	return attempt, nil
}

func (s *proctorService) publishViolation(attempt *models.ExamAttempt, event *models.ViolationEvent, total int, terminatedNow bool) {
	violationEvent := models.ViolationRecordedEvent{
		AttemptID:       attempt.ID,
		ExamID:          attempt.ExamID,
		StudentID:       attempt.StudentID,
		Source:          event.Source,
		Type:            event.Type,
		Confidence:      event.Confidence,
		TotalViolations: total,
		RecordedAt:      event.CreatedAt,
	}

	var terminationEvent *models.AttemptTerminatedEvent
	if terminatedNow {
		terminationEvent = &models.AttemptTerminatedEvent{
			AttemptID:       attempt.ID,
			ExamID:          attempt.ExamID,
			StudentID:       attempt.StudentID,
			TotalViolations: attempt.CheatingCount,
			TerminatedAt:    time.Now(),
		}
	}

	s.pool.Submit(func() {
		publishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.publisher.PublishJSON(publishCtx, s.config.Exchange, models.RoutingKeyViolationRecorded, violationEvent); err != nil {
			s.logger.Error().Err(err).Str("attempt_id", attempt.ID).Msg("Failed to publish violation event")
		}

		if terminationEvent != nil {
			if err := s.publisher.PublishJSON(publishCtx, s.config.Exchange, models.RoutingKeyAttemptTerminated, terminationEvent); err != nil {
				s.logger.Error().Err(err).Str("attempt_id", attempt.ID).Msg("Failed to publish termination event")
			}
		}
	})
}
