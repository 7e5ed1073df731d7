package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/models"
	"github.com/examguard/proctoring-service/internal/repository"
)

// ReportingService backs the monitoring dashboard and result pages. It only
// reads committed state; all mutation goes through the aggregator.
type ReportingService interface {
	GetStudentResults(ctx context.Context, studentID string) ([]models.AttemptResult, error)
	GetStudentStats(ctx context.Context) ([]models.StudentStats, error)
	GetExamResults(ctx context.Context, examID string) (*models.ExamResults, error)
	GetLiveUpdates(ctx context.Context) (*models.LiveUpdates, error)
}

type ReportingConfig struct {
	LiveWindow time.Duration
}

type reportingService struct {
	attemptRepo   repository.AttemptRepository
	violationRepo repository.ViolationRepository
	examRepo      repository.ExamRepository
	logger        zerolog.Logger
	config        ReportingConfig
}

func NewReportingService(
	attemptRepo repository.AttemptRepository,
	violationRepo repository.ViolationRepository,
	examRepo repository.ExamRepository,
	logger zerolog.Logger,
	config ReportingConfig,
) ReportingService {
	if config.LiveWindow <= 0 {
		config.LiveWindow = 10 * time.Second
	}
	return &reportingService{
		attemptRepo:   attemptRepo,
		violationRepo: violationRepo,
		examRepo:      examRepo,
		logger:        logger,
		config:        config,
	}
}

func (s *reportingService) GetStudentResults(ctx context.Context, studentID string) ([]models.AttemptResult, error) {
	attempts, err := s.attemptRepo.ListByStudent(ctx, studentID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	results := make([]models.AttemptResult, 0, len(attempts))
	for _, attempt := range attempts {
		exam, err := s.examRepo.GetByID(ctx, attempt.ExamID)
		if err != nil {
			return nil, fmt.Errorf("failed to load exam: %w", err)
		}

		result := models.AttemptResult{
			AttemptID:      attempt.ID,
			FinalMarks:     attempt.FinalMarks,
			DisplayMarks:   DisplayMarks(attempt.FinalMarks),
			Grade:          models.Grade(attempt.FinalMarks),
			CheatingCount:  attempt.CheatingCount,
			CameraWarnings: attempt.CameraCount,
			Terminated:     attempt.Terminated,
			CompletionTime: attempt.EndTime,
		}
		if exam != nil {
			result.ExamTitle = exam.Title
			result.TotalQuestions = exam.TotalQuestions
		}

		results = append(results, result)
	}

	return results, nil
}

func (s *reportingService) GetStudentStats(ctx context.Context) ([]models.StudentStats, error) {
	stats, err := s.attemptRepo.StudentSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load student summaries: %w", err)
	}
	return stats, nil
}

func (s *reportingService) GetExamResults(ctx context.Context, examID string) (*models.ExamResults, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}

	attempts, err := s.attemptRepo.ListByExam(ctx, examID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	rows := make([]models.ExamResultRow, 0, len(attempts))
	for _, attempt := range attempts {
		rows = append(rows, models.ExamResultRow{
			StudentID:      attempt.StudentID,
			FinalMarks:     attempt.FinalMarks,
			DisplayMarks:   DisplayMarks(attempt.FinalMarks),
			Grade:          models.Grade(attempt.FinalMarks),
			CheatingCount:  attempt.CheatingCount,
			CameraWarnings: attempt.CameraCount,
			Terminated:     attempt.Terminated,
		})
	}

	return &models.ExamResults{
		Exam:    *exam,
		Results: rows,
	}, nil
}

func (s *reportingService) GetLiveUpdates(ctx context.Context) (*models.LiveUpdates, error) {
	since := time.Now().Add(-s.config.LiveWindow)

	behavior, err := s.violationRepo.CountSince(ctx, since, models.SourceBehavior)
	if err != nil {
		return nil, fmt.Errorf("failed to count behavior events: %w", err)
	}

	camera, err := s.violationRepo.CountSince(ctx, since, models.SourceCamera)
	if err != nil {
		return nil, fmt.Errorf("failed to count camera events: %w", err)
	}

	return &models.LiveUpdates{
		NewBehaviorEvents: behavior,
		NewCameraEvents:   camera,
		Timestamp:         time.Now(),
	}, nil
}
