package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/models"
	"github.com/examguard/proctoring-service/internal/repository"
	"github.com/examguard/proctoring-service/internal/worker"
	"github.com/examguard/proctoring-service/internal/worker/queue"
)

type GradingService interface {
	FinalizeAttempt(ctx context.Context, attemptID, studentID string, answers []models.AnswerSubmission) (*models.FinalizeAttemptResponse, error)
}

type GradingConfig struct {
	Exchange string
}

type gradingService struct {
	attemptRepo repository.AttemptRepository
	examRepo    repository.ExamRepository
	penalty     PenaltyCalculator
	publisher   queue.RabbitMQPublisher
	pool        *worker.WorkerPool
	locks       *AttemptLocks
	logger      zerolog.Logger
	config      GradingConfig
}

func NewGradingService(
	attemptRepo repository.AttemptRepository,
	examRepo repository.ExamRepository,
	penalty PenaltyCalculator,
	publisher queue.RabbitMQPublisher,
	pool *worker.WorkerPool,
	locks *AttemptLocks,
	logger zerolog.Logger,
	config GradingConfig,
) GradingService {
	return &gradingService{
		attemptRepo: attemptRepo,
		examRepo:    examRepo,
		penalty:     penalty,
		publisher:   publisher,
		pool:        pool,
		locks:       locks,
		logger:      logger,
		config:      config,
	}
}

// FinalizeAttempt grades the submitted answers, applies the violation
// penalty and seals the attempt. It competes for the attempt's critical
// section, so it always reads the latest committed violation tally and no
// later violation can slip in once submitted commits.
func (s *gradingService) FinalizeAttempt(ctx context.Context, attemptID, studentID string, answers []models.AnswerSubmission) (*models.FinalizeAttemptResponse, error) {
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
		// Finalize is idempotent: the settled result comes back, nothing is
		// re-mutated.
		return &models.FinalizeAttemptResponse{
			FinalMarks:      attempt.FinalMarks,
			TotalViolations: attempt.CheatingCount,
			Terminated:      attempt.Terminated,
		}, nil
	}

	rawScore, graded, err := s.gradeAnswers(ctx, attempt, answers)
	if err != nil {
		return nil, err
	}

	if len(graded) > 0 {
		if err := s.examRepo.InsertAnswersTx(ctx, tx, graded); err != nil {
			return nil, fmt.Errorf("failed to persist answers: %w", err)
		}
	}

	totalViolations := attempt.TotalViolations()
	finalMarks := s.penalty.Apply(rawScore, totalViolations)

	if totalViolations >= s.penalty.TerminationThreshold() {
		attempt.Terminated = true
	}

	attempt.CheatingCount = totalViolations
	if attempt.Terminated {
		// A terminated attempt always reports at least the threshold, and
		// scores zero no matter what was answered.
		finalMarks = 0
		if attempt.CheatingCount < s.penalty.TerminationThreshold() {
			attempt.CheatingCount = s.penalty.TerminationThreshold()
		}
	}

	now := time.Now()
	attempt.Submitted = true
	attempt.EndTime = &now
	attempt.FinalMarks = finalMarks

	if err := s.attemptRepo.FinalizeTx(ctx, tx, attempt); err != nil {
		return nil, fmt.Errorf("failed to finalize attempt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit finalize: %w", err)
	}

	s.logger.Info().
		Str("attempt_id", attempt.ID).
		Float64("raw_score", rawScore).
		Float64("final_marks", finalMarks).
		Int("total_violations", attempt.CheatingCount).
		Bool("terminated", attempt.Terminated).
		Msg("Attempt finalized")

	submittedEvent := models.AttemptSubmittedEvent{
		AttemptID:       attempt.ID,
		ExamID:          attempt.ExamID,
		StudentID:       attempt.StudentID,
		FinalMarks:      finalMarks,
		TotalViolations: attempt.CheatingCount,
		Terminated:      attempt.Terminated,
		SubmittedAt:     now,
	}
	s.pool.Submit(func() {
		publishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publisher.PublishJSON(publishCtx, s.config.Exchange, models.RoutingKeyAttemptSubmitted, submittedEvent); err != nil {
			s.logger.Error().Err(err).Str("attempt_id", attempt.ID).Msg("Failed to publish submission event")
		}
	})

	return &models.FinalizeAttemptResponse{
		FinalMarks:      finalMarks,
		RawScore:        rawScore,
		TotalViolations: attempt.CheatingCount,
		Terminated:      attempt.Terminated,
	}, nil
}

// gradeAnswers sums the marks of answers matching their question's correct
// option. Answers referencing unknown questions fail the whole submission.
func (s *gradingService) gradeAnswers(ctx context.Context, attempt *models.ExamAttempt, answers []models.AnswerSubmission) (float64, []models.Answer, error) {
	questions, err := s.examRepo.GetQuestions(ctx, attempt.ExamID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load questions: %w", err)
	}

	byID := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	var rawScore float64
	graded := make([]models.Answer, 0, len(answers))

	for _, submission := range answers {
		question, ok := byID[submission.QuestionID]
		if !ok {
			return 0, nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, submission.QuestionID)
		}

		isCorrect := submission.SelectedOption == question.CorrectOption
		if isCorrect {
			rawScore += float64(question.Marks)
		}

		graded = append(graded, models.Answer{
			ID:             uuid.New().String(),
			AttemptID:      attempt.ID,
			QuestionID:     submission.QuestionID,
			SelectedOption: submission.SelectedOption,
			IsCorrect:      isCorrect,
		})
	}

	return rawScore, graded, nil
}
