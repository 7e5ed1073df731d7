package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/models"
	"github.com/examguard/proctoring-service/internal/repository"
)

// ExamService exposes the read side of the exam-authoring collaborator:
// published exams and their questions for the exam page. The correct option
// never leaves the service (stripped by the Question JSON mapping).
type ExamService interface {
	ListPublished(ctx context.Context) ([]models.Exam, error)
	GetQuestions(ctx context.Context, examID string) ([]models.Question, error)
}

type examService struct {
	examRepo repository.ExamRepository
	logger   zerolog.Logger
}

func NewExamService(examRepo repository.ExamRepository, logger zerolog.Logger) ExamService {
	return &examService{
		examRepo: examRepo,
		logger:   logger,
	}
}

func (s *examService) ListPublished(ctx context.Context) ([]models.Exam, error) {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, nil
}

func (s *examService) GetQuestions(ctx context.Context, examID string) ([]models.Question, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}
	if exam == nil || !exam.IsPublished {
		return nil, ErrExamNotFound
	}

	questions, err := s.examRepo.GetQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}
	return questions, nil
}
