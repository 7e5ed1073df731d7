package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/models"
)

// ExamRepository is the read side of the exam-authoring collaborator plus
// answer persistence for submitted attempts. Exam and question authoring
// itself lives outside this service.
type ExamRepository interface {
	ListPublished(ctx context.Context) ([]models.Exam, error)
	GetByID(ctx context.Context, id string) (*models.Exam, error)
	GetQuestions(ctx context.Context, examID string) ([]models.Question, error)
	InsertAnswersTx(ctx context.Context, tx Tx, answers []models.Answer) error
}

type examRepository struct {
	*PostgresRepository
}

func NewExamRepository(db *sql.DB, logger zerolog.Logger) ExamRepository {
	return &examRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *examRepository) ListPublished(ctx context.Context) ([]models.Exam, error) {
	query := `
		SELECT id, title, duration_minutes, total_questions, is_published, created_at
		FROM exams
		WHERE is_published = true
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []models.Exam
	for rows.Next() {
		exam := models.Exam{}
		if err := rows.Scan(
			&exam.ID,
			&exam.Title,
			&exam.DurationMinutes,
			&exam.TotalQuestions,
			&exam.IsPublished,
			&exam.CreatedAt,
		); err != nil {
			return nil, err
		}
		exams = append(exams, exam)
	}

	return exams, rows.Err()
}

func (r *examRepository) GetByID(ctx context.Context, id string) (*models.Exam, error) {
	query := `
		SELECT id, title, duration_minutes, total_questions, is_published, created_at
		FROM exams
		WHERE id = $1
	`

	exam := &models.Exam{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&exam.ID,
		&exam.Title,
		&exam.DurationMinutes,
		&exam.TotalQuestions,
		&exam.IsPublished,
		&exam.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return exam, nil
}

func (r *examRepository) GetQuestions(ctx context.Context, examID string) ([]models.Question, error) {
	query := `
		SELECT id, exam_id, question_text, option_a, option_b, option_c, option_d,
		       correct_option, marks, created_at
		FROM questions
		WHERE exam_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q := models.Question{}
		if err := rows.Scan(
			&q.ID,
			&q.ExamID,
			&q.Text,
			&q.OptionA,
			&q.OptionB,
			&q.OptionC,
			&q.OptionD,
			&q.CorrectOption,
			&q.Marks,
			&q.CreatedAt,
		); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}

	return questions, rows.Err()
}

func (r *examRepository) InsertAnswersTx(ctx context.Context, tx Tx, answers []models.Answer) error {
	query := `
		INSERT INTO answers (id, attempt_id, question_id, selected_option, is_correct)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, answer := range answers {
		if _, err := tx.(*sql.Tx).ExecContext(ctx, query,
			answer.ID,
			answer.AttemptID,
			answer.QuestionID,
			answer.SelectedOption,
			answer.IsCorrect,
		); err != nil {
			return err
		}
	}

	return nil
}
