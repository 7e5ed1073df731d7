package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/models"
)

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, id string) (*models.ExamAttempt, error)
	GetByExamAndStudent(ctx context.Context, examID, studentID string) (*models.ExamAttempt, error)
	ListByStudent(ctx context.Context, studentID string, submittedOnly bool) ([]models.ExamAttempt, error)
	ListByExam(ctx context.Context, examID string, submittedOnly bool) ([]models.ExamAttempt, error)
	SetCameraSession(ctx context.Context, id string, active bool) error
	StudentSummaries(ctx context.Context) ([]models.StudentStats, error)

	// Transactional read-modify-write path. GetByIDForUpdate takes a row lock
	// so counter updates and finalize never interleave for one attempt, even
	// across processes.
	BeginTx(ctx context.Context) (Tx, error)
	GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*models.ExamAttempt, error)
	UpdateCountersTx(ctx context.Context, tx Tx, attempt *models.ExamAttempt) error
	FinalizeTx(ctx context.Context, tx Tx, attempt *models.ExamAttempt) error

	Ping(ctx context.Context) error
}

type attemptRepository struct {
	*PostgresRepository
}

func NewAttemptRepository(db *sql.DB, logger zerolog.Logger) AttemptRepository {
	return &attemptRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const attemptColumns = `
	id, exam_id, student_id, start_time, end_time, submitted, terminated,
	behavior_count, camera_count, cheating_count, final_marks, camera_session,
	created_at, updated_at
`

func (r *attemptRepository) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	query := `
		INSERT INTO exam_attempts (` + attemptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.ExamID,
		attempt.StudentID,
		attempt.StartTime,
		attempt.EndTime,
		attempt.Submitted,
		attempt.Terminated,
		attempt.BehaviorCount,
		attempt.CameraCount,
		attempt.CheatingCount,
		attempt.FinalMarks,
		attempt.CameraSession,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)

	return err
}

func scanAttempt(row *sql.Row) (*models.ExamAttempt, error) {
	attempt := &models.ExamAttempt{}
	var endTime sql.NullTime

	err := row.Scan(
		&attempt.ID,
		&attempt.ExamID,
		&attempt.StudentID,
		&attempt.StartTime,
		&endTime,
		&attempt.Submitted,
		&attempt.Terminated,
		&attempt.BehaviorCount,
		&attempt.CameraCount,
		&attempt.CheatingCount,
		&attempt.FinalMarks,
		&attempt.CameraSession,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		attempt.EndTime = &endTime.Time
	}

	return attempt, nil
}

func (r *attemptRepository) GetByID(ctx context.Context, id string) (*models.ExamAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM exam_attempts WHERE id = $1`
	return scanAttempt(r.db.QueryRowContext(ctx, query, id))
}

func (r *attemptRepository) GetByExamAndStudent(ctx context.Context, examID, studentID string) (*models.ExamAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM exam_attempts WHERE exam_id = $1 AND student_id = $2`
	return scanAttempt(r.db.QueryRowContext(ctx, query, examID, studentID))
}

func (r *attemptRepository) GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*models.ExamAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM exam_attempts WHERE id = $1 FOR UPDATE`
	return scanAttempt(tx.(*sql.Tx).QueryRowContext(ctx, query, id))
}

func (r *attemptRepository) UpdateCountersTx(ctx context.Context, tx Tx, attempt *models.ExamAttempt) error {
	query := `
		UPDATE exam_attempts
		SET behavior_count = $2,
		    camera_count = $3,
		    cheating_count = $4,
		    terminated = $5,
		    updated_at = $6
		WHERE id = $1
	`

	_, err := tx.(*sql.Tx).ExecContext(ctx, query,
		attempt.ID,
		attempt.BehaviorCount,
		attempt.CameraCount,
		attempt.CheatingCount,
		attempt.Terminated,
		time.Now(),
	)

	return err
}

func (r *attemptRepository) FinalizeTx(ctx context.Context, tx Tx, attempt *models.ExamAttempt) error {
	query := `
		UPDATE exam_attempts
		SET submitted = $2,
		    terminated = $3,
		    cheating_count = $4,
		    final_marks = $5,
		    end_time = $6,
		    updated_at = $7
		WHERE id = $1
	`

	_, err := tx.(*sql.Tx).ExecContext(ctx, query,
		attempt.ID,
		attempt.Submitted,
		attempt.Terminated,
		attempt.CheatingCount,
		attempt.FinalMarks,
		attempt.EndTime,
		time.Now(),
	)

	return err
}

func (r *attemptRepository) SetCameraSession(ctx context.Context, id string, active bool) error {
	query := `UPDATE exam_attempts SET camera_session = $2, updated_at = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, active, time.Now())
	return err
}

func (r *attemptRepository) list(ctx context.Context, query string, arg any) ([]models.ExamAttempt, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.ExamAttempt
	for rows.Next() {
		attempt := models.ExamAttempt{}
		var endTime sql.NullTime

		if err := rows.Scan(
			&attempt.ID,
			&attempt.ExamID,
			&attempt.StudentID,
			&attempt.StartTime,
			&endTime,
			&attempt.Submitted,
			&attempt.Terminated,
			&attempt.BehaviorCount,
			&attempt.CameraCount,
			&attempt.CheatingCount,
			&attempt.FinalMarks,
			&attempt.CameraSession,
			&attempt.CreatedAt,
			&attempt.UpdatedAt,
		); err != nil {
			return nil, err
		}

		if endTime.Valid {
			attempt.EndTime = &endTime.Time
		}

		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}

func (r *attemptRepository) ListByStudent(ctx context.Context, studentID string, submittedOnly bool) ([]models.ExamAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM exam_attempts WHERE student_id = $1`
	if submittedOnly {
		query += ` AND submitted = true`
	}
	query += ` ORDER BY start_time DESC`

	return r.list(ctx, query, studentID)
}

func (r *attemptRepository) StudentSummaries(ctx context.Context) ([]models.StudentStats, error) {
	query := `
		SELECT student_id,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE submitted),
		       COALESCE(SUM(behavior_count), 0),
		       COALESCE(SUM(camera_count), 0),
		       COUNT(*) FILTER (WHERE terminated)
		FROM exam_attempts
		GROUP BY student_id
		ORDER BY student_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.StudentStats
	for rows.Next() {
		s := models.StudentStats{}
		if err := rows.Scan(
			&s.StudentID,
			&s.TotalAttempts,
			&s.SubmittedAttempts,
			&s.BehaviorEvents,
			&s.CameraWarnings,
			&s.TerminatedExams,
		); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

func (r *attemptRepository) ListByExam(ctx context.Context, examID string, submittedOnly bool) ([]models.ExamAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM exam_attempts WHERE exam_id = $1`
	if submittedOnly {
		query += ` AND submitted = true`
	}
	query += ` ORDER BY final_marks DESC`

	return r.list(ctx, query, examID)
}
