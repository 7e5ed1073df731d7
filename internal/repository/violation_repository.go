package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/models"
)

type ViolationRepository interface {
	// InsertTx appends one event inside the same transaction that updates the
	// attempt counters, so the log and the tally commit together.
	InsertTx(ctx context.Context, tx Tx, event *models.ViolationEvent) error

	ListByAttempt(ctx context.Context, attemptID string) ([]models.ViolationEvent, error)
	TallyByAttempt(ctx context.Context, attemptID string) (models.ViolationTally, error)
	CountByStudent(ctx context.Context, studentID string, source models.ViolationSource) (int, error)
	CountByAttempt(ctx context.Context, attemptID string, source models.ViolationSource) (int, error)
	CountSince(ctx context.Context, since time.Time, source models.ViolationSource) (int, error)
}

type violationRepository struct {
	*PostgresRepository
}

func NewViolationRepository(db *sql.DB, logger zerolog.Logger) ViolationRepository {
	return &violationRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *violationRepository) InsertTx(ctx context.Context, tx Tx, event *models.ViolationEvent) error {
	query := `
		INSERT INTO violation_events (
			id, attempt_id, exam_id, student_id, source, type, confidence, evidence_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.(*sql.Tx).ExecContext(ctx, query,
		event.ID,
		event.AttemptID,
		event.ExamID,
		event.StudentID,
		event.Source,
		event.Type,
		event.Confidence,
		event.EvidenceKey,
		event.CreatedAt,
	)

	return err
}

func (r *violationRepository) ListByAttempt(ctx context.Context, attemptID string) ([]models.ViolationEvent, error) {
	query := `
		SELECT id, attempt_id, exam_id, student_id, source, type, confidence, evidence_key, created_at
		FROM violation_events
		WHERE attempt_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.ViolationEvent
	for rows.Next() {
		event := models.ViolationEvent{}
		var confidence sql.NullFloat64
		var evidenceKey sql.NullString

		if err := rows.Scan(
			&event.ID,
			&event.AttemptID,
			&event.ExamID,
			&event.StudentID,
			&event.Source,
			&event.Type,
			&confidence,
			&evidenceKey,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}

		if confidence.Valid {
			event.Confidence = &confidence.Float64
		}
		if evidenceKey.Valid {
			event.EvidenceKey = &evidenceKey.String
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

func (r *violationRepository) TallyByAttempt(ctx context.Context, attemptID string) (models.ViolationTally, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE source = 'behavior'),
			COUNT(*) FILTER (WHERE source = 'camera')
		FROM violation_events
		WHERE attempt_id = $1
	`

	var tally models.ViolationTally
	err := r.db.QueryRowContext(ctx, query, attemptID).Scan(&tally.BehaviorCount, &tally.CameraCount)
	return tally, err
}

func (r *violationRepository) CountByStudent(ctx context.Context, studentID string, source models.ViolationSource) (int, error) {
	query := `SELECT COUNT(*) FROM violation_events WHERE student_id = $1 AND source = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, studentID, source).Scan(&count)
	return count, err
}

func (r *violationRepository) CountByAttempt(ctx context.Context, attemptID string, source models.ViolationSource) (int, error) {
	query := `SELECT COUNT(*) FROM violation_events WHERE attempt_id = $1 AND source = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, attemptID, source).Scan(&count)
	return count, err
}

func (r *violationRepository) CountSince(ctx context.Context, since time.Time, source models.ViolationSource) (int, error) {
	query := `SELECT COUNT(*) FROM violation_events WHERE created_at >= $1 AND source = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, since, source).Scan(&count)
	return count, err
}
