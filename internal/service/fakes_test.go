package service_test

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/models"
	"github.com/examguard/proctoring-service/internal/repository"
	"github.com/examguard/proctoring-service/internal/service"
	"github.com/examguard/proctoring-service/internal/service/analyzer"
	"github.com/examguard/proctoring-service/internal/worker"
)

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

func copyAttempt(a *models.ExamAttempt) *models.ExamAttempt {
	c := *a
	return &c
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts map[string]*models.ExamAttempt
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: make(map[string]*models.ExamAttempt)}
}

func (r *fakeAttemptRepo) put(a *models.ExamAttempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[a.ID] = copyAttempt(a)
}

func (r *fakeAttemptRepo) stored(id string) *models.ExamAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.attempts[id]; ok {
		return copyAttempt(a)
	}
	return nil
}

func (r *fakeAttemptRepo) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	r.put(attempt)
	return nil
}

func (r *fakeAttemptRepo) GetByID(ctx context.Context, id string) (*models.ExamAttempt, error) {
	return r.stored(id), nil
}

func (r *fakeAttemptRepo) GetByExamAndStudent(ctx context.Context, examID, studentID string) (*models.ExamAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.attempts {
		if a.ExamID == examID && a.StudentID == studentID {
			return copyAttempt(a), nil
		}
	}
	return nil, nil
}

func (r *fakeAttemptRepo) ListByStudent(ctx context.Context, studentID string, submittedOnly bool) ([]models.ExamAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExamAttempt
	for _, a := range r.attempts {
		if a.StudentID != studentID {
			continue
		}
		if submittedOnly && !a.Submitted {
			continue
		}
		out = append(out, *copyAttempt(a))
	}
	return out, nil
}

func (r *fakeAttemptRepo) ListByExam(ctx context.Context, examID string, submittedOnly bool) ([]models.ExamAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExamAttempt
	for _, a := range r.attempts {
		if a.ExamID != examID {
			continue
		}
		if submittedOnly && !a.Submitted {
			continue
		}
		out = append(out, *copyAttempt(a))
	}
	return out, nil
}

func (r *fakeAttemptRepo) SetCameraSession(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.attempts[id]; ok {
		a.CameraSession = active
	}
	return nil
}

func (r *fakeAttemptRepo) StudentSummaries(ctx context.Context) ([]models.StudentStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byStudent := make(map[string]*models.StudentStats)
	for _, a := range r.attempts {
		s, ok := byStudent[a.StudentID]
		if !ok {
			s = &models.StudentStats{StudentID: a.StudentID}
			byStudent[a.StudentID] = s
		}
		s.TotalAttempts++
		if a.Submitted {
			s.SubmittedAttempts++
		}
		if a.Terminated {
			s.TerminatedExams++
		}
		s.BehaviorEvents += a.BehaviorCount
		s.CameraWarnings += a.CameraCount
	}
	var out []models.StudentStats
	for _, s := range byStudent {
		out = append(out, *s)
	}
	return out, nil
}

func (r *fakeAttemptRepo) BeginTx(ctx context.Context) (repository.Tx, error) {
	return fakeTx{}, nil
}

func (r *fakeAttemptRepo) GetByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*models.ExamAttempt, error) {
	return r.stored(id), nil
}

func (r *fakeAttemptRepo) UpdateCountersTx(ctx context.Context, tx repository.Tx, attempt *models.ExamAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.attempts[attempt.ID]; ok {
		a.BehaviorCount = attempt.BehaviorCount
		a.CameraCount = attempt.CameraCount
		a.CheatingCount = attempt.CheatingCount
		a.Terminated = attempt.Terminated
		a.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeAttemptRepo) FinalizeTx(ctx context.Context, tx repository.Tx, attempt *models.ExamAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.attempts[attempt.ID]; ok {
		a.Submitted = attempt.Submitted
		a.Terminated = attempt.Terminated
		a.CheatingCount = attempt.CheatingCount
		a.FinalMarks = attempt.FinalMarks
		a.EndTime = attempt.EndTime
		a.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeAttemptRepo) Ping(ctx context.Context) error { return nil }

type fakeViolationRepo struct {
	mu     sync.Mutex
	events []models.ViolationEvent
}

func (r *fakeViolationRepo) InsertTx(ctx context.Context, tx repository.Tx, event *models.ViolationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeViolationRepo) ListByAttempt(ctx context.Context, attemptID string) ([]models.ViolationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ViolationEvent
	for _, e := range r.events {
		if e.AttemptID == attemptID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeViolationRepo) TallyByAttempt(ctx context.Context, attemptID string) (models.ViolationTally, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tally models.ViolationTally
	for _, e := range r.events {
		if e.AttemptID != attemptID {
			continue
		}
		switch e.Source {
		case models.SourceBehavior:
			tally.BehaviorCount++
		case models.SourceCamera:
			tally.CameraCount++
		}
	}
	return tally, nil
}

func (r *fakeViolationRepo) CountByStudent(ctx context.Context, studentID string, source models.ViolationSource) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.events {
		if e.StudentID == studentID && e.Source == source {
			count++
		}
	}
	return count, nil
}

func (r *fakeViolationRepo) CountByAttempt(ctx context.Context, attemptID string, source models.ViolationSource) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.events {
		if e.AttemptID == attemptID && e.Source == source {
			count++
		}
	}
	return count, nil
}

func (r *fakeViolationRepo) CountSince(ctx context.Context, since time.Time, source models.ViolationSource) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.events {
		if e.Source == source && !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeViolationRepo) count(attemptID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.events {
		if e.AttemptID == attemptID {
			count++
		}
	}
	return count
}

type fakeExamRepo struct {
	mu        sync.Mutex
	exams     map[string]models.Exam
	questions map[string][]models.Question
	answers   []models.Answer
}

func newFakeExamRepo() *fakeExamRepo {
	return &fakeExamRepo{
		exams:     make(map[string]models.Exam),
		questions: make(map[string][]models.Question),
	}
}

func (r *fakeExamRepo) ListPublished(ctx context.Context) ([]models.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Exam
	for _, e := range r.exams {
		if e.IsPublished {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeExamRepo) GetByID(ctx context.Context, id string) (*models.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.exams[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (r *fakeExamRepo) GetQuestions(ctx context.Context, examID string) ([]models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.questions[examID], nil
}

func (r *fakeExamRepo) InsertAnswersTx(ctx context.Context, tx repository.Tx, answers []models.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, answers...)
	return nil
}

func (r *fakeExamRepo) storedAnswers() []models.Answer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Answer(nil), r.answers...)
}

type fakeEvidenceRepo struct {
	mu   sync.Mutex
	keys []string
}

func (r *fakeEvidenceRepo) Store(ctx context.Context, key string, frame []byte, contentType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

func (r *fakeEvidenceRepo) Healthy(ctx context.Context) bool { return true }

func (r *fakeEvidenceRepo) storedKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *fakePublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *fakePublisher) PublishJSON(ctx context.Context, exchange, routingKey string, event any) error {
	return p.Publish(ctx, exchange, routingKey, nil)
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published(routingKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, k := range p.keys {
		if k == routingKey {
			count++
		}
	}
	return count
}

type stubDetector struct {
	mu      sync.Mutex
	regions []analyzer.Region
	err     error
}

func (d *stubDetector) Detect(frame image.Image) ([]analyzer.Region, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regions, d.err
}

func (d *stubDetector) set(regions []analyzer.Region, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regions = regions
	d.err = err
}

// testEnv wires the proctor and grading services against in-memory fakes,
// sharing the same locks and repositories like the real app does.
type testEnv struct {
	attempts   *fakeAttemptRepo
	violations *fakeViolationRepo
	exams      *fakeExamRepo
	evidence   *fakeEvidenceRepo
	publisher  *fakePublisher
	detector   *stubDetector
	pool       *worker.WorkerPool
	proctor    service.ProctorService
	grading    service.GradingService

	stopOnce sync.Once
}

func newTestEnv(t *testing.T, threshold int) *testEnv {
	t.Helper()

	env := &testEnv{
		attempts:   newFakeAttemptRepo(),
		violations: &fakeViolationRepo{},
		exams:      newFakeExamRepo(),
		evidence:   &fakeEvidenceRepo{},
		publisher:  &fakePublisher{},
		detector:   &stubDetector{},
		pool:       worker.NewWorkerPool(2, zerolog.Nop()),
	}
	env.pool.Start(context.Background())
	t.Cleanup(env.drain)

	frameAnalyzer := analyzer.NewFrameAnalyzer(env.detector, analyzer.Config{
		MinFaceRatio:        0.15,
		CenterThreshold:     0.3,
		NoFaceConfidence:    0.9,
		MultiFaceConfidence: 0.3,
		TooSmallConfidence:  0.7,
		OffCenterConfidence: 0.6,
	}, zerolog.Nop())

	locks := service.NewAttemptLocks()
	penalty := service.NewPenaltyCalculator([]float64{1.0, 0.7, 0.3}, threshold)

	env.proctor = service.NewProctorService(
		env.attempts,
		env.violations,
		env.exams,
		env.evidence,
		frameAnalyzer,
		env.publisher,
		env.pool,
		locks,
		zerolog.Nop(),
		service.ProctorConfig{TerminationThreshold: threshold, Exchange: "proctoring"},
	)

	env.grading = service.NewGradingService(
		env.attempts,
		env.exams,
		penalty,
		env.publisher,
		env.pool,
		locks,
		zerolog.Nop(),
		service.GradingConfig{Exchange: "proctoring"},
	)

	return env
}

// drain stops the worker pool, running every queued side effect before the
// test asserts on published events or stored evidence.
func (e *testEnv) drain() {
	e.stopOnce.Do(func() { e.pool.Stop() })
}

func (e *testEnv) seedExam(id string, published bool, questionMarks ...int) {
	exam := models.Exam{
		ID:              id,
		Title:           "Sample Exam",
		DurationMinutes: 60,
		TotalQuestions:  len(questionMarks),
		IsPublished:     published,
		CreatedAt:       time.Now(),
	}

	var questions []models.Question
	for i, marks := range questionMarks {
		questions = append(questions, models.Question{
			ID:            questionID(id, i),
			ExamID:        id,
			Text:          "question",
			OptionA:       "a",
			OptionB:       "b",
			OptionC:       "c",
			OptionD:       "d",
			CorrectOption: "a",
			Marks:         marks,
			CreatedAt:     time.Now(),
		})
	}

	e.exams.mu.Lock()
	e.exams.exams[id] = exam
	e.exams.questions[id] = questions
	e.exams.mu.Unlock()
}

func questionID(examID string, i int) string {
	return examID + "-q" + string(rune('1'+i))
}

func (e *testEnv) seedAttempt(id, examID, studentID string, mutate func(*models.ExamAttempt)) {
	now := time.Now()
	attempt := &models.ExamAttempt{
		ID:        id,
		ExamID:    examID,
		StudentID: studentID,
		StartTime: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if mutate != nil {
		mutate(attempt)
	}
	e.attempts.put(attempt)
}
