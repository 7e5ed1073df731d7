package httpd_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/examguard/proctoring-service/internal/delivery/httpd"
	"github.com/examguard/proctoring-service/internal/models"
	"github.com/examguard/proctoring-service/internal/service"
)

type fakeProctorService struct {
	err error
}

func (f *fakeProctorService) StartAttempt(ctx context.Context, examID, studentID string) (*models.StartAttemptResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.StartAttemptResponse{AttemptID: "att-1", ExamID: examID, Status: models.AttemptStatusActive}, nil
}

func (f *fakeProctorService) StartProctoring(ctx context.Context, attemptID, studentID string) error {
	return f.err
}

func (f *fakeProctorService) ProcessFrame(ctx context.Context, attemptID, studentID, imageData string, timestamp int64) (*models.SubmitFrameResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.SubmitFrameResponse{}, nil
}

func (f *fakeProctorService) RecordBehaviorEvent(ctx context.Context, attemptID, studentID, violationType string) (*models.ReportViolationResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ReportViolationResponse{TotalViolations: 1, Warning: true}, nil
}

type fakeGradingService struct {
	err error
}

func (f *fakeGradingService) FinalizeAttempt(ctx context.Context, attemptID, studentID string, answers []models.AnswerSubmission) (*models.FinalizeAttemptResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.FinalizeAttemptResponse{FinalMarks: 10}, nil
}

type fakeExamService struct{}

func (f *fakeExamService) ListPublished(ctx context.Context) ([]models.Exam, error) {
	return []models.Exam{{ID: "exam-1", Title: "Sample", IsPublished: true}}, nil
}

func (f *fakeExamService) GetQuestions(ctx context.Context, examID string) ([]models.Question, error) {
	if examID != "exam-1" {
		return nil, service.ErrExamNotFound
	}
	return []models.Question{{ID: "q1", ExamID: examID}}, nil
}

type fakeReportingService struct{}

func (f *fakeReportingService) GetStudentResults(ctx context.Context, studentID string) ([]models.AttemptResult, error) {
	return nil, nil
}

func (f *fakeReportingService) GetStudentStats(ctx context.Context) ([]models.StudentStats, error) {
	return nil, nil
}

func (f *fakeReportingService) GetExamResults(ctx context.Context, examID string) (*models.ExamResults, error) {
	return &models.ExamResults{}, nil
}

func (f *fakeReportingService) GetLiveUpdates(ctx context.Context) (*models.LiveUpdates, error) {
	return &models.LiveUpdates{}, nil
}

func newTestRouter(proctorErr, gradingErr error) *chi.Mux {
	handler := httpd.NewHandler(
		&fakeProctorService{err: proctorErr},
		&fakeGradingService{err: gradingErr},
		&fakeExamService{},
		&fakeReportingService{},
		nil,
		zerolog.Nop(),
	)

	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, router *chi.Mux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStartAttemptRoute(t *testing.T) {
	router := newTestRouter(nil, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/attempts", `{"exam_id":"exam-1","student_id":"alice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200: %s", rec.Code, rec.Body)
	}

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			AttemptID string `json:"attempt_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Success || envelope.Data.AttemptID != "att-1" {
		t.Fatalf("got envelope %+v", envelope)
	}
}

func TestStartAttemptValidation(t *testing.T) {
	router := newTestRouter(nil, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing exam id", `{"student_id":"alice"}`},
		{"missing student id", `{"exam_id":"exam-1"}`},
		{"malformed body", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/api/v1/attempts", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("got status %d, want 400", rec.Code)
			}
		})
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		proctorErr error
		gradingErr error
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "exam not found",
			proctorErr: service.ErrExamNotFound,
			method:     http.MethodPost,
			path:       "/api/v1/attempts",
			body:       `{"exam_id":"ghost","student_id":"alice"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "attempt submitted",
			proctorErr: service.ErrAttemptSubmitted,
			method:     http.MethodPost,
			path:       "/api/v1/attempts",
			body:       `{"exam_id":"exam-1","student_id":"alice"}`,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "session not active",
			proctorErr: service.ErrSessionNotActive,
			method:     http.MethodPost,
			path:       "/api/v1/attempts/att-1/frames",
			body:       `{"student_id":"alice","image_data":"xxx"}`,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "frame decode",
			proctorErr: service.ErrFrameDecode,
			method:     http.MethodPost,
			path:       "/api/v1/attempts/att-1/frames",
			body:       `{"student_id":"alice","image_data":"xxx"}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown question",
			gradingErr: service.ErrUnknownQuestion,
			method:     http.MethodPost,
			path:       "/api/v1/attempts/att-1/submit",
			body:       `{"student_id":"alice","answers":[]}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.proctorErr, tt.gradingErr)

			rec := doRequest(t, router, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body)
			}
		})
	}
}

func TestExamRoutes(t *testing.T) {
	router := newTestRouter(nil, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/exams", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list exams: got status %d, want 200", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/exams/ghost/questions", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown exam: got status %d, want 404", rec.Code)
	}
}
