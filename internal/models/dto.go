package models

import "time"

// Data Transfer Objects

type StartAttemptRequest struct {
	ExamID    string `json:"exam_id"`
	StudentID string `json:"student_id"`
}

type StartAttemptResponse struct {
	AttemptID string        `json:"attempt_id"`
	ExamID    string        `json:"exam_id"`
	Status    AttemptStatus `json:"status"`
	Resumed   bool          `json:"resumed"`
	StartTime time.Time     `json:"start_time"`
}

type StartProctoringRequest struct {
	StudentID string `json:"student_id"`
}

type SubmitFrameRequest struct {
	StudentID string `json:"student_id"`
	ImageData string `json:"image_data"`
	Timestamp int64  `json:"timestamp"`
}

type SubmitFrameResponse struct {
	ViolationDetected  bool    `json:"violation_detected"`
	Type               string  `json:"type,omitempty"`
	Confidence         float64 `json:"confidence,omitempty"`
	Message            string  `json:"message,omitempty"`
	CameraWarningCount int     `json:"camera_warning_count"`
	TotalViolations    int     `json:"total_violations"`
	Terminated         bool    `json:"terminated"`
}

type ReportViolationRequest struct {
	StudentID string `json:"student_id"`
	Type      string `json:"type"`
}

type ReportViolationResponse struct {
	TotalViolations int  `json:"total_violations"`
	Terminated      bool `json:"terminated"`
	Warning         bool `json:"warning"`
}

type AnswerSubmission struct {
	QuestionID     string `json:"question_id"`
	SelectedOption string `json:"selected_option"`
}

type FinalizeAttemptRequest struct {
	StudentID string             `json:"student_id"`
	Answers   []AnswerSubmission `json:"answers"`
}

type FinalizeAttemptResponse struct {
	FinalMarks      float64 `json:"final_marks"`
	RawScore        float64 `json:"raw_score"`
	TotalViolations int     `json:"total_violations"`
	Terminated      bool    `json:"terminated"`
}

type AttemptResult struct {
	AttemptID      string     `json:"attempt_id"`
	ExamTitle      string     `json:"exam_title"`
	FinalMarks     float64    `json:"final_marks"`
	DisplayMarks   float64    `json:"display_marks"`
	Grade          string     `json:"grade"`
	TotalQuestions int        `json:"total_questions"`
	CheatingCount  int        `json:"cheating_count"`
	CameraWarnings int        `json:"camera_warnings"`
	Terminated     bool       `json:"terminated"`
	CompletionTime *time.Time `json:"completion_time,omitempty"`
}

type StudentStats struct {
	StudentID         string `json:"student_id"`
	TotalAttempts     int    `json:"total_attempts"`
	SubmittedAttempts int    `json:"submitted_attempts"`
	BehaviorEvents    int    `json:"behavior_events"`
	CameraWarnings    int    `json:"camera_warnings"`
	TerminatedExams   int    `json:"terminated_exams"`
}

type ExamResultRow struct {
	StudentID      string  `json:"student_id"`
	FinalMarks     float64 `json:"final_marks"`
	DisplayMarks   float64 `json:"display_marks"`
	Grade          string  `json:"grade"`
	CheatingCount  int     `json:"cheating_count"`
	CameraWarnings int     `json:"camera_warnings"`
	Terminated     bool    `json:"terminated"`
}

type ExamResults struct {
	Exam    Exam            `json:"exam"`
	Results []ExamResultRow `json:"results"`
}

type LiveUpdates struct {
	NewBehaviorEvents int       `json:"new_behavior_events"`
	NewCameraEvents   int       `json:"new_camera_events"`
	Timestamp         time.Time `json:"timestamp"`
}

type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Database  bool      `json:"database"`
	RabbitMQ  bool      `json:"rabbitmq"`
	Evidence  bool      `json:"evidence"`
	Uptime    string    `json:"uptime"`
	Timestamp time.Time `json:"timestamp"`
}
