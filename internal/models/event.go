package models

import (
	"time"
)

// Messages published to the proctoring exchange for the monitoring dashboard.

const (
	RoutingKeyViolationRecorded = "violation.recorded"
	RoutingKeyAttemptTerminated = "attempt.terminated"
	RoutingKeyAttemptSubmitted  = "attempt.submitted"
)

type ViolationRecordedEvent struct {
	AttemptID       string          `json:"attempt_id"`
	ExamID          string          `json:"exam_id"`
	StudentID       string          `json:"student_id"`
	Source          ViolationSource `json:"source"`
	Type            string          `json:"type"`
	Confidence      *float64        `json:"confidence,omitempty"`
	TotalViolations int             `json:"total_violations"`
	RecordedAt      time.Time       `json:"recorded_at"`
}

type AttemptTerminatedEvent struct {
	AttemptID       string    `json:"attempt_id"`
	ExamID          string    `json:"exam_id"`
	StudentID       string    `json:"student_id"`
	TotalViolations int       `json:"total_violations"`
	TerminatedAt    time.Time `json:"terminated_at"`
}

type AttemptSubmittedEvent struct {
	AttemptID       string    `json:"attempt_id"`
	ExamID          string    `json:"exam_id"`
	StudentID       string    `json:"student_id"`
	FinalMarks      float64   `json:"final_marks"`
	TotalViolations int       `json:"total_violations"`
	Terminated      bool      `json:"terminated"`
	SubmittedAt     time.Time `json:"submitted_at"`
}
