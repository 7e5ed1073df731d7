package models

import (
	"time"
)

// ExamAttempt is one student's single run through one exam. There is at most
// one row per (exam_id, student_id); re-entry resumes the existing row.
type ExamAttempt struct {
	ID             string     `json:"id" db:"id"`
	ExamID         string     `json:"exam_id" db:"exam_id"`
	StudentID      string     `json:"student_id" db:"student_id"`
	StartTime      time.Time  `json:"start_time" db:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty" db:"end_time"`
	Submitted      bool       `json:"submitted" db:"submitted"`
	Terminated     bool       `json:"terminated" db:"terminated"`
	BehaviorCount  int        `json:"behavior_count" db:"behavior_count"`
	CameraCount    int        `json:"camera_count" db:"camera_count"`
	CheatingCount  int        `json:"cheating_count" db:"cheating_count"`
	FinalMarks     float64    `json:"final_marks" db:"final_marks"`
	CameraSession  bool       `json:"camera_session" db:"camera_session"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

type AttemptStatus string

const (
	AttemptStatusActive     AttemptStatus = "active"
	AttemptStatusTerminated AttemptStatus = "terminated"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
)

func (a *ExamAttempt) Status() AttemptStatus {
	switch {
	case a.Submitted:
		return AttemptStatusSubmitted
	case a.Terminated:
		return AttemptStatusTerminated
	default:
		return AttemptStatusActive
	}
}

// Active reports whether the attempt can still accumulate violations.
// Submitted and terminated are both terminal for the counters.
func (a *ExamAttempt) Active() bool {
	return !a.Submitted && !a.Terminated
}

// TotalViolations is the quantity compared against the termination threshold.
func (a *ExamAttempt) TotalViolations() int {
	return a.BehaviorCount + a.CameraCount
}
