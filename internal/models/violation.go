package models

import (
	"time"
)

type ViolationSource string

const (
	SourceBehavior ViolationSource = "behavior"
	SourceCamera   ViolationSource = "camera"
)

// Behavior violation types reported by the client.
const (
	ViolationTabSwitch   = "tab_switch"
	ViolationWindowBlur  = "window_blur"
	ViolationFullscreen  = "fullscreen_exit"
	ViolationCopyPaste   = "copy_paste"
	ViolationTermination = "camera_violations"
)

// Camera violation types produced by the frame analyzer.
const (
	ViolationNoFace        = "no_face_detected"
	ViolationMultipleFaces = "multiple_faces_detected"
	ViolationFaceTooSmall  = "face_too_small"
	ViolationFaceOffCenter = "face_not_centered"
)

// ViolationEvent is an append-only record of one detected violation.
// Rows are never mutated or deleted once written.
type ViolationEvent struct {
	ID          string          `json:"id" db:"id"`
	AttemptID   string          `json:"attempt_id" db:"attempt_id"`
	ExamID      string          `json:"exam_id" db:"exam_id"`
	StudentID   string          `json:"student_id" db:"student_id"`
	Source      ViolationSource `json:"source" db:"source"`
	Type        string          `json:"type" db:"type"`
	Confidence  *float64        `json:"confidence,omitempty" db:"confidence"`
	EvidenceKey *string         `json:"evidence_key,omitempty" db:"evidence_key"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// ViolationTally is the per-attempt sub-count breakdown at one instant.
type ViolationTally struct {
	BehaviorCount int `json:"behavior_count"`
	CameraCount   int `json:"camera_count"`
}

func (t ViolationTally) Total() int {
	return t.BehaviorCount + t.CameraCount
}
