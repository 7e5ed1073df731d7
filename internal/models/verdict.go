package models

// Verdict is the frame analyzer's classification of a single camera frame.
type Verdict struct {
	Detected   bool    `json:"detected"`
	Type       string  `json:"type,omitempty"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message,omitempty"`
	FaceCount  int     `json:"face_count"`

	// Unavailable marks frames where the detector itself failed. The frame
	// yields no violation, but the condition is surfaced so a policy layer
	// can decide to treat repeated failures as suspicious.
	Unavailable bool `json:"unavailable,omitempty"`
}
