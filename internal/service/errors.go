package service

import "errors"

// Typed errors mapped onto HTTP status codes in the delivery layer.
var (
	// Domain state errors.
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrInvalidAttempt    = errors.New("attempt does not belong to the caller or is not active")
	ErrAttemptSubmitted  = errors.New("attempt already submitted")
	ErrExamNotFound      = errors.New("exam not found")
	ErrSessionNotActive  = errors.New("camera proctoring session not active")
	ErrUnknownQuestion   = errors.New("answer references unknown question")
	ErrInvalidViolation  = errors.New("invalid violation type")

	// Frame errors.
	ErrFrameDecode = errors.New("frame could not be decoded")
)
