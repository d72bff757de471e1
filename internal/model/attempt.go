package model

import "github.com/google/uuid"

// AttemptResult is one completed attempt as fed to the statistics service.
// Duration and Passed are optional: an attempt recorded without a duration
// leaves the time aggregates untouched, and one recorded without a pass flag
// leaves the pass rate untouched.
type AttemptResult struct {
	ExamID   uuid.UUID `json:"exam_id"`
	UserID   int       `json:"user_id"`
	Score    float64   `json:"score"`
	Duration *int      `json:"duration,omitempty"` // seconds
	Passed   *bool     `json:"passed,omitempty"`
}

// SubmitAttemptRequest is the payload for reporting a finished attempt.
type SubmitAttemptRequest struct {
	Score           float64 `json:"score" binding:"min=0,max=100"`
	DurationSeconds *int    `json:"duration_seconds" binding:"omitempty,min=0"`
}
