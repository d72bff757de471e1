package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// ExamStatistics is the denormalized attempt summary carried on every exam.
// It is maintained incrementally by the statistics service as attempt results
// arrive; attempt history is never rescanned. JSON field names are part of
// the public contract and must not change.
type ExamStatistics struct {
	TotalAttempts         int     `json:"totalAttempts"`
	AverageScore          float64 `json:"averageScore"`
	HighestScore          float64 `json:"highestScore"`
	LowestScore           float64 `json:"lowestScore"`
	TotalTimeSpent        int     `json:"totalTimeSpent"` // accumulated seconds
	AverageTimePerAttempt float64 `json:"averageTimePerAttempt"`
	CompletionRate        float64 `json:"completionRate"`
	PassRate              float64 `json:"passRate"`
}

// Rating is a single user's review of an exam. At most one rating exists
// per user per exam.
type Rating struct {
	ID           uuid.UUID `json:"id"`
	UserID       int       `json:"userId"`
	Score        int       `json:"score"`
	Review       string    `json:"review,omitempty"`
	HelpfulCount int       `json:"helpful"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Exam represents an exam entity with its embedded aggregates.
type Exam struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	AuthorID        int            `json:"author_id"`
	Category        string         `json:"category,omitempty"`
	DurationMinutes int            `json:"duration_minutes"`
	PassingScore    float64        `json:"passing_score"`
	Status          ExamStatus     `json:"status"`
	Statistics      ExamStatistics `json:"statistics"`
	Ratings         []Rating       `json:"ratings"`
	AverageRating   float64        `json:"averageRating"`
	TotalRatings    int            `json:"totalRatings"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string  `json:"title" binding:"required,min=3,max=255"`
	Description     string  `json:"description" binding:"omitempty,max=2000"`
	Category        string  `json:"category" binding:"omitempty,max=100"`
	DurationMinutes int     `json:"duration_minutes" binding:"required,min=1,max=480"`
	PassingScore    float64 `json:"passing_score" binding:"omitempty,min=0,max=100"`
}

// RateExamRequest is the payload for submitting or replacing a rating.
type RateExamRequest struct {
	Score  int    `json:"score" binding:"required,min=1,max=5"`
	Review string `json:"review" binding:"omitempty,max=500"`
}
