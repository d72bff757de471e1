package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kamleshbhati477/exam-helper/internal/model"
	"github.com/rs/zerolog"
)

// ExamRatingStore is the persistence port used by RatingService.
// Implemented by repository.ExamRepository.
type ExamRatingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	SaveRatings(ctx context.Context, exam *model.Exam) error
}

// RatingService maintains the rating list and its aggregates on an exam.
// The list is bounded (one rating per user), so averages are recomputed from
// the resident list rather than tracked incrementally.
type RatingService struct {
	store ExamRatingStore
	log   zerolog.Logger
}

// NewRatingService creates a new RatingService.
func NewRatingService(store ExamRatingStore, log zerolog.Logger) *RatingService {
	return &RatingService{
		store: store,
		log:   log.With().Str("component", "rating_service").Logger(),
	}
}

// UpsertRating adds a user's rating or replaces their existing one in place.
// A replacement keeps the rating's identity and helpful count.
func (s *RatingService) UpsertRating(ctx context.Context, examID uuid.UUID, userID, score int, review string) (*model.Exam, error) {
	exam, err := s.store.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}

	found := false
	for i := range exam.Ratings {
		if exam.Ratings[i].UserID == userID {
			exam.Ratings[i].Score = score
			exam.Ratings[i].Review = review
			found = true
			break
		}
	}

	if !found {
		exam.Ratings = append(exam.Ratings, model.Rating{
			ID:        uuid.New(),
			UserID:    userID,
			Score:     score,
			Review:    review,
			CreatedAt: time.Now(),
		})
	}

	recalcRatingAggregates(exam)

	if err := s.store.SaveRatings(ctx, exam); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("exam_id", examID.String()).
		Int("user_id", userID).
		Bool("replaced", found).
		Msg("Rating upserted")

	return exam, nil
}

// RemoveRating drops a user's rating if present. A missing rating is not an
// error; the aggregates are recomputed either way.
func (s *RatingService) RemoveRating(ctx context.Context, examID uuid.UUID, userID int) (*model.Exam, error) {
	exam, err := s.store.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}

	for i := range exam.Ratings {
		if exam.Ratings[i].UserID == userID {
			exam.Ratings = append(exam.Ratings[:i], exam.Ratings[i+1:]...)
			break
		}
	}

	recalcRatingAggregates(exam)

	if err := s.store.SaveRatings(ctx, exam); err != nil {
		return nil, err
	}

	return exam, nil
}

// MarkHelpful increments a rating's helpful counter. An unknown rating ID
// completes successfully without changes — a stale helpful vote should not
// fail the caller.
func (s *RatingService) MarkHelpful(ctx context.Context, examID uuid.UUID, ratingID uuid.UUID) error {
	exam, err := s.store.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("load exam: %w", err)
	}

	for i := range exam.Ratings {
		if exam.Ratings[i].ID == ratingID {
			exam.Ratings[i].HelpfulCount++
			return s.store.SaveRatings(ctx, exam)
		}
	}

	s.log.Debug().
		Str("exam_id", examID.String()).
		Str("rating_id", ratingID.String()).
		Msg("Helpful vote for unknown rating ignored")
	return nil
}

// recalcRatingAggregates recomputes averageRating and totalRatings from the
// current rating list. An empty list yields zeroes.
func recalcRatingAggregates(exam *model.Exam) {
	exam.TotalRatings = len(exam.Ratings)
	if exam.TotalRatings == 0 {
		exam.AverageRating = 0
		return
	}

	sum := 0
	for _, r := range exam.Ratings {
		sum += r.Score
	}
	exam.AverageRating = float64(sum) / float64(exam.TotalRatings)
}
