package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/kamleshbhati477/exam-helper/internal/model"
	"github.com/rs/zerolog"
)

// ExamStatsStore is the persistence port used by StatisticsService.
// Implemented by repository.ExamRepository.
type ExamStatsStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	SaveStatistics(ctx context.Context, exam *model.Exam) error
}

// StatisticsService maintains the running attempt summary on an exam.
// Every aggregate is updated incrementally from the new attempt alone, so a
// recorded attempt never triggers a rescan of attempt history.
type StatisticsService struct {
	store ExamStatsStore
	log   zerolog.Logger
}

// NewStatisticsService creates a new StatisticsService.
func NewStatisticsService(store ExamStatsStore, log zerolog.Logger) *StatisticsService {
	return &StatisticsService{
		store: store,
		log:   log.With().Str("component", "statistics_service").Logger(),
	}
}

// RecordAttempt folds one completed attempt into the exam's statistics and
// persists the result. The update order matters: the attempt counter moves
// first because the first-attempt branch and the running mean both key off
// the post-increment count.
func (s *StatisticsService) RecordAttempt(ctx context.Context, examID uuid.UUID, res model.AttemptResult) (*model.ExamStatistics, error) {
	exam, err := s.store.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}

	st := &exam.Statistics

	st.TotalAttempts++
	n := float64(st.TotalAttempts)

	if res.Score > st.HighestScore {
		st.HighestScore = res.Score
	}

	if st.TotalAttempts == 1 {
		// The zero default would otherwise pin the minimum at 0 forever.
		st.LowestScore = res.Score
	} else if res.Score < st.LowestScore {
		st.LowestScore = res.Score
	}

	// Running mean: newAvg = (oldAvg*(n-1) + score) / n. Keeping this exact
	// recurrence is what makes the stored average match a recomputation from
	// the full attempt history.
	st.AverageScore = (st.AverageScore*(n-1) + res.Score) / n

	if res.Duration != nil {
		st.TotalTimeSpent += *res.Duration
		st.AverageTimePerAttempt = float64(st.TotalTimeSpent) / n
	}

	if res.Passed != nil {
		// The previous passed count is reconstructed from the stored
		// percentage. Rounding keeps the reconstruction stable, but the
		// rate can drift up to one percentage point from an exact count.
		previousPassed := math.Round(st.PassRate * (n - 1) / 100)
		if *res.Passed {
			previousPassed++
		}
		st.PassRate = previousPassed / n * 100
	}

	// Every recorded attempt counts as completed; abandoned attempts are
	// not tracked.
	st.CompletionRate = 100

	if err := s.store.SaveStatistics(ctx, exam); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("exam_id", examID.String()).
		Int("total_attempts", st.TotalAttempts).
		Float64("average_score", st.AverageScore).
		Msg("Attempt recorded")

	return st, nil
}
