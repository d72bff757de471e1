package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	raterA = 101
	raterB = 102
)

func TestUpsertRating_ReplaceInPlace(t *testing.T) {
	exam := newDraftExam()
	store := newFakeExamStore(exam)
	svc := NewRatingService(store, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.UpsertRating(ctx, exam.ID, raterA, 4, "solid")
	require.NoError(t, err)
	_, err = svc.UpsertRating(ctx, exam.ID, raterB, 2, "")
	require.NoError(t, err)

	originalID := exam.Ratings[0].ID
	exam.Ratings[0].HelpfulCount = 3

	// Re-rating replaces score and review but keeps identity and helpful count.
	got, err := svc.UpsertRating(ctx, exam.ID, raterA, 5, "even better on retake")
	require.NoError(t, err)

	assert.Equal(t, 2, got.TotalRatings)
	assert.InDelta(t, 3.5, got.AverageRating, 1e-9)
	assert.Equal(t, originalID, got.Ratings[0].ID)
	assert.Equal(t, 5, got.Ratings[0].Score)
	assert.Equal(t, "even better on retake", got.Ratings[0].Review)
	assert.Equal(t, 3, got.Ratings[0].HelpfulCount)
}

func TestRemoveRating_RecomputesAggregates(t *testing.T) {
	exam := newDraftExam()
	store := newFakeExamStore(exam)
	svc := NewRatingService(store, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.UpsertRating(ctx, exam.ID, raterA, 5, "")
	require.NoError(t, err)
	_, err = svc.UpsertRating(ctx, exam.ID, raterB, 2, "")
	require.NoError(t, err)

	got, err := svc.RemoveRating(ctx, exam.ID, raterB)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalRatings)
	assert.Equal(t, 5.0, got.AverageRating)

	got, err = svc.RemoveRating(ctx, exam.ID, raterA)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalRatings)
	assert.Equal(t, 0.0, got.AverageRating)
}

func TestRemoveRating_MissingIsNoop(t *testing.T) {
	exam := newDraftExam()
	store := newFakeExamStore(exam)
	svc := NewRatingService(store, zerolog.Nop())

	got, err := svc.RemoveRating(context.Background(), exam.ID, raterA)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalRatings)
}

func TestMarkHelpful(t *testing.T) {
	exam := newDraftExam()
	store := newFakeExamStore(exam)
	svc := NewRatingService(store, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.UpsertRating(ctx, exam.ID, raterA, 4, "")
	require.NoError(t, err)
	ratingID := exam.Ratings[0].ID

	require.NoError(t, svc.MarkHelpful(ctx, exam.ID, ratingID))
	require.NoError(t, svc.MarkHelpful(ctx, exam.ID, ratingID))
	assert.Equal(t, 2, exam.Ratings[0].HelpfulCount)
}

func TestMarkHelpful_UnknownRatingSucceedsWithoutSave(t *testing.T) {
	exam := newDraftExam()
	store := newFakeExamStore(exam)
	svc := NewRatingService(store, zerolog.Nop())

	saves := store.saveCalls
	err := svc.MarkHelpful(context.Background(), exam.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, saves, store.saveCalls)
}

func TestUpsertRating_PersistenceErrorPropagates(t *testing.T) {
	exam := newDraftExam()
	store := newFakeExamStore(exam)
	store.saveErr = errors.New("write conflict")
	svc := NewRatingService(store, zerolog.Nop())

	_, err := svc.UpsertRating(context.Background(), exam.ID, raterA, 3, "")
	require.ErrorIs(t, err, store.saveErr)
}
