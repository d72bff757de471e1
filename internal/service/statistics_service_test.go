package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/kamleshbhati477/exam-helper/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExamStore is an in-memory entity store shared by the statistics and
// rating service tests.
type fakeExamStore struct {
	exams     map[uuid.UUID]*model.Exam
	saveErr   error
	saveCalls int
}

func newFakeExamStore(exams ...*model.Exam) *fakeExamStore {
	f := &fakeExamStore{exams: make(map[uuid.UUID]*model.Exam)}
	for _, e := range exams {
		f.exams[e.ID] = e
	}
	return f
}

func (f *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, errors.New("exam not found")
	}
	return e, nil
}

func (f *fakeExamStore) SaveStatistics(_ context.Context, _ *model.Exam) error {
	f.saveCalls++
	return f.saveErr
}

func (f *fakeExamStore) SaveRatings(_ context.Context, _ *model.Exam) error {
	f.saveCalls++
	return f.saveErr
}

func newDraftExam() *model.Exam {
	return &model.Exam{ID: uuid.New(), Title: "Algebra Basics", AuthorID: 1}
}

func ptrInt(n int) *int    { return &n }
func ptrBool(b bool) *bool { return &b }

func TestRecordAttempt_FirstAttempt(t *testing.T) {
	exam := newDraftExam()
	store := newFakeExamStore(exam)
	svc := NewStatisticsService(store, zerolog.Nop())

	st, err := svc.RecordAttempt(context.Background(), exam.ID, model.AttemptResult{
		Score:    80,
		Duration: ptrInt(300),
		Passed:   ptrBool(true),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, st.TotalAttempts)
	assert.Equal(t, 80.0, st.AverageScore)
	assert.Equal(t, 80.0, st.HighestScore)
	// The zero default must not survive the first attempt.
	assert.Equal(t, 80.0, st.LowestScore)
	assert.Equal(t, 300, st.TotalTimeSpent)
	assert.Equal(t, 300.0, st.AverageTimePerAttempt)
	assert.Equal(t, 100.0, st.PassRate)
	assert.Equal(t, 100.0, st.CompletionRate)
	assert.Equal(t, 1, store.saveCalls)
}

func TestRecordAttempt_AggregatesMatchRecomputation(t *testing.T) {
	scores := []float64{72.5, 88, 41.25, 100, 63.3, 55, 97.8, 12, 84.4, 70}
	durations := []int{320, 450, 610, 200, 515, 380, 295, 720, 410, 333}
	passed := []bool{true, true, false, true, false, true, true, false, true, true}

	exam := newDraftExam()
	store := newFakeExamStore(exam)
	svc := NewStatisticsService(store, zerolog.Nop())

	for i := range scores {
		_, err := svc.RecordAttempt(context.Background(), exam.ID, model.AttemptResult{
			Score:    scores[i],
			Duration: ptrInt(durations[i]),
			Passed:   ptrBool(passed[i]),
		})
		require.NoError(t, err)
	}

	var sum float64
	var timeSum, passCount int
	high, low := scores[0], scores[0]
	for i, s := range scores {
		sum += s
		timeSum += durations[i]
		if passed[i] {
			passCount++
		}
		if s > high {
			high = s
		}
		if s < low {
			low = s
		}
	}
	n := float64(len(scores))

	st := exam.Statistics
	assert.Equal(t, len(scores), st.TotalAttempts)
	assert.InDelta(t, sum/n, st.AverageScore, 1e-9)
	assert.Equal(t, high, st.HighestScore)
	assert.Equal(t, low, st.LowestScore)
	assert.Equal(t, timeSum, st.TotalTimeSpent)
	assert.InDelta(t, float64(timeSum)/n, st.AverageTimePerAttempt, 1e-9)
	// Pass rate is reconstructed from a rounded percentage each step, so it
	// is only guaranteed within one percentage point of an exact count.
	assert.InDelta(t, float64(passCount)/n*100, st.PassRate, 1.0)
	assert.Equal(t, 100.0, st.CompletionRate)
}

func TestRecordAttempt_OptionalFieldsOmitted(t *testing.T) {
	exam := newDraftExam()
	store := newFakeExamStore(exam)
	svc := NewStatisticsService(store, zerolog.Nop())

	_, err := svc.RecordAttempt(context.Background(), exam.ID, model.AttemptResult{Score: 50})
	require.NoError(t, err)
	st, err := svc.RecordAttempt(context.Background(), exam.ID, model.AttemptResult{Score: 90})
	require.NoError(t, err)

	assert.Equal(t, 2, st.TotalAttempts)
	assert.InDelta(t, 70.0, st.AverageScore, 1e-9)
	assert.Equal(t, 0, st.TotalTimeSpent)
	assert.Equal(t, 0.0, st.AverageTimePerAttempt)
	assert.Equal(t, 0.0, st.PassRate)
}

func TestRecordAttempt_LowestDoesNotStickAtZero(t *testing.T) {
	exam := newDraftExam()
	store := newFakeExamStore(exam)
	svc := NewStatisticsService(store, zerolog.Nop())

	for _, score := range []float64{60, 75, 40} {
		_, err := svc.RecordAttempt(context.Background(), exam.ID, model.AttemptResult{Score: score})
		require.NoError(t, err)
	}

	assert.Equal(t, 40.0, exam.Statistics.LowestScore)
	assert.Equal(t, 75.0, exam.Statistics.HighestScore)
}

func TestRecordAttempt_PersistenceErrorPropagates(t *testing.T) {
	exam := newDraftExam()
	store := newFakeExamStore(exam)
	store.saveErr = errors.New("connection reset")
	svc := NewStatisticsService(store, zerolog.Nop())

	_, err := svc.RecordAttempt(context.Background(), exam.ID, model.AttemptResult{Score: 50})
	require.ErrorIs(t, err, store.saveErr)
}

func TestRecordAttempt_UnknownExam(t *testing.T) {
	store := newFakeExamStore()
	svc := NewStatisticsService(store, zerolog.Nop())

	_, err := svc.RecordAttempt(context.Background(), uuid.New(), model.AttemptResult{Score: 50})
	require.Error(t, err)
	assert.Zero(t, store.saveCalls)
}
