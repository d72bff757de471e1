package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kamleshbhati477/exam-helper/internal/model"
)

// ExamRepository handles exam data access, including the statistics columns
// and the ratings collection owned by each exam.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, title, description, author_id, category, duration_minutes,
	passing_score, status, total_attempts, average_score, highest_score,
	lowest_score, total_time_spent, average_time_per_attempt, completion_rate,
	pass_rate, average_rating, total_ratings, created_at, updated_at`

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	st := &e.Statistics
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.AuthorID, &e.Category,
		&e.DurationMinutes, &e.PassingScore, &e.Status,
		&st.TotalAttempts, &st.AverageScore, &st.HighestScore, &st.LowestScore,
		&st.TotalTimeSpent, &st.AverageTimePerAttempt, &st.CompletionRate,
		&st.PassRate, &e.AverageRating, &e.TotalRatings,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetByID retrieves an exam by its UUID, with its ratings loaded.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	ratings, err := r.listRatings(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Ratings = ratings
	return e, nil
}

func (r *ExamRepository) listRatings(ctx context.Context, examID uuid.UUID) ([]model.Rating, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, score, review, helpful_count, created_at
		 FROM ratings WHERE exam_id = $1
		 ORDER BY created_at`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []model.Rating
	for rows.Next() {
		var rt model.Rating
		if err := rows.Scan(&rt.ID, &rt.UserID, &rt.Score, &rt.Review,
			&rt.HelpfulCount, &rt.CreatedAt); err != nil {
			return nil, err
		}
		ratings = append(ratings, rt)
	}
	return ratings, rows.Err()
}

// ListByAuthorPaginated retrieves exams filtered by author with pagination.
// Pass authorID=0 to list all exams. Ratings are not loaded for listings.
func (r *ExamRepository) ListByAuthorPaginated(ctx context.Context, authorID, limit, offset int) ([]model.Exam, int, error) {
	countQuery := `SELECT COUNT(*) FROM exams`
	query := `SELECT ` + examColumns + ` FROM exams`
	var countArgs, args []interface{}

	if authorID > 0 {
		countQuery += ` WHERE author_id = $1`
		countArgs = append(countArgs, authorID)
		query += ` WHERE author_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, authorID, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, 0, err
		}
		exams = append(exams, *e)
	}
	return exams, total, rows.Err()
}

// Create inserts a new exam with zeroed aggregates.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, description, author_id, category, duration_minutes, passing_score, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Description, e.AuthorID, e.Category,
		e.DurationMinutes, e.PassingScore, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// UpdateStatus updates an exam's status.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// SaveStatistics persists the exam's statistics columns in one update.
func (r *ExamRepository) SaveStatistics(ctx context.Context, e *model.Exam) error {
	st := e.Statistics
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET total_attempts = $1, average_score = $2, highest_score = $3,
		     lowest_score = $4, total_time_spent = $5, average_time_per_attempt = $6,
		     completion_rate = $7, pass_rate = $8, updated_at = NOW()
		 WHERE id = $9`,
		st.TotalAttempts, st.AverageScore, st.HighestScore, st.LowestScore,
		st.TotalTimeSpent, st.AverageTimePerAttempt, st.CompletionRate,
		st.PassRate, e.ID)
	if err != nil {
		return fmt.Errorf("save statistics: %w", err)
	}
	return nil
}

// SaveRatings replaces the exam's rating rows with the in-memory list and
// persists the recomputed aggregates, all in one transaction.
func (r *ExamRepository) SaveRatings(ctx context.Context, e *model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM ratings WHERE exam_id = $1`, e.ID); err != nil {
		return fmt.Errorf("clear ratings: %w", err)
	}

	for _, rt := range e.Ratings {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ratings (id, exam_id, user_id, score, review, helpful_count, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rt.ID, e.ID, rt.UserID, rt.Score, rt.Review, rt.HelpfulCount, rt.CreatedAt); err != nil {
			return fmt.Errorf("insert rating: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE exams SET average_rating = $1, total_ratings = $2, updated_at = NOW() WHERE id = $3`,
		e.AverageRating, e.TotalRatings, e.ID); err != nil {
		return fmt.Errorf("save rating aggregates: %w", err)
	}

	return tx.Commit(ctx)
}
