package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kamleshbhati477/exam-helper/internal/config"
	"github.com/kamleshbhati477/exam-helper/internal/middleware"
	"github.com/kamleshbhati477/exam-helper/internal/model"
	"github.com/kamleshbhati477/exam-helper/internal/response"
	"github.com/kamleshbhati477/exam-helper/internal/service"
	"github.com/kamleshbhati477/exam-helper/internal/validator"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AttemptHandler accepts completed attempt results and queues them for the
// statistics worker.
type AttemptHandler struct {
	examService *service.ExamService
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(examService *service.ExamService, rdb *redis.Client, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		examService: examService,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_handler").Logger(),
	}
}

// SubmitAttempt godoc
// POST /api/v1/exams/:exam_id/attempts
// Accepts a finished attempt, derives the pass flag from the exam's passing
// score and pushes the result onto the worker queue. The statistics update
// itself happens asynchronously.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if exam.Status != model.ExamStatusPublished {
		response.Fail(c, http.StatusBadRequest, response.ErrExamNotPublished)
		return
	}

	passed := req.Score >= exam.PassingScore
	result := model.AttemptResult{
		ExamID:   examID,
		UserID:   claims.UserID,
		Score:    req.Score,
		Duration: req.DurationSeconds,
		Passed:   &passed,
	}

	raw, err := json.Marshal(result)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if err := h.rdb.RPush(c.Request.Context(), config.WorkerKey.AttemptResultsQueue, raw).Err(); err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to queue attempt result")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{
		"score":  req.Score,
		"passed": passed,
	})
}
