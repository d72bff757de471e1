package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kamleshbhati477/exam-helper/internal/middleware"
	"github.com/kamleshbhati477/exam-helper/internal/model"
	"github.com/kamleshbhati477/exam-helper/internal/response"
	"github.com/kamleshbhati477/exam-helper/internal/service"
	"github.com/kamleshbhati477/exam-helper/internal/validator"
)

// RatingHandler handles exam rating endpoints.
type RatingHandler struct {
	ratingService *service.RatingService
}

// NewRatingHandler creates a new RatingHandler.
func NewRatingHandler(ratingService *service.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: ratingService}
}

// RateExam godoc
// PUT /api/v1/exams/:exam_id/rating
// Adds the caller's rating or replaces their existing one.
func (h *RatingHandler) RateExam(c *gin.Context) {
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

	var req model.RateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.ratingService.UpsertRating(c.Request.Context(), examID, claims.UserID, req.Score, req.Review)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"averageRating": exam.AverageRating,
		"totalRatings":  exam.TotalRatings,
	})
}

// DeleteRating godoc
// DELETE /api/v1/exams/:exam_id/rating
// Removes the caller's rating. Removing a rating that does not exist is fine.
func (h *RatingHandler) DeleteRating(c *gin.Context) {
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

	exam, err := h.ratingService.RemoveRating(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"averageRating": exam.AverageRating,
		"totalRatings":  exam.TotalRatings,
	})
}

// MarkHelpful godoc
// POST /api/v1/exams/:exam_id/ratings/:rating_id/helpful
// Best effort: a stale rating reference still answers 200.
func (h *RatingHandler) MarkHelpful(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	ratingID, err := uuid.Parse(c.Param("rating_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.ratingService.MarkHelpful(c.Request.Context(), examID, ratingID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "vote recorded"})
}
