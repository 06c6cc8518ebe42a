package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/service"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type resultService interface {
	Submit(ctx context.Context, studentID string, req service.SubmitResultRequest) (*models.ExamResult, error)
	GradeSheet(ctx context.Context, studentID string) (*models.GradeSheet, error)
}

// ResultHandler exposes exam attempt endpoints.
type ResultHandler struct {
	results resultService
}

// NewResultHandler constructs ResultHandler.
func NewResultHandler(results resultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// Submit godoc
// @Summary Record an exam attempt
// @Description Appends a graded attempt; attempt number, id and timestamp are assigned server side
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.SubmitResultRequest true "Result payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/results [post]
func (h *ResultHandler) Submit(c *gin.Context) {
	var req service.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid payload"))
		return
	}
	result, err := h.results.Submit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// GradeSheet godoc
// @Summary List a student's attempts
// @Description Most recent first, each with the sum of possible points
// @Tags Results
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/results [get]
func (h *ResultHandler) GradeSheet(c *gin.Context) {
	sheet, err := h.results.GradeSheet(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}
