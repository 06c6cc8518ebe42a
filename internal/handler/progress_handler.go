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

type completionService interface {
	Toggle(ctx context.Context, studentID string, req service.ToggleCompletionRequest) (*models.CompletionStatus, error)
	Status(ctx context.Context, studentID string) (*models.CompletionStatus, error)
}

// ProgressHandler exposes curriculum completion endpoints.
type ProgressHandler struct {
	completion completionService
}

// NewProgressHandler constructs ProgressHandler.
func NewProgressHandler(completion completionService) *ProgressHandler {
	return &ProgressHandler{completion: completion}
}

// Toggle godoc
// @Summary Toggle a sub-unit as completed
// @Tags Progress
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.ToggleCompletionRequest true "Leaf to toggle"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/{id}/progress/toggle [post]
func (h *ProgressHandler) Toggle(c *gin.Context) {
	var req service.ToggleCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid payload"))
		return
	}
	status, err := h.completion.Toggle(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Status godoc
// @Summary Get curriculum completion
// @Tags Progress
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/progress [get]
func (h *ProgressHandler) Status(c *gin.Context) {
	status, err := h.completion.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
