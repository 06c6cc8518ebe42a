package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/middleware"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, studentID, examID string, viewer models.UserRole) (*models.StudentProfile, error)
}

// ProfileHandler serves the aggregated student card.
type ProfileHandler struct {
	profiles profileService
}

func NewProfileHandler(profiles profileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get godoc
// @Summary Get student profile
// @Description Identity, curriculum completion and, when examId is set, the student's leaderboard row.
// @Description Students see their row only once the curriculum is complete.
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param examId query string false "Exam to include the ranking for"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	var viewer models.UserRole
	if claims := middleware.CurrentClaims(c); claims != nil {
		viewer = claims.Role
	}
	profile, err := h.profiles.Get(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("examId")), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
