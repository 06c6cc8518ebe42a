package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/middleware"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type rankingService interface {
	Leaderboard(ctx context.Context, examID string) (*models.Leaderboard, bool, error)
}

// RankingHandler serves per-exam leaderboards.
type RankingHandler struct {
	rankings rankingService
}

// NewRankingHandler constructs RankingHandler.
func NewRankingHandler(rankings rankingService) *RankingHandler {
	return &RankingHandler{rankings: rankings}
}

// Leaderboard godoc
// @Summary Get exam leaderboard
// @Description Best attempt per student, ordered by score then speed; students must have completed the curriculum
// @Tags Rankings
// @Produce json
// @Param examId path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /rankings/{examId} [get]
func (h *RankingHandler) Leaderboard(c *gin.Context) {
	board, hit, err := h.rankings.Leaderboard(c.Request.Context(), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, board, nil, middleware.ExtractMeta(c))
}
