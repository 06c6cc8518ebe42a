package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/service"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type exportService interface {
	ExportLeaderboard(ctx context.Context, examID, format string) (*service.ExportTicket, error)
	ExportGradeSheet(ctx context.Context, studentID, format string) (*service.ExportTicket, error)
	Open(token string) (*service.ExportDownload, error)
}

// ExportHandler renders CSV/PDF exports and serves signed downloads.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Leaderboard godoc
// @Summary Export a leaderboard
// @Tags Exports
// @Produce json
// @Param examId path string true "Exam ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /rankings/{examId}/export [post]
func (h *ExportHandler) Leaderboard(c *gin.Context) {
	ticket, err := h.exports.ExportLeaderboard(c.Request.Context(), c.Param("examId"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ticket)
}

// GradeSheet godoc
// @Summary Export a student's grade sheet
// @Tags Exports
// @Produce json
// @Param id path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/results/export [get]
func (h *ExportHandler) GradeSheet(c *gin.Context) {
	ticket, err := h.exports.ExportGradeSheet(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ticket)
}

// Download godoc
// @Summary Download a generated export
// @Description The token embeds the file path and expiry and is signed server side
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	response.Attachment(c, download.FileName, download.ContentType, download.File)
}
