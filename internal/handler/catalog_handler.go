package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type catalogReader interface {
	Units() []models.Unit
	Exams() []models.Exam
}

// CatalogHandler exposes the read-only curriculum and exam catalog.
type CatalogHandler struct {
	catalog catalogReader
}

func NewCatalogHandler(catalog catalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Units godoc
// @Summary List curriculum units
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/units [get]
func (h *CatalogHandler) Units(c *gin.Context) {
	units := h.catalog.Units()
	if units == nil {
		units = []models.Unit{}
	}
	response.JSON(c, http.StatusOK, units, nil)
}

// Exams godoc
// @Summary List exams
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/exams [get]
func (h *CatalogHandler) Exams(c *gin.Context) {
	exams := h.catalog.Exams()
	if exams == nil {
		exams = []models.Exam{}
	}
	response.JSON(c, http.StatusOK, exams, nil)
}
