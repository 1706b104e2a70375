package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Phurinho/outcome-career-align/internal/models"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
	"github.com/Phurinho/outcome-career-align/pkg/response"
)

type catalogReader interface {
	Units(ctx context.Context) ([]models.Unit, error)
	UnitsByCareer(ctx context.Context, career string) ([]models.Unit, error)
	Careers(ctx context.Context) ([]models.Career, error)
}

// CatalogHandler serves the read-only TPQI catalog.
type CatalogHandler struct {
	catalog catalogReader
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(catalog catalogReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Units godoc
// @Summary List TPQI units
// @Tags Catalog
// @Produce json
// @Param career query string false "Career filter"
// @Success 200 {object} response.Envelope
// @Router /catalog/units [get]
func (h *CatalogHandler) Units(c *gin.Context) {
	var (
		units []models.Unit
		err   error
	)
	if career := strings.TrimSpace(c.Query("career")); career != "" {
		units, err = h.catalog.UnitsByCareer(c.Request.Context(), career)
	} else {
		units, err = h.catalog.Units(c.Request.Context())
	}
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read catalog"))
		return
	}
	response.OK(c, units)
}

// Careers godoc
// @Summary List careers with unit counts
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/careers [get]
func (h *CatalogHandler) Careers(c *gin.Context) {
	careers, err := h.catalog.Careers(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read catalog"))
		return
	}
	response.OK(c, careers)
}
