package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Phurinho/outcome-career-align/internal/dto"
	"github.com/Phurinho/outcome-career-align/internal/service"
	"github.com/Phurinho/outcome-career-align/pkg/export"
	"github.com/Phurinho/outcome-career-align/pkg/response"
)

type mappingExporter interface {
	Mappings(ctx context.Context, format export.Format, query service.MappingQuery) (*service.ExportFile, error)
}

// ExportHandler streams mapping tables as downloads.
type ExportHandler struct {
	service mappingExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(service mappingExporter) *ExportHandler {
	return &ExportHandler{service: service}
}

// Mappings godoc
// @Summary Download the mapping table
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param q query string false "Search term"
// @Param status query string false "Comma-separated statuses"
// @Param cloId query string false "CLO ID"
// @Success 200 {file} file
// @Router /exports/mappings [get]
func (h *ExportHandler) Mappings(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	format := export.Format(strings.ToLower(strings.TrimSpace(query.Format)))
	if format == "" {
		format = export.FormatCSV
	}
	file, err := h.service.Mappings(c.Request.Context(), format, mappingQuery(query.Term, query.Status, query.CLOID))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
