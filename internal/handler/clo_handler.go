package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Phurinho/outcome-career-align/internal/dto"
	"github.com/Phurinho/outcome-career-align/internal/middleware"
	"github.com/Phurinho/outcome-career-align/internal/models"
	"github.com/Phurinho/outcome-career-align/internal/service"
	"github.com/Phurinho/outcome-career-align/pkg/response"
)

type cloService interface {
	Create(ctx context.Context, req service.CreateCLORequest) (*models.CLO, error)
	Update(ctx context.Context, id string, req service.UpdateCLORequest) (*models.CLO, error)
	Get(ctx context.Context, id string) (*models.CLO, error)
	Summaries(ctx context.Context, term string) ([]models.CLOSummary, error)
	WeightReport(ctx context.Context) ([]models.CourseWeight, error)
	WeightWarnings(ctx context.Context) ([]models.WeightWarning, error)
	CourseWeight(ctx context.Context, course string) (*models.CourseWeight, error)
}

// CLOHandler exposes CLO entity endpoints.
type CLOHandler struct {
	service cloService
}

// NewCLOHandler constructs the handler.
func NewCLOHandler(service cloService) *CLOHandler {
	return &CLOHandler{service: service}
}

// List godoc
// @Summary List CLOs with mapping statistics
// @Tags CLOs
// @Produce json
// @Param q query string false "Search course or description"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /clos [get]
func (h *CLOHandler) List(c *gin.Context) {
	var query dto.CLOListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	summaries, err := h.service.Summaries(c.Request.Context(), query.Term)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pagination := response.Paginate(summaries, query.Page, query.PageSize)
	response.JSON(c, http.StatusOK, page, pagination)
}

// Get godoc
// @Summary Get a CLO
// @Tags CLOs
// @Produce json
// @Param id path string true "CLO ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clos/{id} [get]
func (h *CLOHandler) Get(c *gin.Context) {
	clo, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, clo)
}

// Create godoc
// @Summary Create a CLO
// @Tags CLOs
// @Accept json
// @Produce json
// @Param payload body service.CreateCLORequest true "CLO payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /clos [post]
func (h *CLOHandler) Create(c *gin.Context) {
	var req service.CreateCLORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid clo payload"))
		return
	}
	clo, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.attachWeight(c, clo.Course)
	response.JSON(c, http.StatusCreated, clo, nil, middleware.ResponseMeta(c))
}

// Update godoc
// @Summary Update a CLO
// @Tags CLOs
// @Accept json
// @Produce json
// @Param id path string true "CLO ID"
// @Param payload body service.UpdateCLORequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /clos/{id} [patch]
func (h *CLOHandler) Update(c *gin.Context) {
	var req service.UpdateCLORequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid clo payload"))
		return
	}
	clo, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.attachWeight(c, clo.Course)
	response.OK(c, clo, middleware.ResponseMeta(c))
}

// Weights godoc
// @Summary Per-course CLO weight totals
// @Tags CLOs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /clos/weights [get]
func (h *CLOHandler) Weights(c *gin.Context) {
	report, err := h.service.WeightReport(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// WeightWarnings godoc
// @Summary Courses whose CLO weights do not total 100
// @Tags CLOs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /clos/weights/warnings [get]
func (h *CLOHandler) WeightWarnings(c *gin.Context) {
	warnings, err := h.service.WeightWarnings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, warnings)
}

// attachWeight surfaces an unbalanced course total as a response warning.
func (h *CLOHandler) attachWeight(c *gin.Context, course string) {
	weight, err := h.service.CourseWeight(c.Request.Context(), course)
	if err != nil || weight == nil || weight.Balanced {
		return
	}
	middleware.SetMeta(c, "weight_warning", models.WeightWarning{Course: weight.Course, Total: weight.Total})
}
