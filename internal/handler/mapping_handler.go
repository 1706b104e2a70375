package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Phurinho/outcome-career-align/internal/dto"
	"github.com/Phurinho/outcome-career-align/internal/models"
	"github.com/Phurinho/outcome-career-align/internal/service"
	"github.com/Phurinho/outcome-career-align/pkg/response"
)

type mappingService interface {
	Suggest(ctx context.Context, cloID, unitCode string, confidence float64) (*models.Mapping, error)
	CreateManual(ctx context.Context, cloID, unitCode string, confidence float64) (*models.Mapping, error)
	SubmitForReview(ctx context.Context, id string) (*models.Mapping, error)
	Approve(ctx context.Context, id string, actor models.Actor) (*models.Mapping, error)
	Reject(ctx context.Context, id string, actor models.Actor) (*models.Mapping, error)
	Get(ctx context.Context, id string) (*models.Mapping, error)
	ListPending(ctx context.Context) ([]models.Mapping, error)
	List(ctx context.Context, query service.MappingQuery) ([]models.MappingView, error)
	Suggestions(ctx context.Context) ([]models.SuggestionGroup, error)
	RunScoring(ctx context.Context, cloID string, candidateUnits []string) ([]models.Mapping, error)
}

// MappingHandler exposes the mapping review workflow.
type MappingHandler struct {
	service mappingService
}

// NewMappingHandler constructs the handler.
func NewMappingHandler(service mappingService) *MappingHandler {
	return &MappingHandler{service: service}
}

// List godoc
// @Summary List mappings joined with CLO and unit details
// @Tags Mappings
// @Produce json
// @Param q query string false "Search term"
// @Param status query string false "Comma-separated statuses"
// @Param cloId query string false "CLO ID"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /mappings [get]
func (h *MappingHandler) List(c *gin.Context) {
	var query dto.MappingListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query parameters"))
		return
	}
	views, err := h.service.List(c.Request.Context(), mappingQuery(query.Term, query.Status, query.CLOID))
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pagination := response.Paginate(views, query.Page, query.PageSize)
	response.JSON(c, http.StatusOK, page, pagination)
}

// Pending godoc
// @Summary Mappings awaiting review, oldest first
// @Tags Mappings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /mappings/pending [get]
func (h *MappingHandler) Pending(c *gin.Context) {
	pending, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, pending)
}

// Suggestions godoc
// @Summary Open scoring suggestions grouped by CLO
// @Tags Mappings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /mappings/suggestions [get]
func (h *MappingHandler) Suggestions(c *gin.Context) {
	groups, err := h.service.Suggestions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, groups)
}

// Get godoc
// @Summary Get a mapping
// @Tags Mappings
// @Produce json
// @Param id path string true "Mapping ID"
// @Success 200 {object} response.Envelope
// @Router /mappings/{id} [get]
func (h *MappingHandler) Get(c *gin.Context) {
	mapping, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mapping)
}

// Suggest godoc
// @Summary Record a scorer suggestion
// @Tags Mappings
// @Accept json
// @Produce json
// @Param payload body dto.CreateMappingRequest true "Suggestion"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mappings/suggestions [post]
func (h *MappingHandler) Suggest(c *gin.Context) {
	h.create(c, h.service.Suggest)
}

// Create godoc
// @Summary Propose a mapping for review
// @Tags Mappings
// @Accept json
// @Produce json
// @Param payload body dto.CreateMappingRequest true "Mapping"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mappings [post]
func (h *MappingHandler) Create(c *gin.Context) {
	h.create(c, h.service.CreateManual)
}

func (h *MappingHandler) create(c *gin.Context, fn func(context.Context, string, string, float64) (*models.Mapping, error)) {
	var req dto.CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid mapping payload"))
		return
	}
	mapping, err := fn(c.Request.Context(), req.CLOID, req.UnitCode, *req.Confidence)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mapping)
}

// Submit godoc
// @Summary Move a suggestion into the review queue
// @Tags Mappings
// @Produce json
// @Param id path string true "Mapping ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mappings/{id}/submit [post]
func (h *MappingHandler) Submit(c *gin.Context) {
	mapping, err := h.service.SubmitForReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mapping)
}

// Approve godoc
// @Summary Confirm a pending mapping
// @Tags Mappings
// @Produce json
// @Param id path string true "Mapping ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mappings/{id}/approve [post]
func (h *MappingHandler) Approve(c *gin.Context) {
	h.review(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject a pending mapping
// @Tags Mappings
// @Produce json
// @Param id path string true "Mapping ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /mappings/{id}/reject [post]
func (h *MappingHandler) Reject(c *gin.Context) {
	h.review(c, h.service.Reject)
}

func (h *MappingHandler) review(c *gin.Context, fn func(context.Context, string, models.Actor) (*models.Mapping, error)) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	mapping, err := fn(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mapping)
}

// Score godoc
// @Summary Score one CLO against catalog units
// @Tags Mappings
// @Accept json
// @Produce json
// @Param id path string true "CLO ID"
// @Param payload body dto.RunScoringRequest false "Candidate unit codes"
// @Success 201 {object} response.Envelope
// @Router /clos/{id}/scoring [post]
func (h *MappingHandler) Score(c *gin.Context) {
	var req dto.RunScoringRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, bindError(err, "invalid scoring payload"))
			return
		}
	}
	cloID := c.Param("id")
	created, err := h.service.RunScoring(c.Request.Context(), cloID, req.Units)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ScoringResult{CLOID: cloID, Suggested: created, Count: len(created)})
}
