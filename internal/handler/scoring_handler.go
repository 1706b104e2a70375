package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Phurinho/outcome-career-align/internal/models"
	"github.com/Phurinho/outcome-career-align/pkg/response"
)

type scoringRunner interface {
	StartRun(ctx context.Context, actor models.Actor) (*models.ScoringRun, error)
	Run(ctx context.Context, id string) (*models.ScoringRun, error)
}

// ScoringHandler exposes asynchronous batch scoring.
type ScoringHandler struct {
	service scoringRunner
}

// NewScoringHandler constructs the handler.
func NewScoringHandler(service scoringRunner) *ScoringHandler {
	return &ScoringHandler{service: service}
}

// Start godoc
// @Summary Queue a scoring run over every unmapped CLO
// @Tags Scoring
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /scoring/runs [post]
func (h *ScoringHandler) Start(c *gin.Context) {
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	run, err := h.service.StartRun(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run)
}

// Get godoc
// @Summary Scoring run status
// @Tags Scoring
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /scoring/runs/{id} [get]
func (h *ScoringHandler) Get(c *gin.Context) {
	run, err := h.service.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, run)
}
