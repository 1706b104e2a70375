package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Phurinho/outcome-career-align/internal/middleware"
	"github.com/Phurinho/outcome-career-align/internal/models"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
	"github.com/Phurinho/outcome-career-align/pkg/response"
)

type analyticsService interface {
	CourseCoverage(ctx context.Context, course string) (*models.CourseCoverage, bool, error)
	CareerCoverage(ctx context.Context, career string, actor models.Actor) (*models.CareerCoverage, bool, error)
	UnitCoverage(ctx context.Context, career string) ([]models.UnitCoverage, bool, error)
	CoursePerformance(ctx context.Context) ([]models.CoursePerformance, bool, error)
	CareerInsights(ctx context.Context, actor models.Actor) ([]models.CareerInsight, bool, error)
	Overview(ctx context.Context) (*models.OverviewStats, bool, error)
	SystemMetrics() models.SystemMetrics
}

// AnalyticsHandler exposes coverage aggregation endpoints.
type AnalyticsHandler struct {
	service analyticsService
}

// NewAnalyticsHandler constructs a new handler.
func NewAnalyticsHandler(service analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// CourseCoverage godoc
// @Summary Average confidence and mapped unit count for a course
// @Tags Analytics
// @Produce json
// @Param course path string true "Course"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /analytics/courses/{course}/coverage [get]
func (h *AnalyticsHandler) CourseCoverage(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	course := strings.TrimSpace(c.Param("course"))
	if course == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "course is required"))
		return
	}
	result, hit, err := h.service.CourseCoverage(c.Request.Context(), course)
	respondAnalytics(c, result, hit, err)
}

// CareerCoverage godoc
// @Summary Mean unit coverage for a career
// @Tags Analytics
// @Produce json
// @Param career path string true "Career"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /analytics/careers/{career}/coverage [get]
func (h *AnalyticsHandler) CareerCoverage(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	career := strings.TrimSpace(c.Param("career"))
	if career == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "career is required"))
		return
	}
	result, hit, err := h.service.CareerCoverage(c.Request.Context(), career, actor)
	respondAnalytics(c, result, hit, err)
}

// UnitCoverage godoc
// @Summary Coverage per TPQI unit
// @Tags Analytics
// @Produce json
// @Param career query string false "Career filter"
// @Success 200 {object} response.Envelope
// @Router /analytics/units [get]
func (h *AnalyticsHandler) UnitCoverage(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	result, hit, err := h.service.UnitCoverage(c.Request.Context(), strings.TrimSpace(c.Query("career")))
	respondAnalytics(c, result, hit, err)
}

// CoursePerformance godoc
// @Summary Coverage and top career per course
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/courses [get]
func (h *AnalyticsHandler) CoursePerformance(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	result, hit, err := h.service.CoursePerformance(c.Request.Context())
	respondAnalytics(c, result, hit, err)
}

// CareerInsights godoc
// @Summary Career match ranking; students only see their own career
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/careers [get]
func (h *AnalyticsHandler) CareerInsights(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	actor, err := actorFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, hit, err := h.service.CareerInsights(c.Request.Context(), actor)
	respondAnalytics(c, result, hit, err)
}

// Overview godoc
// @Summary Dashboard header statistics
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/overview [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	result, hit, err := h.service.Overview(c.Request.Context())
	respondAnalytics(c, result, hit, err)
}

// System godoc
// @Summary System instrumentation snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	response.OK(c, h.service.SystemMetrics())
}

func respondAnalytics(c *gin.Context, data interface{}, cacheHit bool, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.OK(c, data, middleware.ResponseMeta(c))
}
