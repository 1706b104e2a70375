package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phurinho/outcome-career-align/internal/models"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
)

type fakeAnalyticsService struct {
	hit        bool
	err        error
	lastCourse string
	lastCareer string
	lastActor  models.Actor
}

func (f *fakeAnalyticsService) CourseCoverage(_ context.Context, course string) (*models.CourseCoverage, bool, error) {
	f.lastCourse = course
	if f.err != nil {
		return nil, false, f.err
	}
	return &models.CourseCoverage{Course: course, AvgConfidence: 92, MappedUnitCount: 1}, f.hit, nil
}

func (f *fakeAnalyticsService) CareerCoverage(_ context.Context, career string, actor models.Actor) (*models.CareerCoverage, bool, error) {
	f.lastCareer = career
	f.lastActor = actor
	if f.err != nil {
		return nil, false, f.err
	}
	return &models.CareerCoverage{Career: career, Coverage: 92, UnitCount: 1, MappedUnitCount: 1}, f.hit, nil
}

func (f *fakeAnalyticsService) UnitCoverage(_ context.Context, career string) ([]models.UnitCoverage, bool, error) {
	f.lastCareer = career
	return []models.UnitCoverage{}, f.hit, f.err
}

func (f *fakeAnalyticsService) CoursePerformance(context.Context) ([]models.CoursePerformance, bool, error) {
	return []models.CoursePerformance{}, f.hit, f.err
}

func (f *fakeAnalyticsService) CareerInsights(_ context.Context, actor models.Actor) ([]models.CareerInsight, bool, error) {
	f.lastActor = actor
	return []models.CareerInsight{}, f.hit, f.err
}

func (f *fakeAnalyticsService) Overview(context.Context) (*models.OverviewStats, bool, error) {
	return &models.OverviewStats{TotalCLOs: 3}, f.hit, f.err
}

func (f *fakeAnalyticsService) SystemMetrics() models.SystemMetrics {
	return models.SystemMetrics{RequestsTotal: 7}
}

func TestAnalyticsHandlerNilService(t *testing.T) {
	h := NewAnalyticsHandler(nil)
	c, rec := newTestContext(http.MethodGet, "/analytics/overview", nil)

	h.Overview(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAnalyticsHandlerCourseCoverageCacheHit(t *testing.T) {
	svc := &fakeAnalyticsService{hit: true}
	h := NewAnalyticsHandler(svc)
	c, rec := newTestContext(http.MethodGet, "/analytics/courses/DS/coverage", nil)
	c.AddParam("course", "DS")

	h.CourseCoverage(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decode(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	var coverage models.CourseCoverage
	require.NoError(t, json.Unmarshal(envelope.Data, &coverage))
	assert.Equal(t, models.CourseCoverage{Course: "DS", AvgConfidence: 92, MappedUnitCount: 1}, coverage)
}

func TestAnalyticsHandlerCourseCoverageNoData(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAnalyticsService{err: appErrors.ErrNoData})
	c, rec := newTestContext(http.MethodGet, "/analytics/courses/AI/coverage", nil)
	c.AddParam("course", "AI")

	h.CourseCoverage(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, appErrors.ErrNoData.Code, decode(t, rec).Error.Code)
}

func TestAnalyticsHandlerCourseCoverageRequiresCourse(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAnalyticsService{})
	c, rec := newTestContext(http.MethodGet, "/analytics/courses/%20/coverage", nil)
	c.AddParam("course", " ")

	h.CourseCoverage(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsHandlerCareerCoveragePassesActor(t *testing.T) {
	svc := &fakeAnalyticsService{}
	h := NewAnalyticsHandler(svc)
	c, rec := newTestContext(http.MethodGet, "/analytics/careers/Software%20Developer/coverage", nil)
	c.AddParam("career", "Software Developer")
	withClaims(c, models.RoleStudent, "Software Developer")

	h.CareerCoverage(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Software Developer", svc.lastCareer)
	assert.Equal(t, models.RoleStudent, svc.lastActor.Role)
	assert.Equal(t, "Software Developer", svc.lastActor.Career)
	assert.Equal(t, false, decode(t, rec).Meta["cache_hit"])
}

func TestAnalyticsHandlerCareerCoverageForbidden(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAnalyticsService{err: appErrors.ErrForbidden})
	c, rec := newTestContext(http.MethodGet, "/analytics/careers/Data%20Analyst/coverage", nil)
	c.AddParam("career", "Data Analyst")
	withClaims(c, models.RoleStudent, "Software Developer")

	h.CareerCoverage(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAnalyticsHandlerInsightsRequireSession(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAnalyticsService{})
	c, rec := newTestContext(http.MethodGet, "/analytics/careers", nil)

	h.CareerInsights(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyticsHandlerUnitCoverageFilter(t *testing.T) {
	svc := &fakeAnalyticsService{}
	h := NewAnalyticsHandler(svc)
	c, rec := newTestContext(http.MethodGet, "/analytics/units?career=Data%20Analyst", nil)

	h.UnitCoverage(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Data Analyst", svc.lastCareer)
}

func TestAnalyticsHandlerSystem(t *testing.T) {
	h := NewAnalyticsHandler(&fakeAnalyticsService{})
	c, rec := newTestContext(http.MethodGet, "/analytics/system", nil)

	h.System(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot models.SystemMetrics
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &snapshot))
	assert.Equal(t, uint64(7), snapshot.RequestsTotal)
}
