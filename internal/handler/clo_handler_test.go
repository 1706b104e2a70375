package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phurinho/outcome-career-align/internal/models"
	"github.com/Phurinho/outcome-career-align/internal/service"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
)

type fakeCLOService struct {
	created   service.CreateCLORequest
	updated   service.UpdateCLORequest
	summaries []models.CLOSummary
	lastTerm  string
	weight    *models.CourseWeight
	err       error
}

func (f *fakeCLOService) Create(_ context.Context, req service.CreateCLORequest) (*models.CLO, error) {
	f.created = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.CLO{ID: "clo-1", Course: req.Course, Description: req.Description, Weight: req.Weight}, nil
}

func (f *fakeCLOService) Update(_ context.Context, id string, req service.UpdateCLORequest) (*models.CLO, error) {
	f.updated = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.CLO{ID: id, Course: "DS"}, nil
}

func (f *fakeCLOService) Get(_ context.Context, id string) (*models.CLO, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.CLO{ID: id}, nil
}

func (f *fakeCLOService) Summaries(_ context.Context, term string) ([]models.CLOSummary, error) {
	f.lastTerm = term
	return f.summaries, f.err
}

func (f *fakeCLOService) WeightReport(context.Context) ([]models.CourseWeight, error) {
	return []models.CourseWeight{{Course: "DS", CLOCount: 1, Total: 100, Balanced: true}}, nil
}

func (f *fakeCLOService) WeightWarnings(context.Context) ([]models.WeightWarning, error) {
	return []models.WeightWarning{{Course: "AI", Total: 40}}, nil
}

func (f *fakeCLOService) CourseWeight(context.Context, string) (*models.CourseWeight, error) {
	if f.weight == nil {
		return nil, appErrors.ErrNotFound
	}
	return f.weight, nil
}

func TestCLOHandlerCreateRejectsMalformedJSON(t *testing.T) {
	h := NewCLOHandler(&fakeCLOService{})
	c, rec := newTestContext(http.MethodPost, "/clos", "{")

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, rec).Error.Code)
}

func TestCLOHandlerCreateAddsWeightWarning(t *testing.T) {
	svc := &fakeCLOService{weight: &models.CourseWeight{Course: "DS", Total: 40}}
	h := NewCLOHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/clos", map[string]interface{}{
		"course": "DS", "description": "Implement sorting", "weight": 40,
	})

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "DS", svc.created.Course)
	assert.Equal(t, 40, svc.created.Weight)
	envelope := decode(t, rec)
	warning, ok := envelope.Meta["weight_warning"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 40, warning["total"])
}

func TestCLOHandlerCreateBalancedCourseHasNoMeta(t *testing.T) {
	svc := &fakeCLOService{weight: &models.CourseWeight{Course: "DS", Total: 100, Balanced: true}}
	h := NewCLOHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/clos", map[string]interface{}{
		"course": "DS", "description": "Implement sorting", "weight": 100,
	})

	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, decode(t, rec).Meta)
}

func TestCLOHandlerUpdatePassesPartialFields(t *testing.T) {
	svc := &fakeCLOService{weight: &models.CourseWeight{Balanced: true}}
	h := NewCLOHandler(svc)
	c, rec := newTestContext(http.MethodPatch, "/clos/clo-1", map[string]interface{}{"weight": 30})
	c.AddParam("id", "clo-1")

	h.Update(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.updated.Weight)
	assert.Equal(t, 30, *svc.updated.Weight)
	assert.Nil(t, svc.updated.Course)
}

func TestCLOHandlerGetNotFound(t *testing.T) {
	h := NewCLOHandler(&fakeCLOService{err: appErrors.ErrNotFound})
	c, rec := newTestContext(http.MethodGet, "/clos/missing", nil)
	c.AddParam("id", "missing")

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCLOHandlerListPaginates(t *testing.T) {
	summaries := make([]models.CLOSummary, 0, 5)
	for i := 0; i < 5; i++ {
		summaries = append(summaries, models.CLOSummary{CLO: models.CLO{ID: string(rune('a' + i))}})
	}
	svc := &fakeCLOService{summaries: summaries}
	h := NewCLOHandler(svc)
	c, rec := newTestContext(http.MethodGet, "/clos?q=sort&page=2&pageSize=2", nil)

	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decode(t, rec)
	assert.Equal(t, "sort", svc.lastTerm)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 5, envelope.Pagination.TotalCount)
	var page []models.CLOSummary
	require.NoError(t, json.Unmarshal(envelope.Data, &page))
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ID)
}

func TestCLOHandlerWeightWarnings(t *testing.T) {
	h := NewCLOHandler(&fakeCLOService{})
	c, rec := newTestContext(http.MethodGet, "/clos/weights/warnings", nil)

	h.WeightWarnings(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var warnings []models.WeightWarning
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &warnings))
	assert.Equal(t, []models.WeightWarning{{Course: "AI", Total: 40}}, warnings)
}
