package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Phurinho/outcome-career-align/internal/models"
	"github.com/Phurinho/outcome-career-align/internal/repository"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
)

var (
	adminActor    = models.Actor{UserID: "admin-1", Role: models.RoleAdmin}
	educatorActor = models.Actor{UserID: "edu-1", Role: models.RoleEducator}
	studentActor  = models.Actor{UserID: "stu-1", Role: models.RoleStudent, Career: "Software Developer"}
)

type workflow struct {
	clos      *repository.MemoryCLOStore
	mappings  *repository.MemoryMappingStore
	catalog   *repository.CatalogRepository
	cache     *CacheService
	cacheRepo *stubCacheRepo
	metrics   *MetricsService
	cloSvc    *CLOService
	mapSvc    *MappingService
	analytics *AnalyticsService
}

// newWorkflow wires the services over in-memory stores and the default catalog.
func newWorkflow(t *testing.T, scorer Scorer) *workflow {
	t.Helper()
	catalog, err := repository.NewCatalogRepository(repository.DefaultUnits)
	require.NoError(t, err)

	w := &workflow{
		clos:      repository.NewMemoryCLOStore(),
		mappings:  repository.NewMemoryMappingStore(),
		catalog:   catalog,
		cacheRepo: &stubCacheRepo{},
		metrics:   NewMetricsService(),
	}
	w.cache = NewCacheService(w.cacheRepo, w.metrics, time.Minute, zap.NewNop(), true)
	w.cloSvc = NewCLOService(w.clos, w.mappings, w.cache, nil, zap.NewNop())
	w.mapSvc = NewMappingService(w.mappings, w.clos, catalog, scorer, w.cache, w.metrics, zap.NewNop())
	w.analytics = NewAnalyticsService(w.clos, w.mappings, catalog, w.cache, w.metrics, zap.NewNop())
	return w
}

func (w *workflow) createCLO(t *testing.T, course, description string, weight int) *models.CLO {
	t.Helper()
	clo, err := w.cloSvc.Create(context.Background(), CreateCLORequest{Course: course, Description: description, Weight: weight})
	require.NoError(t, err)
	return clo
}

// pending creates a mapping and moves it into the review queue.
func (w *workflow) pending(t *testing.T, cloID, unitCode string, confidence float64) *models.Mapping {
	t.Helper()
	ctx := context.Background()
	mapping, err := w.mapSvc.Suggest(ctx, cloID, unitCode, confidence)
	require.NoError(t, err)
	mapping, err = w.mapSvc.SubmitForReview(ctx, mapping.ID)
	require.NoError(t, err)
	return mapping
}

type stubCacheRepo struct {
	store       map[string][]byte
	invalidated int
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	s.invalidated++
	s.store = nil
	return nil
}

// stubScorer returns fixed candidates and records the units it was offered.
type stubScorer struct {
	candidates []models.ScoreCandidate
	err        error
	offered    [][]models.Unit
}

func (s *stubScorer) Score(_ context.Context, _ models.CLO, units []models.Unit) ([]models.ScoreCandidate, error) {
	s.offered = append(s.offered, units)
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}
