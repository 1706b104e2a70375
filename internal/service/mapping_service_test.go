package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Phurinho/outcome-career-align/internal/models"
	"github.com/Phurinho/outcome-career-align/internal/repository"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
)

func TestMappingWorkflowApproveScenario(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()

	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)
	suggested, err := w.mapSvc.Suggest(ctx, clo.ID, "ICT001", 92)
	require.NoError(t, err)
	assert.Equal(t, models.MappingStatusSuggested, suggested.Status)
	assert.Equal(t, models.MappingSourceScoring, suggested.Source)

	pending, err := w.mapSvc.SubmitForReview(ctx, suggested.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MappingStatusPending, pending.Status)

	confirmed, err := w.mapSvc.Approve(ctx, pending.ID, adminActor)
	require.NoError(t, err)
	assert.Equal(t, models.MappingStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ReviewedBy)
	assert.Equal(t, "admin-1", *confirmed.ReviewedBy)

	coverage, _, err := w.analytics.CourseCoverage(ctx, "Data Structures")
	require.NoError(t, err)
	assert.Equal(t, 92.0, coverage.AvgConfidence)
	assert.Equal(t, 1, coverage.MappedUnitCount)
}

func TestMappingSuggestDuplicateActive(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)

	first, err := w.mapSvc.Suggest(ctx, clo.ID, "ICT001", 92)
	require.NoError(t, err)
	_, err = w.mapSvc.Suggest(ctx, clo.ID, "ICT001", 40)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateActive)

	_, err = w.mapSvc.CreateManual(ctx, clo.ID, "ICT001", 40)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateActive)

	_, err = w.mapSvc.SubmitForReview(ctx, first.ID)
	require.NoError(t, err)
	_, err = w.mapSvc.Reject(ctx, first.ID, educatorActor)
	require.NoError(t, err)

	again, err := w.mapSvc.Suggest(ctx, clo.ID, "ICT001", 60)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestMappingSuggestValidation(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)

	_, err := w.mapSvc.Suggest(ctx, "", "ICT001", 50)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = w.mapSvc.Suggest(ctx, clo.ID, "", 50)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = w.mapSvc.Suggest(ctx, clo.ID, "ICT001", 100.5)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = w.mapSvc.Suggest(ctx, clo.ID, "ICT001", math.NaN())
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = w.mapSvc.Suggest(ctx, clo.ID, "ICT999", 50)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = w.mapSvc.Suggest(ctx, "missing", "ICT001", 50)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestMappingTransitionsNeverMoveBackward(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)

	suggested, err := w.mapSvc.Suggest(ctx, clo.ID, "ICT001", 70)
	require.NoError(t, err)
	_, err = w.mapSvc.Approve(ctx, suggested.ID, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition, "suggested must pass through pending")
	_, err = w.mapSvc.Reject(ctx, suggested.ID, adminActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	pending, err := w.mapSvc.SubmitForReview(ctx, suggested.ID)
	require.NoError(t, err)
	_, err = w.mapSvc.SubmitForReview(ctx, pending.ID)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	confirmed, err := w.mapSvc.Approve(ctx, pending.ID, adminActor)
	require.NoError(t, err)
	for name, step := range map[string]func() (*models.Mapping, error){
		"submit":  func() (*models.Mapping, error) { return w.mapSvc.SubmitForReview(ctx, confirmed.ID) },
		"approve": func() (*models.Mapping, error) { return w.mapSvc.Approve(ctx, confirmed.ID, adminActor) },
		"reject":  func() (*models.Mapping, error) { return w.mapSvc.Reject(ctx, confirmed.ID, adminActor) },
	} {
		_, err := step()
		assert.ErrorIs(t, err, appErrors.ErrInvalidTransition, name)
	}

	stored, err := w.mapSvc.Get(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MappingStatusConfirmed, stored.Status)
}

func TestMappingRejectConfirmedIsInvalidTransition(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)
	mapping := w.pending(t, clo.ID, "ICT001", 92)

	_, err := w.mapSvc.Approve(ctx, mapping.ID, educatorActor)
	require.NoError(t, err)
	_, err = w.mapSvc.Reject(ctx, mapping.ID, educatorActor)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestMappingStudentReviewAlwaysForbidden(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)

	suggested, err := w.mapSvc.Suggest(ctx, clo.ID, "ICT008", 50)
	require.NoError(t, err)
	pending := w.pending(t, clo.ID, "ICT001", 92)
	confirmed := w.pending(t, clo.ID, "ICT015", 80)
	_, err = w.mapSvc.Approve(ctx, confirmed.ID, adminActor)
	require.NoError(t, err)

	for _, id := range []string{suggested.ID, pending.ID, confirmed.ID, "missing"} {
		_, err := w.mapSvc.Approve(ctx, id, studentActor)
		assert.ErrorIs(t, err, appErrors.ErrForbidden, id)
		_, err = w.mapSvc.Reject(ctx, id, studentActor)
		assert.ErrorIs(t, err, appErrors.ErrForbidden, id)
	}
	_, err = w.mapSvc.Approve(ctx, pending.ID, models.Actor{Role: "guest"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	stored, err := w.mapSvc.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MappingStatusPending, stored.Status)
}

func TestMappingUnknownIDIsNotFound(t *testing.T) {
	w := newWorkflow(t, nil)
	_, err := w.mapSvc.SubmitForReview(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = w.mapSvc.Approve(context.Background(), "missing", adminActor)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestMappingListPendingIsFIFO(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)

	first := w.pending(t, clo.ID, "ICT001", 60)
	second, err := w.mapSvc.CreateManual(ctx, clo.ID, "ICT008", 90)
	require.NoError(t, err)
	assert.Equal(t, models.MappingStatusPending, second.Status)

	before, err := w.mapSvc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, before, 2)
	assert.Equal(t, first.ID, before[0].ID)
	assert.Equal(t, second.ID, before[1].ID)

	third := w.pending(t, clo.ID, "ICT015", 99)
	after, err := w.mapSvc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, after, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{after[0].ID, after[1].ID, after[2].ID})

	_, err = w.mapSvc.Approve(ctx, second.ID, adminActor)
	require.NoError(t, err)
	remaining, err := w.mapSvc.ListPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, third.ID}, []string{remaining[0].ID, remaining[1].ID})
}

func TestMappingConcurrentReviewSingleWinner(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)
	mapping := w.pending(t, clo.ID, "ICT001", 92)

	var wg sync.WaitGroup
	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = w.mapSvc.Approve(ctx, mapping.ID, adminActor)
			} else {
				_, err = w.mapSvc.Reject(ctx, mapping.ID, educatorActor)
			}
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition) || errors.Is(err, appErrors.ErrConflict), err)
	}
	assert.Equal(t, 1, wins)
}

// racingMappingStore lets another writer confirm the mapping between the
// service's read and its guarded write.
type racingMappingStore struct {
	*repository.MemoryMappingStore
	raced bool
}

func (s *racingMappingStore) UpdateStatus(ctx context.Context, params repository.UpdateMappingStatusParams) error {
	if !s.raced {
		s.raced = true
		other := "admin-2"
		competing := params
		competing.To = models.MappingStatusConfirmed
		competing.ReviewedBy = &other
		if err := s.MemoryMappingStore.UpdateStatus(ctx, competing); err != nil {
			return err
		}
	}
	return s.MemoryMappingStore.UpdateStatus(ctx, params)
}

func TestMappingStaleWriteIsConflict(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)
	mapping := w.pending(t, clo.ID, "ICT001", 92)

	store := &racingMappingStore{MemoryMappingStore: w.mappings}
	svc := NewMappingService(store, w.clos, w.catalog, nil, w.cache, w.metrics, nil)

	_, err := svc.Reject(ctx, mapping.ID, educatorActor)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict), err)

	stored, err := w.mappings.GetByID(ctx, mapping.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MappingStatusConfirmed, stored.Status)
	require.NotNil(t, stored.ReviewedBy)
	assert.Equal(t, "admin-2", *stored.ReviewedBy)
	assert.Equal(t, mapping.Version+1, stored.Version)
}

func TestMappingStaleWriteLeavesStatusUnchanged(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)
	mapping := w.pending(t, clo.ID, "ICT001", 92)

	svc := NewMappingService(staleMappingStore{w.mappings}, w.clos, w.catalog, nil, w.cache, w.metrics, nil)
	_, err := svc.Approve(ctx, mapping.ID, adminActor)
	assert.True(t, errors.Is(err, appErrors.ErrConflict), err)

	stored, err := w.mappings.GetByID(ctx, mapping.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MappingStatusPending, stored.Status)
	assert.Nil(t, stored.ReviewedBy)
	assert.Equal(t, mapping.Version, stored.Version)
}

type staleMappingStore struct {
	*repository.MemoryMappingStore
}

func (staleMappingStore) UpdateStatus(context.Context, repository.UpdateMappingStatusParams) error {
	return repository.ErrStaleVersion
}

func TestMappingListOrdersByCLOThenConfidence(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	ds := w.createCLO(t, "Data Structures", "Apply sorting", 25)
	db := w.createCLO(t, "Database Systems", "Design normalized database schemas", 30)

	_, err := w.mapSvc.Suggest(ctx, db.ID, "ICT015", 88)
	require.NoError(t, err)
	_, err = w.mapSvc.Suggest(ctx, ds.ID, "ICT001", 60)
	require.NoError(t, err)
	_, err = w.mapSvc.Suggest(ctx, ds.ID, "ICT008", 95)
	require.NoError(t, err)

	views, err := w.mapSvc.List(ctx, MappingQuery{})
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "ICT008", views[0].UnitCode)
	assert.Equal(t, "ICT001", views[1].UnitCode)
	assert.Equal(t, "ICT015", views[2].UnitCode)
	assert.Equal(t, "Database Design & Optimization", views[2].UnitTitle)
	assert.Equal(t, "Database Systems", views[2].Course)

	byCareer, err := w.mapSvc.List(ctx, MappingQuery{Term: "web developer"})
	require.NoError(t, err)
	require.Len(t, byCareer, 1)
	assert.Equal(t, "ICT008", byCareer[0].UnitCode)

	_, err = w.mapSvc.List(ctx, MappingQuery{Status: []models.MappingStatus{"archived"}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestMappingSuggestionsGroupedBestFirst(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	ds := w.createCLO(t, "Data Structures", "Apply sorting", 25)
	db := w.createCLO(t, "Database Systems", "Design normalized database schemas", 30)

	_, err := w.mapSvc.Suggest(ctx, ds.ID, "ICT001", 55)
	require.NoError(t, err)
	_, err = w.mapSvc.Suggest(ctx, ds.ID, "ICT022", 75)
	require.NoError(t, err)
	_, err = w.mapSvc.Suggest(ctx, db.ID, "ICT015", 67)
	require.NoError(t, err)
	w.pending(t, db.ID, "ICT022", 40)

	groups, err := w.mapSvc.Suggestions(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, ds.ID, groups[0].CLOID)
	require.Len(t, groups[0].Suggestions, 2)
	assert.Equal(t, "ICT022", groups[0].Suggestions[0].UnitCode)
	assert.Equal(t, db.ID, groups[1].CLOID)
	assert.Len(t, groups[1].Suggestions, 1)
}

func TestRunScoringSkipsDuplicatesAndIsIdempotent(t *testing.T) {
	scorer := &stubScorer{candidates: []models.ScoreCandidate{
		{UnitCode: "ICT015", Confidence: 88},
		{UnitCode: "ICT022", Confidence: 61},
	}}
	w := newWorkflow(t, scorer)
	ctx := context.Background()
	clo := w.createCLO(t, "Database Systems", "Design normalized database schemas", 30)

	_, err := w.mapSvc.Suggest(ctx, clo.ID, "ICT015", 70)
	require.NoError(t, err)

	created, err := w.mapSvc.RunScoring(ctx, clo.ID, nil)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "ICT022", created[0].UnitCode)
	assert.Len(t, scorer.offered[0], len(w.mustUnits(t)))

	again, err := w.mapSvc.RunScoring(ctx, clo.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, again)

	all, err := w.mapSvc.List(ctx, MappingQuery{CLOID: clo.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRunScoringRestrictsToCandidateUnits(t *testing.T) {
	scorer := &stubScorer{candidates: []models.ScoreCandidate{
		{UnitCode: "ICT001", Confidence: 50},
		{UnitCode: "ICT045", Confidence: 90},
	}}
	w := newWorkflow(t, scorer)
	ctx := context.Background()
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)

	created, err := w.mapSvc.RunScoring(ctx, clo.ID, []string{"ICT001", "ICT001"})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "ICT001", created[0].UnitCode)
	require.Len(t, scorer.offered[0], 1)

	_, err = w.mapSvc.RunScoring(ctx, clo.ID, []string{"ICT404"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = w.mapSvc.RunScoring(ctx, "missing", nil)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRunScoringPropagatesScorerFailure(t *testing.T) {
	w := newWorkflow(t, &stubScorer{err: errors.New("model offline")})
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)

	_, err := w.mapSvc.RunScoring(context.Background(), clo.ID, nil)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestUnmappedCLOs(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	mapped := w.createCLO(t, "Data Structures", "Apply sorting", 25)
	rejectedOnly := w.createCLO(t, "Web Development", "Build responsive interfaces", 30)
	untouched := w.createCLO(t, "Database Systems", "Design schemas", 30)

	_, err := w.mapSvc.Suggest(ctx, mapped.ID, "ICT001", 70)
	require.NoError(t, err)
	m := w.pending(t, rejectedOnly.ID, "ICT008", 20)
	_, err = w.mapSvc.Reject(ctx, m.ID, adminActor)
	require.NoError(t, err)

	unmapped, err := w.mapSvc.UnmappedCLOs(ctx)
	require.NoError(t, err)
	require.Len(t, unmapped, 2)
	assert.Equal(t, rejectedOnly.ID, unmapped[0].ID)
	assert.Equal(t, untouched.ID, unmapped[1].ID)
}

func TestMappingMutationsInvalidateCache(t *testing.T) {
	w := newWorkflow(t, nil)
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)
	before := w.cacheRepo.invalidated

	w.pending(t, clo.ID, "ICT001", 92)
	assert.Equal(t, before+2, w.cacheRepo.invalidated)
	assert.Equal(t, uint64(2), w.metrics.Snapshot().MappingTransitions)
}

func (w *workflow) mustUnits(t *testing.T) []models.Unit {
	t.Helper()
	units, err := w.catalog.Units(context.Background())
	require.NoError(t, err)
	return units
}
