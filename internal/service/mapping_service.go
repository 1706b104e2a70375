package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Phurinho/outcome-career-align/internal/models"
	"github.com/Phurinho/outcome-career-align/internal/repository"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
)

// activeStatuses are the statuses that occupy a (clo, unit) pair.
var activeStatuses = []models.MappingStatus{
	models.MappingStatusSuggested,
	models.MappingStatusPending,
	models.MappingStatusConfirmed,
}

// MappingStore persists mappings in creation order.
type MappingStore interface {
	Create(ctx context.Context, mapping *models.Mapping) error
	GetByID(ctx context.Context, id string) (*models.Mapping, error)
	List(ctx context.Context, filter models.MappingFilter) ([]models.Mapping, error)
	UpdateStatus(ctx context.Context, params repository.UpdateMappingStatusParams) error
}

type cloReader interface {
	GetByID(ctx context.Context, id string) (*models.CLO, error)
	List(ctx context.Context) ([]models.CLO, error)
}

// Catalog is the read-only TPQI unit collaborator.
type Catalog interface {
	Units(ctx context.Context) ([]models.Unit, error)
	Unit(ctx context.Context, code string) (models.Unit, bool, error)
	UnitsByCareer(ctx context.Context, career string) ([]models.Unit, error)
	Careers(ctx context.Context) ([]models.Career, error)
}

// MappingQuery filters the mapping table view.
type MappingQuery struct {
	Term   string
	Status []models.MappingStatus
	CLOID  string
}

// MappingService drives the suggested -> pending -> confirmed|rejected workflow.
type MappingService struct {
	mappings MappingStore
	clos     cloReader
	catalog  Catalog
	scorer   Scorer
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	locks    *keyedMutex
	now      func() time.Time
}

// NewMappingService constructs the workflow engine.
func NewMappingService(mappings MappingStore, clos cloReader, catalog Catalog, scorer Scorer, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *MappingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MappingService{
		mappings: mappings,
		clos:     clos,
		catalog:  catalog,
		scorer:   scorer,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		locks:    newKeyedMutex(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Suggest records a scoring result as a suggested mapping.
func (s *MappingService) Suggest(ctx context.Context, cloID, unitCode string, confidence float64) (*models.Mapping, error) {
	return s.create(ctx, cloID, unitCode, confidence, models.MappingStatusSuggested, models.MappingSourceScoring)
}

// CreateManual records a hand-picked mapping that goes straight to review.
func (s *MappingService) CreateManual(ctx context.Context, cloID, unitCode string, confidence float64) (*models.Mapping, error) {
	return s.create(ctx, cloID, unitCode, confidence, models.MappingStatusPending, models.MappingSourceManual)
}

// SubmitForReview moves a suggestion into the review queue.
func (s *MappingService) SubmitForReview(ctx context.Context, id string) (*models.Mapping, error) {
	return s.transition(ctx, id, models.MappingStatusPending, nil)
}

// Approve confirms a pending mapping. Only admins and educators may review.
func (s *MappingService) Approve(ctx context.Context, id string, actor models.Actor) (*models.Mapping, error) {
	if err := authorizeReview(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, models.MappingStatusConfirmed, &actor)
}

// Reject closes a pending mapping and frees its (clo, unit) pair.
func (s *MappingService) Reject(ctx context.Context, id string, actor models.Actor) (*models.Mapping, error) {
	if err := authorizeReview(actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, models.MappingStatusRejected, &actor)
}

// Get returns a mapping by id.
func (s *MappingService) Get(ctx context.Context, id string) (*models.Mapping, error) {
	mapping, err := s.mappings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mapping not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mapping")
	}
	return mapping, nil
}

// ListPending returns the review queue, oldest first.
func (s *MappingService) ListPending(ctx context.Context) ([]models.Mapping, error) {
	pending, err := s.mappings.List(ctx, models.MappingFilter{Status: []models.MappingStatus{models.MappingStatusPending}})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending mappings")
	}
	return pending, nil
}

// List renders the mapping table: rows joined with their CLO and unit, grouped
// by CLO in insertion order and ordered by confidence within a CLO.
func (s *MappingService) List(ctx context.Context, query MappingQuery) ([]models.MappingView, error) {
	for _, status := range query.Status {
		if !status.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", status))
		}
	}
	mappings, err := s.mappings.List(ctx, models.MappingFilter{Status: query.Status, CLOID: query.CLOID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mappings")
	}
	views, err := s.views(ctx, mappings)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query.Term))
	if needle == "" {
		return views, nil
	}
	filtered := views[:0]
	for _, view := range views {
		if viewMatches(view, needle) {
			filtered = append(filtered, view)
		}
	}
	return filtered, nil
}

// Suggestions groups open suggestions per CLO with the strongest first.
func (s *MappingService) Suggestions(ctx context.Context) ([]models.SuggestionGroup, error) {
	views, err := s.List(ctx, MappingQuery{Status: []models.MappingStatus{models.MappingStatusSuggested}})
	if err != nil {
		return nil, err
	}
	groups := make([]models.SuggestionGroup, 0)
	for _, view := range views {
		if n := len(groups); n > 0 && groups[n-1].CLOID == view.CLOID {
			groups[n-1].Suggestions = append(groups[n-1].Suggestions, view)
			continue
		}
		groups = append(groups, models.SuggestionGroup{CLOID: view.CLOID, Course: view.Course, Suggestions: []models.MappingView{view}})
	}
	return groups, nil
}

// RunScoring asks the scorer for candidates of one CLO and suggests each of
// them. Candidates whose pair is already active are skipped, so retries are
// idempotent. An empty candidate list scores against the whole catalog.
func (s *MappingService) RunScoring(ctx context.Context, cloID string, candidateUnits []string) ([]models.Mapping, error) {
	created, _, err := s.runScoring(ctx, cloID, candidateUnits)
	return created, err
}

func (s *MappingService) runScoring(ctx context.Context, cloID string, candidateUnits []string) ([]models.Mapping, int, error) {
	if s.scorer == nil {
		return nil, 0, appErrors.Clone(appErrors.ErrInternal, "no scorer configured")
	}
	clo, err := s.loadCLO(ctx, cloID)
	if err != nil {
		return nil, 0, err
	}
	units, err := s.candidateUnits(ctx, candidateUnits)
	if err != nil {
		return nil, 0, err
	}

	candidates, err := s.scorer.Score(ctx, *clo, units)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "scoring failed")
	}

	allowed := make(map[string]struct{}, len(units))
	for _, unit := range units {
		allowed[unit.UnitCode] = struct{}{}
	}

	created := make([]models.Mapping, 0, len(candidates))
	skipped := 0
	for _, candidate := range candidates {
		if _, ok := allowed[candidate.UnitCode]; !ok {
			s.logger.Warn("scorer returned unit outside candidates", zap.String("clo_id", cloID), zap.String("unit_code", candidate.UnitCode))
			skipped++
			continue
		}
		mapping, err := s.Suggest(ctx, clo.ID, candidate.UnitCode, candidate.Confidence)
		if err != nil {
			if errors.Is(err, appErrors.ErrDuplicateActive) {
				skipped++
				continue
			}
			s.metrics.RecordScoring(len(created), skipped)
			return created, skipped, err
		}
		created = append(created, *mapping)
	}

	s.metrics.RecordScoring(len(created), skipped)
	s.logger.Info("scoring completed",
		zap.String("clo_id", cloID), zap.Int("suggested", len(created)), zap.Int("skipped", skipped))
	return created, skipped, nil
}

// UnmappedCLOs returns CLOs without any active mapping, in insertion order.
func (s *MappingService) UnmappedCLOs(ctx context.Context) ([]models.CLO, error) {
	clos, err := s.clos.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clos")
	}
	active, err := s.mappings.List(ctx, models.MappingFilter{Status: activeStatuses})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mappings")
	}
	mapped := make(map[string]struct{}, len(active))
	for _, mapping := range active {
		mapped[mapping.CLOID] = struct{}{}
	}
	unmapped := make([]models.CLO, 0)
	for _, clo := range clos {
		if _, ok := mapped[clo.ID]; !ok {
			unmapped = append(unmapped, clo)
		}
	}
	return unmapped, nil
}

func (s *MappingService) create(ctx context.Context, cloID, unitCode string, confidence float64, status models.MappingStatus, source models.MappingSource) (*models.Mapping, error) {
	cloID = strings.TrimSpace(cloID)
	unitCode = strings.TrimSpace(unitCode)
	if cloID == "" || unitCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cloId and unitCode are required")
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "confidence must be between 0 and 100")
	}
	if _, err := s.loadCLO(ctx, cloID); err != nil {
		return nil, err
	}
	if _, err := s.loadUnit(ctx, unitCode); err != nil {
		return nil, err
	}

	mapping := &models.Mapping{
		CLOID:      cloID,
		UnitCode:   unitCode,
		Confidence: confidence,
		Status:     status,
		Source:     source,
	}
	if err := s.mappings.Create(ctx, mapping); err != nil {
		if errors.Is(err, repository.ErrDuplicateActive) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateActive, fmt.Sprintf("clo %s already has an active mapping to %s", cloID, unitCode))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mapping")
	}

	s.metrics.RecordTransition("", status)
	s.cache.InvalidateAnalytics(ctx)
	s.logger.Info("mapping created",
		zap.String("mapping_id", mapping.ID), zap.String("clo_id", cloID), zap.String("unit_code", unitCode),
		zap.String("status", string(status)), zap.Float64("confidence", confidence))
	return mapping, nil
}

// transition applies one workflow step. Steps on the same mapping are
// serialised here; the store's version guard catches writers in other processes.
func (s *MappingService) transition(ctx context.Context, id string, to models.MappingStatus, reviewer *models.Actor) (*models.Mapping, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	mapping, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	from := mapping.Status
	if !from.CanTransitionTo(to) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("mapping is %s and cannot become %s", from, to))
	}

	params := repository.UpdateMappingStatusParams{
		ID:      mapping.ID,
		From:    from,
		To:      to,
		Version: mapping.Version,
		At:      s.now(),
	}
	if reviewer != nil && reviewer.UserID != "" {
		reviewedBy := reviewer.UserID
		params.ReviewedBy = &reviewedBy
	}
	if err := s.mappings.UpdateStatus(ctx, params); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleVersion):
			return nil, appErrors.Clone(appErrors.ErrConflict, "mapping was changed concurrently")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mapping not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mapping")
		}
	}

	mapping.Status = to
	mapping.Version++
	mapping.UpdatedAt = params.At
	if params.ReviewedBy != nil {
		at := params.At
		mapping.ReviewedBy = params.ReviewedBy
		mapping.ReviewedAt = &at
	}

	s.metrics.RecordTransition(from, to)
	s.cache.InvalidateAnalytics(ctx)
	s.logger.Info("mapping transitioned",
		zap.String("mapping_id", mapping.ID), zap.String("from", string(from)), zap.String("to", string(to)))
	return mapping, nil
}

func (s *MappingService) loadCLO(ctx context.Context, id string) (*models.CLO, error) {
	clo, err := s.clos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clo not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clo")
	}
	return clo, nil
}

func (s *MappingService) loadUnit(ctx context.Context, code string) (models.Unit, error) {
	unit, ok, err := s.catalog.Unit(ctx, code)
	if err != nil {
		return models.Unit{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit")
	}
	if !ok {
		return models.Unit{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown unit code %s", code))
	}
	return unit, nil
}

func (s *MappingService) candidateUnits(ctx context.Context, codes []string) ([]models.Unit, error) {
	if len(codes) == 0 {
		units, err := s.catalog.Units(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
		}
		return units, nil
	}
	seen := make(map[string]struct{}, len(codes))
	units := make([]models.Unit, 0, len(codes))
	for _, code := range codes {
		unit, err := s.loadUnit(ctx, strings.TrimSpace(code))
		if err != nil {
			return nil, err
		}
		if _, dup := seen[unit.UnitCode]; dup {
			continue
		}
		seen[unit.UnitCode] = struct{}{}
		units = append(units, unit)
	}
	return units, nil
}

// views joins mappings with CLO and unit data and applies the display order.
func (s *MappingService) views(ctx context.Context, mappings []models.Mapping) ([]models.MappingView, error) {
	clos, err := s.clos.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clos")
	}
	byID := make(map[string]models.CLO, len(clos))
	for _, clo := range clos {
		byID[clo.ID] = clo
	}

	views := make([]models.MappingView, 0, len(mappings))
	for _, mapping := range mappings {
		view := models.MappingView{Mapping: mapping}
		if clo, ok := byID[mapping.CLOID]; ok {
			view.Course = clo.Course
			view.CLODescription = clo.Description
		}
		if unit, ok, err := s.catalog.Unit(ctx, mapping.UnitCode); err == nil && ok {
			view.UnitTitle = unit.Title
			view.Career = unit.Career
			view.Level = unit.Level
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		ci, cj := byID[views[i].CLOID].Seq, byID[views[j].CLOID].Seq
		if ci != cj {
			return ci < cj
		}
		return views[i].Confidence > views[j].Confidence
	})
	return views, nil
}

func authorizeReview(actor models.Actor) error {
	caps, err := Capabilities(actor.Role)
	if err != nil || !caps.CanManageMappings {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins and educators may review mappings")
	}
	return nil
}

func viewMatches(view models.MappingView, needle string) bool {
	for _, field := range []string{view.CLOID, view.CLODescription, view.Course, view.UnitCode, view.UnitTitle, view.Career} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func averageConfidence(mappings []models.Mapping) float64 {
	if len(mappings) == 0 {
		return 0
	}
	total := 0.0
	for _, mapping := range mappings {
		total += mapping.Confidence
	}
	return total / float64(len(mappings))
}

// ScoreCLO scores one CLO against the whole catalog and reports how many
// suggestions were created and skipped.
func (s *MappingService) ScoreCLO(ctx context.Context, cloID string) (int, int, error) {
	created, skipped, err := s.runScoring(ctx, cloID, nil)
	return len(created), skipped, err
}
