package service

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Phurinho/outcome-career-align/internal/models"
	"github.com/Phurinho/outcome-career-align/internal/repository"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
)

// CLOStore persists CLOs in insertion order.
type CLOStore interface {
	Create(ctx context.Context, clo *models.CLO) error
	GetByID(ctx context.Context, id string) (*models.CLO, error)
	Update(ctx context.Context, clo *models.CLO) error
	List(ctx context.Context) ([]models.CLO, error)
}

type mappingLister interface {
	List(ctx context.Context, filter models.MappingFilter) ([]models.Mapping, error)
}

// CreateCLORequest captures fields for creating CLOs.
type CreateCLORequest struct {
	Course      string  `json:"course" validate:"required,max=200"`
	Description string  `json:"description" validate:"required,max=2000"`
	Weight      int     `json:"weight" validate:"min=0,max=100"`
	LinkedPLO   *string `json:"linkedPlo,omitempty" validate:"omitempty,max=50"`
}

// UpdateCLORequest carries a partial CLO update; omitted fields are kept.
type UpdateCLORequest struct {
	Course      *string `json:"course,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Weight      *int    `json:"weight,omitempty" validate:"omitempty,min=0,max=100"`
	LinkedPLO   *string `json:"linkedPlo,omitempty" validate:"omitempty,max=50"`
}

// CLOService handles CLO authoring and lookup.
type CLOService struct {
	store     CLOStore
	mappings  mappingLister
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	locks     *keyedMutex
}

// NewCLOService creates a new CLO service.
func NewCLOService(store CLOStore, mappings mappingLister, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CLOService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLOService{store: store, mappings: mappings, cache: cache, validator: validate, logger: logger, locks: newKeyedMutex()}
}

// Create validates and stores a new CLO. A course whose weights no longer
// add up to 100 is logged, never rejected.
func (s *CLOService) Create(ctx context.Context, req CreateCLORequest) (*models.CLO, error) {
	req.Course = strings.TrimSpace(req.Course)
	req.Description = strings.TrimSpace(req.Description)
	req.LinkedPLO = trimOptional(req.LinkedPLO)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clo payload")
	}

	clo := &models.CLO{
		Course:      req.Course,
		Description: req.Description,
		Weight:      req.Weight,
		LinkedPLO:   req.LinkedPLO,
	}
	if err := s.store.Create(ctx, clo); err != nil {
		if errors.Is(err, repository.ErrDuplicateID) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "clo id already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create clo")
	}

	s.logger.Info("clo created", zap.String("clo_id", clo.ID), zap.String("course", clo.Course))
	s.afterWrite(ctx, clo.Course)
	return clo, nil
}

// Update applies a partial update, re-validating description and weight.
// Updates to the same CLO are serialised so concurrent patches to different
// fields are all kept.
func (s *CLOService) Update(ctx context.Context, id string, req UpdateCLORequest) (*models.CLO, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clo payload")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	clo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previousCourse := clo.Course

	if req.Course != nil {
		course := strings.TrimSpace(*req.Course)
		if course == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "course must not be empty")
		}
		clo.Course = course
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "description must not be empty")
		}
		clo.Description = description
	}
	if req.Weight != nil {
		clo.Weight = *req.Weight
	}
	if req.LinkedPLO != nil {
		clo.LinkedPLO = trimOptional(req.LinkedPLO)
	}

	if err := s.store.Update(ctx, clo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clo not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update clo")
	}

	s.logger.Info("clo updated", zap.String("clo_id", clo.ID))
	if previousCourse != clo.Course {
		s.checkWeights(ctx, previousCourse)
	}
	s.afterWrite(ctx, clo.Course)
	return clo, nil
}

// Get returns a CLO by id.
func (s *CLOService) Get(ctx context.Context, id string) (*models.CLO, error) {
	clo, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "clo not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load clo")
	}
	return clo, nil
}

// List returns every CLO in insertion order.
func (s *CLOService) List(ctx context.Context) ([]models.CLO, error) {
	clos, err := s.store.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clos")
	}
	return clos, nil
}

// Search matches term case-insensitively against course and description.
// The store is read once; the returned sequence filters that snapshot lazily
// and may be ranged over any number of times. An empty term yields every CLO.
func (s *CLOService) Search(ctx context.Context, term string) (iter.Seq[models.CLO], error) {
	clos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	return func(yield func(models.CLO) bool) {
		for _, clo := range clos {
			if needle != "" && !cloMatches(clo, needle) {
				continue
			}
			if !yield(clo) {
				return
			}
		}
	}, nil
}

// Summaries returns the CLOs matching term with their mapped unit count and
// average confidence over non-rejected mappings.
func (s *CLOService) Summaries(ctx context.Context, term string) ([]models.CLOSummary, error) {
	matches, err := s.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	mappings, err := s.mappings.List(ctx, models.MappingFilter{Status: activeStatuses})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mappings")
	}
	byCLO := make(map[string][]models.Mapping)
	for _, mapping := range mappings {
		byCLO[mapping.CLOID] = append(byCLO[mapping.CLOID], mapping)
	}

	summaries := make([]models.CLOSummary, 0)
	for clo := range matches {
		summary := models.CLOSummary{CLO: clo, MappedUnits: len(byCLO[clo.ID])}
		if summary.MappedUnits > 0 {
			avg := averageConfidence(byCLO[clo.ID])
			summary.AvgConfidence = &avg
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// WeightReport summarises CLO weights per course in first-seen course order.
func (s *CLOService) WeightReport(ctx context.Context) ([]models.CourseWeight, error) {
	clos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return courseWeights(clos), nil
}

// WeightWarnings lists courses whose CLO weights do not total 100.
func (s *CLOService) WeightWarnings(ctx context.Context) ([]models.WeightWarning, error) {
	report, err := s.WeightReport(ctx)
	if err != nil {
		return nil, err
	}
	warnings := make([]models.WeightWarning, 0)
	for _, course := range report {
		if !course.Balanced {
			warnings = append(warnings, models.WeightWarning{Course: course.Course, Total: course.Total})
		}
	}
	return warnings, nil
}

// CourseWeight reports the weight total of a single course.
func (s *CLOService) CourseWeight(ctx context.Context, course string) (*models.CourseWeight, error) {
	report, err := s.WeightReport(ctx)
	if err != nil {
		return nil, err
	}
	for i := range report {
		if sameCourse(report[i].Course, course) {
			return &report[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
}

func (s *CLOService) afterWrite(ctx context.Context, course string) {
	s.checkWeights(ctx, course)
	s.cache.InvalidateAnalytics(ctx)
}

func (s *CLOService) checkWeights(ctx context.Context, course string) {
	weight, err := s.CourseWeight(ctx, course)
	if err != nil || weight.Balanced {
		return
	}
	s.logger.Warn("course clo weights do not total 100",
		zap.String("course", weight.Course), zap.Int("total", weight.Total))
}

func courseWeights(clos []models.CLO) []models.CourseWeight {
	index := make(map[string]int)
	report := make([]models.CourseWeight, 0)
	for _, clo := range clos {
		key := courseKey(clo.Course)
		i, ok := index[key]
		if !ok {
			i = len(report)
			index[key] = i
			report = append(report, models.CourseWeight{Course: clo.Course})
		}
		report[i].CLOCount++
		report[i].Total += clo.Weight
	}
	for i := range report {
		report[i].Balanced = report[i].Total == 100
	}
	return report
}

func cloMatches(clo models.CLO, needle string) bool {
	return strings.Contains(strings.ToLower(clo.Course), needle) ||
		strings.Contains(strings.ToLower(clo.Description), needle)
}

func courseKey(course string) string {
	return strings.ToLower(strings.TrimSpace(course))
}

func sameCourse(a, b string) bool {
	return courseKey(a) == courseKey(b)
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
