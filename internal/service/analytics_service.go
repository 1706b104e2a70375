package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/Phurinho/outcome-career-align/internal/models"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
)

type cloLister interface {
	List(ctx context.Context) ([]models.CLO, error)
}

// AnalyticsService derives coverage summaries from the CLO and mapping stores.
// Results are recomputed on every call unless the optional cache is enabled,
// in which case every mutation flushes it.
type AnalyticsService struct {
	clos     cloLister
	mappings mappingLister
	catalog  Catalog
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(clos cloLister, mappings mappingLister, catalog Catalog, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{clos: clos, mappings: mappings, catalog: catalog, cache: cache, metrics: metrics, logger: logger}
}

// analyticsSnapshot is one consistent-enough read of both stores and the catalog.
type analyticsSnapshot struct {
	clos     []models.CLO
	cloByID  map[string]models.CLO
	active   []models.Mapping
	units    []models.Unit
	unitByID map[string]models.Unit
}

// CourseCoverage averages confidence over the non-rejected mappings of a
// course. A course without such mappings reports NoData.
func (s *AnalyticsService) CourseCoverage(ctx context.Context, course string) (*models.CourseCoverage, bool, error) {
	course = strings.TrimSpace(course)
	if course == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "course is required")
	}
	return cachedAnalytics(ctx, s, makeAnalyticsCacheKey("course", courseKey(course)), func(snap *analyticsSnapshot) (*models.CourseCoverage, error) {
		result := &models.CourseCoverage{Course: course}
		units := make(map[string]struct{})
		matched := make([]models.Mapping, 0)
		for _, mapping := range snap.active {
			clo, ok := snap.cloByID[mapping.CLOID]
			if !ok || !sameCourse(clo.Course, course) {
				continue
			}
			result.Course = clo.Course
			matched = append(matched, mapping)
			units[mapping.UnitCode] = struct{}{}
		}
		if len(matched) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNoData, fmt.Sprintf("no mappings for course %s", course))
		}
		result.AvgConfidence = round2(averageConfidence(matched))
		result.MappedUnitCount = len(units)
		return result, nil
	})
}

// CareerCoverage averages per-unit confidence over every catalog unit of the
// career; units without a non-rejected mapping contribute 0. Actors limited to
// their own career may only query it.
func (s *AnalyticsService) CareerCoverage(ctx context.Context, career string, actor models.Actor) (*models.CareerCoverage, bool, error) {
	career = strings.TrimSpace(career)
	if career == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "career is required")
	}
	if err := authorizeCareer(actor, career); err != nil {
		return nil, false, err
	}
	return cachedAnalytics(ctx, s, makeAnalyticsCacheKey("career", strings.ToLower(career)), func(snap *analyticsSnapshot) (*models.CareerCoverage, error) {
		coverage, ok := careerCoverage(snap, career)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNoData, fmt.Sprintf("career %s has no catalog units", career))
		}
		return coverage, nil
	})
}

// UnitCoverage lists every catalog unit, optionally limited to one career,
// with its average non-rejected confidence.
func (s *AnalyticsService) UnitCoverage(ctx context.Context, career string) ([]models.UnitCoverage, bool, error) {
	career = strings.TrimSpace(career)
	return cachedAnalytics(ctx, s, makeAnalyticsCacheKey("units", strings.ToLower(career)), func(snap *analyticsSnapshot) ([]models.UnitCoverage, error) {
		byUnit := groupByUnit(snap.active)
		result := make([]models.UnitCoverage, 0, len(snap.units))
		for _, unit := range snap.units {
			if career != "" && !strings.EqualFold(unit.Career, career) {
				continue
			}
			result = append(result, models.UnitCoverage{
				UnitCode:     unit.UnitCode,
				Title:        unit.Title,
				Career:       unit.Career,
				Coverage:     round2(averageConfidence(byUnit[unit.UnitCode])),
				MappingCount: len(byUnit[unit.UnitCode]),
			})
		}
		return result, nil
	})
}

// CoursePerformance summarises each course in first-seen order.
func (s *AnalyticsService) CoursePerformance(ctx context.Context) ([]models.CoursePerformance, bool, error) {
	return cachedAnalytics(ctx, s, makeAnalyticsCacheKey("performance"), func(snap *analyticsSnapshot) ([]models.CoursePerformance, error) {
		index := make(map[string]int)
		result := make([]models.CoursePerformance, 0)
		for _, clo := range snap.clos {
			key := courseKey(clo.Course)
			if i, ok := index[key]; ok {
				result[i].CLOCount++
				continue
			}
			index[key] = len(result)
			result = append(result, models.CoursePerformance{Course: clo.Course, CLOCount: 1})
		}

		byCourse := make(map[string][]models.Mapping)
		for _, mapping := range snap.active {
			if clo, ok := snap.cloByID[mapping.CLOID]; ok {
				key := courseKey(clo.Course)
				byCourse[key] = append(byCourse[key], mapping)
			}
		}
		for i := range result {
			mappings := byCourse[courseKey(result[i].Course)]
			result[i].AvgCoverage = round2(averageConfidence(mappings))
			result[i].TopCareer = topCareer(snap, mappings)
		}
		return result, nil
	})
}

// CareerInsights ranks careers by coverage together with the courses that
// feed them. Actors limited to their own career only see that career.
func (s *AnalyticsService) CareerInsights(ctx context.Context, actor models.Actor) ([]models.CareerInsight, bool, error) {
	caps, err := viewerCapabilities(actor)
	if err != nil {
		return nil, false, err
	}
	insights, hit, err := cachedAnalytics(ctx, s, makeAnalyticsCacheKey("insights"), func(snap *analyticsSnapshot) ([]models.CareerInsight, error) {
		careers, err := s.catalog.Careers(ctx)
		if err != nil {
			return nil, err
		}
		courses := make(map[string][]string)
		seen := make(map[string]struct{})
		for _, mapping := range snap.active {
			unit, okUnit := snap.unitByID[mapping.UnitCode]
			clo, okCLO := snap.cloByID[mapping.CLOID]
			if !okUnit || !okCLO {
				continue
			}
			key := unit.Career + "\x00" + courseKey(clo.Course)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			courses[unit.Career] = append(courses[unit.Career], clo.Course)
		}

		result := make([]models.CareerInsight, 0, len(careers))
		for _, career := range careers {
			coverage, ok := careerCoverage(snap, career.Name)
			if !ok {
				continue
			}
			insight := models.CareerInsight{Career: career.Name, Match: coverage.Coverage, Courses: courses[career.Name]}
			if insight.Courses == nil {
				insight.Courses = []string{}
			}
			result = append(result, insight)
		}
		sort.SliceStable(result, func(i, j int) bool {
			if result[i].Match != result[j].Match {
				return result[i].Match > result[j].Match
			}
			return result[i].Career < result[j].Career
		})
		return result, nil
	})
	if err != nil || !caps.OwnCareerOnly {
		return insights, hit, err
	}

	own := make([]models.CareerInsight, 0, 1)
	for _, insight := range insights {
		if actor.Career != "" && strings.EqualFold(insight.Career, actor.Career) {
			own = append(own, insight)
		}
	}
	return own, hit, nil
}

// Overview returns the dashboard header statistics.
func (s *AnalyticsService) Overview(ctx context.Context) (*models.OverviewStats, bool, error) {
	return cachedAnalytics(ctx, s, makeAnalyticsCacheKey("overview"), func(snap *analyticsSnapshot) (*models.OverviewStats, error) {
		stats := &models.OverviewStats{TotalCLOs: len(snap.clos), TPQIUnits: len(snap.units)}

		courses := make(map[string]struct{})
		for _, clo := range snap.clos {
			courses[courseKey(clo.Course)] = struct{}{}
		}
		stats.ActiveCourses = len(courses)

		confirmedUnits := make(map[string]struct{})
		for _, mapping := range snap.active {
			switch mapping.Status {
			case models.MappingStatusPending:
				stats.PendingReview++
			case models.MappingStatusConfirmed:
				if _, ok := snap.unitByID[mapping.UnitCode]; ok {
					confirmedUnits[mapping.UnitCode] = struct{}{}
				}
			}
		}
		if len(snap.units) > 0 {
			stats.CoverageRate = round2(100 * float64(len(confirmedUnits)) / float64(len(snap.units)))
		}
		stats.AvgConfidence = round2(averageConfidence(snap.active))
		return stats, nil
	})
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.SystemMetrics {
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) snapshot(ctx context.Context) (*analyticsSnapshot, error) {
	clos, err := s.clos.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list clos: %w", err)
	}
	active, err := s.mappings.List(ctx, models.MappingFilter{Status: activeStatuses})
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	units, err := s.catalog.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	snap := &analyticsSnapshot{
		clos:     clos,
		cloByID:  make(map[string]models.CLO, len(clos)),
		active:   active,
		units:    units,
		unitByID: make(map[string]models.Unit, len(units)),
	}
	for _, clo := range clos {
		snap.cloByID[clo.ID] = clo
	}
	for _, unit := range units {
		snap.unitByID[unit.UnitCode] = unit
	}
	return snap, nil
}

// cachedAnalytics serves key from cache or computes it from a fresh snapshot.
// The boolean reports a cache hit.
func cachedAnalytics[T any](ctx context.Context, s *AnalyticsService, key string, compute func(*analyticsSnapshot) (T, error)) (T, bool, error) {
	var zero T
	var cached T
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.logger.Warn("analytics cache read failed", zap.String("key", key), zap.Error(err))
	} else if hit {
		return cached, true, nil
	}

	gen := s.cache.Generation()
	snap, err := s.snapshot(ctx)
	if err != nil {
		return zero, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load analytics data")
	}
	result, err := compute(snap)
	if err != nil {
		var appErr *appErrors.Error
		if !errors.As(err, &appErr) {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute analytics")
		}
		return zero, false, err
	}
	if err := s.cache.SetIfGeneration(ctx, key, result, 0, gen); err != nil {
		s.logger.Warn("analytics cache write failed", zap.String("key", key), zap.Error(err))
	}
	return result, false, nil
}

func careerCoverage(snap *analyticsSnapshot, career string) (*models.CareerCoverage, bool) {
	byUnit := groupByUnit(snap.active)
	result := &models.CareerCoverage{Career: career}
	total := 0.0
	for _, unit := range snap.units {
		if !strings.EqualFold(unit.Career, career) {
			continue
		}
		result.Career = unit.Career
		result.UnitCount++
		if mappings := byUnit[unit.UnitCode]; len(mappings) > 0 {
			result.MappedUnitCount++
			total += averageConfidence(mappings)
		}
	}
	if result.UnitCount == 0 {
		return nil, false
	}
	result.Coverage = round2(total / float64(result.UnitCount))
	return result, true
}

func topCareer(snap *analyticsSnapshot, mappings []models.Mapping) string {
	counts := make(map[string]int)
	for _, mapping := range mappings {
		if unit, ok := snap.unitByID[mapping.UnitCode]; ok {
			counts[unit.Career]++
		}
	}
	best, bestCount := "", 0
	for career, count := range counts {
		if count > bestCount || (count == bestCount && career < best) {
			best, bestCount = career, count
		}
	}
	return best
}

func groupByUnit(mappings []models.Mapping) map[string][]models.Mapping {
	grouped := make(map[string][]models.Mapping)
	for _, mapping := range mappings {
		grouped[mapping.UnitCode] = append(grouped[mapping.UnitCode], mapping)
	}
	return grouped
}

func viewerCapabilities(actor models.Actor) (models.Capabilities, error) {
	caps, err := Capabilities(actor.Role)
	if err != nil {
		return caps, err
	}
	if !caps.CanViewAnalytics {
		return caps, appErrors.Clone(appErrors.ErrForbidden, "analytics not permitted")
	}
	return caps, nil
}

func authorizeCareer(actor models.Actor, career string) error {
	caps, err := viewerCapabilities(actor)
	if err != nil {
		return err
	}
	if caps.OwnCareerOnly && !strings.EqualFold(strings.TrimSpace(actor.Career), career) {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only view their own career")
	}
	return nil
}

func makeAnalyticsCacheKey(parts ...string) string {
	var builder strings.Builder
	builder.Grow(len(parts) * 16)
	builder.WriteString("analytics")
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteByte(':')
		builder.WriteString(strings.ReplaceAll(part, ":", "|"))
	}
	return builder.String()
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
