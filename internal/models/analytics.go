package models

import "time"

// CourseCoverage summarises non-rejected mappings for one course.
type CourseCoverage struct {
	Course          string  `json:"course"`
	AvgConfidence   float64 `json:"avgConfidence"`
	MappedUnitCount int     `json:"mappedUnitCount"`
}

// CareerCoverage is the average unit coverage for a career, unmapped units counting as zero.
type CareerCoverage struct {
	Career          string  `json:"career"`
	Coverage        float64 `json:"coverage"`
	UnitCount       int     `json:"unitCount"`
	MappedUnitCount int     `json:"mappedUnitCount"`
}

// UnitCoverage is the average confidence of non-rejected mappings for a unit.
type UnitCoverage struct {
	UnitCode     string  `json:"unitCode"`
	Title        string  `json:"title"`
	Career       string  `json:"career"`
	Coverage     float64 `json:"coverage"`
	MappingCount int     `json:"mappingCount"`
}

// CoursePerformance backs the per-course table.
type CoursePerformance struct {
	Course      string  `json:"course"`
	AvgCoverage float64 `json:"avgCoverage"`
	CLOCount    int     `json:"cloCount"`
	TopCareer   string  `json:"topCareer,omitempty"`
}

// CareerInsight ranks a career for the student view.
type CareerInsight struct {
	Career  string   `json:"career"`
	Match   float64  `json:"match"`
	Courses []string `json:"courses"`
}

// OverviewStats backs the dashboard header cards.
type OverviewStats struct {
	TotalCLOs     int     `json:"totalClos"`
	TPQIUnits     int     `json:"tpqiUnits"`
	CoverageRate  float64 `json:"coverageRate"`
	ActiveCourses int     `json:"activeCourses"`
	PendingReview int     `json:"pendingReview"`
	AvgConfidence float64 `json:"avgConfidence"`
}

// SystemMetrics exposes instrumentation counters for API consumption.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	MappingTransitions       uint64    `json:"mappingTransitions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
