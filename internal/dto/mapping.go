package dto

import "github.com/Phurinho/outcome-career-align/internal/models"

// MappingListQuery filters the mapping table. Status is a comma-separated list.
type MappingListQuery struct {
	Term     string `form:"q"`
	Status   string `form:"status"`
	CLOID    string `form:"cloId"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// CreateMappingRequest proposes a (CLO, unit) pair. Scoring callers land in
// suggested; manual entries go straight to pending review.
type CreateMappingRequest struct {
	CLOID      string   `json:"cloId" binding:"required"`
	UnitCode   string   `json:"unitCode" binding:"required"`
	Confidence *float64 `json:"confidence" binding:"required"`
}

// RunScoringRequest restricts a scoring pass to the listed unit codes.
// An empty list scores against the whole catalog.
type RunScoringRequest struct {
	Units []string `json:"units"`
}

// ScoringResult reports what a single scoring pass produced.
type ScoringResult struct {
	CLOID     string           `json:"cloId"`
	Suggested []models.Mapping `json:"suggested"`
	Count     int              `json:"count"`
}
