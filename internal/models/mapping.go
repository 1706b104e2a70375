package models

import "time"

// MappingStatus captures the review workflow state of a mapping.
type MappingStatus string

const (
	MappingStatusSuggested MappingStatus = "suggested"
	MappingStatusPending   MappingStatus = "pending"
	MappingStatusConfirmed MappingStatus = "confirmed"
	MappingStatusRejected  MappingStatus = "rejected"
)

// MappingSource records how a mapping entered the workflow.
type MappingSource string

const (
	MappingSourceScoring MappingSource = "scoring"
	MappingSourceManual  MappingSource = "manual"
)

// Valid reports whether s is a known status.
func (s MappingStatus) Valid() bool {
	switch s {
	case MappingStatusSuggested, MappingStatusPending, MappingStatusConfirmed, MappingStatusRejected:
		return true
	}
	return false
}

// Active reports whether the status blocks another mapping for the same pair.
func (s MappingStatus) Active() bool {
	return s == MappingStatusSuggested || s == MappingStatusPending || s == MappingStatusConfirmed
}

// Terminal reports whether no further transition is possible.
func (s MappingStatus) Terminal() bool {
	return s == MappingStatusConfirmed || s == MappingStatusRejected
}

// CanTransitionTo enforces suggested -> pending -> {confirmed|rejected}.
func (s MappingStatus) CanTransitionTo(next MappingStatus) bool {
	switch s {
	case MappingStatusSuggested:
		return next == MappingStatusPending
	case MappingStatusPending:
		return next == MappingStatusConfirmed || next == MappingStatusRejected
	}
	return false
}

// Mapping asserts that a CLO corresponds to a TPQI unit.
type Mapping struct {
	ID         string        `db:"id" json:"id"`
	Seq        int64         `db:"seq" json:"-"`
	CLOID      string        `db:"clo_id" json:"cloId"`
	UnitCode   string        `db:"unit_code" json:"unitCode"`
	Confidence float64       `db:"confidence" json:"confidence"`
	Status     MappingStatus `db:"status" json:"status"`
	Source     MappingSource `db:"source" json:"source"`
	Version    int           `db:"version" json:"version"`
	ReviewedBy *string       `db:"reviewed_by" json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time    `db:"reviewed_at" json:"reviewedAt,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updatedAt"`
}

// MappingView joins a mapping with its CLO and unit for table rendering.
type MappingView struct {
	Mapping
	Course         string `json:"course"`
	CLODescription string `json:"cloDescription"`
	UnitTitle      string `json:"unitTitle"`
	Career         string `json:"career"`
	Level          string `json:"level"`
}

// MappingFilter constrains listing queries. Results are always in creation order.
type MappingFilter struct {
	Status   []MappingStatus
	CLOID    string
	UnitCode string
}

// ScoreCandidate is one (unit, confidence) pair produced by a scorer.
type ScoreCandidate struct {
	UnitCode   string  `json:"unitCode"`
	Confidence float64 `json:"confidence"`
}

// SuggestionGroup lists the open suggestions of one CLO, best first.
type SuggestionGroup struct {
	CLOID       string        `json:"cloId"`
	Course      string        `json:"course"`
	Suggestions []MappingView `json:"suggestions"`
}
