package models

import "time"

// ScoringRunStatus tracks an asynchronous batch scoring run.
type ScoringRunStatus string

const (
	ScoringRunQueued   ScoringRunStatus = "queued"
	ScoringRunRunning  ScoringRunStatus = "running"
	ScoringRunFinished ScoringRunStatus = "finished"
	ScoringRunFailed   ScoringRunStatus = "failed"
)

// ScoringRun reports the outcome of scoring every unmapped CLO.
type ScoringRun struct {
	ID          string           `json:"id"`
	Status      ScoringRunStatus `json:"status"`
	RequestedBy string           `json:"requestedBy"`
	CLOsScored  int              `json:"closScored"`
	Suggested   int              `json:"suggested"`
	Skipped     int              `json:"skipped"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	FinishedAt  *time.Time       `json:"finishedAt,omitempty"`
}
