package repository

import (
	"errors"
	"time"

	"github.com/Phurinho/outcome-career-align/internal/models"
)

// Store-level sentinels translated into domain errors by the service layer.
// Missing rows are reported as sql.ErrNoRows by every store.
var (
	ErrDuplicateActive = errors.New("active mapping already exists for clo and unit")
	ErrDuplicateID     = errors.New("record id already exists")
	ErrStaleVersion    = errors.New("record changed since it was read")
)

// UpdateMappingStatusParams describes a guarded status transition.
type UpdateMappingStatusParams struct {
	ID         string
	From       models.MappingStatus
	To         models.MappingStatus
	Version    int
	ReviewedBy *string
	At         time.Time
}
