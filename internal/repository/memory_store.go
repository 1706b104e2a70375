package repository

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Phurinho/outcome-career-align/internal/models"
)

// MemoryCLOStore keeps CLOs in insertion order. It is the default store.
type MemoryCLOStore struct {
	mu    sync.RWMutex
	seq   int64
	order []string
	byID  map[string]*models.CLO
}

// NewMemoryCLOStore constructs an empty store.
func NewMemoryCLOStore() *MemoryCLOStore {
	return &MemoryCLOStore{byID: make(map[string]*models.CLO)}
}

// Create stores a copy of clo, assigning id, sequence and timestamps.
func (s *MemoryCLOStore) Create(_ context.Context, clo *models.CLO) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if clo.ID == "" {
		clo.ID = uuid.NewString()
	}
	if _, exists := s.byID[clo.ID]; exists {
		return ErrDuplicateID
	}
	now := time.Now().UTC()
	s.seq++
	clo.Seq = s.seq
	clo.CreatedAt = now
	clo.UpdatedAt = now

	stored := cloneCLO(*clo)
	s.byID[clo.ID] = &stored
	s.order = append(s.order, clo.ID)
	return nil
}

// GetByID returns a copy of the CLO or sql.ErrNoRows.
func (s *MemoryCLOStore) GetByID(_ context.Context, id string) (*models.CLO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clo, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	found := cloneCLO(*clo)
	return &found, nil
}

// Update replaces the mutable fields of an existing CLO.
func (s *MemoryCLOStore) Update(_ context.Context, clo *models.CLO) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[clo.ID]
	if !ok {
		return sql.ErrNoRows
	}
	clo.Seq = existing.Seq
	clo.CreatedAt = existing.CreatedAt
	clo.UpdatedAt = time.Now().UTC()
	stored := cloneCLO(*clo)
	s.byID[clo.ID] = &stored
	return nil
}

// List returns a snapshot of every CLO in insertion order.
func (s *MemoryCLOStore) List(_ context.Context) ([]models.CLO, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.CLO, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, cloneCLO(*s.byID[id]))
	}
	return result, nil
}

func cloneCLO(clo models.CLO) models.CLO {
	if clo.LinkedPLO != nil {
		plo := *clo.LinkedPLO
		clo.LinkedPLO = &plo
	}
	return clo
}

// MemoryMappingStore keeps mappings in creation order and enforces the
// active (clo, unit) uniqueness rule atomically.
type MemoryMappingStore struct {
	mu    sync.RWMutex
	seq   int64
	order []string
	byID  map[string]*models.Mapping
}

// NewMemoryMappingStore constructs an empty store.
func NewMemoryMappingStore() *MemoryMappingStore {
	return &MemoryMappingStore{byID: make(map[string]*models.Mapping)}
}

// Create inserts a mapping unless an active one exists for the same pair.
func (s *MemoryMappingStore) Create(_ context.Context, mapping *models.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		existing := s.byID[id]
		if existing.CLOID == mapping.CLOID && existing.UnitCode == mapping.UnitCode && existing.Status.Active() {
			return ErrDuplicateActive
		}
	}
	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	if _, exists := s.byID[mapping.ID]; exists {
		return ErrDuplicateID
	}
	now := time.Now().UTC()
	s.seq++
	mapping.Seq = s.seq
	mapping.Version = 1
	mapping.CreatedAt = now
	mapping.UpdatedAt = now

	stored := cloneMapping(*mapping)
	s.byID[mapping.ID] = &stored
	s.order = append(s.order, mapping.ID)
	return nil
}

// GetByID returns a copy of the mapping or sql.ErrNoRows.
func (s *MemoryMappingStore) GetByID(_ context.Context, id string) (*models.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mapping, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	found := cloneMapping(*mapping)
	return &found, nil
}

// List returns mappings matching filter in creation order.
func (s *MemoryMappingStore) List(_ context.Context, filter models.MappingFilter) ([]models.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make(map[models.MappingStatus]struct{}, len(filter.Status))
	for _, status := range filter.Status {
		statuses[status] = struct{}{}
	}

	result := make([]models.Mapping, 0, len(s.order))
	for _, id := range s.order {
		mapping := s.byID[id]
		if len(statuses) > 0 {
			if _, ok := statuses[mapping.Status]; !ok {
				continue
			}
		}
		if filter.CLOID != "" && mapping.CLOID != filter.CLOID {
			continue
		}
		if filter.UnitCode != "" && mapping.UnitCode != filter.UnitCode {
			continue
		}
		result = append(result, cloneMapping(*mapping))
	}
	return result, nil
}

// UpdateStatus applies a transition only when the stored status and version
// still match the caller's view.
func (s *MemoryMappingStore) UpdateStatus(_ context.Context, params UpdateMappingStatusParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mapping, ok := s.byID[params.ID]
	if !ok {
		return sql.ErrNoRows
	}
	if mapping.Status != params.From || mapping.Version != params.Version {
		return ErrStaleVersion
	}
	mapping.Status = params.To
	mapping.Version++
	mapping.UpdatedAt = params.At
	if params.ReviewedBy != nil {
		reviewer := *params.ReviewedBy
		at := params.At
		mapping.ReviewedBy = &reviewer
		mapping.ReviewedAt = &at
	}
	return nil
}

func cloneMapping(mapping models.Mapping) models.Mapping {
	if mapping.ReviewedBy != nil {
		reviewer := *mapping.ReviewedBy
		mapping.ReviewedBy = &reviewer
	}
	if mapping.ReviewedAt != nil {
		at := *mapping.ReviewedAt
		mapping.ReviewedAt = &at
	}
	return mapping
}
