package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Phurinho/outcome-career-align/internal/models"
)

const (
	mappingColumns = `id, seq, clo_id, unit_code, confidence, status, source, version,
       reviewed_by, reviewed_at, created_at, updated_at`
	activePairIndex = "mappings_active_pair_key"
	uniqueViolation = "23505"
)

// MappingRepository persists mapping workflow data in PostgreSQL.
type MappingRepository struct {
	db *sqlx.DB
}

// NewMappingRepository constructs the repository.
func NewMappingRepository(db *sqlx.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Create inserts a mapping. The partial unique index on (clo_id, unit_code)
// for non-rejected rows surfaces as ErrDuplicateActive.
func (r *MappingRepository) Create(ctx context.Context, mapping *models.Mapping) error {
	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	mapping.Version = 1
	mapping.CreatedAt = now
	mapping.UpdatedAt = now
	const query = `INSERT INTO mappings
	(id, clo_id, unit_code, confidence, status, source, version, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING seq`
	err := r.db.QueryRowxContext(ctx, query,
		mapping.ID, mapping.CLOID, mapping.UnitCode, mapping.Confidence, mapping.Status,
		mapping.Source, mapping.Version, mapping.CreatedAt, mapping.UpdatedAt,
	).Scan(&mapping.Seq)
	if err != nil {
		if isUniqueViolation(err, activePairIndex) {
			return ErrDuplicateActive
		}
		if isUniqueViolation(err, "mappings_pkey") {
			return ErrDuplicateID
		}
		return fmt.Errorf("create mapping: %w", err)
	}
	return nil
}

// GetByID fetches a mapping by identifier.
func (r *MappingRepository) GetByID(ctx context.Context, id string) (*models.Mapping, error) {
	query := `SELECT ` + mappingColumns + ` FROM mappings WHERE id = $1`
	var mapping models.Mapping
	if err := r.db.GetContext(ctx, &mapping, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return &mapping, nil
}

// List returns mappings matching the filter, oldest first.
func (r *MappingRepository) List(ctx context.Context, filter models.MappingFilter) ([]models.Mapping, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(`SELECT ` + mappingColumns + ` FROM mappings`)

	conditions := make([]string, 0, 3)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CLOID != "" {
		args = append(args, filter.CLOID)
		conditions = append(conditions, fmt.Sprintf("clo_id = $%d", len(args)))
	}
	if filter.UnitCode != "" {
		args = append(args, filter.UnitCode)
		conditions = append(conditions, fmt.Sprintf("unit_code = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY seq ASC")

	var mappings []models.Mapping
	if err := r.db.SelectContext(ctx, &mappings, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	return mappings, nil
}

// UpdateStatus persists a transition guarded by the expected status and version.
func (r *MappingRepository) UpdateStatus(ctx context.Context, params UpdateMappingStatusParams) error {
	const query = `UPDATE mappings SET status = $1, version = version + 1, updated_at = $2,
	reviewed_by = COALESCE($3::text, reviewed_by),
	reviewed_at = CASE WHEN $3::text IS NULL THEN reviewed_at ELSE $2 END
	WHERE id = $4 AND status = $5 AND version = $6`
	result, err := r.db.ExecContext(ctx, query, params.To, params.At, params.ReviewedBy, params.ID, params.From, params.Version)
	if err != nil {
		return fmt.Errorf("update mapping status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check mapping update rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM mappings WHERE id = $1)`, params.ID); err != nil {
		return fmt.Errorf("check mapping exists: %w", err)
	}
	if !exists {
		return sql.ErrNoRows
	}
	return ErrStaleVersion
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == uniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
}
