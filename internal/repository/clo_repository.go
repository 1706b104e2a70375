package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Phurinho/outcome-career-align/internal/models"
)

const cloColumns = `id, seq, course, description, weight, linked_plo, created_at, updated_at`

// CLORepository persists CLOs in PostgreSQL.
type CLORepository struct {
	db *sqlx.DB
}

// NewCLORepository constructs the repository.
func NewCLORepository(db *sqlx.DB) *CLORepository {
	return &CLORepository{db: db}
}

// Create inserts a new CLO row. The sequence column fixes insertion order.
func (r *CLORepository) Create(ctx context.Context, clo *models.CLO) error {
	if clo.ID == "" {
		clo.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	clo.CreatedAt = now
	clo.UpdatedAt = now
	const query = `INSERT INTO clos (id, course, description, weight, linked_plo, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING seq`
	err := r.db.QueryRowxContext(ctx, query,
		clo.ID, clo.Course, clo.Description, clo.Weight, clo.LinkedPLO, clo.CreatedAt, clo.UpdatedAt,
	).Scan(&clo.Seq)
	if err != nil {
		if isUniqueViolation(err, "clos_pkey") {
			return ErrDuplicateID
		}
		return fmt.Errorf("create clo: %w", err)
	}
	return nil
}

// GetByID fetches a CLO by identifier.
func (r *CLORepository) GetByID(ctx context.Context, id string) (*models.CLO, error) {
	query := `SELECT ` + cloColumns + ` FROM clos WHERE id = $1`
	var clo models.CLO
	if err := r.db.GetContext(ctx, &clo, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get clo: %w", err)
	}
	return &clo, nil
}

// Update persists mutable CLO fields.
func (r *CLORepository) Update(ctx context.Context, clo *models.CLO) error {
	clo.UpdatedAt = time.Now().UTC()
	const query = `UPDATE clos SET course = :course, description = :description, weight = :weight,
	linked_plo = :linked_plo, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, clo)
	if err != nil {
		return fmt.Errorf("update clo: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check clo update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns every CLO in insertion order.
func (r *CLORepository) List(ctx context.Context) ([]models.CLO, error) {
	query := `SELECT ` + cloColumns + ` FROM clos ORDER BY seq ASC`
	var clos []models.CLO
	if err := r.db.SelectContext(ctx, &clos, query); err != nil {
		return nil, fmt.Errorf("list clos: %w", err)
	}
	return clos, nil
}
