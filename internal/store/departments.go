package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minhanhland/inventory/internal/domain"
)

// DepartmentsRepository manages user departments.
type DepartmentsRepository interface {
	List(ctx context.Context) ([]domain.Department, error)
	Create(ctx context.Context, d *domain.Department) error
	Update(ctx context.Context, d *domain.Department) error
	Delete(ctx context.Context, id string) error
}

type PostgresDepartmentsRepository struct {
	db *sql.DB
}

func NewPostgresDepartmentsRepository(db *sql.DB) *PostgresDepartmentsRepository {
	return &PostgresDepartmentsRepository{db: db}
}

var _ DepartmentsRepository = (*PostgresDepartmentsRepository)(nil)

func (r *PostgresDepartmentsRepository) List(ctx context.Context) ([]domain.Department, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, COALESCE(description, ''), created_at, updated_at FROM departments ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}
	defer rows.Close()

	var departments []domain.Department
	for rows.Next() {
		var d domain.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating departments: %w", err)
	}
	return departments, nil
}

func (r *PostgresDepartmentsRepository) Create(ctx context.Context, d *domain.Department) error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO departments (id, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)",
		d.ID, d.Name, d.Description, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert department: %w", err)
	}
	return nil
}

func (r *PostgresDepartmentsRepository) Update(ctx context.Context, d *domain.Department) error {
	d.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		"UPDATE departments SET name = $2, description = $3, updated_at = $4 WHERE id = $1",
		d.ID, d.Name, d.Description, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update department: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("department %s: %w", d.ID, ErrNotFound)
	}
	return nil
}

func (r *PostgresDepartmentsRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM departments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete department: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("department %s: %w", id, ErrNotFound)
	}
	return nil
}
