package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/minhanhland/inventory/internal/domain"
)

// PermissionsRepository manages per-user field-level product permissions.
type PermissionsRepository interface {
	GetForUser(ctx context.Context, userID string) (*domain.FieldPermission, error)
	Upsert(ctx context.Context, p *domain.FieldPermission) error
	Delete(ctx context.Context, userID string) error
}

type PostgresPermissionsRepository struct {
	db *sql.DB
}

func NewPostgresPermissionsRepository(db *sql.DB) *PostgresPermissionsRepository {
	return &PostgresPermissionsRepository{db: db}
}

var _ PermissionsRepository = (*PostgresPermissionsRepository)(nil)

// GetForUser returns the permission row for a user. A user without a row
// gets an empty permission (no restrictions configured), not an error.
func (r *PostgresPermissionsRepository) GetForUser(ctx context.Context, userID string) (*domain.FieldPermission, error) {
	var p domain.FieldPermission
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, field_names, product_ids FROM product_field_permissions WHERE user_id = $1",
		userID,
	).Scan(&p.ID, &p.UserID, pq.Array(&p.FieldNames), pq.Array(&p.ProductIDs))
	if err != nil {
		if err == sql.ErrNoRows {
			return &domain.FieldPermission{UserID: userID, FieldNames: []string{}, ProductIDs: []string{}}, nil
		}
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	return &p, nil
}

func (r *PostgresPermissionsRepository) Upsert(ctx context.Context, p *domain.FieldPermission) error {
	if p.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO product_field_permissions (id, user_id, field_names, product_ids)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET field_names = $3, product_ids = $4
	`, p.ID, p.UserID, pq.Array(p.FieldNames), pq.Array(p.ProductIDs))
	if err != nil {
		return fmt.Errorf("failed to upsert permissions: %w", err)
	}
	return nil
}

func (r *PostgresPermissionsRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM product_field_permissions WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("failed to delete permissions: %w", err)
	}
	return nil
}
