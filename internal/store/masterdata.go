package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minhanhland/inventory/internal/domain"
)

// MasterDataRepository manages the subdivision / apartment-type tree.
type MasterDataRepository interface {
	ListTree(ctx context.Context) ([]domain.MasterData, error)
	Get(ctx context.Context, id string) (*domain.MasterData, error)
	Create(ctx context.Context, m *domain.MasterData) error
	Update(ctx context.Context, m *domain.MasterData) error
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, ids []string) error
	FindByName(ctx context.Context, t domain.MasterDataType, name, parentID string) (*domain.MasterData, error)
}

type PostgresMasterDataRepository struct {
	db *sql.DB
}

func NewPostgresMasterDataRepository(db *sql.DB) *PostgresMasterDataRepository {
	return &PostgresMasterDataRepository{db: db}
}

var _ MasterDataRepository = (*PostgresMasterDataRepository)(nil)

const masterDataColumns = `
	id, name, COALESCE(description, ''), type, sort_order, COALESCE(parent_id, ''), created_at, updated_at`

func scanMasterData(row interface{ Scan(...any) error }) (*domain.MasterData, error) {
	var m domain.MasterData
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Type, &m.SortOrder, &m.ParentID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListTree loads all nodes and nests apartment types under their
// subdivision.
func (r *PostgresMasterDataRepository) ListTree(ctx context.Context) ([]domain.MasterData, error) {
	query := "SELECT" + masterDataColumns + " FROM master_data ORDER BY sort_order ASC, name ASC"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query master data: %w", err)
	}
	defer rows.Close()

	var all []domain.MasterData
	for rows.Next() {
		m, err := scanMasterData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan master data: %w", err)
		}
		all = append(all, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating master data: %w", err)
	}

	byParent := make(map[string][]domain.MasterData)
	for _, m := range all {
		if m.ParentID != "" {
			byParent[m.ParentID] = append(byParent[m.ParentID], m)
		}
	}

	var roots []domain.MasterData
	for _, m := range all {
		if m.ParentID != "" {
			continue
		}
		m.Children = byParent[m.ID]
		roots = append(roots, m)
	}
	return roots, nil
}

func (r *PostgresMasterDataRepository) Get(ctx context.Context, id string) (*domain.MasterData, error) {
	query := "SELECT" + masterDataColumns + " FROM master_data WHERE id = $1"
	m, err := scanMasterData(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("master data %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query master data: %w", err)
	}
	return m, nil
}

func (r *PostgresMasterDataRepository) Create(ctx context.Context, m *domain.MasterData) error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.Type == domain.TypeApartmentType && m.ParentID == "" {
		return fmt.Errorf("apartment type requires a parent subdivision")
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	var parent any
	if m.ParentID != "" {
		parent = m.ParentID
	}

	query := `
		INSERT INTO master_data (id, name, description, type, sort_order, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Name, m.Description, m.Type, m.SortOrder, parent, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert master data: %w", err)
	}
	return nil
}

func (r *PostgresMasterDataRepository) Update(ctx context.Context, m *domain.MasterData) error {
	m.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE master_data SET name = $2, description = $3, sort_order = $4, updated_at = $5
		WHERE id = $1
	`, m.ID, m.Name, m.Description, m.SortOrder, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update master data: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("master data %s: %w", m.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a node. Children and products referencing it keep the
// database's FK behavior; callers should empty a subdivision first.
func (r *PostgresMasterDataRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM master_data WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete master data: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("master data %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PostgresMasterDataRepository) Reorder(ctx context.Context, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"UPDATE master_data SET sort_order = $1, updated_at = $2 WHERE id = $3",
			i, time.Now().UTC(), id,
		); err != nil {
			return fmt.Errorf("failed to reorder master data %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}

// FindByName looks up a node by type, name and (for apartment types)
// parent. The importer uses this to resolve sheet/file names to ids.
func (r *PostgresMasterDataRepository) FindByName(ctx context.Context, t domain.MasterDataType, name, parentID string) (*domain.MasterData, error) {
	query := "SELECT" + masterDataColumns + " FROM master_data WHERE type = $1 AND LOWER(name) = LOWER($2)"
	args := []any{t, name}
	if parentID != "" {
		query += " AND parent_id = $3"
		args = append(args, parentID)
	}

	m, err := scanMasterData(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("master data %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query master data by name: %w", err)
	}
	return m, nil
}
