package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/minhanhland/inventory/internal/domain"
)

// ProductQuery carries list filters and pagination.
type ProductQuery struct {
	Page            int
	Limit           int
	Search          string
	Status          domain.ProductStatus
	SubdivisionID   string
	ApartmentTypeID string
	FromDate        time.Time
	ToDate          time.Time
	SortBy          string
	SortOrder       string
}

// ProductsRepository is the persistence port consumed by the HTTP layer
// and the Excel importer.
type ProductsRepository interface {
	List(ctx context.Context, q ProductQuery) ([]domain.Product, int, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) (*domain.Product, error)
	Reorder(ctx context.Context, ids []string) error
	UpsertByCode(ctx context.Context, p *domain.Product) (bool, error)
}

type PostgresProductsRepository struct {
	db *sql.DB
}

func NewPostgresProductsRepository(db *sql.DB) *PostgresProductsRepository {
	return &PostgresProductsRepository{db: db}
}

var _ ProductsRepository = (*PostgresProductsRepository)(nil)

const productColumns = `
	id,
	COALESCE(building_code, ''),
	apartment_code,
	COALESCE(apartment_encode, ''),
	COALESCE(area, 0),
	COALESCE(selling_price, ''),
	COALESCE(tax, ''),
	COALESCE(furniture_note, ''),
	COALESCE(mortgage_info, ''),
	COALESCE(description, ''),
	COALESCE(balcony_direction, ''),
	sort_order,
	status,
	COALESCE(apartment_contact_info, ''),
	COALESCE(contact_info, ''),
	COALESCE(source, ''),
	subdivision,
	apartment_type,
	created_at,
	updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.BuildingCode,
		&p.ApartmentCode,
		&p.ApartmentEncode,
		&p.Area,
		&p.SellingPrice,
		&p.Tax,
		&p.FurnitureNote,
		&p.MortgageInfo,
		&p.Description,
		&p.BalconyDirection,
		&p.SortOrder,
		&p.Status,
		&p.ApartmentContactInfo,
		&p.ContactInfo,
		&p.Source,
		&p.SubdivisionID,
		&p.ApartmentTypeID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// sortColumns is the allow-list for ORDER BY input.
var sortColumns = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"sortOrder":     "sort_order",
	"apartmentCode": "apartment_code",
	"area":          "area",
	"sellingPrice":  "selling_price",
}

// List returns one page of products plus the total row count for the
// filter.
func (r *PostgresProductsRepository) List(ctx context.Context, q ProductQuery) ([]domain.Product, int, error) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.SubdivisionID != "" {
		conds = append(conds, "subdivision = "+arg(q.SubdivisionID))
	}
	if q.ApartmentTypeID != "" {
		conds = append(conds, "apartment_type = "+arg(q.ApartmentTypeID))
	}
	if q.Status != "" {
		conds = append(conds, "status = "+arg(string(q.Status)))
	}
	if !q.FromDate.IsZero() {
		conds = append(conds, "created_at >= "+arg(q.FromDate))
	}
	if !q.ToDate.IsZero() {
		conds = append(conds, "created_at <= "+arg(q.ToDate))
	}
	if q.Search != "" {
		ph := arg("%" + q.Search + "%")
		conds = append(conds, fmt.Sprintf(
			"(apartment_code ILIKE %s OR building_code ILIKE %s OR contact_info ILIKE %s)", ph, ph, ph))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM products" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	orderBy := "sort_order ASC, created_at DESC"
	if col, ok := sortColumns[q.SortBy]; ok {
		dir := "DESC"
		if strings.EqualFold(q.SortOrder, "asc") {
			dir = "ASC"
		}
		orderBy = col + " " + dir
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = 10
	}

	query := "SELECT" + productColumns + " FROM products" + where +
		" ORDER BY " + orderBy +
		" LIMIT " + arg(limit) + " OFFSET " + arg((page-1)*limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating products: %w", err)
	}

	return products, total, nil
}

func (r *PostgresProductsRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	query := "SELECT" + productColumns + " FROM products WHERE id = $1"
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

func (r *PostgresProductsRepository) Create(ctx context.Context, p *domain.Product) error {
	if p.ApartmentCode == "" {
		return fmt.Errorf("apartment_code is required")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = domain.StatusSelling
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO products (
			id, building_code, apartment_code, apartment_encode, area,
			selling_price, tax, furniture_note, mortgage_info, description,
			balcony_direction, sort_order, status, apartment_contact_info,
			contact_info, source, subdivision, apartment_type, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.BuildingCode, p.ApartmentCode, p.ApartmentEncode, p.Area,
		p.SellingPrice, p.Tax, p.FurnitureNote, p.MortgageInfo, p.Description,
		p.BalconyDirection, p.SortOrder, p.Status, p.ApartmentContactInfo,
		p.ContactInfo, p.Source, p.SubdivisionID, p.ApartmentTypeID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *PostgresProductsRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products SET
			building_code = $2,
			apartment_code = $3,
			apartment_encode = $4,
			area = $5,
			selling_price = $6,
			tax = $7,
			furniture_note = $8,
			mortgage_info = $9,
			description = $10,
			balcony_direction = $11,
			sort_order = $12,
			status = $13,
			apartment_contact_info = $14,
			contact_info = $15,
			source = $16,
			subdivision = $17,
			apartment_type = $18,
			updated_at = $19
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.BuildingCode, p.ApartmentCode, p.ApartmentEncode, p.Area,
		p.SellingPrice, p.Tax, p.FurnitureNote, p.MortgageInfo, p.Description,
		p.BalconyDirection, p.SortOrder, p.Status, p.ApartmentContactInfo,
		p.ContactInfo, p.Source, p.SubdivisionID, p.ApartmentTypeID, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("product %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// Delete removes the product and returns the deleted row so the caller can
// notify subscribers with its partition and code.
func (r *PostgresProductsRepository) Delete(ctx context.Context, id string) (*domain.Product, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return p, nil
}

// Reorder rewrites sort_order following the given id order.
func (r *PostgresProductsRepository) Reorder(ctx context.Context, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reorder: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"UPDATE products SET sort_order = $1, updated_at = $2 WHERE id = $3",
			i, time.Now().UTC(), id,
		); err != nil {
			return fmt.Errorf("failed to reorder product %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reorder: %w", err)
	}
	return nil
}

// UpsertByCode inserts or updates a product identified by its apartment
// code within a partition. Used by the Excel importer. Returns true when a
// new row was created.
func (r *PostgresProductsRepository) UpsertByCode(ctx context.Context, p *domain.Product) (bool, error) {
	var existingID string
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM products WHERE apartment_code = $1 AND subdivision = $2 AND apartment_type = $3",
		p.ApartmentCode, p.SubdivisionID, p.ApartmentTypeID,
	).Scan(&existingID)

	switch {
	case err == sql.ErrNoRows:
		if err := r.Create(ctx, p); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to look up product by code: %w", err)
	default:
		p.ID = existingID
		if err := r.Update(ctx, p); err != nil {
			return false, err
		}
		return false, nil
	}
}
