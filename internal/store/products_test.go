package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhanhland/inventory/internal/domain"
)

var productRows = []string{
	"id", "building_code", "apartment_code", "apartment_encode", "area",
	"selling_price", "tax", "furniture_note", "mortgage_info", "description",
	"balcony_direction", "sort_order", "status", "apartment_contact_info",
	"contact_info", "source", "subdivision", "apartment_type", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*PostgresProductsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresProductsRepository(db), mock
}

func productRow(id, code string) []driver.Value {
	now := time.Now().UTC()
	return []driver.Value{
		id, "S1.01", code, "", 52.5,
		"3.2 tỷ", "", "Full nội thất", "", "",
		"Đông Nam", 0, "DANG_BAN", "",
		"0901234567", "", "sub-1", "type-1", now, now,
	}
}

func TestListAppliesFiltersAndPagination(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products WHERE subdivision = \$1 AND status = \$2`).
		WithArgs("sub-1", "DANG_BAN").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	mock.ExpectQuery(`SELECT .+ FROM products WHERE subdivision = \$1 AND status = \$2 ORDER BY area ASC LIMIT \$3 OFFSET \$4`).
		WithArgs("sub-1", "DANG_BAN", 10, 10).
		WillReturnRows(sqlmock.NewRows(productRows).
			AddRow(productRow("p1", "S1.01.05")...).
			AddRow(productRow("p2", "S1.01.06")...))

	products, total, err := repo.List(context.Background(), ProductQuery{
		Page:          2,
		Limit:         10,
		SubdivisionID: "sub-1",
		Status:        domain.StatusSelling,
		SortBy:        "area",
		SortOrder:     "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, products, 2)
	assert.Equal(t, "S1.01.05", products[0].ApartmentCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRejectsUnknownSortColumn(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	// An unknown sortBy falls back to the default order instead of
	// interpolating caller input.
	mock.ExpectQuery(`ORDER BY sort_order ASC, created_at DESC`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(productRows))

	_, _, err := repo.List(context.Background(), ProductQuery{SortBy: "1; DROP TABLE products"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFiltersByDateRange(t *testing.T) {
	repo, mock := newMockRepo(t)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products WHERE created_at >= \$1 AND created_at <= \$2`).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`created_at >= \$1 AND created_at <= \$2`).
		WithArgs(from, to, 10, 0).
		WillReturnRows(sqlmock.NewRows(productRows))

	_, total, err := repo.List(context.Background(), ProductQuery{FromDate: from, ToDate: to})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(productRows))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFillsDefaults(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO products`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &domain.Product{
		ApartmentCode:   "S1.01.05",
		SubdivisionID:   "sub-1",
		ApartmentTypeID: "type-1",
	}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.StatusSelling, p.Status)
	assert.False(t, p.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequiresApartmentCode(t *testing.T) {
	repo, _ := newMockRepo(t)
	err := repo.Create(context.Background(), &domain.Product{})
	assert.Error(t, err)
}

func TestUpdateNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE products SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &domain.Product{ID: "missing", ApartmentCode: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteReturnsDeletedRow(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(productRows).AddRow(productRow("p1", "S1.01.05")...))
	mock.ExpectExec(`DELETE FROM products WHERE id = \$1`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := repo.Delete(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "S1.01.05", p.ApartmentCode)
	assert.Equal(t, "sub-1", p.SubdivisionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReorderRunsInTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE products SET sort_order = \$1`).
		WithArgs(0, sqlmock.AnyArg(), "p2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE products SET sort_order = \$1`).
		WithArgs(1, sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Reorder(context.Background(), []string{"p2", "p1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReorderRollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE products SET sort_order = \$1`).
		WithArgs(0, sqlmock.AnyArg(), "p2").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.Reorder(context.Background(), []string{"p2", "p1"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertByCodeCreatesWhenAbsent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id FROM products WHERE apartment_code = \$1 AND subdivision = \$2 AND apartment_type = \$3`).
		WithArgs("S1.01.05", "sub-1", "type-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`INSERT INTO products`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.UpsertByCode(context.Background(), &domain.Product{
		ApartmentCode:   "S1.01.05",
		SubdivisionID:   "sub-1",
		ApartmentTypeID: "type-1",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertByCodeUpdatesWhenPresent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT id FROM products WHERE apartment_code = \$1`).
		WithArgs("S1.01.05", "sub-1", "type-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-id"))
	mock.ExpectExec(`UPDATE products SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := &domain.Product{
		ApartmentCode:   "S1.01.05",
		SubdivisionID:   "sub-1",
		ApartmentTypeID: "type-1",
	}
	created, err := repo.UpsertByCode(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "existing-id", p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
