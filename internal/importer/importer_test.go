package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/minhanhland/inventory/internal/domain"
	"github.com/minhanhland/inventory/internal/store"
)

type fakeProducts struct {
	store.ProductsRepository
	mu       sync.Mutex
	existing map[string]string // apartmentCode -> id
	upserted []domain.Product
	failCode string
}

func (f *fakeProducts) UpsertByCode(_ context.Context, p *domain.Product) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.ApartmentCode == f.failCode {
		return false, errors.New("storage unavailable")
	}
	f.upserted = append(f.upserted, *p)
	if _, ok := f.existing[p.ApartmentCode]; ok {
		return false, nil
	}
	f.existing[p.ApartmentCode] = p.ApartmentCode
	return true, nil
}

type fakeMasterData struct {
	store.MasterDataRepository
	mu    sync.Mutex
	nodes []domain.MasterData
}

func (f *fakeMasterData) FindByName(_ context.Context, t domain.MasterDataType, name, parentID string) (*domain.MasterData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.nodes {
		if n.Type == t && n.Name == name && n.ParentID == parentID {
			node := n
			return &node, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeMasterData) Create(_ context.Context, m *domain.MasterData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m.ID = fmt.Sprintf("md-%d", len(f.nodes)+1)
	f.nodes = append(f.nodes, *m)
	return nil
}

func buildWorkbook(t *testing.T, sheets map[string][][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for sheet, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", sheet))
			first = false
		} else {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func newTestService(products *fakeProducts, masterData *fakeMasterData) *Service {
	return NewService(products, masterData, nil, 2, zap.NewNop())
}

func TestRunImportsRowsAndCreatesMasterData(t *testing.T) {
	products := &fakeProducts{existing: map[string]string{}}
	masterData := &fakeMasterData{}
	svc := newTestService(products, masterData)

	buf := buildWorkbook(t, map[string][][]string{
		"Studio": {
			{"Mã Căn", "Diện Tích (m2)", "Giá bán", "Trạng thái", "SĐT Liên hệ"},
			{"S1.01.05", "52,5", "3.2 tỷ", "Đang bán", "0901234567"},
			{"S1.01.06", "48", "2.9 tỷ", "Đã bán", ""},
		},
	})

	result, err := svc.Run(context.Background(), buf, "The Beverly.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "The Beverly", result.Subdivision)
	assert.Equal(t, 1, result.Sheets)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Imported)
	assert.Zero(t, result.Failed)

	// Subdivision plus one apartment type were created.
	require.Len(t, masterData.nodes, 2)
	assert.Equal(t, domain.TypeSubdivision, masterData.nodes[0].Type)
	assert.Equal(t, "The Beverly", masterData.nodes[0].Name)
	assert.Equal(t, domain.TypeApartmentType, masterData.nodes[1].Type)
	assert.Equal(t, "Studio", masterData.nodes[1].Name)
	assert.Equal(t, masterData.nodes[0].ID, masterData.nodes[1].ParentID)

	require.Len(t, products.upserted, 2)
	byCode := map[string]domain.Product{}
	for _, p := range products.upserted {
		byCode[p.ApartmentCode] = p
	}
	p := byCode["S1.01.05"]
	assert.Equal(t, 52.5, p.Area)
	assert.Equal(t, "3.2 tỷ", p.SellingPrice)
	assert.Equal(t, domain.StatusSelling, p.Status)
	assert.Equal(t, "0901234567", p.ContactInfo)
	assert.Equal(t, domain.StatusSold, byCode["S1.01.06"].Status)
}

func TestRunSecondImportUpdates(t *testing.T) {
	products := &fakeProducts{existing: map[string]string{"S1.01.05": "p1"}}
	masterData := &fakeMasterData{}
	svc := newTestService(products, masterData)

	buf := buildWorkbook(t, map[string][][]string{
		"Studio": {
			{"Mã Căn", "Giá bán"},
			{"S1.01.05", "3.5 tỷ"},
		},
	})

	result, err := svc.Run(context.Background(), buf, "The Beverly.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Zero(t, result.Imported)
}

func TestRunSkipsRowsWithoutCode(t *testing.T) {
	products := &fakeProducts{existing: map[string]string{}}
	svc := newTestService(products, &fakeMasterData{})

	buf := buildWorkbook(t, map[string][][]string{
		"Studio": {
			{"Mã Căn", "Giá bán"},
			{"", "3.5 tỷ"},
			{"S1.01.07", "2.8 tỷ"},
		},
	})

	result, err := svc.Run(context.Background(), buf, "The Beverly.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Imported)
}

func TestRunCollectsRowErrors(t *testing.T) {
	products := &fakeProducts{existing: map[string]string{}, failCode: "S1.01.09"}
	svc := newTestService(products, &fakeMasterData{})

	buf := buildWorkbook(t, map[string][][]string{
		"Studio": {
			{"Mã Căn"},
			{"S1.01.08"},
			{"S1.01.09"},
		},
	})

	result, err := svc.Run(context.Background(), buf, "The Beverly.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "storage unavailable")
}

func TestRunSheetWithoutCodeColumnIsReported(t *testing.T) {
	products := &fakeProducts{existing: map[string]string{}}
	svc := newTestService(products, &fakeMasterData{})

	buf := buildWorkbook(t, map[string][][]string{
		"Ghi chú": {
			{"Cột A", "Cột B"},
			{"x", "y"},
		},
	})

	result, err := svc.Run(context.Background(), buf, "The Beverly.xlsx")
	require.NoError(t, err)
	assert.Zero(t, result.Sheets)
	assert.Zero(t, result.Total)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no apartment code column")
}

func TestRunRejectsUnreadableWorkbook(t *testing.T) {
	svc := newTestService(&fakeProducts{existing: map[string]string{}}, &fakeMasterData{})
	_, err := svc.Run(context.Background(), bytes.NewBufferString("not an xlsx"), "The Beverly.xlsx")
	assert.Error(t, err)
}

func TestMatchHeaderVariants(t *testing.T) {
	cases := map[string]string{
		"Mã Căn":          colApartmentCode,
		"  căn hộ ":       colApartmentCode,
		"Căn":             colApartmentCode,
		"Tòa":             colBuildingCode,
		"Diện Tích (m2)":  colArea,
		"DT":              colArea,
		"S":               colArea,
		"Giá bán":         colSellingPrice,
		"Thuế":            colTax,
		"Nội thất":        colFurnitureNote,
		"TT Sổ Đỏ - Vay":  colMortgageInfo,
		"Mô tả":           colDescription,
		"Hướng BC":        colBalconyDirection,
		"Trạng thái":      colStatus,
		"SĐT":             colContactInfo,
		"Nguồn":           colSource,
		"Cột không biết":  "",
		"":                "",
	}
	for header, want := range cases {
		assert.Equal(t, want, matchHeader(header), "header %q", header)
	}
}
