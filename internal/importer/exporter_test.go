package importer

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhanhland/inventory/internal/domain"
)

func TestExportedWorkbookRoundTrips(t *testing.T) {
	products := []domain.Product{{
		ApartmentCode:    "S1.01.05",
		BuildingCode:     "S1",
		Area:             52.5,
		SellingPrice:     "3.2 tỷ",
		Status:           domain.StatusSelling,
		ContactInfo:      "0901234567",
		BalconyDirection: "Đông Nam",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, "Studio", products))

	repo := &fakeProducts{existing: map[string]string{}}
	svc := newTestService(repo, &fakeMasterData{})

	result, err := svc.Run(context.Background(), &buf, "The Beverly.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Zero(t, result.Failed)

	require.Len(t, repo.upserted, 1)
	got := repo.upserted[0]
	assert.Equal(t, "S1.01.05", got.ApartmentCode)
	assert.Equal(t, "S1", got.BuildingCode)
	assert.Equal(t, 52.5, got.Area)
	assert.Equal(t, "3.2 tỷ", got.SellingPrice)
	assert.Equal(t, domain.StatusSelling, got.Status)
	assert.Equal(t, "0901234567", got.ContactInfo)
}

func TestWriteWorkbookEmptyList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, "", nil))
	assert.NotZero(t, buf.Len())
}
