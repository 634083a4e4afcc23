package importer

import "strings"

// Canonical column keys produced by header matching.
const (
	colApartmentCode    = "apartmentCode"
	colBuildingCode     = "buildingCode"
	colArea             = "area"
	colSellingPrice     = "sellingPrice"
	colTax              = "tax"
	colFurnitureNote    = "furnitureNote"
	colMortgageInfo     = "mortgageInfo"
	colDescription      = "description"
	colBalconyDirection = "balconyDirection"
	colStatus           = "status"
	colContactInfo      = "contactInfo"
	colSource           = "source"
)

// headerPatterns maps lowercase Vietnamese header fragments to column
// keys. Order matters: more specific fragments come first so "mã căn"
// wins over "căn" and "hướng bc" over "hướng".
var headerPatterns = []struct {
	fragment string
	column   string
}{
	{"mã căn", colApartmentCode},
	{"căn hộ", colApartmentCode},
	{"tòa nhà", colBuildingCode},
	{"tòa", colBuildingCode},
	{"diện tích", colArea},
	{"giá bán", colSellingPrice},
	{"giá", colSellingPrice},
	{"thuế", colTax},
	{"nội thất", colFurnitureNote},
	{"sổ đỏ", colMortgageInfo},
	{"vay", colMortgageInfo},
	{"mô tả", colDescription},
	{"ghi chú", colDescription},
	{"hướng bc", colBalconyDirection},
	{"hướng ban công", colBalconyDirection},
	{"hướng", colBalconyDirection},
	{"trạng thái", colStatus},
	{"liên hệ", colContactInfo},
	{"sđt", colContactInfo},
	{"số điện thoại", colContactInfo},
	{"nguồn", colSource},
}

// exactHeaders handles the short abbreviated headers that would be too
// ambiguous as fragments.
var exactHeaders = map[string]string{
	"căn": colApartmentCode,
	"dt":  colArea,
	"s":   colArea,
}

// matchHeader resolves a sheet header cell to a canonical column key.
// Returns "" for unrecognized headers, which the importer ignores.
func matchHeader(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.Join(strings.Fields(h), " ")
	if h == "" {
		return ""
	}

	if col, ok := exactHeaders[h]; ok {
		return col
	}
	for _, p := range headerPatterns {
		if strings.Contains(h, p.fragment) {
			return p.column
		}
	}
	return ""
}

// mapHeaderRow resolves a full header row into column index -> key.
func mapHeaderRow(row []string) map[int]string {
	columns := make(map[int]string)
	for i, cell := range row {
		if col := matchHeader(cell); col != "" {
			if _, taken := columnsValue(columns, col); !taken {
				columns[i] = col
			}
		}
	}
	return columns
}

func columnsValue(columns map[int]string, col string) (int, bool) {
	for i, c := range columns {
		if c == col {
			return i, true
		}
	}
	return 0, false
}
