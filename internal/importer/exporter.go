package importer

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/minhanhland/inventory/internal/domain"
)

// exportHeaders mirrors the import header vocabulary so an exported
// workbook can be re-imported unchanged.
var exportHeaders = []string{
	"Mã Căn", "Tòa", "Diện Tích (m2)", "Giá bán", "Thuế", "Nội thất",
	"TT Sổ Đỏ - Vay", "Mô tả", "Hướng BC", "Trạng thái", "Liên hệ", "Nguồn",
}

// WriteWorkbook renders products as one xlsx sheet.
func WriteWorkbook(w io.Writer, sheetName string, products []domain.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = "Products"
	}
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &exportHeaders); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}

	for i, p := range products {
		row := []any{
			p.ApartmentCode, p.BuildingCode, p.Area, p.SellingPrice, p.Tax,
			p.FurnitureNote, p.MortgageInfo, p.Description, p.BalconyDirection,
			string(p.Status), p.ContactInfo, p.Source,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
