// Package importer loads apartment inventory from uploaded Excel
// workbooks. The filename names the subdivision and each sheet names an
// apartment type; rows upsert products by apartment code.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/minhanhland/inventory/internal/domain"
	"github.com/minhanhland/inventory/internal/store"
)

// Result summarizes one workbook import.
type Result struct {
	Subdivision string   `json:"subdivision"`
	Sheets      int      `json:"sheets"`
	Total       int      `json:"total"`
	Imported    int      `json:"imported"`
	Updated     int      `json:"updated"`
	Skipped     int      `json:"skipped"`
	Failed      int      `json:"failed"`
	Errors      []string `json:"errors,omitempty"`
}

// Reporter receives the outcome of finished imports. Satisfied by the
// notify package; a nil reporter disables reporting.
type Reporter interface {
	SendSuccess(ctx context.Context, result *Result, duration time.Duration) error
	SendFailure(ctx context.Context, result *Result, duration time.Duration, err error) error
}

type Service struct {
	products   store.ProductsRepository
	masterData store.MasterDataRepository
	reporter   Reporter
	workers    int
	logger     *zap.Logger
}

func NewService(products store.ProductsRepository, masterData store.MasterDataRepository, reporter Reporter, workers int, logger *zap.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		products:   products,
		masterData: masterData,
		reporter:   reporter,
		workers:    workers,
		logger:     logger,
	}
}

type rowTask struct {
	product *domain.Product
	sheet   string
	rowNum  int
}

type rowResult struct {
	task    rowTask
	created bool
	skipped bool
	err     error
}

// Run imports every sheet of the workbook. Row failures are collected
// into the result rather than aborting the import.
func (s *Service) Run(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	start := time.Now()

	result, err := s.run(ctx, r, filename)
	if s.reporter != nil {
		if err != nil {
			_ = s.reporter.SendFailure(ctx, result, time.Since(start), err)
		} else {
			_ = s.reporter.SendSuccess(ctx, result, time.Since(start))
		}
	}
	return result, err
}

func (s *Service) run(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	subdivisionName := subdivisionFromFilename(filename)
	result := &Result{Subdivision: subdivisionName}

	if subdivisionName == "" {
		return result, errors.New("cannot derive subdivision from filename")
	}

	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return result, fmt.Errorf("opening workbook: %w", err)
	}
	defer workbook.Close()

	subdivision, err := s.findOrCreate(ctx, domain.TypeSubdivision, subdivisionName, "")
	if err != nil {
		return result, err
	}

	var tasks []rowTask
	for _, sheet := range workbook.GetSheetList() {
		sheetTasks, err := s.collectSheet(ctx, workbook, sheet, subdivision.ID)
		if err != nil {
			s.logger.Warn("skipping sheet",
				zap.String("sheet", sheet),
				zap.Error(err),
			)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", sheet, err))
			continue
		}
		result.Sheets++
		tasks = append(tasks, sheetTasks...)
	}

	result.Total = len(tasks)
	if len(tasks) == 0 {
		return result, nil
	}

	jobs := make(chan rowTask, len(tasks))
	results := make(chan rowResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, jobs, results)
		}()
	}

	go func() {
		for _, task := range tasks {
			select {
			case <-ctx.Done():
				return
			case jobs <- task:
			}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for rr := range results {
		switch {
		case rr.skipped:
			result.Skipped++
		case rr.err != nil:
			result.Failed++
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s row %d: %v", rr.task.sheet, rr.task.rowNum, rr.err))
		case rr.created:
			result.Imported++
		default:
			result.Updated++
		}
	}

	s.logger.Info("workbook imported",
		zap.String("subdivision", subdivisionName),
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
	)
	return result, ctx.Err()
}

func (s *Service) worker(ctx context.Context, jobs <-chan rowTask, results chan<- rowResult) {
	for task := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		rr := rowResult{task: task}
		if task.product.ApartmentCode == "" {
			rr.skipped = true
		} else {
			rr.created, rr.err = s.products.UpsertByCode(ctx, task.product)
		}

		select {
		case <-ctx.Done():
			return
		case results <- rr:
		}
	}
}

// collectSheet parses one sheet into row tasks. The sheet name is the
// apartment type, created under the subdivision when missing.
func (s *Service) collectSheet(ctx context.Context, workbook *excelize.File, sheet, subdivisionID string) ([]rowTask, error) {
	rows, err := workbook.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	columns := mapHeaderRow(rows[0])
	if _, ok := columnsValue(columns, colApartmentCode); !ok {
		return nil, errors.New("no apartment code column recognized")
	}

	apartmentType, err := s.findOrCreate(ctx, domain.TypeApartmentType, sheet, subdivisionID)
	if err != nil {
		return nil, err
	}

	var tasks []rowTask
	for i, row := range rows[1:] {
		product := buildProduct(row, columns)
		product.SubdivisionID = subdivisionID
		product.ApartmentTypeID = apartmentType.ID
		tasks = append(tasks, rowTask{product: product, sheet: sheet, rowNum: i + 2})
	}
	return tasks, nil
}

func (s *Service) findOrCreate(ctx context.Context, t domain.MasterDataType, name, parentID string) (*domain.MasterData, error) {
	node, err := s.masterData.FindByName(ctx, t, name, parentID)
	if err == nil {
		return node, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	node = &domain.MasterData{Name: name, Type: t, ParentID: parentID}
	if err := s.masterData.Create(ctx, node); err != nil {
		return nil, fmt.Errorf("creating %s %q: %w", t, name, err)
	}
	return node, nil
}

func buildProduct(row []string, columns map[int]string) *domain.Product {
	p := &domain.Product{}
	for i, col := range columns {
		if i >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[i])
		if value == "" {
			continue
		}

		switch col {
		case colApartmentCode:
			p.ApartmentCode = value
		case colBuildingCode:
			p.BuildingCode = value
		case colArea:
			p.Area = parseArea(value)
		case colSellingPrice:
			p.SellingPrice = value
		case colTax:
			p.Tax = value
		case colFurnitureNote:
			p.FurnitureNote = value
		case colMortgageInfo:
			p.MortgageInfo = value
		case colDescription:
			p.Description = value
		case colBalconyDirection:
			p.BalconyDirection = value
		case colStatus:
			p.Status = parseStatus(value)
		case colContactInfo:
			p.ContactInfo = value
		case colSource:
			p.Source = value
		}
	}
	return p
}

// parseArea accepts decimal comma and trailing units like "m2".
func parseArea(value string) float64 {
	v := strings.ReplaceAll(value, ",", ".")
	v = strings.TrimFunc(v, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	area, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return area
}

func parseStatus(value string) domain.ProductStatus {
	if s := domain.ProductStatus(strings.ToUpper(strings.TrimSpace(value))); domain.ValidStatus(s) {
		return s
	}
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case strings.Contains(v, "tạm"):
		return domain.StatusPaused
	case strings.Contains(v, "đã bán"):
		return domain.StatusSold
	default:
		return domain.StatusSelling
	}
}

// subdivisionFromFilename strips the extension and directory parts:
// "The Beverly.xlsx" names the subdivision "The Beverly".
func subdivisionFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}
