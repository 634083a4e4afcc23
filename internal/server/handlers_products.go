package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/minhanhland/inventory/internal/domain"
	"github.com/minhanhland/inventory/internal/importer"
	"github.com/minhanhland/inventory/internal/store"
)

func productQueryFromURL(q url.Values) (store.ProductQuery, error) {
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	query := store.ProductQuery{
		Page:            page,
		Limit:           limit,
		Search:          q.Get("search"),
		Status:          domain.ProductStatus(q.Get("status")),
		SubdivisionID:   q.Get("subdivision"),
		ApartmentTypeID: q.Get("apartmentType"),
		SortBy:          q.Get("sortBy"),
		SortOrder:       q.Get("sortOrder"),
	}
	if query.Status != "" && !domain.ValidStatus(query.Status) {
		return query, fmt.Errorf("unknown status")
	}

	if v := q.Get("fromDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return query, fmt.Errorf("invalid fromDate")
		}
		query.FromDate = t
	}
	if v := q.Get("toDate"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return query, fmt.Errorf("invalid toDate")
		}
		// Inclusive end of day
		query.ToDate = t.Add(24*time.Hour - time.Nanosecond)
	}

	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit < 1 {
		query.Limit = 10
	}
	return query, nil
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	query, err := productQueryFromURL(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, total, err := s.products.List(r.Context(), query)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	products, err = s.maskForViewer(r, products)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, pagedResponse{
		Data: products,
		Meta: pageMeta{Page: query.Page, Limit: query.Limit, Total: total},
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	masked, err := s.maskForViewer(r, []domain.Product{*p})
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, masked[0])
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decodeBody(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.ApartmentCode == "" || p.SubdivisionID == "" || p.ApartmentTypeID == "" {
		respondError(w, http.StatusBadRequest, "apartmentCode, subdivisionId and apartmentTypeId are required")
		return
	}
	if p.Status != "" && !domain.ValidStatus(p.Status) {
		respondError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := s.products.Create(r.Context(), &p); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.notifier.PublishCreated(&p, p.SubdivisionID, p.ApartmentTypeID)
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decodeBody(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p.ID = chi.URLParam(r, "id")
	if p.Status != "" && !domain.ValidStatus(p.Status) {
		respondError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := s.products.Update(r.Context(), &p); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.notifier.PublishUpdated(&p, p.SubdivisionID, p.ApartmentTypeID)
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.notifier.PublishDeleted(p.ID, p.ApartmentCode, p.SubdivisionID, p.ApartmentTypeID)
	respondJSON(w, http.StatusOK, map[string]string{"id": p.ID})
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleReorderProducts(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeBody(r, &req); err != nil || len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids are required")
		return
	}

	if err := s.products.Reorder(r.Context(), req.IDs); err != nil {
		s.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"reordered": len(req.IDs)})
}

// handleExportProducts streams the filtered product list as an xlsx
// workbook whose headers the importer recognizes.
func (s *Server) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	query, err := productQueryFromURL(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	query.Page = 1
	query.Limit = exportRowLimit

	products, _, err := s.products.List(r.Context(), query)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	products, err = s.maskForViewer(r, products)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="products.xlsx"`)
	if err := importer.WriteWorkbook(w, "Products", products); err != nil {
		s.logger.Error("export failed", zap.Error(err))
	}
}

const exportRowLimit = 10000

func (s *Server) handleImportProducts(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.config.Import.MaxFileSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	result, err := s.importer.Run(r.Context(), file, header.Filename)
	if err != nil {
		s.logger.Error("import failed",
			zap.String("filename", header.Filename),
			zap.Error(err),
		)
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.logger.Info("import finished",
		zap.String("filename", header.Filename),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed),
	)
	respondJSON(w, http.StatusOK, result)
}

// maskForViewer blanks restricted fields for users with a configured
// field permission. Admins and unrestricted users see everything.
func (s *Server) maskForViewer(r *http.Request, products []domain.Product) ([]domain.Product, error) {
	claims := claimsFrom(r.Context())
	if claims == nil || claims.Role == domain.RoleAdmin {
		return products, nil
	}

	perm, err := s.permissions.GetForUser(r.Context(), claims.Subject)
	if err != nil {
		return nil, err
	}
	if len(perm.FieldNames) == 0 {
		return products, nil
	}

	visible := make(map[string]bool, len(perm.FieldNames))
	for _, f := range perm.FieldNames {
		visible[f] = true
	}

	for i := range products {
		maskProduct(&products[i], visible)
	}
	return products, nil
}

// maskProduct zeroes the sensitive fields that are absent from the
// viewer's visible-field list. Identity and partition fields always
// pass through.
func maskProduct(p *domain.Product, visible map[string]bool) {
	if !visible["sellingPrice"] {
		p.SellingPrice = ""
	}
	if !visible["tax"] {
		p.Tax = ""
	}
	if !visible["mortgageInfo"] {
		p.MortgageInfo = ""
	}
	if !visible["contactInfo"] {
		p.ContactInfo = ""
	}
	if !visible["apartmentContactInfo"] {
		p.ApartmentContactInfo = ""
	}
	if !visible["source"] {
		p.Source = ""
	}
	if !visible["furnitureNote"] {
		p.FurnitureNote = ""
	}
}
