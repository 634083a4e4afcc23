// Package domain holds the entities shared by the store, HTTP handlers,
// importer and the live-update channel.
package domain

import "time"

// ProductStatus is the sale state of an apartment unit.
type ProductStatus string

const (
	StatusSelling ProductStatus = "DANG_BAN"
	StatusPaused  ProductStatus = "TAM_DUNG"
	StatusSold    ProductStatus = "DA_BAN"
)

// ValidStatus reports whether s is a known product status.
func ValidStatus(s ProductStatus) bool {
	switch s {
	case StatusSelling, StatusPaused, StatusSold:
		return true
	}
	return false
}

// MasterDataType distinguishes the two levels of the master-data tree.
type MasterDataType string

const (
	TypeSubdivision   MasterDataType = "TOA_NHA"     // building / subdivision
	TypeApartmentType MasterDataType = "LOAI_CAN_HO" // apartment type under a subdivision
)

// UserRole is the coarse role used for route-level authorization.
type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleUser  UserRole = "USER"
)

// Product is one apartment unit in the inventory.
type Product struct {
	ID                   string        `json:"id"`
	BuildingCode         string        `json:"buildingCode,omitempty"`
	ApartmentCode        string        `json:"apartmentCode"`
	ApartmentEncode      string        `json:"apartmentEncode,omitempty"`
	Area                 float64       `json:"area,omitempty"`
	SellingPrice         string        `json:"sellingPrice,omitempty"`
	Tax                  string        `json:"tax,omitempty"`
	FurnitureNote        string        `json:"furnitureNote,omitempty"`
	MortgageInfo         string        `json:"mortgageInfo,omitempty"`
	Description          string        `json:"description,omitempty"`
	BalconyDirection     string        `json:"balconyDirection,omitempty"`
	SortOrder            int           `json:"sortOrder"`
	Status               ProductStatus `json:"status"`
	ApartmentContactInfo string        `json:"apartmentContactInfo,omitempty"`
	ContactInfo          string        `json:"contactInfo,omitempty"`
	Source               string        `json:"source,omitempty"`
	SubdivisionID        string        `json:"subdivisionId"`
	ApartmentTypeID      string        `json:"apartmentTypeId"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
}

// MasterData is a node in the two-level subdivision / apartment-type tree.
// Subdivisions have no parent; apartment types point at their subdivision.
type MasterData struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Type        MasterDataType `json:"type"`
	SortOrder   int            `json:"order"`
	ParentID    string         `json:"parentId,omitempty"`
	Children    []MasterData   `json:"children,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// User is an application account. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email,omitempty"`
	Role         UserRole  `json:"role"`
	DepartmentID string    `json:"departmentId,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Department groups users.
type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FieldPermission restricts which product fields and which products a user
// may see. Empty slices mean no restriction was configured.
type FieldPermission struct {
	ID         string   `json:"id"`
	UserID     string   `json:"userId"`
	FieldNames []string `json:"fieldNames"`
	ProductIDs []string `json:"productIds"`
}
