package catalog

import "errors"

var (
	ErrNotFound = errors.New("variant not found")
)

// Variant is a purchasable size/color combination with its own price and
// stock. The checkout engine reads it and issues atomic stock deltas
// against it; everything else about the catalog is conventional CRUD.
type Variant struct {
	ID           int     `json:"variantID"`
	ProductName  string  `json:"productName"`
	Size         string  `json:"size,omitempty"`
	Color        string  `json:"color,omitempty"`
	UnitPrice    float64 `json:"unitPrice"`
	DiscountPct  float64 `json:"discountPercent"`
	Stock        int     `json:"stock"`
	IsActive     bool    `json:"isActive"`
	LowStockAt   int     `json:"lowStockThreshold"`
	CreatedAt    string  `json:"createdAt,omitempty"`
	UpdatedAt    string  `json:"updatedAt,omitempty"`
}
