package stock

import "errors"

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrVariantNotFound   = errors.New("variant not found")

	// ErrJournal marks a reservation whose stock delta landed but whose
	// movement row did not. The units are held and must still be released
	// if the caller rolls back.
	ErrJournal = errors.New("movement journal write failed")
)

type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementRestock    MovementType = "restock"
	MovementAdjustment MovementType = "adjustment"
	MovementReturn     MovementType = "return"
)

// Movement journals one stock delta for audit and turnover analytics.
// The ledger only ever appends these; analytics read them elsewhere.
type Movement struct {
	ID          int          `json:"movementID"`
	VariantID   int          `json:"variantID"`
	Type        MovementType `json:"type"`
	Quantity    int          `json:"quantity"`
	StockBefore int          `json:"stockBefore"`
	StockAfter  int          `json:"stockAfter"`
	OrderRef    string       `json:"orderRef,omitempty"`
	CreatedAt   string       `json:"createdAt,omitempty"`
}

// ReservationItem is one line of a batch reservation.
type ReservationItem struct {
	VariantID int `json:"variantID"`
	Quantity  int `json:"quantity"`
}
