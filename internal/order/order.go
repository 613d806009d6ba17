package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storefrontlab/storefront-backend/internal/payment"
	"github.com/storefrontlab/storefront-backend/internal/pricing"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrStatusChanged = errors.New("order status changed concurrently")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusPacked     Status = "packed"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
	StatusRefunded   Status = "refunded"
)

// transitions is the full set of legal status moves. Anything not listed
// here is rejected and leaves the order untouched.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusPacked, StatusCancelled},
	StatusPacked:     {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {StatusReturned},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// preShipment reports whether cancelling from this status should put the
// reserved stock back on the shelf.
func preShipment(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusPacked:
		return true
	}
	return false
}

// OrderItem is a frozen copy of variant identity and price captured at
// commit time. It is never re-derived from the catalog afterwards.
type OrderItem struct {
	VariantID   int     `json:"variantID"`
	ProductName string  `json:"productName"`
	Size        string  `json:"size,omitempty"`
	Color       string  `json:"color,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	DiscountPct float64 `json:"discountPercent"`
	FinalPrice  float64 `json:"finalPrice"`
	LineTotal   float64 `json:"lineTotal"`
}

// HistoryEntry is one line of the append-only status log.
type HistoryEntry struct {
	Status Status `json:"status"`
	At     string `json:"at"`
	Actor  string `json:"actor"`
	Note   string `json:"note,omitempty"`
}

// AddressSnapshot is copied off the customer's address book at commit so
// later edits to the address never rewrite history.
type AddressSnapshot struct {
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Order is immutable once created except for status, paymentStatus and
// the history log. Cancellation is a status, never a deletion.
type Order struct {
	OrderNumber     string            `json:"orderNumber"`
	UserID          int               `json:"userId"`
	Items           []OrderItem       `json:"items"`
	Status          Status            `json:"status"`
	PaymentStatus   payment.Status    `json:"paymentStatus"`
	PaymentMethod   string            `json:"paymentMethod"`
	IntentID        *string           `json:"intentID,omitempty"`
	Breakdown       pricing.Breakdown `json:"breakdown"`
	ShippingAddress AddressSnapshot   `json:"shippingAddress"`
	BillingAddress  AddressSnapshot   `json:"billingAddress"`
	History         []HistoryEntry    `json:"statusHistory"`
	ReturnReason    string            `json:"returnReason,omitempty"`
	RefundID        string            `json:"refundID,omitempty"`
	CreatedAt       string            `json:"createdAt,omitempty"`
	UpdatedAt       string            `json:"updatedAt,omitempty"`
}

// NewOrderNumber generates the human-readable unique order reference.
func NewOrderNumber() string {
	frag := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), frag)
}
