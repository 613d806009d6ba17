package payment

import "errors"

var ErrNotFound = errors.New("payment not found")

type Status string

const (
	StatusPending           Status = "pending"
	StatusPaid              Status = "paid"
	StatusFailed            Status = "failed"
	StatusRefunded          Status = "refunded"
	StatusPartiallyRefunded Status = "partially_refunded"
)

// Payment tracks a gateway intent locally. OrderNumber stays nil until the
// order exists; that nullable linkage is what makes the two-phase commit
// reconcilable (an intent with no linked order is an orphan to sweep).
type Payment struct {
	IntentID    string  `json:"intentID"`
	PaymentID   *string `json:"paymentID,omitempty"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Method      string  `json:"method"`
	Status      Status  `json:"status"`
	OrderNumber *string `json:"orderNumber,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}
