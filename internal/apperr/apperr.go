package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can decide whether to retry,
// edit the cart, or give up.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindStock      Kind = "stock"
	KindSecurity   Kind = "security"
	KindGateway    Kind = "gateway"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"
)

// LineRef points at a specific cart line in a stock or validation error
// so the client can show the customer exactly what to fix.
type LineRef struct {
	VariantID int    `json:"variantID"`
	Quantity  int    `json:"quantity,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

type Error struct {
	Kind    Kind
	Message string
	Items   []LineRef
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithItems attaches the offending line items and returns the same error.
func (e *Error) WithItems(items []LineRef) *Error {
	e.Items = items
	return e
}

// KindOf extracts the classification of err, defaulting to internal for
// anything that was not raised through this package.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a classified error onto the status the handlers return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindStock:
		return http.StatusUnprocessableEntity
	case KindSecurity:
		return http.StatusForbidden
	case KindGateway:
		return http.StatusBadGateway
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Envelope builds the uniform error body used by every handler.
func Envelope(err error) map[string]interface{} {
	body := map[string]interface{}{
		"error":   string(KindOf(err)),
		"message": err.Error(),
	}
	var ae *Error
	if errors.As(err, &ae) {
		body["message"] = ae.Message
		if len(ae.Items) > 0 {
			body["items"] = ae.Items
		}
	}
	return body
}
