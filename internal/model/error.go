package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeTrackingRequired  = "TRACKING_REQUIRED"
	ErrCodeAdjustBelowHold   = "ADJUST_BELOW_RESERVED"
	ErrCodeGatewayError      = "GATEWAY_ERROR"
	ErrCodeConsistency       = "CONSISTENCY_VIOLATION"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// DomainError carries a stable error code alongside a user-facing message.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	// ErrInsufficientStock is the admission-control failure: a reservation
	// was requested for more units than are currently available.
	ErrInsufficientStock = NewDomainError(ErrCodeInsufficientStock, "Insufficient stock available")

	// ErrReservationConsistency indicates a commit was attempted against a
	// reservation that no longer holds the units (released, expired, or
	// never made). It must never be swallowed: it points at a race or a
	// lost gateway notification and needs manual reconciliation against
	// the movement log.
	ErrReservationConsistency = NewDomainError(ErrCodeConsistency, "Reservation no longer holds the committed units")

	ErrProductNotFound    = NewDomainError(ErrCodeProductNotFound, "One or more products not found")
	ErrOrderNotFound      = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidQuantity    = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrInvalidTransition  = NewDomainError(ErrCodeInvalidTransition, "Order status transition not permitted")
	ErrTrackingRequired   = NewDomainError(ErrCodeTrackingRequired, "A tracking number is required to mark an order shipped")
	ErrAdjustBelowReserve = NewDomainError(ErrCodeAdjustBelowHold, "Cannot adjust quantity below the reserved amount")
	ErrGatewayUnavailable = NewDomainError(ErrCodeGatewayError, "Payment processor is unavailable, please try again")
)
