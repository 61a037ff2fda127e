package gateway

import "encoding/xml"

// Gateway numeric transaction statuses.
const (
	StatusAwaitingPayment = 1
	StatusInAnalysis      = 2
	StatusPaid            = 3
	StatusRefunded        = 6
	StatusCancelled       = 7
)

// ChargeCustomer is the buyer block of a charge payload.
type ChargeCustomer struct {
	Name  string `markup:"name"`
	Email string `markup:"email"`
	Phone string `markup:"phone,omitempty"`
}

// ChargeItem is one line of a charge payload.
type ChargeItem struct {
	ID          string  `markup:"id"`
	Description string  `markup:"description"`
	Quantity    int     `markup:"quantity"`
	Amount      float64 `markup:"amount"`
}

// ChargeShipping carries the destination and cost block.
type ChargeShipping struct {
	PostalCode string  `markup:"postalCode"`
	Cost       float64 `markup:"cost"`
}

// ChargeRequest is the full charge submission, serialised field-ordered
// under a <checkout> root.
type ChargeRequest struct {
	Reference string         `markup:"reference"`
	Method    string         `markup:"method"`
	Customer  ChargeCustomer `markup:"customer"`
	Items     []ChargeItem   `markup:"items"`
	Shipping  ChargeShipping `markup:"shipping"`
	Discount  float64        `markup:"discount,omitempty"`
	Total     float64        `markup:"total"`
}

// ChargeResponse is the processor's synchronous reply to a charge,
// parsed structurally from its markup body. The qrCode and emv fields
// arrive CDATA-wrapped.
type ChargeResponse struct {
	XMLName     xml.Name `xml:"transaction"`
	Code        string   `xml:"code"`
	Status      int      `xml:"status"`
	PaymentLink string   `xml:"paymentLink"`
	QRCode      string   `xml:"qrCode"`
	EMV         string   `xml:"emv"`
}

// TransactionStatus is the processor's reply to a signed notification or
// status query.
type TransactionStatus struct {
	XMLName   xml.Name `xml:"transaction"`
	Code      string   `xml:"code"`
	Reference string   `xml:"reference"`
	Status    int      `xml:"status"`
}

// Paid reports whether the transaction settled.
func (t *TransactionStatus) Paid() bool {
	return t.Status == StatusPaid
}

// Failed reports whether the transaction terminally failed.
func (t *TransactionStatus) Failed() bool {
	return t.Status == StatusCancelled
}
