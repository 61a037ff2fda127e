package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is the buyer's chosen payment instrument.
type PaymentMethod string

const (
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
	MethodBoleto   PaymentMethod = "boleto"
)

// PaymentTransaction records one charge issued to the gateway, identified by
// the gateway's transaction code. Rows stop changing once the order reaches
// a terminal payment state.
type PaymentTransaction struct {
	Code          string        `json:"code" db:"code"`
	OrderID       uuid.UUID     `json:"orderId" db:"order_id"`
	Method        PaymentMethod `json:"method" db:"method"`
	GatewayStatus int           `json:"gatewayStatus" db:"gateway_status"`
	PaymentLink   string        `json:"paymentLink,omitempty" db:"payment_link"`
	QRCode        string        `json:"qrCode,omitempty" db:"qr_code"`
	EMV           string        `json:"emv,omitempty" db:"emv"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}
