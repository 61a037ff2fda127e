package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfilment lifecycle of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

// PaymentStatus is the payment lifecycle, advanced only by gateway
// responses and notifications.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Customer holds the checkout contact details captured on the order.
type Customer struct {
	Name   string     `json:"name" db:"customer_name"`
	Email  string     `json:"email" db:"customer_email"`
	Phone  string     `json:"phone,omitempty" db:"customer_phone"`
	UserID *uuid.UUID `json:"userId,omitempty" db:"user_id"`
}

// OrderItem is a line item with the unit price captured at order time. The
// price is never re-read from the live catalogue afterwards.
type OrderItem struct {
	ID        uuid.UUID `json:"-" db:"id"`
	OrderID   uuid.UUID `json:"-" db:"order_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UnitPrice float64   `json:"unitPrice" db:"unit_price"`
}

// Order is created once per checkout and only ever status-transitioned,
// never deleted. Cancellation and refund are terminal states.
type Order struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	Number         string        `json:"number" db:"number"`
	Customer       Customer      `json:"customer"`
	Items          []OrderItem   `json:"items"`
	Subtotal       float64       `json:"subtotal" db:"subtotal"`
	ShippingCost   float64       `json:"shippingCost" db:"shipping_cost"`
	Discount       float64       `json:"discount" db:"discount"`
	Total          float64       `json:"total" db:"total"`
	Status         OrderStatus   `json:"status" db:"status"`
	PaymentStatus  PaymentStatus `json:"paymentStatus" db:"payment_status"`
	CouponCode     *string       `json:"couponCode,omitempty" db:"coupon_code"`
	ReferralCode   *string       `json:"referralCode,omitempty" db:"referral_code"`
	TrackingNumber *string       `json:"trackingNumber,omitempty" db:"tracking_number"`
	PostalCode     string        `json:"postalCode" db:"postal_code"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time     `json:"updatedAt" db:"updated_at"`
}

// CheckoutRequest is the payload for creating an order.
type CheckoutRequest struct {
	Customer          Customer       `json:"customer"`
	Items             []CheckoutItem `json:"items"`
	PostalCode        string         `json:"postalCode"`
	PaymentMethod     string         `json:"paymentMethod"`
	CouponCode        *string        `json:"couponCode,omitempty"`
	ReferralCode      *string        `json:"referralCode,omitempty"`
	GiftCardCode      *string        `json:"giftCardCode,omitempty"`
	LoyaltyRedemption float64        `json:"loyaltyRedemption,omitempty"`
}

// CheckoutItem is a single requested line item.
type CheckoutItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CheckoutResponse returns the created order plus the gateway artifacts the
// buyer needs to complete payment.
type CheckoutResponse struct {
	Order            *Order   `json:"order"`
	DiscountMessages []string `json:"discountMessages,omitempty"`
	PaymentLink      string   `json:"paymentLink,omitempty"`
	QRCode           string   `json:"qrCode,omitempty"`
	EMV              string   `json:"emv,omitempty"`
}
