package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lojinha/internal/catalog"
	"lojinha/internal/gateway"
	"lojinha/internal/inventory"
	"lojinha/internal/model"
	"lojinha/internal/notify"
	"lojinha/internal/pricing"
	"lojinha/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Charger issues charges against the payment processor.
type Charger interface {
	Charge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResponse, error)
}

// Service owns the order lifecycle: checkout creates a PENDING order with
// an active reservation, gateway results advance the payment status, and
// payment outcome commits or releases the held stock.
type Service struct {
	orders       repository.OrderRepository
	payments     repository.PaymentRepository
	reservations *inventory.Manager
	ledger       *inventory.Ledger
	composer     *pricing.Composer
	catalog      catalog.Client
	charger      Charger
	notifier     notify.Notifier
	logger       zerolog.Logger
}

// NewService creates an order service.
func NewService(
	orders repository.OrderRepository,
	payments repository.PaymentRepository,
	reservations *inventory.Manager,
	ledger *inventory.Ledger,
	composer *pricing.Composer,
	catalogClient catalog.Client,
	charger Charger,
	notifier notify.Notifier,
	logger zerolog.Logger,
) *Service {
	return &Service{
		orders:       orders,
		payments:     payments,
		reservations: reservations,
		ledger:       ledger,
		composer:     composer,
		catalog:      catalogClient,
		charger:      charger,
		notifier:     notifier,
		logger:       logger.With().Str("service", "order").Logger(),
	}
}

// Checkout runs the full checkout: price and weigh the cart from the
// catalogue, compose discounts and shipping, reserve stock, create the
// order, and issue the charge. Stock is held before the gateway call and
// released again if the call fails, so no lock is ever held across the
// network.
func (s *Service) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if err := validateCheckout(req); err != nil {
		return nil, err
	}

	orderID := uuid.New()
	now := time.Now()
	number := generateOrderNumber(now)

	items := make([]model.OrderItem, 0, len(req.Items))
	resItems := make([]model.ReservationItem, 0, len(req.Items))
	subtotal := 0.0
	weightKg := 0.0

	for _, line := range req.Items {
		product, err := s.catalog.Item(ctx, line.ProductID)
		if err != nil {
			s.logger.Warn().
				Str("product_id", line.ProductID).
				Err(err).
				Msg("catalog lookup failed during checkout")
			return nil, err
		}

		items = append(items, model.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		})
		resItems = append(resItems, model.ReservationItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
		})
		subtotal += product.Price * float64(line.Quantity)
		weightKg += product.WeightKg * float64(line.Quantity)
	}

	quote := pricing.CalculateShipping(req.PostalCode, weightKg, subtotal)
	discounts := s.composer.Compose(ctx, subtotal, quote.Cost, pricing.DiscountInput{
		CouponCode:        deref(req.CouponCode),
		ReferralCode:      deref(req.ReferralCode),
		GiftCardCode:      deref(req.GiftCardCode),
		LoyaltyRedemption: req.LoyaltyRedemption,
	})

	if err := s.reservations.ReserveOrder(orderID, resItems); err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:            orderID,
		Number:        number,
		Customer:      req.Customer,
		Items:         items,
		Subtotal:      subtotal,
		ShippingCost:  quote.Cost,
		Discount:      discounts.Discount,
		Total:         discounts.FinalTotal,
		Status:        model.OrderPending,
		PaymentStatus: model.PaymentPending,
		CouponCode:    req.CouponCode,
		ReferralCode:  req.ReferralCode,
		PostalCode:    req.PostalCode,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.persistOrder(ctx, order); err != nil {
		s.reservations.ReleaseOrder(orderID)
		return nil, err
	}

	charge, err := s.charger.Charge(ctx, buildChargeRequest(order, req.PaymentMethod))
	if err != nil {
		// Compensating release: the buyer is told to retry, the stock
		// must not stay held for a charge that never happened.
		s.reservations.ReleaseOrder(orderID)
		order.PaymentStatus = model.PaymentFailed
		order.UpdatedAt = time.Now()
		if updateErr := s.orders.UpdateStatus(ctx, order); updateErr != nil {
			s.logger.Error().Err(updateErr).Str("order_number", number).Msg("failed to record payment failure")
		}
		s.logger.Warn().
			Str("order_number", number).
			Err(err).
			Msg("gateway charge failed, reservation released")
		return nil, err
	}

	txn := &model.PaymentTransaction{
		Code:          charge.Code,
		OrderID:       orderID,
		Method:        model.PaymentMethod(req.PaymentMethod),
		GatewayStatus: charge.Status,
		PaymentLink:   charge.PaymentLink,
		QRCode:        charge.QRCode,
		EMV:           charge.EMV,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := s.payments.Create(ctx, txn); err != nil {
		s.logger.Error().Err(err).Str("order_number", number).Msg("failed to persist payment transaction")
	}

	s.logger.Info().
		Str("order_number", number).
		Str("transaction_code", charge.Code).
		Float64("total", order.Total).
		Int("item_count", len(items)).
		Msg("order created")

	s.publish(notify.EventOrderConfirmed, order)

	messages := make([]string, 0, len(discounts.Failures))
	for _, f := range discounts.Failures {
		messages = append(messages, fmt.Sprintf("%s %s: %s", f.Source, f.Code, f.Message))
	}

	return &model.CheckoutResponse{
		Order:            order,
		DiscountMessages: messages,
		PaymentLink:      charge.PaymentLink,
		QRCode:           charge.QRCode,
		EMV:              charge.EMV,
	}, nil
}

// ApplyTransaction advances an order from a gateway transaction status,
// whether it arrived synchronously or through a webhook. Replays of an
// already-applied status are acknowledged as no-ops.
func (s *Service) ApplyTransaction(ctx context.Context, txn *gateway.TransactionStatus) error {
	order, err := s.orders.GetByNumber(ctx, txn.Reference)
	if err != nil {
		return fmt.Errorf("failed to load order for transaction: %w", err)
	}
	if order == nil {
		s.logger.Warn().
			Str("reference", txn.Reference).
			Str("transaction_code", txn.Code).
			Msg("transaction references unknown order")
		return model.ErrOrderNotFound
	}

	if err := s.payments.UpdateStatus(ctx, txn.Code, txn.Status); err != nil {
		s.logger.Error().Err(err).Str("transaction_code", txn.Code).Msg("failed to record gateway status")
	}

	switch {
	case txn.Paid():
		return s.markPaid(ctx, order)
	case txn.Failed():
		return s.markFailed(ctx, order)
	default:
		s.logger.Debug().
			Str("order_number", order.Number).
			Int("gateway_status", txn.Status).
			Msg("intermediate gateway status recorded")
		return nil
	}
}

// markPaid commits the reservation and confirms the order. The commit must
// succeed: a missing or released hold is a consistency violation that needs
// manual reconciliation against the movement log.
func (s *Service) markPaid(ctx context.Context, order *model.Order) error {
	if order.PaymentStatus == model.PaymentPaid {
		s.logger.Info().
			Str("order_number", order.Number).
			Msg("duplicate payment notification ignored")
		return nil
	}
	if !CanTransitionPayment(order.PaymentStatus, model.PaymentPaid) {
		s.logger.Error().
			Str("order_number", order.Number).
			Str("payment_status", string(order.PaymentStatus)).
			Msg("payment confirmation for order not awaiting payment")
		return model.ErrInvalidTransition
	}

	if err := s.reservations.CommitOrder(order.ID, order.Number); err != nil {
		s.logger.Error().
			Str("order_number", order.Number).
			Err(err).
			Msg("reservation commit failed on paid order, manual reconciliation required")
		return err
	}

	order.PaymentStatus = model.PaymentPaid
	if CanTransition(order.Status, model.OrderConfirmed) {
		order.Status = model.OrderConfirmed
	}
	order.UpdatedAt = time.Now()

	if err := s.orders.UpdateStatus(ctx, order); err != nil {
		return err
	}

	s.logger.Info().Str("order_number", order.Number).Msg("order paid")
	s.publish(notify.EventOrderPaid, order)
	return nil
}

// markFailed releases the held stock. A failure landing on an already
// terminal payment state is logged and ignored.
func (s *Service) markFailed(ctx context.Context, order *model.Order) error {
	if order.PaymentStatus == model.PaymentFailed {
		return nil
	}
	if !CanTransitionPayment(order.PaymentStatus, model.PaymentFailed) {
		s.logger.Warn().
			Str("order_number", order.Number).
			Str("payment_status", string(order.PaymentStatus)).
			Msg("payment failure for order not awaiting payment, ignored")
		return nil
	}

	s.reservations.ReleaseOrder(order.ID)
	order.PaymentStatus = model.PaymentFailed
	order.UpdatedAt = time.Now()

	if err := s.orders.UpdateStatus(ctx, order); err != nil {
		return err
	}

	s.logger.Info().Str("order_number", order.Number).Msg("payment failed, stock released")
	return nil
}

// MarkProcessing moves a confirmed order into fulfilment.
func (s *Service) MarkProcessing(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return s.transition(ctx, id, model.OrderProcessing, nil)
}

// Ship marks an order shipped. A tracking number is mandatory.
func (s *Service) Ship(ctx context.Context, id uuid.UUID, trackingNumber string) (*model.Order, error) {
	if strings.TrimSpace(trackingNumber) == "" {
		return nil, model.ErrTrackingRequired
	}
	order, err := s.transition(ctx, id, model.OrderShipped, &trackingNumber)
	if err != nil {
		return nil, err
	}
	s.publish(notify.EventOrderShipped, order)
	return order, nil
}

// MarkDelivered closes out fulfilment.
func (s *Service) MarkDelivered(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return s.transition(ctx, id, model.OrderDelivered, nil)
}

// Cancel cancels a non-terminal order and releases any held stock.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.transition(ctx, id, model.OrderCancelled, nil)
	if err != nil {
		return nil, err
	}
	s.reservations.ReleaseOrder(order.ID)
	return order, nil
}

// Refund refunds a paid order: the payment moves to REFUNDED, sold units
// return to stock, and fulfilment moves to REFUNDED unless it already
// reached a terminal state.
func (s *Service) Refund(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if !CanTransitionPayment(order.PaymentStatus, model.PaymentRefunded) {
		return nil, model.ErrInvalidTransition
	}

	for _, item := range order.Items {
		if err := s.ledger.Return(item.ProductID, item.Quantity, order.Number); err != nil {
			s.logger.Error().
				Err(err).
				Str("order_number", order.Number).
				Str("product_id", item.ProductID).
				Msg("failed to return stock on refund")
		}
	}

	order.PaymentStatus = model.PaymentRefunded
	if !Terminal(order.Status) {
		order.Status = model.OrderRefunded
	}
	order.UpdatedAt = time.Now()

	if err := s.orders.UpdateStatus(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info().Str("order_number", order.Number).Msg("order refunded")
	return order, nil
}

// GetByID retrieves an order with its items, or nil when absent.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// transition loads the order and applies a fulfilment move if legal.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to model.OrderStatus, trackingNumber *string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	if !CanTransition(order.Status, to) {
		s.logger.Warn().
			Str("order_number", order.Number).
			Str("from", string(order.Status)).
			Str("to", string(to)).
			Msg("illegal status transition rejected")
		return nil, model.ErrInvalidTransition
	}

	order.Status = to
	if trackingNumber != nil {
		order.TrackingNumber = trackingNumber
	}
	order.UpdatedAt = time.Now()

	if err := s.orders.UpdateStatus(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// persistOrder writes the order and its items in one transaction.
func (s *Service) persistOrder(ctx context.Context, order *model.Order) (err error) {
	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orders.CreateOrder(ctx, tx, order); err != nil {
		return err
	}
	if err = s.orders.CreateOrderItems(ctx, tx, order.Items); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// publish sends an order event best effort, after the transactional core
// has completed. A publication failure never fails the order.
func (s *Service) publish(eventType string, order *model.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.notifier.Publish(ctx, eventType, order); err != nil {
		s.logger.Warn().
			Err(err).
			Str("event_type", eventType).
			Str("order_number", order.Number).
			Msg("order event publication failed")
	}
}

func validateCheckout(req *model.CheckoutRequest) error {
	if req == nil {
		return model.NewDomainError(model.ErrCodeMissingField, "checkout request is nil")
	}
	if strings.TrimSpace(req.Customer.Name) == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "customer name is required")
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		return model.NewDomainError(model.ErrCodeMissingField, "customer email is required")
	}
	if len(req.PostalCode) < 5 {
		return model.NewDomainError(model.ErrCodeMissingField, "a valid postal code is required")
	}
	switch model.PaymentMethod(req.PaymentMethod) {
	case model.MethodCard, model.MethodTransfer, model.MethodBoleto:
	default:
		return model.NewDomainError(model.ErrCodeMissingField, "unsupported payment method")
	}
	if len(req.Items) == 0 {
		return model.NewDomainError(model.ErrCodeMissingField, "order must contain at least one item")
	}
	for i, item := range req.Items {
		if item.ProductID == "" {
			return model.NewDomainError(model.ErrCodeMissingField, fmt.Sprintf("item %d: product ID is required", i))
		}
		if item.Quantity <= 0 {
			return model.ErrInvalidQuantity
		}
	}
	if req.LoyaltyRedemption < 0 {
		return model.NewDomainError(model.ErrCodeMissingField, "loyalty redemption cannot be negative")
	}
	return nil
}

func buildChargeRequest(order *model.Order, method string) *gateway.ChargeRequest {
	items := make([]gateway.ChargeItem, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, gateway.ChargeItem{
			ID:          it.ProductID,
			Description: it.Name,
			Quantity:    it.Quantity,
			Amount:      it.UnitPrice,
		})
	}
	return &gateway.ChargeRequest{
		Reference: order.Number,
		Method:    method,
		Customer: gateway.ChargeCustomer{
			Name:  order.Customer.Name,
			Email: order.Customer.Email,
			Phone: order.Customer.Phone,
		},
		Items:    items,
		Shipping: gateway.ChargeShipping{PostalCode: order.PostalCode, Cost: order.ShippingCost},
		Discount: order.Discount,
		Total:    order.Total,
	}
}

// generateOrderNumber builds the human-displayable order number.
func generateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("LJ-%s-%s", now.Format("20060102"), suffix)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
