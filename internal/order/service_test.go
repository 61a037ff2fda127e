package order

import (
	"context"
	"testing"
	"time"

	"lojinha/internal/catalog"
	"lojinha/internal/gateway"
	"lojinha/internal/inventory"
	"lojinha/internal/model"
	"lojinha/internal/pricing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of repository.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of repository.PaymentRepository.
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, txn *model.PaymentTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, code string, gatewayStatus int) error {
	args := m.Called(ctx, code, gatewayStatus)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByCode(ctx context.Context, code string) (*model.PaymentTransaction, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentTransaction), args.Error(1)
}

// MockCharger is a mock implementation of Charger.
type MockCharger struct {
	mock.Mock
}

func (m *MockCharger) Charge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeResponse), args.Error(1)
}

// MockNotifier records published events.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Publish(ctx context.Context, eventType string, o *model.Order) error {
	args := m.Called(ctx, eventType, o)
	return args.Error(0)
}

func (m *MockNotifier) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx - not used in these tests.
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// fixture wires a service over a real in-memory ledger and mocked
// persistence and gateway.
type fixture struct {
	svc      *Service
	ledger   *inventory.Ledger
	manager  *inventory.Manager
	orders   *MockOrderRepository
	payments *MockPaymentRepository
	charger  *MockCharger
	notifier *MockNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()

	ledger := inventory.NewLedger(logger)
	require.NoError(t, ledger.Restock("P001", 10, "seed"))
	require.NoError(t, ledger.Restock("P002", 5, "seed"))
	manager := inventory.NewManager(ledger, 30*time.Minute, time.Minute, logger)

	catalogClient := catalog.NewStaticClient([]catalog.Item{
		{ID: "P001", Name: "Filtro de café", Price: 12.50, WeightKg: 0.2},
		{ID: "P002", Name: "Caneca esmaltada", Price: 29.90, WeightKg: 0.5},
	})

	composer := pricing.NewComposer(nil, nil, nil, logger)

	f := &fixture{
		ledger:   ledger,
		manager:  manager,
		orders:   new(MockOrderRepository),
		payments: new(MockPaymentRepository),
		charger:  new(MockCharger),
		notifier: new(MockNotifier),
	}
	f.svc = NewService(f.orders, f.payments, manager, ledger, composer, catalogClient, f.charger, f.notifier, logger)
	return f
}

func checkoutFixture() *model.CheckoutRequest {
	return &model.CheckoutRequest{
		Customer:      model.Customer{Name: "Maria Souza", Email: "maria@example.com"},
		Items:         []model.CheckoutItem{{ProductID: "P001", Quantity: 2}},
		PostalCode:    "01310-100",
		PaymentMethod: "transfer",
	}
}

func expectPersistOrder(f *fixture) *MockTx {
	tx := new(MockTx)
	tx.On("Commit", mock.Anything).Return(nil)
	f.orders.On("BeginTx", mock.Anything).Return(tx, nil)
	f.orders.On("CreateOrder", mock.Anything, tx, mock.AnythingOfType("*model.Order")).Return(nil)
	f.orders.On("CreateOrderItems", mock.Anything, tx, mock.AnythingOfType("[]model.OrderItem")).Return(nil)
	return tx
}

func TestService_Checkout_Success(t *testing.T) {
	f := newFixture(t)
	expectPersistOrder(f)
	f.payments.On("Create", mock.Anything, mock.AnythingOfType("*model.PaymentTransaction")).Return(nil)
	f.notifier.On("Publish", mock.Anything, "order.confirmed", mock.Anything).Return(nil)
	f.charger.On("Charge", mock.Anything, mock.AnythingOfType("*gateway.ChargeRequest")).
		Return(&gateway.ChargeResponse{
			Code:        "TX-1",
			Status:      gateway.StatusAwaitingPayment,
			PaymentLink: "https://pay.example.com/TX-1",
		}, nil)

	resp, err := f.svc.Checkout(context.Background(), checkoutFixture())
	require.NoError(t, err)

	assert.Equal(t, model.OrderPending, resp.Order.Status)
	assert.Equal(t, model.PaymentPending, resp.Order.PaymentStatus)
	assert.Equal(t, 25.0, resp.Order.Subtotal, "unit price captured from the catalogue")
	assert.Equal(t, pricing.ShippingBaseRate, resp.Order.ShippingCost)
	assert.Equal(t, "https://pay.example.com/TX-1", resp.PaymentLink)
	assert.NotEmpty(t, resp.Order.Number)

	// Stock is held, not yet deducted.
	rec, err := f.ledger.Get("P001")
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Quantity)
	assert.Equal(t, 2, rec.Reserved)

	f.orders.AssertExpectations(t)
	f.charger.AssertExpectations(t)
}

func TestService_Checkout_InsufficientStock(t *testing.T) {
	f := newFixture(t)

	req := checkoutFixture()
	req.Items = []model.CheckoutItem{{ProductID: "P002", Quantity: 6}}

	_, err := f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	// Admission failure happens before any persistence or gateway call.
	f.orders.AssertNotCalled(t, "BeginTx", mock.Anything)
	f.charger.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
}

func TestService_Checkout_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	req := checkoutFixture()
	req.Items = []model.CheckoutItem{{ProductID: "P404", Quantity: 1}}

	_, err := f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrProductNotFound)
}

func TestService_Checkout_GatewayFailureReleasesStock(t *testing.T) {
	f := newFixture(t)
	expectPersistOrder(f)
	f.orders.On("UpdateStatus", mock.Anything, mock.AnythingOfType("*model.Order")).Return(nil)
	f.charger.On("Charge", mock.Anything, mock.Anything).Return(nil, model.ErrGatewayUnavailable)

	req := checkoutFixture()
	req.Items = []model.CheckoutItem{{ProductID: "P001", Quantity: 3}}

	_, err := f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrGatewayUnavailable)

	// Compensating release: available restored to the pre-reservation value.
	rec, lerr := f.ledger.Get("P001")
	require.NoError(t, lerr)
	assert.Equal(t, 0, rec.Reserved)
	assert.Equal(t, 10, rec.Available)

	// The order is left PENDING with a failed payment, never silently dropped.
	f.orders.AssertCalled(t, "UpdateStatus", mock.Anything, mock.MatchedBy(func(o *model.Order) bool {
		return o.PaymentStatus == model.PaymentFailed && o.Status == model.OrderPending
	}))
}

func TestService_Checkout_ValidationFailures(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(*model.CheckoutRequest)
	}{
		{"missing name", func(r *model.CheckoutRequest) { r.Customer.Name = "" }},
		{"missing email", func(r *model.CheckoutRequest) { r.Customer.Email = "" }},
		{"short postal code", func(r *model.CheckoutRequest) { r.PostalCode = "123" }},
		{"bad payment method", func(r *model.CheckoutRequest) { r.PaymentMethod = "cheque" }},
		{"no items", func(r *model.CheckoutRequest) { r.Items = nil }},
		{"zero quantity", func(r *model.CheckoutRequest) { r.Items[0].Quantity = 0 }},
		{"negative loyalty", func(r *model.CheckoutRequest) { r.LoyaltyRedemption = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := checkoutFixture()
			tt.mutate(req)

			_, err := f.svc.Checkout(context.Background(), req)
			require.Error(t, err)

			var de *model.DomainError
			assert.ErrorAs(t, err, &de)
		})
	}

	// Validation failures never touch the ledger.
	rec, _ := f.ledger.Get("P001")
	assert.Equal(t, 0, rec.Reserved)
}

// paidOrder runs a successful checkout and returns the created order.
func paidOrder(t *testing.T, f *fixture) *model.Order {
	t.Helper()
	expectPersistOrder(f)
	f.payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.payments.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.orders.On("UpdateStatus", mock.Anything, mock.Anything).Return(nil)
	f.charger.On("Charge", mock.Anything, mock.Anything).
		Return(&gateway.ChargeResponse{Code: "TX-1", Status: gateway.StatusAwaitingPayment}, nil)

	resp, err := f.svc.Checkout(context.Background(), checkoutFixture())
	require.NoError(t, err)
	return resp.Order
}

func TestService_ApplyTransaction_PaidCommitsReservation(t *testing.T) {
	f := newFixture(t)
	order := paidOrder(t, f)
	f.orders.On("GetByNumber", mock.Anything, order.Number).Return(order, nil)

	err := f.svc.ApplyTransaction(context.Background(), &gateway.TransactionStatus{
		Code: "TX-1", Reference: order.Number, Status: gateway.StatusPaid,
	})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentPaid, order.PaymentStatus)
	assert.Equal(t, model.OrderConfirmed, order.Status)

	// The committed units physically left stock with an out movement.
	rec, _ := f.ledger.Get("P001")
	assert.Equal(t, 8, rec.Quantity)
	assert.Equal(t, 0, rec.Reserved)

	movements := f.ledger.Movements("P001")
	last := movements[len(movements)-1]
	assert.Equal(t, model.MovementOut, last.Kind)
	assert.Equal(t, -2, last.Delta)
	assert.Equal(t, order.Number, last.OrderRef)
}

func TestService_ApplyTransaction_ReplayIsNoOp(t *testing.T) {
	f := newFixture(t)
	order := paidOrder(t, f)
	f.orders.On("GetByNumber", mock.Anything, order.Number).Return(order, nil)

	txn := &gateway.TransactionStatus{Code: "TX-1", Reference: order.Number, Status: gateway.StatusPaid}
	require.NoError(t, f.svc.ApplyTransaction(context.Background(), txn))
	require.NoError(t, f.svc.ApplyTransaction(context.Background(), txn), "replay must be acknowledged as a no-op")

	// No double deduction and no duplicate out movement.
	rec, _ := f.ledger.Get("P001")
	assert.Equal(t, 8, rec.Quantity)

	outMovements := 0
	for _, m := range f.ledger.Movements("P001") {
		if m.Kind == model.MovementOut {
			outMovements++
		}
	}
	assert.Equal(t, 1, outMovements)

	f.notifier.AssertNumberOfCalls(t, "Publish", 2) // order.confirmed + one order.paid
}

func TestService_ApplyTransaction_FailedReleasesStock(t *testing.T) {
	f := newFixture(t)
	order := paidOrder(t, f)
	f.orders.On("GetByNumber", mock.Anything, order.Number).Return(order, nil)

	err := f.svc.ApplyTransaction(context.Background(), &gateway.TransactionStatus{
		Code: "TX-1", Reference: order.Number, Status: gateway.StatusCancelled,
	})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentFailed, order.PaymentStatus)

	rec, _ := f.ledger.Get("P001")
	assert.Equal(t, 0, rec.Reserved)
	assert.Equal(t, 10, rec.Available)
}

func TestService_ApplyTransaction_CommitAfterReleaseIsFatal(t *testing.T) {
	f := newFixture(t)
	order := paidOrder(t, f)
	f.orders.On("GetByNumber", mock.Anything, order.Number).Return(order, nil)

	// The hold lapses (sweep or failure) before the paid notification lands.
	f.manager.ReleaseOrder(order.ID)

	err := f.svc.ApplyTransaction(context.Background(), &gateway.TransactionStatus{
		Code: "TX-1", Reference: order.Number, Status: gateway.StatusPaid,
	})
	assert.ErrorIs(t, err, model.ErrReservationConsistency)

	// The order must not be marked paid on a failed commit.
	assert.Equal(t, model.PaymentPending, order.PaymentStatus)
}

func TestService_ApplyTransaction_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	f.payments.On("UpdateStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.orders.On("GetByNumber", mock.Anything, "LJ-NOPE").Return(nil, nil)

	err := f.svc.ApplyTransaction(context.Background(), &gateway.TransactionStatus{
		Code: "TX-9", Reference: "LJ-NOPE", Status: gateway.StatusPaid,
	})
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestService_ApplyTransaction_IntermediateStatusOnlyRecorded(t *testing.T) {
	f := newFixture(t)
	order := paidOrder(t, f)
	f.orders.On("GetByNumber", mock.Anything, order.Number).Return(order, nil)

	err := f.svc.ApplyTransaction(context.Background(), &gateway.TransactionStatus{
		Code: "TX-1", Reference: order.Number, Status: gateway.StatusInAnalysis,
	})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentPending, order.PaymentStatus)
	rec, _ := f.ledger.Get("P001")
	assert.Equal(t, 2, rec.Reserved, "the hold stays while the gateway analyses")
}

func TestService_Ship_RequiresTrackingNumber(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Ship(context.Background(), uuid.New(), "  ")
	assert.ErrorIs(t, err, model.ErrTrackingRequired)
	f.orders.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestService_Ship_FromProcessing(t *testing.T) {
	f := newFixture(t)
	order := &model.Order{ID: uuid.New(), Number: "LJ-1", Status: model.OrderProcessing, PaymentStatus: model.PaymentPaid}
	f.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)
	f.orders.On("UpdateStatus", mock.Anything, order).Return(nil)
	f.notifier.On("Publish", mock.Anything, "order.shipped", order).Return(nil)

	updated, err := f.svc.Ship(context.Background(), order.ID, "BR123456789")
	require.NoError(t, err)

	assert.Equal(t, model.OrderShipped, updated.Status)
	require.NotNil(t, updated.TrackingNumber)
	assert.Equal(t, "BR123456789", *updated.TrackingNumber)
}

func TestService_Ship_IllegalFromPending(t *testing.T) {
	f := newFixture(t)
	order := &model.Order{ID: uuid.New(), Number: "LJ-1", Status: model.OrderPending, PaymentStatus: model.PaymentPending}
	f.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	_, err := f.svc.Ship(context.Background(), order.ID, "BR123456789")
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestService_Cancel_ReleasesHeldStock(t *testing.T) {
	f := newFixture(t)
	order := paidOrder(t, f)
	f.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	updated, err := f.svc.Cancel(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, model.OrderCancelled, updated.Status)
	rec, _ := f.ledger.Get("P001")
	assert.Equal(t, 0, rec.Reserved)
	assert.Equal(t, 10, rec.Available)
}

func TestService_Cancel_TerminalOrderRejected(t *testing.T) {
	f := newFixture(t)
	order := &model.Order{ID: uuid.New(), Number: "LJ-1", Status: model.OrderDelivered, PaymentStatus: model.PaymentPaid}
	f.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	_, err := f.svc.Cancel(context.Background(), order.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestService_Refund_ReturnsStock(t *testing.T) {
	f := newFixture(t)
	order := paidOrder(t, f)
	f.orders.On("GetByNumber", mock.Anything, order.Number).Return(order, nil)
	f.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	require.NoError(t, f.svc.ApplyTransaction(context.Background(), &gateway.TransactionStatus{
		Code: "TX-1", Reference: order.Number, Status: gateway.StatusPaid,
	}))

	updated, err := f.svc.Refund(context.Background(), order.ID)
	require.NoError(t, err)

	assert.Equal(t, model.PaymentRefunded, updated.PaymentStatus)
	assert.Equal(t, model.OrderRefunded, updated.Status)

	rec, _ := f.ledger.Get("P001")
	assert.Equal(t, 10, rec.Quantity, "refunded units return to stock")

	movements := f.ledger.Movements("P001")
	last := movements[len(movements)-1]
	assert.Equal(t, model.MovementReturn, last.Kind)
	assert.Equal(t, 2, last.Delta)
}

func TestService_Refund_RequiresPaid(t *testing.T) {
	f := newFixture(t)
	order := &model.Order{ID: uuid.New(), Number: "LJ-1", Status: model.OrderPending, PaymentStatus: model.PaymentPending}
	f.orders.On("GetByID", mock.Anything, order.ID).Return(order, nil)

	_, err := f.svc.Refund(context.Background(), order.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestGenerateOrderNumber(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	number := generateOrderNumber(now)

	assert.Regexp(t, `^LJ-20260901-[0-9A-F]{8}$`, number)
	assert.NotEqual(t, number, generateOrderNumber(now))
}
