package order

import "lojinha/internal/model"

// validNext encodes the fulfilment lifecycle. CANCELLED and REFUNDED are
// reachable from every non-terminal state; nothing leaves a terminal state.
var validNext = map[model.OrderStatus]map[model.OrderStatus]bool{
	model.OrderPending: {
		model.OrderConfirmed: true,
		model.OrderCancelled: true,
		model.OrderRefunded:  true,
	},
	model.OrderConfirmed: {
		model.OrderProcessing: true,
		model.OrderCancelled:  true,
		model.OrderRefunded:   true,
	},
	model.OrderProcessing: {
		model.OrderShipped:   true,
		model.OrderCancelled: true,
		model.OrderRefunded:  true,
	},
	model.OrderShipped: {
		model.OrderDelivered: true,
		model.OrderCancelled: true,
		model.OrderRefunded:  true,
	},
	model.OrderDelivered: {},
	model.OrderCancelled: {},
	model.OrderRefunded:  {},
}

// validPaymentNext encodes the payment lifecycle. REFUNDED is reachable
// only from PAID.
var validPaymentNext = map[model.PaymentStatus]map[model.PaymentStatus]bool{
	model.PaymentPending: {
		model.PaymentPaid:   true,
		model.PaymentFailed: true,
	},
	model.PaymentPaid: {
		model.PaymentRefunded: true,
	},
	model.PaymentFailed:   {},
	model.PaymentRefunded: {},
}

// CanTransition reports whether the fulfilment status may move from one
// state to another.
func CanTransition(from, to model.OrderStatus) bool {
	return validNext[from][to]
}

// CanTransitionPayment reports whether the payment status may move from one
// state to another.
func CanTransitionPayment(from, to model.PaymentStatus) bool {
	return validPaymentNext[from][to]
}

// Terminal reports whether the fulfilment status admits no further moves.
func Terminal(status model.OrderStatus) bool {
	return len(validNext[status]) == 0
}
