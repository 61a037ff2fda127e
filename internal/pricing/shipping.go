package pricing

import (
	"strconv"
	"strings"
	"time"
)

// Shipping rate constants, in BRL and kilograms.
const (
	ShippingBaseRate      = 15.90
	ShippingPerKgRate     = 4.50
	ShippingWeightAllowKg = 1.0
	FreeShippingThreshold = 199.00
	defaultTransitDays    = 10
)

// shippingRegion maps an inclusive range of five-digit postal prefixes to
// estimated transit days.
type shippingRegion struct {
	fromPrefix int
	toPrefix   int
	days       int
}

// Five delivery regions by postal prefix; anything unmatched falls back to
// the slowest default.
var shippingRegions = []shippingRegion{
	{1000, 19999, 3},  // São Paulo state
	{20000, 29999, 4}, // Rio de Janeiro / Espírito Santo
	{30000, 49999, 5}, // Minas Gerais / Bahia / Sergipe
	{50000, 69999, 7}, // Northeast / North
	{70000, 89999, 8}, // Centre-West / South
}

// ShippingQuote is the result of a rate calculation.
type ShippingQuote struct {
	Cost              float64   `json:"cost"`
	IsFreeShipping    bool      `json:"isFreeShipping"`
	EstimatedDays     int       `json:"estimatedDays"`
	EstimatedDelivery time.Time `json:"estimatedDelivery"`
	FreeThreshold     float64   `json:"freeThreshold"`
	RemainingForFree  float64   `json:"remainingForFree"`
}

// CalculateShipping computes the shipping cost and transit estimate for a
// destination postal code, total item weight and cart subtotal. Base rate
// plus a per-kilogram surcharge above the 1 kg allowance; fully waived once
// the subtotal meets the free-shipping threshold. Deterministic, no I/O.
func CalculateShipping(postalCode string, weightKg, subtotal float64) ShippingQuote {
	quote := ShippingQuote{
		EstimatedDays: transitDays(postalCode),
		FreeThreshold: FreeShippingThreshold,
	}
	quote.EstimatedDelivery = time.Now().AddDate(0, 0, quote.EstimatedDays)

	if subtotal >= FreeShippingThreshold {
		quote.IsFreeShipping = true
		return quote
	}

	quote.RemainingForFree = FreeShippingThreshold - subtotal

	cost := ShippingBaseRate
	if weightKg > ShippingWeightAllowKg {
		cost += (weightKg - ShippingWeightAllowKg) * ShippingPerKgRate
	}
	quote.Cost = cost
	return quote
}

// transitDays resolves the estimated transit time from the postal-prefix
// region table.
func transitDays(postalCode string) int {
	prefix := postalPrefix(postalCode)
	if prefix < 0 {
		return defaultTransitDays
	}
	for _, r := range shippingRegions {
		if prefix >= r.fromPrefix && prefix <= r.toPrefix {
			return r.days
		}
	}
	return defaultTransitDays
}

// postalPrefix extracts the leading five digits of a CEP, tolerating the
// usual "01310-100" hyphenation. Returns -1 when unparseable.
func postalPrefix(postalCode string) int {
	digits := strings.ReplaceAll(strings.TrimSpace(postalCode), "-", "")
	if len(digits) < 5 {
		return -1
	}
	prefix, err := strconv.Atoi(digits[:5])
	if err != nil {
		return -1
	}
	return prefix
}
