// Package promo backs the discount composer's code validators. Each code
// family (coupons, referrals, gift cards) lives in its own store, loaded
// from definition files at startup or proxied to the promotions service
// over HTTP.
package promo

import (
	"context"
	"strings"
	"sync"
	"time"

	"lojinha/internal/pricing"

	"github.com/rs/zerolog"
)

// Definition is one discount code as the promotion files describe it.
// Percentage and Amount are mutually exclusive; UsageLimit zero means the
// code has no redemption cap.
type Definition struct {
	Code       string    `json:"code"`
	Percentage float64   `json:"percentage,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	UsageLimit int       `json:"usageLimit,omitempty"`
	Used       int       `json:"used,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt,omitempty"`
}

// Store holds one code family in memory for O(1) validation.
type Store struct {
	mu     sync.RWMutex
	codes  map[string]Definition
	logger zerolog.Logger
}

// NewStore creates an empty code store.
func NewStore(logger zerolog.Logger) *Store {
	return &Store{
		codes:  make(map[string]Definition),
		logger: logger.With().Str("component", "promo-store").Logger(),
	}
}

// Put inserts or replaces a code definition. Codes are case-insensitive.
func (s *Store) Put(def Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[strings.ToUpper(def.Code)] = def
}

// Size returns the number of codes in the store.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.codes)
}

// Validate implements pricing.CodeValidator against the in-memory store.
func (s *Store) Validate(_ context.Context, code string) (pricing.CodeValidation, error) {
	s.mu.RLock()
	def, ok := s.codes[strings.ToUpper(code)]
	s.mu.RUnlock()

	if !ok {
		return pricing.CodeValidation{Valid: false, Reason: "code not found"}, nil
	}

	remaining := -1
	if def.UsageLimit > 0 {
		remaining = def.UsageLimit - def.Used
		if remaining < 0 {
			remaining = 0
		}
	}

	return pricing.CodeValidation{
		Valid:          true,
		Percentage:     def.Percentage,
		Amount:         def.Amount,
		UsageRemaining: remaining,
		ExpiresAt:      def.ExpiresAt,
	}, nil
}
