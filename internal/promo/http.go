package promo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lojinha/internal/pricing"

	"github.com/rs/zerolog"
)

// HTTPValidator validates codes against the promotions service. Each
// validator is scoped to one code family path segment (coupons, referrals,
// giftcards).
type HTTPValidator struct {
	client  *http.Client
	baseURL string
	family  string
	logger  zerolog.Logger
}

// NewHTTPValidator creates a validator for one code family.
func NewHTTPValidator(baseURL, family string, logger zerolog.Logger) *HTTPValidator {
	return &HTTPValidator{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		family:  family,
		logger:  logger.With().Str("component", "promo-client").Str("family", family).Logger(),
	}
}

// Validate implements pricing.CodeValidator over the promotions service.
func (v *HTTPValidator) Validate(ctx context.Context, code string) (pricing.CodeValidation, error) {
	endpoint := fmt.Sprintf("%s/v1/%s/%s", v.baseURL, v.family, url.PathEscape(code))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pricing.CodeValidation{}, fmt.Errorf("failed to build promo request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Error().Err(err).Str("code", code).Msg("promo lookup failed")
		return pricing.CodeValidation{}, fmt.Errorf("promo lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return pricing.CodeValidation{Valid: false, Reason: "code not found"}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return pricing.CodeValidation{}, fmt.Errorf("promotions service returned status %d", resp.StatusCode)
	}

	var body struct {
		Valid          bool      `json:"valid"`
		Percentage     float64   `json:"percentage"`
		Amount         float64   `json:"amount"`
		UsageRemaining *int      `json:"usageRemaining"`
		ExpiresAt      time.Time `json:"expiresAt"`
		Reason         string    `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return pricing.CodeValidation{}, fmt.Errorf("failed to decode promo response: %w", err)
	}

	remaining := -1
	if body.UsageRemaining != nil {
		remaining = *body.UsageRemaining
	}

	return pricing.CodeValidation{
		Valid:          body.Valid,
		Percentage:     body.Percentage,
		Amount:         body.Amount,
		UsageRemaining: remaining,
		ExpiresAt:      body.ExpiresAt,
		Reason:         body.Reason,
	}, nil
}
