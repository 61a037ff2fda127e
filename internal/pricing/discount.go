package pricing

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Discount sources, in stacking order.
const (
	SourceCoupon   = "coupon"
	SourceReferral = "referral"
	SourceLoyalty  = "loyalty"
	SourceGiftCard = "gift_card"
)

// CodeValidation is the contract exposed by the external coupon, referral
// and gift-card stores: the composer consumes the result, it does not own
// their persistence.
type CodeValidation struct {
	Valid          bool
	Percentage     float64 // discount percentage, 0 for fixed-amount codes
	Amount         float64 // fixed amount, or gift-card balance
	UsageRemaining int     // remaining redemptions; negative means unlimited
	ExpiresAt      time.Time
	Reason         string  // populated when Valid is false
}

// CodeValidator validates one family of discount codes.
type CodeValidator interface {
	Validate(ctx context.Context, code string) (CodeValidation, error)
}

// DiscountInput names the sources the buyer presented at checkout.
type DiscountInput struct {
	CouponCode        string
	ReferralCode      string
	GiftCardCode      string
	LoyaltyRedemption float64
}

// AppliedDiscount is one adjustment that made it into the stack.
type AppliedDiscount struct {
	Source string  `json:"source"`
	Code   string  `json:"code,omitempty"`
	Amount float64 `json:"amount"`
}

// DiscountFailure is a per-source structured rejection. A failed source
// never aborts the others.
type DiscountFailure struct {
	Source  string `json:"source"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// DiscountResult is the composed outcome. FinalTotal is never negative.
type DiscountResult struct {
	Discount          float64           `json:"discount"`
	Applied           []AppliedDiscount `json:"applied,omitempty"`
	Failures          []DiscountFailure `json:"failures,omitempty"`
	FinalTotal        float64           `json:"finalTotal"`
	GiftCardRemaining float64           `json:"giftCardRemaining"`
}

// Composer stacks discount adjustments in a fixed order: coupon, referral,
// loyalty redemption, gift card. Each step computes against the amount
// still payable after the previous steps, so the cumulative discount can
// never push the total below zero.
type Composer struct {
	coupons   CodeValidator
	referrals CodeValidator
	giftCards CodeValidator
	logger    zerolog.Logger
}

// NewComposer creates a discount composer over the three external code
// stores.
func NewComposer(coupons, referrals, giftCards CodeValidator, logger zerolog.Logger) *Composer {
	return &Composer{
		coupons:   coupons,
		referrals: referrals,
		giftCards: giftCards,
		logger:    logger.With().Str("component", "discount-composer").Logger(),
	}
}

// Compose computes the final chargeable total for the cart. Coupon and
// referral percentages are taken of the pre-discount subtotal and clamped
// to the remaining payable amount; the gift card applies against what is
// left of subtotal plus shipping and reports its remaining balance.
// Invalid, expired or exhausted codes degrade gracefully into per-source
// failures.
func (c *Composer) Compose(ctx context.Context, subtotal, shippingCost float64, in DiscountInput) DiscountResult {
	res := DiscountResult{}
	remaining := subtotal + shippingCost

	apply := func(source, code string, amount float64) {
		if amount <= 0 {
			return
		}
		if amount > remaining {
			amount = remaining
		}
		remaining -= amount
		res.Discount += amount
		res.Applied = append(res.Applied, AppliedDiscount{Source: source, Code: code, Amount: amount})
	}

	if in.CouponCode != "" {
		if amount, fail := c.resolveCode(ctx, c.coupons, SourceCoupon, in.CouponCode, subtotal); fail != nil {
			res.Failures = append(res.Failures, *fail)
		} else {
			apply(SourceCoupon, in.CouponCode, amount)
		}
	}

	if in.ReferralCode != "" {
		if amount, fail := c.resolveCode(ctx, c.referrals, SourceReferral, in.ReferralCode, subtotal); fail != nil {
			res.Failures = append(res.Failures, *fail)
		} else {
			apply(SourceReferral, in.ReferralCode, amount)
		}
	}

	if in.LoyaltyRedemption > 0 {
		apply(SourceLoyalty, "", in.LoyaltyRedemption)
	}

	if in.GiftCardCode != "" {
		v, fail := c.validate(ctx, c.giftCards, SourceGiftCard, in.GiftCardCode)
		if fail != nil {
			res.Failures = append(res.Failures, *fail)
		} else {
			applied := v.Amount
			if applied > remaining {
				applied = remaining
			}
			apply(SourceGiftCard, in.GiftCardCode, applied)
			res.GiftCardRemaining = v.Amount - applied
		}
	}

	res.FinalTotal = subtotal + shippingCost - res.Discount
	if res.FinalTotal < 0 {
		res.FinalTotal = 0
	}

	c.logger.Debug().
		Float64("subtotal", subtotal).
		Float64("shipping", shippingCost).
		Float64("discount", res.Discount).
		Float64("final_total", res.FinalTotal).
		Int("sources_applied", len(res.Applied)).
		Int("sources_failed", len(res.Failures)).
		Msg("discount stack composed")

	return res
}

// resolveCode validates a percentage-or-fixed code and converts it to a
// currency amount against the pre-discount subtotal.
func (c *Composer) resolveCode(ctx context.Context, validator CodeValidator, source, code string, subtotal float64) (float64, *DiscountFailure) {
	v, fail := c.validate(ctx, validator, source, code)
	if fail != nil {
		return 0, fail
	}
	if v.Percentage > 0 {
		return subtotal * v.Percentage / 100, nil
	}
	return v.Amount, nil
}

func (c *Composer) validate(ctx context.Context, validator CodeValidator, source, code string) (CodeValidation, *DiscountFailure) {
	if validator == nil {
		return CodeValidation{}, &DiscountFailure{Source: source, Code: code, Message: "not supported"}
	}

	v, err := validator.Validate(ctx, code)
	if err != nil {
		c.logger.Warn().Str("source", source).Str("code", code).Err(err).Msg("code validation failed")
		return CodeValidation{}, &DiscountFailure{Source: source, Code: code, Message: "could not be validated"}
	}
	if !v.Valid {
		reason := v.Reason
		if reason == "" {
			reason = "invalid code"
		}
		return CodeValidation{}, &DiscountFailure{Source: source, Code: code, Message: reason}
	}
	if !v.ExpiresAt.IsZero() && time.Now().After(v.ExpiresAt) {
		return CodeValidation{}, &DiscountFailure{Source: source, Code: code, Message: "code has expired"}
	}
	// UsageRemaining < 0 means the store imposes no usage limit.
	if v.UsageRemaining == 0 {
		return CodeValidation{}, &DiscountFailure{Source: source, Code: code, Message: "code has been fully used"}
	}
	return v, nil
}
