package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCodeValidator is a mock implementation of CodeValidator.
type MockCodeValidator struct {
	mock.Mock
}

func (m *MockCodeValidator) Validate(ctx context.Context, code string) (CodeValidation, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(CodeValidation), args.Error(1)
}

func percentCoupon(pct float64) CodeValidation {
	return CodeValidation{Valid: true, Percentage: pct, UsageRemaining: -1}
}

func fixedCode(amount float64) CodeValidation {
	return CodeValidation{Valid: true, Amount: amount, UsageRemaining: -1}
}

func TestComposer_CouponPercentageAgainstSubtotal(t *testing.T) {
	coupons := new(MockCodeValidator)
	coupons.On("Validate", mock.Anything, "DEZOFF").Return(percentCoupon(10), nil)

	c := NewComposer(coupons, nil, nil, zerolog.Nop())
	res := c.Compose(context.Background(), 100, 15, DiscountInput{CouponCode: "DEZOFF"})

	require.Len(t, res.Applied, 1)
	assert.Equal(t, 10.0, res.Applied[0].Amount, "10%% of the pre-discount subtotal")
	assert.Equal(t, 105.0, res.FinalTotal)
	assert.Empty(t, res.Failures)
	coupons.AssertExpectations(t)
}

func TestComposer_StackingOrderAndRemainingAmount(t *testing.T) {
	coupons := new(MockCodeValidator)
	coupons.On("Validate", mock.Anything, "VINTE").Return(percentCoupon(20), nil)
	referrals := new(MockCodeValidator)
	referrals.On("Validate", mock.Anything, "AMIGO").Return(fixedCode(30), nil)
	giftCards := new(MockCodeValidator)
	giftCards.On("Validate", mock.Anything, "GC-1").Return(fixedCode(500), nil)

	c := NewComposer(coupons, referrals, giftCards, zerolog.Nop())
	res := c.Compose(context.Background(), 100, 20, DiscountInput{
		CouponCode:        "VINTE",
		ReferralCode:      "AMIGO",
		GiftCardCode:      "GC-1",
		LoyaltyRedemption: 15,
	})

	require.Len(t, res.Applied, 4)
	assert.Equal(t, SourceCoupon, res.Applied[0].Source)
	assert.Equal(t, SourceReferral, res.Applied[1].Source)
	assert.Equal(t, SourceLoyalty, res.Applied[2].Source)
	assert.Equal(t, SourceGiftCard, res.Applied[3].Source)

	// 120 payable - 20 coupon - 30 referral - 15 loyalty = 55 left, so the
	// 500 gift card only contributes 55 and keeps the rest.
	assert.Equal(t, 55.0, res.Applied[3].Amount)
	assert.Equal(t, 0.0, res.FinalTotal)
	assert.Equal(t, 445.0, res.GiftCardRemaining)
	assert.Equal(t, 120.0, res.Discount)
}

func TestComposer_GiftCardPartialUse(t *testing.T) {
	giftCards := new(MockCodeValidator)
	giftCards.On("Validate", mock.Anything, "GC-30").Return(fixedCode(30), nil)

	c := NewComposer(nil, nil, giftCards, zerolog.Nop())
	res := c.Compose(context.Background(), 40, 10, DiscountInput{GiftCardCode: "GC-30"})

	assert.Equal(t, 30.0, res.Discount)
	assert.Equal(t, 0.0, res.GiftCardRemaining)
	assert.Equal(t, 20.0, res.FinalTotal)
}

func TestComposer_FinalTotalNeverNegative(t *testing.T) {
	coupons := new(MockCodeValidator)
	coupons.On("Validate", mock.Anything, "GIGANTE").Return(fixedCode(10000), nil)

	c := NewComposer(coupons, nil, nil, zerolog.Nop())
	res := c.Compose(context.Background(), 50, 10, DiscountInput{
		CouponCode:        "GIGANTE",
		LoyaltyRedemption: 999,
	})

	assert.Equal(t, 0.0, res.FinalTotal)
	assert.Equal(t, 60.0, res.Discount, "discount is clamped to the payable amount")
}

func TestComposer_InvalidSourcesDegradeGracefully(t *testing.T) {
	coupons := new(MockCodeValidator)
	coupons.On("Validate", mock.Anything, "EXPIRADO").Return(CodeValidation{
		Valid:          true,
		Percentage:     15,
		UsageRemaining: -1,
		ExpiresAt:      time.Now().Add(-time.Hour),
	}, nil)
	referrals := new(MockCodeValidator)
	referrals.On("Validate", mock.Anything, "AMIGO").Return(fixedCode(5), nil)
	giftCards := new(MockCodeValidator)
	giftCards.On("Validate", mock.Anything, "GC-X").Return(CodeValidation{}, errors.New("store unreachable"))

	c := NewComposer(coupons, referrals, giftCards, zerolog.Nop())
	res := c.Compose(context.Background(), 100, 0, DiscountInput{
		CouponCode:   "EXPIRADO",
		ReferralCode: "AMIGO",
		GiftCardCode: "GC-X",
	})

	// The valid referral still applies despite the two failed sources.
	require.Len(t, res.Applied, 1)
	assert.Equal(t, SourceReferral, res.Applied[0].Source)
	assert.Equal(t, 95.0, res.FinalTotal)

	require.Len(t, res.Failures, 2)
	assert.Equal(t, SourceCoupon, res.Failures[0].Source)
	assert.Contains(t, res.Failures[0].Message, "expired")
	assert.Equal(t, SourceGiftCard, res.Failures[1].Source)
}

func TestComposer_ExhaustedCodeRejected(t *testing.T) {
	coupons := new(MockCodeValidator)
	coupons.On("Validate", mock.Anything, "ESGOTADO").Return(CodeValidation{
		Valid:          true,
		Percentage:     10,
		UsageRemaining: 0,
	}, nil)

	c := NewComposer(coupons, nil, nil, zerolog.Nop())
	res := c.Compose(context.Background(), 100, 0, DiscountInput{CouponCode: "ESGOTADO"})

	assert.Empty(t, res.Applied)
	require.Len(t, res.Failures, 1)
	assert.Contains(t, res.Failures[0].Message, "fully used")
	assert.Equal(t, 100.0, res.FinalTotal)
}

func TestComposer_IdempotentForIdenticalInputs(t *testing.T) {
	coupons := new(MockCodeValidator)
	coupons.On("Validate", mock.Anything, "DEZOFF").Return(percentCoupon(10), nil)
	giftCards := new(MockCodeValidator)
	giftCards.On("Validate", mock.Anything, "GC-1").Return(fixedCode(25), nil)

	c := NewComposer(coupons, nil, giftCards, zerolog.Nop())
	in := DiscountInput{CouponCode: "DEZOFF", GiftCardCode: "GC-1", LoyaltyRedemption: 5}

	first := c.Compose(context.Background(), 80, 12, in)
	second := c.Compose(context.Background(), 80, 12, in)

	assert.Equal(t, first, second, "composition must be a pure function of its inputs")
}
