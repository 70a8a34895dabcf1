package ticks

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
)

const priceDivPrecision = 40

var (
	one        = decimal.NewFromInt(1)
	q96Decimal = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 96), 0)
)

// PriceToTick converts a human price (quote units per one base unit)
// into the nearest valid pool tick for the fee tier.
//
// The supplied price is re-expressed in the pool's token1-per-token0
// convention, normalized to raw smallest-unit terms, mapped onto the
// exact sqrt-ratio curve, and quantized to the tier's tick grid.
func PriceToTick(price decimal.Decimal, base, quote model.Token, fee model.FeeTier) (int32, error) {
	const op = "ticks.PriceToTick"

	if price.Sign() <= 0 {
		return 0, model.Errorf(model.ErrInvalidInput, op, "price must be positive, got %s", price)
	}
	if base.Equal(quote) {
		return 0, model.Errorf(model.ErrInvalidInput, op, "base and quote token are the same address %s", base.Address.Hex())
	}
	spacing := fee.TickSpacing()
	if spacing == 0 {
		return 0, model.Errorf(model.ErrInvalidInput, op, "unrecognized fee tier %d", fee)
	}

	rawRatio, err := poolRatio(price, base, quote, op)
	if err != nil {
		return 0, err
	}

	sqrtX96, err := sqrtRatioX96FromRatio(rawRatio)
	if err != nil {
		return 0, model.WrapError(model.ErrOutOfRange, op, err)
	}
	if sqrtX96.Cmp(MinSqrtRatio) < 0 || sqrtX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, model.Errorf(model.ErrOutOfRange, op, "price %s maps outside the tick curve", price)
	}

	rawTick, err := TickAtSqrtRatio(sqrtX96)
	if err != nil {
		return 0, model.WrapError(model.ErrOutOfRange, op, err)
	}

	tick := AlignTick(rawTick, spacing)
	tick = clampToGrid(tick, spacing)
	if tick < MinTick || tick > MaxTick {
		return 0, model.Errorf(model.ErrOutOfRange, op, "quantized tick %d outside [%d, %d]", tick, MinTick, MaxTick)
	}
	return tick, nil
}

// TickToPrice converts a tick back to a human price in quote units per
// one base unit. Inverse of the orientation and decimal handling in
// PriceToTick, modulo tick quantization.
func TickToPrice(tick int32, base, quote model.Token) (decimal.Decimal, error) {
	const op = "ticks.TickToPrice"

	if tick < MinTick || tick > MaxTick {
		return decimal.Zero, model.Errorf(model.ErrOutOfRange, op, "tick %d outside [%d, %d]", tick, MinTick, MaxTick)
	}
	if base.Equal(quote) {
		return decimal.Zero, model.Errorf(model.ErrInvalidInput, op, "base and quote token are the same address %s", base.Address.Hex())
	}

	sqrtX96, err := SqrtRatioAtTick(tick)
	if err != nil {
		return decimal.Zero, model.WrapError(model.ErrOutOfRange, op, err)
	}

	// (sqrtX96 / 2^96)^2 is the raw token1/token0 ratio.
	sqrt := decimal.NewFromBigInt(sqrtX96, 0).DivRound(q96Decimal, priceDivPrecision)
	rawRatio := sqrt.Mul(sqrt)

	token0, token1 := model.SortTokens(base, quote)
	humanRatio := rawRatio.Shift(int32(token0.Decimals) - int32(token1.Decimals))

	if base.Equal(token0) {
		return humanRatio, nil
	}
	if humanRatio.Sign() == 0 {
		return decimal.Zero, model.Errorf(model.ErrOutOfRange, op, "tick %d yields a zero ratio", tick)
	}
	return one.DivRound(humanRatio, priceDivPrecision), nil
}

// ValidatePriceRange checks the structural sanity of a price range.
func ValidatePriceRange(lower, upper decimal.Decimal) error {
	const op = "ticks.ValidatePriceRange"

	if lower.Sign() <= 0 || upper.Sign() <= 0 {
		return model.Errorf(model.ErrInvalidInput, op, "price bounds must be positive, got [%s, %s]", lower, upper)
	}
	if lower.Cmp(upper) >= 0 {
		return model.Errorf(model.ErrInvalidRange, op, "lower bound %s must be below upper bound %s", lower, upper)
	}
	return nil
}

// AlignTick rounds a tick to the nearest multiple of spacing,
// half away from zero.
func AlignTick(tick, spacing int32) int32 {
	if spacing <= 0 {
		return tick
	}
	q := int64(tick) / int64(spacing)
	r := int64(tick) % int64(spacing)
	if 2*r >= int64(spacing) {
		q++
	} else if 2*r <= -int64(spacing) {
		q--
	}
	return int32(q * int64(spacing))
}

// IsAligned reports whether tick sits on the spacing grid.
func IsAligned(tick, spacing int32) bool {
	return spacing > 0 && tick%spacing == 0
}

// clampToGrid pulls a tick that quantization pushed past the global
// bounds back to the nearest on-grid tick inside them.
func clampToGrid(tick, spacing int32) int32 {
	for tick > MaxTick {
		tick -= spacing
	}
	for tick < MinTick {
		tick += spacing
	}
	return tick
}

// poolRatio re-expresses a quote-per-base price as the pool's raw
// token1/token0 ratio: invert when base is token1, then scale by the
// decimal difference so the ratio is in smallest-unit terms.
func poolRatio(price decimal.Decimal, base, quote model.Token, op string) (decimal.Decimal, error) {
	token0, token1 := model.SortTokens(base, quote)

	poolPrice := price
	if !base.Equal(token0) {
		poolPrice = one.DivRound(price, priceDivPrecision)
		if poolPrice.Sign() <= 0 {
			return decimal.Zero, model.Errorf(model.ErrOutOfRange, op, "price %s is too large to invert", price)
		}
	}

	return poolPrice.Shift(int32(token1.Decimals) - int32(token0.Decimals)), nil
}

// sqrtRatioX96FromRatio maps a raw token1/token0 ratio onto the Q64.96
// sqrt-price domain. big.Float at 256-bit precision keeps the square
// root accurate across the full tick range.
func sqrtRatioX96FromRatio(ratio decimal.Decimal) (*big.Int, error) {
	ratioF, ok := new(big.Float).SetPrec(256).SetString(ratio.String())
	if !ok || ratioF.Sign() <= 0 {
		return nil, model.Errorf(model.ErrInvalidInput, "ticks.sqrtRatio", "non-positive ratio %s", ratio)
	}

	sqrt := new(big.Float).SetPrec(256).Sqrt(ratioF)
	sqrt.Mul(sqrt, new(big.Float).SetPrec(256).SetInt(new(big.Int).Lsh(big.NewInt(1), 96)))

	out, _ := sqrt.Int(nil)
	return out, nil
}
