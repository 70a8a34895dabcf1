package liquidity

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
	"github.com/sebingberg/univ3-positions-manager/internal/ticks"
)

var q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// LiquidityForAmount0 computes the liquidity a token0 amount supports
// over [sqrtA, sqrtB]. Ports the protocol's LiquidityAmounts library.
func LiquidityForAmount0(sqrtA, sqrtB, amount0 *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	intermediate := MulDiv(sqrtA, sqrtB, q96)
	return MulDiv(amount0, intermediate, new(big.Int).Sub(sqrtB, sqrtA))
}

// LiquidityForAmount1 computes the liquidity a token1 amount supports
// over [sqrtA, sqrtB].
func LiquidityForAmount1(sqrtA, sqrtB, amount1 *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	return MulDiv(amount1, q96, new(big.Int).Sub(sqrtB, sqrtA))
}

// LiquidityForAmounts returns the maximal liquidity both amounts can
// jointly support at the current price.
func LiquidityForAmounts(sqrtCurrent, sqrtA, sqrtB, amount0, amount1 *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	switch {
	case sqrtCurrent.Cmp(sqrtA) <= 0:
		return LiquidityForAmount0(sqrtA, sqrtB, amount0)
	case sqrtCurrent.Cmp(sqrtB) < 0:
		liquidity0 := LiquidityForAmount0(sqrtCurrent, sqrtB, amount0)
		liquidity1 := LiquidityForAmount1(sqrtA, sqrtCurrent, amount1)
		if liquidity0.Cmp(liquidity1) < 0 {
			return liquidity0
		}
		return liquidity1
	default:
		return LiquidityForAmount1(sqrtA, sqrtB, amount1)
	}
}

// Amount0ForLiquidity returns the token0 amount a liquidity value
// occupies over [sqrtA, sqrtB], rounded down.
func Amount0ForLiquidity(sqrtA, sqrtB, liq *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	numerator := new(big.Int).Lsh(liq, 96)
	numerator.Mul(numerator, new(big.Int).Sub(sqrtB, sqrtA))
	numerator.Div(numerator, sqrtB)
	return numerator.Div(numerator, sqrtA)
}

// Amount1ForLiquidity returns the token1 amount a liquidity value
// occupies over [sqrtA, sqrtB], rounded down.
func Amount1ForLiquidity(sqrtA, sqrtB, liq *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	return MulDiv(liq, new(big.Int).Sub(sqrtB, sqrtA), q96)
}

// AmountsForLiquidity applies the three-region constant-liquidity
// formula: below the range only token0, above only token1, inside a mix
// split at the current price. All rounding is floor.
func AmountsForLiquidity(sqrtCurrent, sqrtA, sqrtB, liq *big.Int) model.AmountPair {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	amount0 := new(big.Int)
	amount1 := new(big.Int)
	switch {
	case sqrtCurrent.Cmp(sqrtA) <= 0:
		amount0 = Amount0ForLiquidity(sqrtA, sqrtB, liq)
	case sqrtCurrent.Cmp(sqrtB) < 0:
		amount0 = Amount0ForLiquidity(sqrtCurrent, sqrtB, liq)
		amount1 = Amount1ForLiquidity(sqrtA, sqrtCurrent, liq)
	default:
		amount1 = Amount1ForLiquidity(sqrtA, sqrtB, liq)
	}
	return model.AmountPair{Amount0: amount0, Amount1: amount1}
}

// LiquidityForTokenAmount sizes liquidity from a single-token budget.
// The budget binds on the side of the range that token occupies; a
// range that does not require the budget token cannot be sized by it.
func LiquidityForTokenAmount(pool model.PoolState, tickLower, tickUpper int32, amount *big.Int, isToken0 bool) (*big.Int, error) {
	const op = "liquidity.LiquidityForTokenAmount"

	if amount == nil || amount.Sign() <= 0 {
		return nil, model.Errorf(model.ErrInvalidInput, op, "amount must be positive")
	}
	sqrtLower, err := ticks.SqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, model.WrapError(model.ErrOutOfRange, op, err)
	}
	sqrtUpper, err := ticks.SqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, model.WrapError(model.ErrOutOfRange, op, err)
	}

	current := pool.SqrtPriceX96
	if isToken0 {
		if current.Cmp(sqrtUpper) >= 0 {
			return nil, model.Errorf(model.ErrInvalidPosition, op,
				"range [%d, %d] sits below the current price and needs no token0", tickLower, tickUpper)
		}
		lowerBound := sqrtLower
		if current.Cmp(sqrtLower) > 0 {
			lowerBound = current
		}
		return LiquidityForAmount0(lowerBound, sqrtUpper, amount), nil
	}

	if current.Cmp(sqrtLower) <= 0 {
		return nil, model.Errorf(model.ErrInvalidPosition, op,
			"range [%d, %d] sits above the current price and needs no token1", tickLower, tickUpper)
	}
	upperBound := sqrtUpper
	if current.Cmp(sqrtUpper) < 0 {
		upperBound = current
	}
	return LiquidityForAmount1(sqrtLower, upperBound, amount), nil
}

// OptimalAmounts derives the token amounts required to mint sizeInput
// liquidity over [tickLower, tickUpper] at the pool's current price.
// sizeInput is a positive decimal in raw liquidity units.
func OptimalAmounts(pool model.PoolState, tickLower, tickUpper int32, sizeInput string) (model.AmountPair, error) {
	const op = "liquidity.OptimalAmounts"

	if tickLower >= tickUpper {
		return model.AmountPair{}, model.Errorf(model.ErrInvalidRange, op,
			"tick lower %d must be below tick upper %d", tickLower, tickUpper)
	}
	if !ticks.IsAligned(tickLower, pool.TickSpacing) || !ticks.IsAligned(tickUpper, pool.TickSpacing) {
		return model.AmountPair{}, model.Errorf(model.ErrInvalidTickAlignment, op,
			"ticks [%d, %d] not aligned to spacing %d", tickLower, tickUpper, pool.TickSpacing)
	}

	size, err := decimal.NewFromString(sizeInput)
	if err != nil {
		return model.AmountPair{}, model.Errorf(model.ErrInvalidInput, op, "size %q is not a decimal: %v", sizeInput, err)
	}
	if size.Sign() <= 0 {
		return model.AmountPair{}, model.Errorf(model.ErrInvalidInput, op, "size must be positive, got %s", size)
	}

	sqrtLower, err := ticks.SqrtRatioAtTick(tickLower)
	if err != nil {
		return model.AmountPair{}, model.WrapError(model.ErrOutOfRange, op, err)
	}
	sqrtUpper, err := ticks.SqrtRatioAtTick(tickUpper)
	if err != nil {
		return model.AmountPair{}, model.WrapError(model.ErrOutOfRange, op, err)
	}
	if pool.SqrtPriceX96 == nil || pool.SqrtPriceX96.Sign() <= 0 {
		return model.AmountPair{}, model.Errorf(model.ErrInvalidInput, op, "pool sqrt price is missing")
	}

	liq := size.Floor().BigInt()
	pair := AmountsForLiquidity(pool.SqrtPriceX96, sqrtLower, sqrtUpper, liq)
	if pair.IsZero() {
		return model.AmountPair{}, model.Errorf(model.ErrInvalidPosition, op,
			"range [%d, %d] yields zero amounts at the current price", tickLower, tickUpper)
	}
	return pair, nil
}

// MinimumAmounts deflates a desired amount pair by the slippage
// tolerance using basis-point integer arithmetic, floor division.
// tolerance is a fraction in [0, 1).
func MinimumAmounts(desired model.AmountPair, tolerance decimal.Decimal) (model.AmountPair, error) {
	const op = "liquidity.MinimumAmounts"

	if tolerance.Sign() < 0 || tolerance.Cmp(decimal.NewFromInt(1)) >= 0 {
		return model.AmountPair{}, model.Errorf(model.ErrInvalidInput, op,
			"slippage tolerance must be in [0, 1), got %s", tolerance)
	}

	bps10000 := decimal.NewFromInt(10000)
	multiplier := decimal.NewFromInt(1).Sub(tolerance).Mul(bps10000).Round(0).BigInt()

	return model.AmountPair{
		Amount0: applyBps(desired.Amount0, multiplier),
		Amount1: applyBps(desired.Amount1, multiplier),
	}, nil
}

func applyBps(amount, multiplier *big.Int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	return MulDiv(amount, multiplier, big.NewInt(10000))
}
