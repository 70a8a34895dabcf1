package liquidity

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
	"github.com/sebingberg/univ3-positions-manager/internal/ticks"
)

func sqrtAt(t *testing.T, tick int32) *big.Int {
	t.Helper()
	ratio, err := ticks.SqrtRatioAtTick(tick)
	if err != nil {
		t.Fatalf("sqrt ratio at %d: %v", tick, err)
	}
	return ratio
}

func poolAt(t *testing.T, tick int32) model.PoolState {
	t.Helper()
	return model.PoolState{
		SqrtPriceX96: sqrtAt(t, tick),
		Tick:         tick,
		Liquidity:    big.NewInt(1_000_000),
		TickSpacing:  60,
	}
}

func TestMulDiv(t *testing.T) {
	got := MulDiv(big.NewInt(10), big.NewInt(10), big.NewInt(3))
	if got.Cmp(big.NewInt(33)) != 0 {
		t.Fatalf("MulDiv floor: got %s, want 33", got)
	}
	up := MulDivRoundingUp(big.NewInt(10), big.NewInt(10), big.NewInt(3))
	if up.Cmp(big.NewInt(34)) != 0 {
		t.Fatalf("MulDivRoundingUp: got %s, want 34", up)
	}
	exact := MulDivRoundingUp(big.NewInt(10), big.NewInt(9), big.NewInt(3))
	if exact.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("MulDivRoundingUp exact: got %s, want 30", exact)
	}
}

func TestAmountsForLiquidityRegions(t *testing.T) {
	liq := big.NewInt(1_000_000_000_000)
	sqrtLower := sqrtAt(t, -600)
	sqrtUpper := sqrtAt(t, 600)

	inside := AmountsForLiquidity(sqrtAt(t, 0), sqrtLower, sqrtUpper, liq)
	if inside.Amount0.Sign() <= 0 || inside.Amount1.Sign() <= 0 {
		t.Fatalf("inside range should need both tokens: %+v", inside)
	}

	below := AmountsForLiquidity(sqrtAt(t, -1200), sqrtLower, sqrtUpper, liq)
	if below.Amount0.Sign() <= 0 || below.Amount1.Sign() != 0 {
		t.Fatalf("below range should need only token0: %+v", below)
	}

	above := AmountsForLiquidity(sqrtAt(t, 1200), sqrtLower, sqrtUpper, liq)
	if above.Amount0.Sign() != 0 || above.Amount1.Sign() <= 0 {
		t.Fatalf("above range should need only token1: %+v", above)
	}
}

func TestLiquidityAmountsRoundTrip(t *testing.T) {
	sqrtCurrent := sqrtAt(t, 0)
	sqrtLower := sqrtAt(t, -600)
	sqrtUpper := sqrtAt(t, 600)

	amount0 := big.NewInt(5_000_000_000)
	amount1 := big.NewInt(5_000_000_000)

	liq := LiquidityForAmounts(sqrtCurrent, sqrtLower, sqrtUpper, amount0, amount1)
	if liq.Sign() <= 0 {
		t.Fatalf("liquidity should be positive")
	}

	back := AmountsForLiquidity(sqrtCurrent, sqrtLower, sqrtUpper, liq)
	if back.Amount0.Cmp(amount0) > 0 || back.Amount1.Cmp(amount1) > 0 {
		t.Fatalf("amounts for max liquidity exceed the budget: %+v", back)
	}
	if back.Amount0.Sign() <= 0 || back.Amount1.Sign() <= 0 {
		t.Fatalf("round trip lost a side entirely: %+v", back)
	}
}

func TestOptimalAmountsValidation(t *testing.T) {
	pool := poolAt(t, 0)

	if _, err := OptimalAmounts(pool, 600, -600, "1000"); !model.IsKind(err, model.ErrInvalidRange) {
		t.Fatalf("expected InvalidRange, got %v", err)
	}
	if _, err := OptimalAmounts(pool, -601, 600, "1000"); !model.IsKind(err, model.ErrInvalidTickAlignment) {
		t.Fatalf("expected InvalidTickAlignment, got %v", err)
	}
	if _, err := OptimalAmounts(pool, -600, 600, "not-a-number"); !model.IsKind(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
	if _, err := OptimalAmounts(pool, -600, 600, "-5"); !model.IsKind(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput for negative size, got %v", err)
	}
}

func TestOptimalAmountsDegenerate(t *testing.T) {
	pool := poolAt(t, 0)

	// One unit of liquidity over a narrow range rounds both sides to zero.
	if _, err := OptimalAmounts(pool, -60, 60, "1"); !model.IsKind(err, model.ErrInvalidPosition) {
		t.Fatalf("expected InvalidPosition, got %v", err)
	}
}

func TestOptimalAmountsInRange(t *testing.T) {
	pool := poolAt(t, 0)

	pair, err := OptimalAmounts(pool, -600, 600, "1000000000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.Amount0.Sign() <= 0 || pair.Amount1.Sign() <= 0 {
		t.Fatalf("expected both amounts positive: %+v", pair)
	}
}

func TestLiquidityForTokenAmount(t *testing.T) {
	pool := poolAt(t, 0)
	amount := big.NewInt(1_000_000_000)

	liq, err := LiquidityForTokenAmount(pool, -600, 600, amount, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if liq.Sign() <= 0 {
		t.Fatalf("liquidity should be positive")
	}

	// A range entirely below the current price needs no token0.
	if _, err := LiquidityForTokenAmount(poolAt(t, 1200), -600, 600, amount, true); !model.IsKind(err, model.ErrInvalidPosition) {
		t.Fatalf("expected InvalidPosition, got %v", err)
	}
	// A range entirely above the current price needs no token1.
	if _, err := LiquidityForTokenAmount(poolAt(t, -1200), -600, 600, amount, false); !model.IsKind(err, model.ErrInvalidPosition) {
		t.Fatalf("expected InvalidPosition, got %v", err)
	}
	if _, err := LiquidityForTokenAmount(pool, -600, 600, big.NewInt(0), true); !model.IsKind(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput for zero amount, got %v", err)
	}
}

func TestMinimumAmounts(t *testing.T) {
	desired := model.AmountPair{
		Amount0: big.NewInt(1_000_000),
		Amount1: big.NewInt(1_000_000),
	}

	minimums, err := MinimumAmounts(desired, decimal.NewFromFloat(0.005))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minimums.Amount0.Cmp(big.NewInt(995_000)) != 0 {
		t.Fatalf("amount0Min: got %s, want 995000", minimums.Amount0)
	}
	if minimums.Amount1.Cmp(big.NewInt(995_000)) != 0 {
		t.Fatalf("amount1Min: got %s, want 995000", minimums.Amount1)
	}
}

func TestMinimumAmountsZeroSlippage(t *testing.T) {
	desired := model.AmountPair{
		Amount0: big.NewInt(123_456_789),
		Amount1: big.NewInt(42),
	}

	minimums, err := MinimumAmounts(desired, decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minimums.Amount0.Cmp(desired.Amount0) != 0 || minimums.Amount1.Cmp(desired.Amount1) != 0 {
		t.Fatalf("zero slippage must keep amounts whole: %+v", minimums)
	}
}

func TestMinimumAmountsMonotonic(t *testing.T) {
	desired := model.AmountPair{
		Amount0: big.NewInt(1_000_000),
		Amount1: big.NewInt(7),
	}

	for _, s := range []float64{0.0001, 0.005, 0.1, 0.5, 0.9999} {
		minimums, err := MinimumAmounts(desired, decimal.NewFromFloat(s))
		if err != nil {
			t.Fatalf("slippage %v: %v", s, err)
		}
		if minimums.Amount0.Cmp(desired.Amount0) >= 0 {
			t.Fatalf("slippage %v: amount0Min %s not below %s", s, minimums.Amount0, desired.Amount0)
		}
		if minimums.Amount1.Cmp(desired.Amount1) > 0 {
			t.Fatalf("slippage %v: amount1Min %s above %s", s, minimums.Amount1, desired.Amount1)
		}
	}
}

func TestMinimumAmountsInvalidTolerance(t *testing.T) {
	desired := model.AmountPair{Amount0: big.NewInt(1), Amount1: big.NewInt(1)}

	if _, err := MinimumAmounts(desired, decimal.NewFromInt(1)); !model.IsKind(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput for tolerance 1, got %v", err)
	}
	if _, err := MinimumAmounts(desired, decimal.NewFromFloat(-0.1)); !model.IsKind(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput for negative tolerance, got %v", err)
	}
}
