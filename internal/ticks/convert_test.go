package ticks

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
)

var (
	weth = model.Token{
		Address:  common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		Decimals: 18,
		Symbol:   "WETH",
	}
	usdc = model.Token{
		Address:  common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"),
		Decimals: 6,
		Symbol:   "USDC",
	}
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPriceToTickAlignmentAndBounds(t *testing.T) {
	fees := []model.FeeTier{model.FeeLow, model.FeeMedium, model.FeeHigh}
	prices := []string{"0.0001", "0.5", "1", "42", "1800", "250000"}

	for _, fee := range fees {
		for _, price := range prices {
			tick, err := PriceToTick(dec(price), weth, usdc, fee)
			if err != nil {
				t.Fatalf("price %s fee %d: %v", price, fee, err)
			}
			if !IsAligned(tick, fee.TickSpacing()) {
				t.Fatalf("price %s fee %d: tick %d not aligned to %d", price, fee, tick, fee.TickSpacing())
			}
			if tick < MinTick || tick > MaxTick {
				t.Fatalf("price %s fee %d: tick %d out of bounds", price, fee, tick)
			}
		}
	}
}

func TestPriceToTickRoundTrip(t *testing.T) {
	prices := []string{"0.001", "1", "17.5", "1800", "99999"}

	for _, raw := range prices {
		price := dec(raw)

		// Both orientations of the 18/6 decimal pair.
		for _, pair := range [][2]model.Token{{weth, usdc}, {usdc, weth}} {
			base, quote := pair[0], pair[1]
			tick, err := PriceToTick(price, base, quote, model.FeeMedium)
			if err != nil {
				t.Fatalf("price %s (%s/%s): %v", raw, base.Symbol, quote.Symbol, err)
			}
			back, err := TickToPrice(tick, base, quote)
			if err != nil {
				t.Fatalf("tick %d (%s/%s): %v", tick, base.Symbol, quote.Symbol, err)
			}

			diff := back.Sub(price).Abs().Div(price)
			if diff.Cmp(dec("0.01")) > 0 {
				t.Fatalf("round trip %s -> %d -> %s drifts %s (>1%%)", raw, tick, back, diff)
			}
		}
	}
}

func TestPriceToTickOrientationInvariance(t *testing.T) {
	// A price and its inverse with swapped base/quote describe the
	// same pool state, so both must land on the same pool tick.
	for _, raw := range []string{"0.25", "1800", "31337"} {
		price := dec(raw)
		inverse := decimal.NewFromInt(1).DivRound(price, 40)

		forward, err := PriceToTick(price, weth, usdc, model.FeeMedium)
		if err != nil {
			t.Fatalf("forward %s: %v", raw, err)
		}
		backward, err := PriceToTick(inverse, usdc, weth, model.FeeMedium)
		if err != nil {
			t.Fatalf("backward %s: %v", raw, err)
		}

		diff := forward - backward
		if diff < 0 {
			diff = -diff
		}
		// Inverting at finite precision may move the raw tick by one,
		// which quantization can widen to a single grid step.
		if diff > model.FeeMedium.TickSpacing() {
			t.Fatalf("orientation mismatch for %s: %d vs %d", raw, forward, backward)
		}
	}
}

func TestPriceToTickInvalidInput(t *testing.T) {
	if _, err := PriceToTick(dec("0"), weth, usdc, model.FeeMedium); !model.IsKind(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput for zero price, got %v", err)
	}
	if _, err := PriceToTick(dec("-5"), weth, usdc, model.FeeMedium); !model.IsKind(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput for negative price, got %v", err)
	}
	if _, err := PriceToTick(dec("1800"), weth, weth, model.FeeMedium); !model.IsKind(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput for identical tokens, got %v", err)
	}
	if _, err := PriceToTick(dec("1800"), weth, usdc, model.FeeTier(1234)); !model.IsKind(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput for bad fee tier, got %v", err)
	}
}

func TestTickToPriceOutOfRange(t *testing.T) {
	if _, err := TickToPrice(MaxTick+1, weth, usdc); !model.IsKind(err, model.ErrOutOfRange) {
		t.Fatalf("expected OutOfRange, got %v", err)
	}
	if _, err := TickToPrice(MinTick-1, weth, usdc); !model.IsKind(err, model.ErrOutOfRange) {
		t.Fatalf("expected OutOfRange, got %v", err)
	}
}

func TestValidatePriceRange(t *testing.T) {
	if err := ValidatePriceRange(dec("1700"), dec("1900")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidatePriceRange(dec("1900"), dec("1700")); !model.IsKind(err, model.ErrInvalidRange) {
		t.Fatalf("expected InvalidRange, got %v", err)
	}
	if err := ValidatePriceRange(dec("1700"), dec("1700")); !model.IsKind(err, model.ErrInvalidRange) {
		t.Fatalf("expected InvalidRange for equal bounds, got %v", err)
	}
	if err := ValidatePriceRange(dec("-1"), dec("100")); !model.IsKind(err, model.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestAlignTick(t *testing.T) {
	cases := []struct {
		tick    int32
		spacing int32
		want    int32
	}{
		{0, 60, 0},
		{29, 60, 0},
		{30, 60, 60},
		{59, 60, 60},
		{-29, 60, 0},
		{-30, 60, -60},
		{-95, 60, -120},
		{201363, 60, 201360},
		{7, 10, 10},
		{-7, 10, -10},
	}
	for _, tc := range cases {
		if got := AlignTick(tc.tick, tc.spacing); got != tc.want {
			t.Fatalf("AlignTick(%d, %d) = %d, want %d", tc.tick, tc.spacing, got, tc.want)
		}
	}
}

func TestIsAligned(t *testing.T) {
	if !IsAligned(-120, 60) {
		t.Fatalf("-120 should align to 60")
	}
	if IsAligned(-121, 60) {
		t.Fatalf("-121 should not align to 60")
	}
	if IsAligned(10, 0) {
		t.Fatalf("zero spacing never aligns")
	}
}
