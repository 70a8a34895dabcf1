package ticks

import (
	"math/big"
	"testing"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
)

func TestSqrtRatioAtTickKnownValues(t *testing.T) {
	atZero, err := SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	if atZero.Cmp(q96) != 0 {
		t.Fatalf("sqrt ratio at tick 0: got %s, want %s", atZero, q96)
	}

	atMin, err := SqrtRatioAtTick(MinTick)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atMin.Cmp(MinSqrtRatio) != 0 {
		t.Fatalf("sqrt ratio at MinTick: got %s, want %s", atMin, MinSqrtRatio)
	}

	atMax, err := SqrtRatioAtTick(MaxTick)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atMax.Cmp(MaxSqrtRatio) != 0 {
		t.Fatalf("sqrt ratio at MaxTick: got %s, want %s", atMax, MaxSqrtRatio)
	}
}

func TestSqrtRatioAtTickMonotonic(t *testing.T) {
	prev, err := SqrtRatioAtTick(-1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for tick := int32(-999); tick <= 1000; tick += 7 {
		ratio, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if ratio.Cmp(prev) <= 0 {
			t.Fatalf("ratio not increasing at tick %d", tick)
		}
		prev = ratio
	}
}

func TestSqrtRatioAtTickOutOfRange(t *testing.T) {
	if _, err := SqrtRatioAtTick(MaxTick + 1); !model.IsKind(err, model.ErrOutOfRange) {
		t.Fatalf("expected OutOfRange, got %v", err)
	}
	if _, err := SqrtRatioAtTick(MinTick - 1); !model.IsKind(err, model.ErrOutOfRange) {
		t.Fatalf("expected OutOfRange, got %v", err)
	}
}

func TestTickAtSqrtRatioRoundTrip(t *testing.T) {
	for _, tick := range []int32{MinTick, -201360, -60, -1, 0, 1, 60, 887, 201360, MaxTick - 1} {
		ratio, err := SqrtRatioAtTick(tick)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		got, err := TickAtSqrtRatio(ratio)
		if err != nil {
			t.Fatalf("tick %d: %v", tick, err)
		}
		if got != tick {
			t.Fatalf("round trip mismatch: tick %d -> %d", tick, got)
		}
	}
}

func TestTickAtSqrtRatioBounds(t *testing.T) {
	if _, err := TickAtSqrtRatio(big.NewInt(1)); !model.IsKind(err, model.ErrOutOfRange) {
		t.Fatalf("expected OutOfRange below MinSqrtRatio, got %v", err)
	}
	if _, err := TickAtSqrtRatio(MaxSqrtRatio); !model.IsKind(err, model.ErrOutOfRange) {
		t.Fatalf("expected OutOfRange at MaxSqrtRatio, got %v", err)
	}
}
