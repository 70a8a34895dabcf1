package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestWrapErrorPreservesKind(t *testing.T) {
	inner := Errorf(ErrInvalidRange, "ticks.PriceToTick", "lower above upper")
	outer := WrapError(ErrUnknown, "position.Open", inner)

	if KindOf(outer) != ErrInvalidRange {
		t.Fatalf("outer kind: got %s, want %s", KindOf(outer), ErrInvalidRange)
	}
	if !errors.Is(outer, inner) {
		t.Fatalf("wrap must preserve the cause chain")
	}
}

func TestWrapErrorClassifiesPlainErrors(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	wrapped := WrapError(ErrNetwork, "chain.PoolState", cause)

	if KindOf(wrapped) != ErrNetwork {
		t.Fatalf("kind: got %s, want %s", KindOf(wrapped), ErrNetwork)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("cause lost")
	}
	if WrapError(ErrNetwork, "chain.PoolState", nil) != nil {
		t.Fatalf("wrapping nil must stay nil")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("boom")) != ErrUnknown {
		t.Fatalf("plain errors classify as unknown")
	}
	if IsKind(nil, ErrUnknown) {
		t.Fatalf("nil carries no kind")
	}
}

func TestSortTokens(t *testing.T) {
	a := Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000001")}
	b := Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000002")}

	t0, t1 := SortTokens(b, a)
	if !t0.Equal(a) || !t1.Equal(b) {
		t.Fatalf("sort order wrong: %s, %s", t0.Address.Hex(), t1.Address.Hex())
	}
	t0, t1 = SortTokens(a, b)
	if !t0.Equal(a) || !t1.Equal(b) {
		t.Fatalf("sort must be stable on ordered input")
	}
}

func TestFeeTierSpacing(t *testing.T) {
	cases := map[FeeTier]int32{FeeLow: 10, FeeMedium: 60, FeeHigh: 200}
	for tier, want := range cases {
		if got := tier.TickSpacing(); got != want {
			t.Fatalf("tier %d spacing: got %d, want %d", tier, got, want)
		}
	}
	if FeeTier(1234).Valid() {
		t.Fatalf("1234 is not a valid tier")
	}
	if _, ok := ParseFeeTier(500); !ok {
		t.Fatalf("500 should parse")
	}
}
