package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FeeTier is one of the protocol's enumerated trading-fee levels.
type FeeTier uint32

const (
	FeeLow    FeeTier = 500
	FeeMedium FeeTier = 3000
	FeeHigh   FeeTier = 10000
)

// tickSpacings maps each fee tier to its tick quantization granularity.
var tickSpacings = map[FeeTier]int32{
	FeeLow:    10,
	FeeMedium: 60,
	FeeHigh:   200,
}

// TickSpacing returns the tick grid granularity for the tier,
// or 0 for an unrecognized tier.
func (f FeeTier) TickSpacing() int32 {
	return tickSpacings[f]
}

// Valid reports whether the tier is one of the enumerated values.
func (f FeeTier) Valid() bool {
	_, ok := tickSpacings[f]
	return ok
}

// ParseFeeTier maps a basis-point value to a FeeTier.
func ParseFeeTier(bps uint32) (FeeTier, bool) {
	tier := FeeTier(bps)
	return tier, tier.Valid()
}

// PoolRef identifies one deployed pool and its immutable pair.
type PoolRef struct {
	Address common.Address `json:"address"`
	Token0  Token          `json:"token0"`
	Token1  Token          `json:"token1"`
	Fee     FeeTier        `json:"fee"`
}

// PoolState is a point-in-time read of pool pricing state (slot0).
type PoolState struct {
	SqrtPriceX96 *big.Int `json:"sqrt_price_x96"`
	Tick         int32    `json:"tick"`
	Liquidity    *big.Int `json:"liquidity"`
	TickSpacing  int32    `json:"tick_spacing"`
}

// AmountPair holds token amounts in smallest units, always produced
// together since a range plus a liquidity value determines both.
type AmountPair struct {
	Amount0 *big.Int `json:"amount0"`
	Amount1 *big.Int `json:"amount1"`
}

// IsZero reports whether both amounts are zero or nil.
func (p AmountPair) IsZero() bool {
	zero0 := p.Amount0 == nil || p.Amount0.Sign() == 0
	zero1 := p.Amount1 == nil || p.Amount1.Sign() == 0
	return zero0 && zero1
}
