package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Position mirrors one NFT position-registry entry.
type Position struct {
	TokenID          *big.Int       `json:"token_id"`
	Token0           common.Address `json:"token0"`
	Token1           common.Address `json:"token1"`
	Fee              FeeTier        `json:"fee"`
	TickLower        int32          `json:"tick_lower"`
	TickUpper        int32          `json:"tick_upper"`
	Liquidity        *big.Int       `json:"liquidity"`
	FeeGrowthInside0 *big.Int       `json:"fee_growth_inside0"`
	FeeGrowthInside1 *big.Int       `json:"fee_growth_inside1"`
	TokensOwed0      *big.Int       `json:"tokens_owed0"`
	TokensOwed1      *big.Int       `json:"tokens_owed1"`
}

// HasLiquidity reports whether the position currently holds liquidity.
func (p Position) HasLiquidity() bool {
	return p.Liquidity != nil && p.Liquidity.Sign() > 0
}

// HasOwedTokens reports whether any principal or fees are uncollected.
func (p Position) HasOwedTokens() bool {
	owed0 := p.TokensOwed0 != nil && p.TokensOwed0.Sign() > 0
	owed1 := p.TokensOwed1 != nil && p.TokensOwed1.Sign() > 0
	return owed0 || owed1
}

// PositionSnapshot is the read-only view produced by the Inspect workflow.
type PositionSnapshot struct {
	TokenID          *big.Int `json:"token_id"`
	Liquidity        *big.Int `json:"liquidity"`
	TickLower        int32    `json:"tick_lower"`
	TickUpper        int32    `json:"tick_upper"`
	CurrentTick      int32    `json:"current_tick"`
	PriceLower       string   `json:"price_lower"`
	PriceUpper       string   `json:"price_upper"`
	CurrentPrice     string   `json:"current_price"`
	InRange          bool     `json:"in_range"`
	Token0Percent    float64  `json:"token0_percent"`
	Token1Percent    float64  `json:"token1_percent"`
	FeeGrowthInside0 *big.Int `json:"fee_growth_inside0"`
	FeeGrowthInside1 *big.Int `json:"fee_growth_inside1"`
	TokensOwed0      *big.Int `json:"tokens_owed0"`
	TokensOwed1      *big.Int `json:"tokens_owed1"`
}
