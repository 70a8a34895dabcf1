package position

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
	"github.com/sebingberg/univ3-positions-manager/internal/ticks"
)

// Inspect reads a position and the pool, and derives the price view:
// range bounds and current price in quote-per-base terms, the in-range
// flag, and the token split implied by where the current tick sits.
// Read-only; no on-chain state changes.
func (m *Manager) Inspect(ctx context.Context, tokenID *big.Int) (model.PositionSnapshot, error) {
	const op = "position.Inspect"

	if tokenID == nil || tokenID.Sign() <= 0 {
		return model.PositionSnapshot{}, model.Errorf(model.ErrInvalidInput, op, "token id must be positive")
	}

	pos, err := m.backend.Position(ctx, tokenID)
	if err != nil {
		return model.PositionSnapshot{}, model.WrapError(model.ErrNotFound, op, err)
	}

	pool, err := m.backend.PoolState(ctx, m.pool.Address)
	if err != nil {
		return model.PositionSnapshot{}, model.WrapError(model.ErrNetwork, op, err)
	}

	priceLower, err := ticks.TickToPrice(pos.TickLower, m.base, m.quote)
	if err != nil {
		return model.PositionSnapshot{}, err
	}
	priceUpper, err := ticks.TickToPrice(pos.TickUpper, m.base, m.quote)
	if err != nil {
		return model.PositionSnapshot{}, err
	}
	currentPrice, err := ticks.TickToPrice(pool.Tick, m.base, m.quote)
	if err != nil {
		return model.PositionSnapshot{}, err
	}

	// For a token1 base the quote-per-base prices invert, so the
	// reported lower bound is the higher human price.
	if priceLower.Cmp(priceUpper) > 0 {
		priceLower, priceUpper = priceUpper, priceLower
	}

	inRange := pool.Tick >= pos.TickLower && pool.Tick < pos.TickUpper
	pct0, pct1 := tokenSplit(pool.Tick, pos.TickLower, pos.TickUpper)

	snapshot := model.PositionSnapshot{
		TokenID:          new(big.Int).Set(tokenID),
		Liquidity:        pos.Liquidity,
		TickLower:        pos.TickLower,
		TickUpper:        pos.TickUpper,
		CurrentTick:      pool.Tick,
		PriceLower:       priceLower.String(),
		PriceUpper:       priceUpper.String(),
		CurrentPrice:     currentPrice.String(),
		InRange:          inRange,
		Token0Percent:    pct0,
		Token1Percent:    pct1,
		FeeGrowthInside0: pos.FeeGrowthInside0,
		FeeGrowthInside1: pos.FeeGrowthInside1,
		TokensOwed0:      pos.TokensOwed0,
		TokensOwed1:      pos.TokensOwed1,
	}

	m.logger.Info("position inspected",
		zap.String("token_id", tokenID.String()),
		zap.String("liquidity", pos.Liquidity.String()),
		zap.Bool("in_range", inRange),
		zap.String("current_price", snapshot.CurrentPrice),
	)

	return snapshot, nil
}

// tokenSplit returns the percentage of the position held in each token:
// all token0 at or below the lower bound of the price curve, all token1
// at or above the upper bound, linear interpolation inside.
func tokenSplit(current, lower, upper int32) (pct0, pct1 float64) {
	if upper <= lower {
		return 0, 0
	}
	switch {
	case current <= lower:
		return 100, 0
	case current >= upper:
		return 0, 100
	default:
		pct1 = float64(current-lower) / float64(upper-lower) * 100
		return 100 - pct1, pct1
	}
}
