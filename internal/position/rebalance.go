package position

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sebingberg/univ3-positions-manager/internal/liquidity"
	"github.com/sebingberg/univ3-positions-manager/internal/model"
	"github.com/sebingberg/univ3-positions-manager/internal/nftpm"
	"github.com/sebingberg/univ3-positions-manager/internal/storage"
	"github.com/sebingberg/univ3-positions-manager/internal/ticks"
)

// RebalanceParams are the user inputs for moving a position to a new
// price range.
type RebalanceParams struct {
	TokenID    *big.Int
	PriceLower decimal.Decimal
	PriceUpper decimal.Decimal
	// Slippage overrides the configured default when non-nil.
	Slippage *decimal.Decimal
}

// RebalanceResult reports the outcome of a confirmed rebalance.
type RebalanceResult struct {
	OldTokenID string           `json:"old_token_id"`
	NewTokenID string           `json:"new_token_id"`
	TickLower  int32            `json:"tick_lower"`
	TickUpper  int32            `json:"tick_upper"`
	Withdrawn  model.AmountPair `json:"withdrawn"`
	Receipt    nftpm.Receipt    `json:"receipt"`
}

// Rebalance removes all liquidity from an existing position, collects
// the resulting tokens, and mints a new position over the new range.
//
// The three writes are separate transactions with no rollback: an
// interruption between removal and re-mint leaves funds withdrawn but
// not redeployed. A position found in that state (zero liquidity with
// owed tokens) is refused up front so the operator can collect and
// reopen deliberately rather than have this workflow guess.
func (m *Manager) Rebalance(ctx context.Context, params RebalanceParams) (RebalanceResult, error) {
	const op = "position.Rebalance"
	var txHashes []string

	result, err := m.rebalance(ctx, op, params, &txHashes)

	entry := storage.Entry{Time: time.Now().UTC(), Op: op, Params: params, TxHashes: txHashes}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Result = result
	}
	m.record(entry)

	return result, err
}

func (m *Manager) rebalance(ctx context.Context, op string, params RebalanceParams, txHashes *[]string) (RebalanceResult, error) {
	if params.TokenID == nil || params.TokenID.Sign() <= 0 {
		return RebalanceResult{}, model.Errorf(model.ErrInvalidInput, op, "token id must be positive")
	}
	if err := ticks.ValidatePriceRange(params.PriceLower, params.PriceUpper); err != nil {
		return RebalanceResult{}, err
	}
	slippage := m.slippage
	if params.Slippage != nil {
		slippage = *params.Slippage
	}
	if slippage.Sign() < 0 || slippage.Cmp(decimal.NewFromInt(1)) >= 0 {
		return RebalanceResult{}, model.Errorf(model.ErrInvalidInput, op, "slippage must be in [0, 1), got %s", slippage)
	}

	pos, err := m.backend.Position(ctx, params.TokenID)
	if err != nil {
		return RebalanceResult{}, model.WrapError(model.ErrNotFound, op, err)
	}
	if !pos.HasLiquidity() {
		if pos.HasOwedTokens() {
			return RebalanceResult{}, model.Errorf(model.ErrInvalidPosition, op,
				"position %s has zero liquidity but uncollected tokens; a prior rebalance likely stopped midway, collect and reopen manually", params.TokenID)
		}
		return RebalanceResult{}, model.Errorf(model.ErrInvalidPosition, op,
			"position %s has no liquidity to rebalance", params.TokenID)
	}

	pool, err := m.backend.PoolState(ctx, m.pool.Address)
	if err != nil {
		return RebalanceResult{}, model.WrapError(model.ErrNetwork, op, err)
	}

	newLower, err := ticks.PriceToTick(params.PriceLower, m.base, m.quote, m.pool.Fee)
	if err != nil {
		return RebalanceResult{}, err
	}
	newUpper, err := ticks.PriceToTick(params.PriceUpper, m.base, m.quote, m.pool.Fee)
	if err != nil {
		return RebalanceResult{}, err
	}
	if newLower > newUpper {
		newLower, newUpper = newUpper, newLower
	}
	if newLower == newUpper {
		return RebalanceResult{}, model.Errorf(model.ErrInvalidRange, op,
			"price bounds [%s, %s] quantize to the same tick %d", params.PriceLower, params.PriceUpper, newLower)
	}
	if newLower == pos.TickLower && newUpper == pos.TickUpper {
		return RebalanceResult{}, model.Errorf(model.ErrInvalidRange, op,
			"new range [%d, %d] matches the current range", newLower, newUpper)
	}

	// Expected principal at the current price bounds the decrease.
	sqrtOldLower, err := ticks.SqrtRatioAtTick(pos.TickLower)
	if err != nil {
		return RebalanceResult{}, err
	}
	sqrtOldUpper, err := ticks.SqrtRatioAtTick(pos.TickUpper)
	if err != nil {
		return RebalanceResult{}, err
	}
	expected := liquidity.AmountsForLiquidity(pool.SqrtPriceX96, sqrtOldLower, sqrtOldUpper, pos.Liquidity)
	minimums, err := liquidity.MinimumAmounts(expected, slippage)
	if err != nil {
		return RebalanceResult{}, err
	}

	m.logger.Info("removing liquidity",
		zap.String("token_id", params.TokenID.String()),
		zap.String("liquidity", pos.Liquidity.String()),
		zap.String("amount0_min", minimums.Amount0.String()),
		zap.String("amount1_min", minimums.Amount1.String()),
	)

	pending, err := m.backend.SubmitDecreaseLiquidity(ctx, nftpm.DecreaseParams{
		TokenID:    params.TokenID,
		Liquidity:  pos.Liquidity,
		Amount0Min: minimums.Amount0,
		Amount1Min: minimums.Amount1,
		Deadline:   m.txDeadline(),
	})
	if err != nil {
		return RebalanceResult{}, model.WrapError(model.ErrNetwork, op, err)
	}
	*txHashes = append(*txHashes, pending.Hash.Hex())
	if _, err := m.backend.Await(ctx, pending); err != nil {
		return RebalanceResult{}, model.WrapError(model.ErrTransactionReverted, op, err)
	}

	pending, err = m.backend.SubmitCollect(ctx, nftpm.CollectParams{
		TokenID:    params.TokenID,
		Recipient:  m.owner,
		Amount0Max: nftpm.MaxUint128,
		Amount1Max: nftpm.MaxUint128,
	})
	if err != nil {
		return RebalanceResult{}, model.WrapError(model.ErrNetwork, op, err)
	}
	*txHashes = append(*txHashes, pending.Hash.Hex())
	if _, err := m.backend.Await(ctx, pending); err != nil {
		return RebalanceResult{}, model.WrapError(model.ErrTransactionReverted, op, err)
	}

	// Redeploy the expected principal plus whatever fees had accrued.
	withdrawn := model.AmountPair{
		Amount0: new(big.Int).Add(orZero(expected.Amount0), orZero(pos.TokensOwed0)),
		Amount1: new(big.Int).Add(orZero(expected.Amount1), orZero(pos.TokensOwed1)),
	}
	if withdrawn.IsZero() {
		return RebalanceResult{}, model.Errorf(model.ErrInvalidPosition, op,
			"nothing withdrawn from position %s", params.TokenID)
	}

	// Size the new range with what the withdrawal freed up; the side
	// the new range does not use stays behind in the wallet.
	sqrtNewLower, err := ticks.SqrtRatioAtTick(newLower)
	if err != nil {
		return RebalanceResult{}, err
	}
	sqrtNewUpper, err := ticks.SqrtRatioAtTick(newUpper)
	if err != nil {
		return RebalanceResult{}, err
	}
	newLiq := liquidity.LiquidityForAmounts(pool.SqrtPriceX96, sqrtNewLower, sqrtNewUpper, withdrawn.Amount0, withdrawn.Amount1)
	newDesired := liquidity.AmountsForLiquidity(pool.SqrtPriceX96, sqrtNewLower, sqrtNewUpper, newLiq)
	if newDesired.IsZero() {
		return RebalanceResult{}, model.Errorf(model.ErrInvalidPosition, op,
			"withdrawn amounts cannot seed the new range [%d, %d] at the current price", newLower, newUpper)
	}
	newMinimums, err := liquidity.MinimumAmounts(newDesired, slippage)
	if err != nil {
		return RebalanceResult{}, err
	}

	token0, token1 := model.SortTokens(m.base, m.quote)
	if err := m.ensureAllowance(ctx, op, token0, newDesired.Amount0, txHashes); err != nil {
		return RebalanceResult{}, err
	}
	if err := m.ensureAllowance(ctx, op, token1, newDesired.Amount1, txHashes); err != nil {
		return RebalanceResult{}, err
	}

	pending, err = m.backend.SubmitOpen(ctx, nftpm.OpenParams{
		Token0:         token0.Address,
		Token1:         token1.Address,
		Fee:            uint32(m.pool.Fee),
		TickLower:      newLower,
		TickUpper:      newUpper,
		Amount0Desired: newDesired.Amount0,
		Amount1Desired: newDesired.Amount1,
		Amount0Min:     newMinimums.Amount0,
		Amount1Min:     newMinimums.Amount1,
		Recipient:      m.owner,
		Deadline:       m.txDeadline(),
	})
	if err != nil {
		return RebalanceResult{}, model.WrapError(model.ErrNetwork, op, err)
	}
	*txHashes = append(*txHashes, pending.Hash.Hex())

	receipt, err := m.backend.Await(ctx, pending)
	if err != nil {
		return RebalanceResult{}, model.WrapError(model.ErrTransactionReverted, op, err)
	}
	if receipt.TokenID == nil {
		return RebalanceResult{}, model.Errorf(model.ErrUnknown, op,
			"mint confirmed in tx %s but no token id found in receipt", pending.Hash.Hex())
	}

	m.logger.Info("position rebalanced",
		zap.String("old_token_id", params.TokenID.String()),
		zap.String("new_token_id", receipt.TokenID.String()),
		zap.Int32("tick_lower", newLower),
		zap.Int32("tick_upper", newUpper),
	)

	return RebalanceResult{
		OldTokenID: params.TokenID.String(),
		NewTokenID: receipt.TokenID.String(),
		TickLower:  newLower,
		TickUpper:  newUpper,
		Withdrawn:  withdrawn,
		Receipt:    receipt,
	}, nil
}

func orZero(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}
