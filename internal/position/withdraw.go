package position

import (
	"context"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/sebingberg/univ3-positions-manager/internal/liquidity"
	"github.com/sebingberg/univ3-positions-manager/internal/model"
	"github.com/sebingberg/univ3-positions-manager/internal/nftpm"
	"github.com/sebingberg/univ3-positions-manager/internal/storage"
	"github.com/sebingberg/univ3-positions-manager/internal/ticks"
)

// WithdrawParams are the user inputs for removing liquidity and
// collecting fees.
type WithdrawParams struct {
	TokenID *big.Int
	// Percentage of liquidity to remove, in (0, 100]. Defaults to 100
	// when zero.
	Percentage int
	// CollectFees triggers a collect call with maximal bounds.
	CollectFees bool
}

// WithdrawResult reports the outcome of a confirmed withdrawal.
type WithdrawResult struct {
	TokenID          string           `json:"token_id"`
	LiquidityRemoved string           `json:"liquidity_removed"`
	Expected         model.AmountPair `json:"expected"`
	FeesCollected    bool             `json:"fees_collected"`
	DecreaseReceipt  *nftpm.Receipt   `json:"decrease_receipt,omitempty"`
	CollectReceipt   *nftpm.Receipt   `json:"collect_receipt,omitempty"`
	Success          bool             `json:"success"`
}

// Withdraw removes a percentage of a position's liquidity and
// optionally collects everything owed. The liquidity share uses floor
// division so the caller never withdraws more than entitled.
func (m *Manager) Withdraw(ctx context.Context, params WithdrawParams) (WithdrawResult, error) {
	const op = "position.Withdraw"
	var txHashes []string

	result, err := m.withdraw(ctx, op, params, &txHashes)

	entry := storage.Entry{Time: time.Now().UTC(), Op: op, Params: params, TxHashes: txHashes}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Result = result
	}
	m.record(entry)

	return result, err
}

func (m *Manager) withdraw(ctx context.Context, op string, params WithdrawParams, txHashes *[]string) (WithdrawResult, error) {
	if params.TokenID == nil || params.TokenID.Sign() <= 0 {
		return WithdrawResult{}, model.Errorf(model.ErrInvalidInput, op, "token id must be positive")
	}
	percentage := params.Percentage
	if percentage == 0 {
		percentage = 100
	}
	if percentage < 1 || percentage > 100 {
		return WithdrawResult{}, model.Errorf(model.ErrInvalidInput, op,
			"percentage must be in (0, 100], got %d", params.Percentage)
	}

	pos, err := m.backend.Position(ctx, params.TokenID)
	if err != nil {
		return WithdrawResult{}, model.WrapError(model.ErrNotFound, op, err)
	}
	if !pos.HasLiquidity() {
		return WithdrawResult{}, model.Errorf(model.ErrInvalidPosition, op,
			"position %s has zero liquidity", params.TokenID)
	}

	operator, err := m.backend.PositionOperator(ctx, params.TokenID, m.owner)
	if err != nil {
		return WithdrawResult{}, model.WrapError(model.ErrNetwork, op, err)
	}
	if !operator {
		m.logger.Info("requesting registry approval", zap.String("token_id", params.TokenID.String()))
		pending, err := m.backend.SubmitApproveNFT(ctx, params.TokenID, m.owner)
		if err != nil {
			return WithdrawResult{}, model.WrapError(model.ErrNetwork, op, err)
		}
		*txHashes = append(*txHashes, pending.Hash.Hex())
		if _, err := m.backend.Await(ctx, pending); err != nil {
			return WithdrawResult{}, model.WrapError(model.ErrTransactionReverted, op, err)
		}
	}

	// Floor division: never remove more than the share entitles.
	share := new(big.Int).Mul(pos.Liquidity, big.NewInt(int64(percentage)))
	share.Div(share, big.NewInt(100))

	result := WithdrawResult{
		TokenID:          params.TokenID.String(),
		LiquidityRemoved: share.String(),
		FeesCollected:    params.CollectFees,
	}

	if share.Sign() > 0 {
		pool, err := m.backend.PoolState(ctx, m.pool.Address)
		if err != nil {
			return WithdrawResult{}, model.WrapError(model.ErrNetwork, op, err)
		}
		sqrtLower, err := ticks.SqrtRatioAtTick(pos.TickLower)
		if err != nil {
			return WithdrawResult{}, err
		}
		sqrtUpper, err := ticks.SqrtRatioAtTick(pos.TickUpper)
		if err != nil {
			return WithdrawResult{}, err
		}
		expected := liquidity.AmountsForLiquidity(pool.SqrtPriceX96, sqrtLower, sqrtUpper, share)
		minimums, err := liquidity.MinimumAmounts(expected, m.slippage)
		if err != nil {
			return WithdrawResult{}, err
		}
		result.Expected = expected

		m.logger.Info("decreasing liquidity",
			zap.String("token_id", params.TokenID.String()),
			zap.Int("percentage", percentage),
			zap.String("liquidity", share.String()),
		)

		pending, err := m.backend.SubmitDecreaseLiquidity(ctx, nftpm.DecreaseParams{
			TokenID:    params.TokenID,
			Liquidity:  share,
			Amount0Min: minimums.Amount0,
			Amount1Min: minimums.Amount1,
			Deadline:   m.txDeadline(),
		})
		if err != nil {
			return WithdrawResult{}, model.WrapError(model.ErrNetwork, op, err)
		}
		*txHashes = append(*txHashes, pending.Hash.Hex())
		receipt, err := m.backend.Await(ctx, pending)
		if err != nil {
			return WithdrawResult{}, model.WrapError(model.ErrTransactionReverted, op, err)
		}
		result.DecreaseReceipt = &receipt
	}

	if params.CollectFees {
		m.logger.Info("collecting owed tokens", zap.String("token_id", params.TokenID.String()))
		pending, err := m.backend.SubmitCollect(ctx, nftpm.CollectParams{
			TokenID:    params.TokenID,
			Recipient:  m.owner,
			Amount0Max: nftpm.MaxUint128,
			Amount1Max: nftpm.MaxUint128,
		})
		if err != nil {
			return WithdrawResult{}, model.WrapError(model.ErrNetwork, op, err)
		}
		*txHashes = append(*txHashes, pending.Hash.Hex())
		receipt, err := m.backend.Await(ctx, pending)
		if err != nil {
			return WithdrawResult{}, model.WrapError(model.ErrTransactionReverted, op, err)
		}
		result.CollectReceipt = &receipt
	}

	result.Success = true

	m.logger.Info("withdraw complete",
		zap.String("token_id", params.TokenID.String()),
		zap.String("liquidity_removed", result.LiquidityRemoved),
		zap.Bool("fees_collected", params.CollectFees),
	)

	return result, nil
}
