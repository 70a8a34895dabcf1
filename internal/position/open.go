package position

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sebingberg/univ3-positions-manager/internal/liquidity"
	"github.com/sebingberg/univ3-positions-manager/internal/model"
	"github.com/sebingberg/univ3-positions-manager/internal/nftpm"
	"github.com/sebingberg/univ3-positions-manager/internal/storage"
	"github.com/sebingberg/univ3-positions-manager/internal/ticks"
)

// OpenParams are the user inputs for opening a new position.
type OpenParams struct {
	// PriceLower and PriceUpper bound the range in quote units per
	// one base unit.
	PriceLower decimal.Decimal
	PriceUpper decimal.Decimal
	// Amount is the base-token budget in human units; the other
	// side's requirement follows from the range and current price.
	Amount decimal.Decimal
}

// OpenResult reports the outcome of a confirmed mint.
type OpenResult struct {
	TokenID   string           `json:"token_id"`
	TickLower int32            `json:"tick_lower"`
	TickUpper int32            `json:"tick_upper"`
	Desired   model.AmountPair `json:"desired"`
	Minimums  model.AmountPair `json:"minimums"`
	Receipt   nftpm.Receipt    `json:"receipt"`
}

// Open validates inputs, converts the price range to ticks, sizes the
// deposit, ensures spending approvals, and mints the position.
//
// Approvals and the mint are independent transactions; a failure after
// an approval confirms leaves that approval on-chain.
func (m *Manager) Open(ctx context.Context, params OpenParams) (OpenResult, error) {
	const op = "position.Open"
	var txHashes []string

	result, err := m.open(ctx, op, params, &txHashes)

	entry := storage.Entry{Time: time.Now().UTC(), Op: op, Params: params, TxHashes: txHashes}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Result = result
	}
	m.record(entry)

	return result, err
}

func (m *Manager) open(ctx context.Context, op string, params OpenParams, txHashes *[]string) (OpenResult, error) {
	if m.base.Equal(m.quote) {
		return OpenResult{}, model.Errorf(model.ErrInvalidInput, op, "base and quote token are the same address")
	}
	if !m.pool.Fee.Valid() {
		return OpenResult{}, model.Errorf(model.ErrInvalidInput, op, "unrecognized fee tier %d", m.pool.Fee)
	}
	if params.Amount.Sign() <= 0 {
		return OpenResult{}, model.Errorf(model.ErrInvalidInput, op, "amount must be positive, got %s", params.Amount)
	}
	if err := ticks.ValidatePriceRange(params.PriceLower, params.PriceUpper); err != nil {
		return OpenResult{}, err
	}
	if m.pool.Address == (common.Address{}) {
		return OpenResult{}, model.Errorf(model.ErrInvalidInput, op, "pool address is not configured")
	}

	pool, err := m.backend.PoolState(ctx, m.pool.Address)
	if err != nil {
		return OpenResult{}, model.WrapError(model.ErrNetwork, op, err)
	}

	tickLower, err := ticks.PriceToTick(params.PriceLower, m.base, m.quote, m.pool.Fee)
	if err != nil {
		return OpenResult{}, err
	}
	tickUpper, err := ticks.PriceToTick(params.PriceUpper, m.base, m.quote, m.pool.Fee)
	if err != nil {
		return OpenResult{}, err
	}
	// Inverting the price for a token1 base flips the bound order.
	if tickLower > tickUpper {
		tickLower, tickUpper = tickUpper, tickLower
	}
	if tickLower == tickUpper {
		return OpenResult{}, model.Errorf(model.ErrInvalidRange, op,
			"price bounds [%s, %s] quantize to the same tick %d", params.PriceLower, params.PriceUpper, tickLower)
	}

	amountRaw := params.Amount.Shift(int32(m.base.Decimals)).Floor().BigInt()
	liq, err := liquidity.LiquidityForTokenAmount(pool, tickLower, tickUpper, amountRaw, m.baseIsToken0())
	if err != nil {
		return OpenResult{}, err
	}

	desired, err := liquidity.OptimalAmounts(pool, tickLower, tickUpper, liq.String())
	if err != nil {
		return OpenResult{}, err
	}
	minimums, err := liquidity.MinimumAmounts(desired, m.slippage)
	if err != nil {
		return OpenResult{}, err
	}

	m.logger.Info("open computed",
		zap.Int32("tick_lower", tickLower),
		zap.Int32("tick_upper", tickUpper),
		zap.String("liquidity", liq.String()),
		zap.String("amount0", desired.Amount0.String()),
		zap.String("amount1", desired.Amount1.String()),
	)

	token0, token1 := model.SortTokens(m.base, m.quote)
	if err := m.preflightBalance(ctx, op, token0, desired.Amount0); err != nil {
		return OpenResult{}, err
	}
	if err := m.preflightBalance(ctx, op, token1, desired.Amount1); err != nil {
		return OpenResult{}, err
	}

	if err := m.ensureAllowance(ctx, op, token0, desired.Amount0, txHashes); err != nil {
		return OpenResult{}, err
	}
	if err := m.ensureAllowance(ctx, op, token1, desired.Amount1, txHashes); err != nil {
		return OpenResult{}, err
	}

	pending, err := m.backend.SubmitOpen(ctx, nftpm.OpenParams{
		Token0:         token0.Address,
		Token1:         token1.Address,
		Fee:            uint32(m.pool.Fee),
		TickLower:      tickLower,
		TickUpper:      tickUpper,
		Amount0Desired: desired.Amount0,
		Amount1Desired: desired.Amount1,
		Amount0Min:     minimums.Amount0,
		Amount1Min:     minimums.Amount1,
		Recipient:      m.owner,
		Deadline:       m.txDeadline(),
	})
	if err != nil {
		return OpenResult{}, model.WrapError(model.ErrNetwork, op, err)
	}
	*txHashes = append(*txHashes, pending.Hash.Hex())

	receipt, err := m.backend.Await(ctx, pending)
	if err != nil {
		return OpenResult{}, model.WrapError(model.ErrTransactionReverted, op, err)
	}
	if receipt.TokenID == nil {
		return OpenResult{}, model.Errorf(model.ErrUnknown, op,
			"mint confirmed in tx %s but no token id found in receipt", pending.Hash.Hex())
	}

	m.logger.Info("position opened",
		zap.String("token_id", receipt.TokenID.String()),
		zap.String("tx", pending.Hash.Hex()),
		zap.Uint64("block", receipt.BlockNumber),
	)

	return OpenResult{
		TokenID:   receipt.TokenID.String(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Desired:   desired,
		Minimums:  minimums,
		Receipt:   receipt,
	}, nil
}

func (m *Manager) preflightBalance(ctx context.Context, op string, token model.Token, needed *big.Int) error {
	if needed == nil || needed.Sign() <= 0 {
		return nil
	}
	balance, err := m.backend.TokenBalance(ctx, token.Address, m.owner)
	if err != nil {
		return model.WrapError(model.ErrNetwork, op, err)
	}
	if balance.Cmp(needed) < 0 {
		return model.Errorf(model.ErrInvalidInput, op,
			"insufficient %s balance: have %s, need %s", token.Symbol, balance, needed)
	}
	return nil
}

// ensureAllowance issues an approval only when the current allowance
// falls short of the needed amount.
func (m *Manager) ensureAllowance(ctx context.Context, op string, token model.Token, needed *big.Int, txHashes *[]string) error {
	if needed == nil || needed.Sign() <= 0 {
		return nil
	}
	allowance, err := m.backend.Allowance(ctx, token.Address, m.owner, m.registry)
	if err != nil {
		return model.WrapError(model.ErrNetwork, op, err)
	}
	if allowance.Cmp(needed) >= 0 {
		return nil
	}

	m.logger.Info("approving token spend",
		zap.String("token", token.Address.Hex()),
		zap.String("amount", needed.String()),
	)

	pending, err := m.backend.SubmitApprove(ctx, token.Address, m.registry, needed)
	if err != nil {
		return model.WrapError(model.ErrNetwork, op, err)
	}
	*txHashes = append(*txHashes, pending.Hash.Hex())
	if _, err := m.backend.Await(ctx, pending); err != nil {
		return model.WrapError(model.ErrTransactionReverted, op, err)
	}
	return nil
}
