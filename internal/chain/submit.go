package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
	"github.com/sebingberg/univ3-positions-manager/internal/nftpm"
)

const receiptPollInterval = 2 * time.Second

// mintParams mirrors the ABI tuple layout consumed by mint.
type mintParams struct {
	Token0         common.Address
	Token1         common.Address
	Fee            *big.Int
	TickLower      *big.Int
	TickUpper      *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Recipient      common.Address
	Deadline       *big.Int
}

type decreaseParams struct {
	TokenId    *big.Int
	Liquidity  *big.Int
	Amount0Min *big.Int
	Amount1Min *big.Int
	Deadline   *big.Int
}

type collectParams struct {
	TokenId    *big.Int
	Recipient  common.Address
	Amount0Max *big.Int
	Amount1Max *big.Int
}

// SubmitOpen signs and sends a mint call.
func (c *Client) SubmitOpen(ctx context.Context, params nftpm.OpenParams) (nftpm.PendingTx, error) {
	const op = "chain.SubmitOpen"

	managerABI, err := nftpm.ManagerABI()
	if err != nil {
		return nftpm.PendingTx{}, model.WrapError(model.ErrUnknown, op, err)
	}
	data, err := managerABI.Pack("mint", mintParams{
		Token0:         params.Token0,
		Token1:         params.Token1,
		Fee:            new(big.Int).SetUint64(uint64(params.Fee)),
		TickLower:      big.NewInt(int64(params.TickLower)),
		TickUpper:      big.NewInt(int64(params.TickUpper)),
		Amount0Desired: params.Amount0Desired,
		Amount1Desired: params.Amount1Desired,
		Amount0Min:     params.Amount0Min,
		Amount1Min:     params.Amount1Min,
		Recipient:      params.Recipient,
		Deadline:       params.Deadline,
	})
	if err != nil {
		return nftpm.PendingTx{}, model.Errorf(model.ErrUnknown, op, "pack mint: %v", err)
	}
	return c.sendTx(ctx, op, c.manager, data)
}

// SubmitDecreaseLiquidity signs and sends a decreaseLiquidity call.
func (c *Client) SubmitDecreaseLiquidity(ctx context.Context, params nftpm.DecreaseParams) (nftpm.PendingTx, error) {
	const op = "chain.SubmitDecreaseLiquidity"

	managerABI, err := nftpm.ManagerABI()
	if err != nil {
		return nftpm.PendingTx{}, model.WrapError(model.ErrUnknown, op, err)
	}
	data, err := managerABI.Pack("decreaseLiquidity", decreaseParams{
		TokenId:    params.TokenID,
		Liquidity:  params.Liquidity,
		Amount0Min: params.Amount0Min,
		Amount1Min: params.Amount1Min,
		Deadline:   params.Deadline,
	})
	if err != nil {
		return nftpm.PendingTx{}, model.Errorf(model.ErrUnknown, op, "pack decreaseLiquidity: %v", err)
	}
	return c.sendTx(ctx, op, c.manager, data)
}

// SubmitCollect signs and sends a collect call.
func (c *Client) SubmitCollect(ctx context.Context, params nftpm.CollectParams) (nftpm.PendingTx, error) {
	const op = "chain.SubmitCollect"

	managerABI, err := nftpm.ManagerABI()
	if err != nil {
		return nftpm.PendingTx{}, model.WrapError(model.ErrUnknown, op, err)
	}
	data, err := managerABI.Pack("collect", collectParams{
		TokenId:    params.TokenID,
		Recipient:  params.Recipient,
		Amount0Max: params.Amount0Max,
		Amount1Max: params.Amount1Max,
	})
	if err != nil {
		return nftpm.PendingTx{}, model.Errorf(model.ErrUnknown, op, "pack collect: %v", err)
	}
	return c.sendTx(ctx, op, c.manager, data)
}

// SubmitApprove signs and sends an ERC20 approve call.
func (c *Client) SubmitApprove(ctx context.Context, token, spender common.Address, amount *big.Int) (nftpm.PendingTx, error) {
	const op = "chain.SubmitApprove"

	erc20, err := nftpm.ERC20ABI()
	if err != nil {
		return nftpm.PendingTx{}, model.WrapError(model.ErrUnknown, op, err)
	}
	data, err := erc20.Pack("approve", spender, amount)
	if err != nil {
		return nftpm.PendingTx{}, model.Errorf(model.ErrUnknown, op, "pack approve: %v", err)
	}
	return c.sendTx(ctx, op, token, data)
}

// SubmitApproveNFT signs and sends a per-token registry approval.
func (c *Client) SubmitApproveNFT(ctx context.Context, tokenID *big.Int, operator common.Address) (nftpm.PendingTx, error) {
	const op = "chain.SubmitApproveNFT"

	managerABI, err := nftpm.ManagerABI()
	if err != nil {
		return nftpm.PendingTx{}, model.WrapError(model.ErrUnknown, op, err)
	}
	data, err := managerABI.Pack("approve", operator, tokenID)
	if err != nil {
		return nftpm.PendingTx{}, model.Errorf(model.ErrUnknown, op, "pack approve: %v", err)
	}
	return c.sendTx(ctx, op, c.manager, data)
}

// Await blocks until the transaction is mined and returns its receipt.
// A status-zero receipt surfaces as TransactionReverted.
func (c *Client) Await(ctx context.Context, pending nftpm.PendingTx) (nftpm.Receipt, error) {
	const op = "chain.Await"

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.ethClient.TransactionReceipt(ctx, pending.Hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return nftpm.Receipt{}, model.Errorf(model.ErrTransactionReverted, op,
					"tx %s reverted in block %d", pending.Hash.Hex(), receipt.BlockNumber)
			}
			out := nftpm.Receipt{
				TxHash:      pending.Hash,
				BlockNumber: receipt.BlockNumber.Uint64(),
				GasUsed:     receipt.GasUsed,
			}
			if tokenID := tokenIDFromLogs(receipt.Logs); tokenID != nil {
				out.TokenID = tokenID
			}
			return out, nil
		}
		if err != nil && err != ethereum.NotFound {
			c.logger.Debug("receipt poll failed", zap.String("tx", pending.Hash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nftpm.Receipt{}, model.WrapError(model.ErrNetwork, op, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) sendTx(ctx context.Context, op string, to common.Address, data []byte) (nftpm.PendingTx, error) {
	if c.key == nil {
		return nftpm.PendingTx{}, model.Errorf(model.ErrInvalidInput, op, "no signing key configured")
	}

	nonce, err := c.ethClient.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nftpm.PendingTx{}, model.WrapError(model.ErrNetwork, op, fmt.Errorf("nonce: %w", err))
	}
	gasPrice, err := c.ethClient.SuggestGasPrice(ctx)
	if err != nil {
		return nftpm.PendingTx{}, model.WrapError(model.ErrNetwork, op, fmt.Errorf("gas price: %w", err))
	}
	gasLimit, err := c.ethClient.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		// Estimation reverts carry the contract's revert reason.
		return nftpm.PendingTx{}, model.WrapError(model.ErrTransactionReverted, op, fmt.Errorf("estimate gas: %w", err))
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nftpm.PendingTx{}, model.WrapError(model.ErrUnknown, op, fmt.Errorf("sign: %w", err))
	}

	if err := c.ethClient.SendTransaction(ctx, signed); err != nil {
		return nftpm.PendingTx{}, model.WrapError(model.ErrNetwork, op, fmt.Errorf("send: %w", err))
	}

	c.logger.Info("tx submitted",
		zap.String("op", op),
		zap.String("tx", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas_limit", gasLimit),
	)

	return nftpm.PendingTx{Hash: signed.Hash()}, nil
}

// tokenIDFromLogs extracts the minted token ID from an
// IncreaseLiquidity event, if the receipt carries one.
func tokenIDFromLogs(logs []*types.Log) *big.Int {
	managerABI, err := nftpm.ManagerABI()
	if err != nil {
		return nil
	}
	eventID := managerABI.Events["IncreaseLiquidity"].ID
	for _, entry := range logs {
		if entry == nil || len(entry.Topics) < 2 {
			continue
		}
		if entry.Topics[0] == eventID {
			return new(big.Int).SetBytes(entry.Topics[1].Bytes())
		}
	}
	return nil
}
