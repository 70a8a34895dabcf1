package nftpm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MaxUint128 is the protocol convention for "collect everything owed".
var MaxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// OpenParams describes a mint call against the position manager.
type OpenParams struct {
	Token0         common.Address `json:"token0"`
	Token1         common.Address `json:"token1"`
	Fee            uint32         `json:"fee"`
	TickLower      int32          `json:"tick_lower"`
	TickUpper      int32          `json:"tick_upper"`
	Amount0Desired *big.Int       `json:"amount0_desired"`
	Amount1Desired *big.Int       `json:"amount1_desired"`
	Amount0Min     *big.Int       `json:"amount0_min"`
	Amount1Min     *big.Int       `json:"amount1_min"`
	Recipient      common.Address `json:"recipient"`
	Deadline       *big.Int       `json:"deadline"`
}

// DecreaseParams describes a decreaseLiquidity call.
type DecreaseParams struct {
	TokenID    *big.Int `json:"token_id"`
	Liquidity  *big.Int `json:"liquidity"`
	Amount0Min *big.Int `json:"amount0_min"`
	Amount1Min *big.Int `json:"amount1_min"`
	Deadline   *big.Int `json:"deadline"`
}

// CollectParams describes a collect call.
type CollectParams struct {
	TokenID    *big.Int       `json:"token_id"`
	Recipient  common.Address `json:"recipient"`
	Amount0Max *big.Int       `json:"amount0_max"`
	Amount1Max *big.Int       `json:"amount1_max"`
}

// PendingTx identifies a submitted, not yet confirmed transaction.
type PendingTx struct {
	Hash common.Hash `json:"hash"`
}

// Receipt is the confirmed outcome of a submitted transaction.
type Receipt struct {
	TxHash      common.Hash `json:"tx_hash"`
	BlockNumber uint64      `json:"block_number"`
	GasUsed     uint64      `json:"gas_used"`
	// TokenID is set when the receipt carries an IncreaseLiquidity
	// event, i.e. after a mint.
	TokenID *big.Int `json:"token_id,omitempty"`
}
