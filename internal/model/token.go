package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Token is an immutable ERC20 descriptor. Two tokens are distinguished
// by address only; ChainID and Symbol are informational.
type Token struct {
	ChainID  uint64         `json:"chain_id"`
	Address  common.Address `json:"address"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
}

// Equal reports whether both descriptors point at the same contract.
func (t Token) Equal(other Token) bool {
	return t.Address == other.Address
}

// SortsBefore reports whether t is token0 when paired with other.
// Pool token ordering is by lowercase hex address.
func (t Token) SortsBefore(other Token) bool {
	return strings.ToLower(t.Address.Hex()) < strings.ToLower(other.Address.Hex())
}

// SortTokens returns the pair in pool order (token0, token1).
func SortTokens(a, b Token) (Token, Token) {
	if a.SortsBefore(b) {
		return a, b
	}
	return b, a
}
