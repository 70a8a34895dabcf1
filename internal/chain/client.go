package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
	"github.com/sebingberg/univ3-positions-manager/internal/nftpm"
)

// Client wraps go-ethereum RPC and implements the workflow backend:
// pool and registry reads, signed submissions, confirmation waits.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	chainID *big.Int
	key     *ecdsa.PrivateKey
	from    common.Address
	manager common.Address

	logger *zap.Logger
}

// NewClient dials the RPC endpoint and prepares the signing identity.
// privateKeyHex may be empty for read-only use; submissions then fail.
func NewClient(ctx context.Context, rpcURL, privateKeyHex string, manager common.Address, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, model.WrapError(model.ErrNetwork, "chain.NewClient", err)
	}
	ethClient := ethclient.NewClient(rpcClient)

	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, model.WrapError(model.ErrNetwork, "chain.NewClient", fmt.Errorf("chain id: %w", err))
	}

	client := &Client{
		rpcClient: rpcClient,
		ethClient: ethClient,
		chainID:   chainID,
		manager:   manager,
		logger:    logger,
	}

	if privateKeyHex != "" {
		key, err := crypto.HexToECDSA(privateKeyHex)
		if err != nil {
			rpcClient.Close()
			return nil, model.Errorf(model.ErrInvalidInput, "chain.NewClient", "parse private key: %v", err)
		}
		client.key = key
		client.from = crypto.PubkeyToAddress(key.PublicKey)
	}

	return client, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the connected chain's ID.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Sender returns the configured signing address.
func (c *Client) Sender() common.Address {
	return c.from
}

// PoolState reads slot0, liquidity, and tickSpacing from the pool.
func (c *Client) PoolState(ctx context.Context, pool common.Address) (model.PoolState, error) {
	const op = "chain.PoolState"

	poolABI, err := nftpm.PoolABI()
	if err != nil {
		return model.PoolState{}, model.WrapError(model.ErrUnknown, op, err)
	}

	slot0, err := c.call(ctx, poolABI, pool, "slot0")
	if err != nil {
		return model.PoolState{}, model.WrapError(model.ErrNetwork, op, err)
	}
	sqrtPrice, err := asBigInt(slot0[0])
	if err != nil {
		return model.PoolState{}, model.WrapError(model.ErrUnknown, op, err)
	}
	tick, err := asBigInt(slot0[1])
	if err != nil {
		return model.PoolState{}, model.WrapError(model.ErrUnknown, op, err)
	}

	liqValues, err := c.call(ctx, poolABI, pool, "liquidity")
	if err != nil {
		return model.PoolState{}, model.WrapError(model.ErrNetwork, op, err)
	}
	liq, err := asBigInt(liqValues[0])
	if err != nil {
		return model.PoolState{}, model.WrapError(model.ErrUnknown, op, err)
	}

	spacingValues, err := c.call(ctx, poolABI, pool, "tickSpacing")
	if err != nil {
		return model.PoolState{}, model.WrapError(model.ErrNetwork, op, err)
	}
	spacing, err := asBigInt(spacingValues[0])
	if err != nil {
		return model.PoolState{}, model.WrapError(model.ErrUnknown, op, err)
	}

	return model.PoolState{
		SqrtPriceX96: sqrtPrice,
		Tick:         int32(tick.Int64()),
		Liquidity:    liq,
		TickSpacing:  int32(spacing.Int64()),
	}, nil
}

// PoolImmutables reads the pool's pair and fee for config verification.
func (c *Client) PoolImmutables(ctx context.Context, pool common.Address) (common.Address, common.Address, uint32, error) {
	const op = "chain.PoolImmutables"

	poolABI, err := nftpm.PoolABI()
	if err != nil {
		return common.Address{}, common.Address{}, 0, model.WrapError(model.ErrUnknown, op, err)
	}

	t0Values, err := c.call(ctx, poolABI, pool, "token0")
	if err != nil {
		return common.Address{}, common.Address{}, 0, model.WrapError(model.ErrNetwork, op, err)
	}
	t1Values, err := c.call(ctx, poolABI, pool, "token1")
	if err != nil {
		return common.Address{}, common.Address{}, 0, model.WrapError(model.ErrNetwork, op, err)
	}
	feeValues, err := c.call(ctx, poolABI, pool, "fee")
	if err != nil {
		return common.Address{}, common.Address{}, 0, model.WrapError(model.ErrNetwork, op, err)
	}

	token0, err := asAddress(t0Values[0])
	if err != nil {
		return common.Address{}, common.Address{}, 0, model.WrapError(model.ErrUnknown, op, err)
	}
	token1, err := asAddress(t1Values[0])
	if err != nil {
		return common.Address{}, common.Address{}, 0, model.WrapError(model.ErrUnknown, op, err)
	}
	fee, err := asBigInt(feeValues[0])
	if err != nil {
		return common.Address{}, common.Address{}, 0, model.WrapError(model.ErrUnknown, op, err)
	}

	return token0, token1, uint32(fee.Uint64()), nil
}

// Position reads one registry entry by token ID.
func (c *Client) Position(ctx context.Context, tokenID *big.Int) (model.Position, error) {
	const op = "chain.Position"

	managerABI, err := nftpm.ManagerABI()
	if err != nil {
		return model.Position{}, model.WrapError(model.ErrUnknown, op, err)
	}

	values, err := c.call(ctx, managerABI, c.manager, "positions", tokenID)
	if err != nil {
		// The registry reverts "Invalid token ID" for unknown IDs.
		return model.Position{}, model.Errorf(model.ErrNotFound, op, "position %s: %v", tokenID, err)
	}
	if len(values) < 12 {
		return model.Position{}, model.Errorf(model.ErrUnknown, op, "positions returned %d values", len(values))
	}

	token0, err := asAddress(values[2])
	if err != nil {
		return model.Position{}, model.WrapError(model.ErrUnknown, op, err)
	}
	token1, err := asAddress(values[3])
	if err != nil {
		return model.Position{}, model.WrapError(model.ErrUnknown, op, err)
	}
	fee, err := asBigInt(values[4])
	if err != nil {
		return model.Position{}, model.WrapError(model.ErrUnknown, op, err)
	}
	tickLower, err := asBigInt(values[5])
	if err != nil {
		return model.Position{}, model.WrapError(model.ErrUnknown, op, err)
	}
	tickUpper, err := asBigInt(values[6])
	if err != nil {
		return model.Position{}, model.WrapError(model.ErrUnknown, op, err)
	}
	liq, err := asBigInt(values[7])
	if err != nil {
		return model.Position{}, model.WrapError(model.ErrUnknown, op, err)
	}
	feeGrowth0, err := asBigInt(values[8])
	if err != nil {
		return model.Position{}, model.WrapError(model.ErrUnknown, op, err)
	}
	feeGrowth1, err := asBigInt(values[9])
	if err != nil {
		return model.Position{}, model.WrapError(model.ErrUnknown, op, err)
	}
	owed0, err := asBigInt(values[10])
	if err != nil {
		return model.Position{}, model.WrapError(model.ErrUnknown, op, err)
	}
	owed1, err := asBigInt(values[11])
	if err != nil {
		return model.Position{}, model.WrapError(model.ErrUnknown, op, err)
	}

	return model.Position{
		TokenID:          new(big.Int).Set(tokenID),
		Token0:           token0,
		Token1:           token1,
		Fee:              model.FeeTier(fee.Uint64()),
		TickLower:        int32(tickLower.Int64()),
		TickUpper:        int32(tickUpper.Int64()),
		Liquidity:        liq,
		FeeGrowthInside0: feeGrowth0,
		FeeGrowthInside1: feeGrowth1,
		TokensOwed0:      owed0,
		TokensOwed1:      owed1,
	}, nil
}

// TokenMetadata reads an ERC20's decimals and symbol.
func (c *Client) TokenMetadata(ctx context.Context, token common.Address) (uint8, string, error) {
	const op = "chain.TokenMetadata"

	erc20, err := nftpm.ERC20ABI()
	if err != nil {
		return 0, "", model.WrapError(model.ErrUnknown, op, err)
	}
	decValues, err := c.call(ctx, erc20, token, "decimals")
	if err != nil {
		return 0, "", model.WrapError(model.ErrNetwork, op, err)
	}
	decimals, err := asBigInt(decValues[0])
	if err != nil {
		return 0, "", model.WrapError(model.ErrUnknown, op, err)
	}

	symValues, err := c.call(ctx, erc20, token, "symbol")
	if err != nil {
		return 0, "", model.WrapError(model.ErrNetwork, op, err)
	}
	symbol, ok := symValues[0].(string)
	if !ok {
		return 0, "", model.Errorf(model.ErrUnknown, op, "unsupported symbol type %T", symValues[0])
	}

	return uint8(decimals.Uint64()), symbol, nil
}

// Allowance reads the ERC20 allowance granted to spender.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	const op = "chain.Allowance"

	erc20, err := nftpm.ERC20ABI()
	if err != nil {
		return nil, model.WrapError(model.ErrUnknown, op, err)
	}
	values, err := c.call(ctx, erc20, token, "allowance", owner, spender)
	if err != nil {
		return nil, model.WrapError(model.ErrNetwork, op, err)
	}
	return asBigInt(values[0])
}

// TokenBalance reads the ERC20 balance of an account.
func (c *Client) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	const op = "chain.TokenBalance"

	erc20, err := nftpm.ERC20ABI()
	if err != nil {
		return nil, model.WrapError(model.ErrUnknown, op, err)
	}
	values, err := c.call(ctx, erc20, token, "balanceOf", account)
	if err != nil {
		return nil, model.WrapError(model.ErrNetwork, op, err)
	}
	return asBigInt(values[0])
}

// PositionOperator reports whether owner may operate tokenID through
// this client's sender: direct ownership, approval-for-all, or a
// per-token approval.
func (c *Client) PositionOperator(ctx context.Context, tokenID *big.Int, owner common.Address) (bool, error) {
	const op = "chain.PositionOperator"

	managerABI, err := nftpm.ManagerABI()
	if err != nil {
		return false, model.WrapError(model.ErrUnknown, op, err)
	}

	ownerValues, err := c.call(ctx, managerABI, c.manager, "ownerOf", tokenID)
	if err != nil {
		return false, model.Errorf(model.ErrNotFound, op, "ownerOf %s: %v", tokenID, err)
	}
	tokenOwner, err := asAddress(ownerValues[0])
	if err != nil {
		return false, model.WrapError(model.ErrUnknown, op, err)
	}
	if tokenOwner == owner {
		return true, nil
	}

	allValues, err := c.call(ctx, managerABI, c.manager, "isApprovedForAll", tokenOwner, owner)
	if err != nil {
		return false, model.WrapError(model.ErrNetwork, op, err)
	}
	if approved, ok := allValues[0].(bool); ok && approved {
		return true, nil
	}

	approvedValues, err := c.call(ctx, managerABI, c.manager, "getApproved", tokenID)
	if err != nil {
		return false, model.WrapError(model.ErrNetwork, op, err)
	}
	approvedAddr, err := asAddress(approvedValues[0])
	if err != nil {
		return false, model.WrapError(model.ErrUnknown, op, err)
	}
	return approvedAddr == owner, nil
}

func (c *Client) call(ctx context.Context, parsed abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := c.ethClient.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
