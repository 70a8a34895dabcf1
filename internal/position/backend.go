package position

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
	"github.com/sebingberg/univ3-positions-manager/internal/nftpm"
	"github.com/sebingberg/univ3-positions-manager/internal/storage"
)

// Backend is the external call collaborator: registry and pool reads,
// signed submissions, and confirmation waits. chain.Client implements
// it; tests supply a fake.
type Backend interface {
	PoolState(ctx context.Context, pool common.Address) (model.PoolState, error)
	Position(ctx context.Context, tokenID *big.Int) (model.Position, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error)
	PositionOperator(ctx context.Context, tokenID *big.Int, owner common.Address) (bool, error)

	SubmitOpen(ctx context.Context, params nftpm.OpenParams) (nftpm.PendingTx, error)
	SubmitDecreaseLiquidity(ctx context.Context, params nftpm.DecreaseParams) (nftpm.PendingTx, error)
	SubmitCollect(ctx context.Context, params nftpm.CollectParams) (nftpm.PendingTx, error)
	SubmitApprove(ctx context.Context, token, spender common.Address, amount *big.Int) (nftpm.PendingTx, error)
	SubmitApproveNFT(ctx context.Context, tokenID *big.Int, operator common.Address) (nftpm.PendingTx, error)

	Await(ctx context.Context, pending nftpm.PendingTx) (nftpm.Receipt, error)
}

// ManagerConfig wires a Manager's immutable collaborators.
type ManagerConfig struct {
	Backend  Backend
	Journal  storage.Journal
	Logger   *zap.Logger
	Pool     model.PoolRef
	Registry common.Address
	Owner    common.Address
	Base     model.Token
	Quote    model.Token
	Slippage decimal.Decimal
	Deadline time.Duration
}

// Manager runs the four position workflows against one configured pool.
// It holds no mutable state; every workflow reads chain state fresh.
type Manager struct {
	backend  Backend
	journal  storage.Journal
	logger   *zap.Logger
	pool     model.PoolRef
	registry common.Address
	owner    common.Address
	base     model.Token
	quote    model.Token
	slippage decimal.Decimal
	deadline time.Duration
}

// NewManager builds a Manager from an already-validated configuration.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	deadline := cfg.Deadline
	if deadline <= 0 {
		deadline = 10 * time.Minute
	}
	return &Manager{
		backend:  cfg.Backend,
		journal:  cfg.Journal,
		logger:   logger,
		pool:     cfg.Pool,
		registry: cfg.Registry,
		owner:    cfg.Owner,
		base:     cfg.Base,
		quote:    cfg.Quote,
		slippage: cfg.Slippage,
		deadline: deadline,
	}
}

// txDeadline returns the absolute on-chain expiry for a write call.
func (m *Manager) txDeadline() *big.Int {
	return big.NewInt(time.Now().Add(m.deadline).Unix())
}

// record appends a journal entry, logging instead of failing when the
// journal itself cannot be written.
func (m *Manager) record(entry storage.Entry) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Append(entry); err != nil {
		m.logger.Warn("journal append failed", zap.String("op", entry.Op), zap.Error(err))
	}
}

// baseIsToken0 reports whether the configured base token is the pool's
// token0.
func (m *Manager) baseIsToken0() bool {
	token0, _ := model.SortTokens(m.base, m.quote)
	return m.base.Equal(token0)
}
