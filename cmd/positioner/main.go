package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sebingberg/univ3-positions-manager/internal/chain"
	"github.com/sebingberg/univ3-positions-manager/internal/config"
	"github.com/sebingberg/univ3-positions-manager/internal/model"
	"github.com/sebingberg/univ3-positions-manager/internal/position"
	"github.com/sebingberg/univ3-positions-manager/internal/storage"
	"github.com/sebingberg/univ3-positions-manager/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "positioner",
		Short:        "Uniswap V3 position lifecycle manager",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "RPC URL")
	root.PersistentFlags().String("private-key", "", "hex signing key (env POSITIONER_PRIVATE_KEY)")
	root.PersistentFlags().String("pool", "", "pool contract address")
	root.PersistentFlags().String("manager", "", "position manager contract address")
	root.PersistentFlags().String("owner", "", "position owner / recipient address")
	root.PersistentFlags().String("base-token", "", "base token address")
	root.PersistentFlags().Uint32("base-decimals", 18, "base token decimals")
	root.PersistentFlags().String("base-symbol", "", "base token symbol")
	root.PersistentFlags().String("quote-token", "", "quote token address")
	root.PersistentFlags().Uint32("quote-decimals", 18, "quote token decimals")
	root.PersistentFlags().String("quote-symbol", "", "quote token symbol")
	root.PersistentFlags().Uint32("fee-tier", 3000, "fee tier in basis points (500, 3000, 10000)")
	root.PersistentFlags().String("slippage", "0.005", "default slippage tolerance as a fraction")
	root.PersistentFlags().Int("deadline-minutes", 10, "write-call deadline in minutes")
	root.PersistentFlags().String("journal", "./data/journal.jsonl", "operation journal JSONL path")
	root.PersistentFlags().String("pg-dsn", "", "optional Postgres DSN for snapshot/receipt history")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newOpenCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newRebalanceCmd())
	root.AddCommand(newWithdrawCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// runtime bundles the collaborators every subcommand needs.
type runtime struct {
	cfg     config.Config
	logger  *zap.Logger
	client  *chain.Client
	manager *position.Manager
	history *postgres.Store
}

func (r *runtime) close() {
	if r.history != nil {
		r.history.Close()
	}
	if r.client != nil {
		r.client.Close()
	}
	if r.logger != nil {
		_ = r.logger.Sync()
	}
}

// newRuntime loads configuration, connects the chain client, and wires
// the workflow manager. verifyPool cross-checks the configured pair and
// fee against the pool contract before any write workflow runs.
func newRuntime(ctx context.Context, cmd *cobra.Command, verifyPool bool) (*runtime, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.PoolAddress == (common.Address{}) {
		return nil, fmt.Errorf("pool address is required")
	}
	if cfg.ManagerAddress == (common.Address{}) {
		return nil, fmt.Errorf("manager address is required")
	}
	if cfg.Base.Address == (common.Address{}) || cfg.Quote.Address == (common.Address{}) {
		return nil, fmt.Errorf("base and quote token addresses are required")
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL, cfg.PrivateKey, cfg.ManagerAddress, logger)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	owner := cfg.Owner
	if owner == (common.Address{}) {
		owner = client.Sender()
	}

	chainID := client.ChainID().Uint64()
	cfg.Base.ChainID = chainID
	cfg.Quote.ChainID = chainID

	if verifyPool {
		token0, token1, fee, err := client.PoolImmutables(ctx, cfg.PoolAddress)
		if err != nil {
			client.Close()
			return nil, err
		}
		cfgToken0, cfgToken1 := model.SortTokens(cfg.Base, cfg.Quote)
		if token0 != cfgToken0.Address || token1 != cfgToken1.Address || fee != uint32(cfg.Fee) {
			client.Close()
			return nil, fmt.Errorf("pool %s mismatch: contract has (%s, %s, %d), config has (%s, %s, %d)",
				cfg.PoolAddress.Hex(), token0.Hex(), token1.Hex(), fee,
				cfgToken0.Address.Hex(), cfgToken1.Address.Hex(), uint32(cfg.Fee))
		}
		// Wrong decimals would silently skew every price conversion.
		for _, token := range []model.Token{cfg.Base, cfg.Quote} {
			decimals, symbol, err := client.TokenMetadata(ctx, token.Address)
			if err != nil {
				client.Close()
				return nil, err
			}
			if decimals != token.Decimals {
				client.Close()
				return nil, fmt.Errorf("token %s (%s) has %d decimals on-chain, config says %d",
					token.Address.Hex(), symbol, decimals, token.Decimals)
			}
		}
	}

	token0, token1 := model.SortTokens(cfg.Base, cfg.Quote)
	manager := position.NewManager(position.ManagerConfig{
		Backend: client,
		Journal: storage.NewJsonlJournal(cfg.JournalPath),
		Logger:  logger,
		Pool: model.PoolRef{
			Address: cfg.PoolAddress,
			Token0:  token0,
			Token1:  token1,
			Fee:     cfg.Fee,
		},
		Registry: cfg.ManagerAddress,
		Owner:    owner,
		Base:     cfg.Base,
		Quote:    cfg.Quote,
		Slippage: cfg.Slippage,
		Deadline: cfg.Deadline(),
	})

	rt := &runtime{cfg: cfg, logger: logger, client: client, manager: manager}

	if cfg.PgDSN != "" {
		history, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := history.EnsureSchema(ctx); err != nil {
			history.Close()
			rt.close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		rt.history = history
	}

	return rt, nil
}

// reportError logs the classified failure and returns it so cobra exits
// non-zero.
func reportError(logger *zap.Logger, op string, err error) error {
	logger.Error("workflow failed",
		zap.String("op", op),
		zap.String("kind", string(model.KindOf(err))),
		zap.Error(err),
	)
	return err
}
