package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sebingberg/univ3-positions-manager/internal/model"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect a position's live state",
		RunE:  runInspect,
	}

	cmd.Flags().String("token-id", "", "position NFT token id")

	return cmd
}

func runInspect(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer rt.close()

	tokenID, err := flagTokenID(cmd)
	if err != nil {
		return err
	}

	snapshot, err := rt.manager.Inspect(ctx, tokenID)
	if err != nil {
		return reportError(rt.logger, "inspect", err)
	}

	if rt.history != nil {
		chainID := rt.client.ChainID().Uint64()
		if err := rt.history.UpsertSnapshots(ctx, chainID, []model.PositionSnapshot{snapshot}); err != nil {
			rt.logger.Warn("history upsert failed", zap.Error(err))
		}
	}

	status := "OUT OF RANGE"
	if snapshot.InRange {
		status = "in range"
	}

	fmt.Printf("position %s (%s)\n", snapshot.TokenID, status)
	fmt.Printf("  liquidity     %s\n", snapshot.Liquidity)
	fmt.Printf("  ticks         [%d, %d], current %d\n", snapshot.TickLower, snapshot.TickUpper, snapshot.CurrentTick)
	fmt.Printf("  price range   [%s, %s]\n", snapshot.PriceLower, snapshot.PriceUpper)
	fmt.Printf("  current price %s\n", snapshot.CurrentPrice)
	fmt.Printf("  token split   %.1f%% / %.1f%%\n", snapshot.Token0Percent, snapshot.Token1Percent)
	fmt.Printf("  owed          %s / %s\n", snapshot.TokensOwed0, snapshot.TokensOwed1)
	return nil
}

func flagTokenID(cmd *cobra.Command) (*big.Int, error) {
	raw, _ := cmd.Flags().GetString("token-id")
	if raw == "" {
		return nil, fmt.Errorf("--token-id is required")
	}
	tokenID, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("parse --token-id: %q is not a decimal integer", raw)
	}
	return tokenID, nil
}
