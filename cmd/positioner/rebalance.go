package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sebingberg/univ3-positions-manager/internal/position"
	"github.com/sebingberg/univ3-positions-manager/internal/storage/postgres"
)

func newRebalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Move a position to a new price range",
		RunE:  runRebalance,
	}

	cmd.Flags().String("token-id", "", "position NFT token id")
	cmd.Flags().String("price-lower", "", "new lower price bound (quote per base)")
	cmd.Flags().String("price-upper", "", "new upper price bound (quote per base)")
	cmd.Flags().String("rebalance-slippage", "", "slippage override for this rebalance")

	return cmd
}

func runRebalance(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer rt.close()

	tokenID, err := flagTokenID(cmd)
	if err != nil {
		return err
	}
	priceLower, err := flagDecimal(cmd, "price-lower")
	if err != nil {
		return err
	}
	priceUpper, err := flagDecimal(cmd, "price-upper")
	if err != nil {
		return err
	}

	params := position.RebalanceParams{
		TokenID:    tokenID,
		PriceLower: priceLower,
		PriceUpper: priceUpper,
	}
	if raw, _ := cmd.Flags().GetString("rebalance-slippage"); raw != "" {
		override, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("parse --rebalance-slippage: %w", err)
		}
		params.Slippage = &override
	}

	result, err := rt.manager.Rebalance(ctx, params)
	if err != nil {
		return reportError(rt.logger, "rebalance", err)
	}

	if rt.history != nil {
		record := postgres.ReceiptRecord{
			ChainID:     rt.client.ChainID().Uint64(),
			Op:          "rebalance",
			TokenID:     result.NewTokenID,
			TxHash:      result.Receipt.TxHash.Hex(),
			BlockNumber: result.Receipt.BlockNumber,
			GasUsed:     result.Receipt.GasUsed,
		}
		if err := rt.history.InsertReceipts(ctx, []postgres.ReceiptRecord{record}); err != nil {
			rt.logger.Warn("history insert failed", zap.Error(err))
		}
	}

	fmt.Printf("rebalanced position %s -> %s\n", result.OldTokenID, result.NewTokenID)
	fmt.Printf("  new range     [%d, %d]\n", result.TickLower, result.TickUpper)
	fmt.Printf("  redeployed    %s / %s\n", result.Withdrawn.Amount0, result.Withdrawn.Amount1)
	fmt.Printf("  tx            %s (block %d)\n", result.Receipt.TxHash.Hex(), result.Receipt.BlockNumber)
	return nil
}
