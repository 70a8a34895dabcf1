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

func newOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a new liquidity position",
		RunE:  runOpen,
	}

	cmd.Flags().String("price-lower", "", "lower price bound (quote per base)")
	cmd.Flags().String("price-upper", "", "upper price bound (quote per base)")
	cmd.Flags().String("amount", "", "base token amount to deposit (human units)")

	return cmd
}

func runOpen(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer rt.close()

	priceLower, err := flagDecimal(cmd, "price-lower")
	if err != nil {
		return err
	}
	priceUpper, err := flagDecimal(cmd, "price-upper")
	if err != nil {
		return err
	}
	amount, err := flagDecimal(cmd, "amount")
	if err != nil {
		return err
	}

	result, err := rt.manager.Open(ctx, position.OpenParams{
		PriceLower: priceLower,
		PriceUpper: priceUpper,
		Amount:     amount,
	})
	if err != nil {
		return reportError(rt.logger, "open", err)
	}

	if rt.history != nil {
		record := postgres.ReceiptRecord{
			ChainID:     rt.client.ChainID().Uint64(),
			Op:          "open",
			TokenID:     result.TokenID,
			TxHash:      result.Receipt.TxHash.Hex(),
			BlockNumber: result.Receipt.BlockNumber,
			GasUsed:     result.Receipt.GasUsed,
		}
		if err := rt.history.InsertReceipts(ctx, []postgres.ReceiptRecord{record}); err != nil {
			rt.logger.Warn("history insert failed", zap.Error(err))
		}
	}

	fmt.Printf("opened position %s\n", result.TokenID)
	fmt.Printf("  range ticks   [%d, %d]\n", result.TickLower, result.TickUpper)
	fmt.Printf("  amount0       %s (min %s)\n", result.Desired.Amount0, result.Minimums.Amount0)
	fmt.Printf("  amount1       %s (min %s)\n", result.Desired.Amount1, result.Minimums.Amount1)
	fmt.Printf("  tx            %s (block %d)\n", result.Receipt.TxHash.Hex(), result.Receipt.BlockNumber)
	return nil
}

func flagDecimal(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("--%s is required", name)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse --%s: %w", name, err)
	}
	return value, nil
}
