package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sebingberg/univ3-positions-manager/internal/position"
	"github.com/sebingberg/univ3-positions-manager/internal/storage/postgres"
)

func newWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw liquidity and collect fees",
		RunE:  runWithdraw,
	}

	cmd.Flags().String("token-id", "", "position NFT token id")
	cmd.Flags().Int("percentage", 100, "percentage of liquidity to withdraw (1-100)")
	cmd.Flags().Bool("collect-fees", true, "collect all owed tokens after the decrease")

	return cmd
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
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
	percentage, _ := cmd.Flags().GetInt("percentage")
	collectFees, _ := cmd.Flags().GetBool("collect-fees")

	result, err := rt.manager.Withdraw(ctx, position.WithdrawParams{
		TokenID:     tokenID,
		Percentage:  percentage,
		CollectFees: collectFees,
	})
	if err != nil {
		return reportError(rt.logger, "withdraw", err)
	}

	if rt.history != nil {
		chainID := rt.client.ChainID().Uint64()
		var records []postgres.ReceiptRecord
		if result.DecreaseReceipt != nil {
			records = append(records, postgres.ReceiptRecord{
				ChainID:     chainID,
				Op:          "withdraw.decrease",
				TokenID:     result.TokenID,
				TxHash:      result.DecreaseReceipt.TxHash.Hex(),
				BlockNumber: result.DecreaseReceipt.BlockNumber,
				GasUsed:     result.DecreaseReceipt.GasUsed,
			})
		}
		if result.CollectReceipt != nil {
			records = append(records, postgres.ReceiptRecord{
				ChainID:     chainID,
				Op:          "withdraw.collect",
				TokenID:     result.TokenID,
				TxHash:      result.CollectReceipt.TxHash.Hex(),
				BlockNumber: result.CollectReceipt.BlockNumber,
				GasUsed:     result.CollectReceipt.GasUsed,
			})
		}
		if err := rt.history.InsertReceipts(ctx, records); err != nil {
			rt.logger.Warn("history insert failed", zap.Error(err))
		}
	}

	fmt.Printf("withdraw from position %s: success=%v\n", result.TokenID, result.Success)
	fmt.Printf("  liquidity removed %s\n", result.LiquidityRemoved)
	if result.Expected.Amount0 != nil {
		fmt.Printf("  expected          %s / %s\n", result.Expected.Amount0, result.Expected.Amount1)
	}
	if result.CollectReceipt != nil {
		fmt.Printf("  fees collected in %s\n", result.CollectReceipt.TxHash.Hex())
	}
	return nil
}
