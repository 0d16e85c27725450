package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"StockPred/internal/di"
	"StockPred/internal/domain/models"
	"StockPred/internal/usecase"
)

func trainCmd() *cobra.Command {
	var (
		symbols []string
		classes []string
		pooled  bool
		n       int
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train per-symbol and pooled models for the given classes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return withToolkit(func(tk *di.Toolkit) error {
				p := usecase.TrainParams{Symbols: symbols, Pooled: pooled, N: n}
				for _, c := range classes {
					p.Classes = append(p.Classes, models.PredictionClass(c))
				}
				report, err := tk.Training.TrainBatch(ctx, p)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&symbols, "symbols", "s", nil, "symbols to train (default: configured symbols)")
	cmd.Flags().StringSliceVarP(&classes, "classes", "c", nil, "prediction classes (default: all)")
	cmd.Flags().BoolVar(&pooled, "pooled", true, "also train one pooled model per class")
	cmd.Flags().IntVarP(&n, "lookback", "n", 0, "candles per symbol (default: models.lookback)")
	return cmd
}
