package main

import (
	"github.com/spf13/cobra"

	"StockPred/internal/di"
	"StockPred/internal/domain/models"
	"StockPred/internal/usecase"
)

func predictCmd() *cobra.Command {
	var (
		class string
		n     int
	)
	cmd := &cobra.Command{
		Use:   "predict SYMBOL",
		Short: "Predict one class, or every class when --class is empty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(func(tk *di.Toolkit) error {
				ctx := cmd.Context()
				if class == "" {
					preds, failures, err := tk.Predictions.PredictAll(ctx, args[0], n)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"predictions": usecase.PresentAll(preds),
						"errors":      failures,
					})
				}
				p, err := tk.Predictions.Predict(ctx, usecase.PredictParams{
					Symbol: args[0],
					Class:  models.PredictionClass(class),
					N:      n,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), usecase.Present(*p))
			})
		},
	}
	cmd.Flags().StringVarP(&class, "class", "c", "", "prediction class")
	cmd.Flags().IntVarP(&n, "lookback", "n", 1000, "candles to load")
	return cmd
}
