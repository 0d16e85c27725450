package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"StockPred/internal/di"
	"StockPred/internal/repository"
	"StockPred/pkg/logger"
)

func importCmd() *cobra.Command {
	var symbol string
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Load daily candles from CSV files into the candle store",
		Long:  "Each file is a header-led CSV (date, open, high, low, close, volume). The symbol defaults to the file name.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withToolkit(func(tk *di.Toolkit) error {
				for _, path := range args {
					sym := symbol
					if sym == "" {
						sym = strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
					}
					n, err := importFile(cmd, tk, path, sym)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					tk.Log.Info("candles imported", logger.String("symbol", sym), logger.Int("rows", n))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "symbol for every file")
	return cmd
}

func importFile(cmd *cobra.Command, tk *di.Toolkit, path, symbol string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	candles, err := repository.ReadCandlesCSV(f, symbol)
	if err != nil {
		return 0, err
	}
	return tk.Candles.Import(cmd.Context(), candles)
}
