package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"StockPred/internal/di"
	"StockPred/pkg/config"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:           "stockpred",
		Short:         "Train and query multi-horizon stock prediction models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	rootCmd.AddCommand(trainCmd(), predictCmd(), calendarCmd(), importCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file when present and falls back to defaults.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(configPath); err != nil {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.LoadWithEnv(configPath)
}

func withToolkit(run func(tk *di.Toolkit) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tk, err := di.NewToolkit(cfg)
	if err != nil {
		return err
	}
	defer tk.Close()
	return run(tk)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
