package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/climate-cli/internal/climate"
	"github.com/sells-group/climate-cli/internal/config"
	"github.com/sells-group/climate-cli/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "climate-cli",
	Short: "Climate grid classification engine",
	Long:  "Classifies geographic grid cells into climate categories using ordered numeric rule sets over derived climatological parameters.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if err := climate.ValidateParameters(); err != nil {
			return fmt.Errorf("parameter table: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// configOpenStore opens the store configured for this invocation.
func configOpenStore(ctx context.Context) (store.Store, error) {
	return config.OpenStore(ctx, cfg.Store)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
