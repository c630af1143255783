package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/spp-monitor/internal/config"
)

var cfg *config.Config

// exitCode carries the check command's status contract (0 = ok / nothing
// new, 1 = no data this cycle, 2 = new studies found but a notification
// channel failed) out to main.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "spp-monitor",
	Short: "SPP impact study alerting",
	Long:  "Polls the SPP OpsPortal for new generator-interconnection impact studies and sends email/SMS alerts for anything not seen before.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
