package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/spp-monitor/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show seen-store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.New(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ctx := cmd.Context()
		count, err := st.SeenCount(ctx)
		if err != nil {
			return err
		}
		lastCheck, err := st.LastCheck(ctx)
		if err != nil {
			return err
		}
		if lastCheck == "" {
			lastCheck = "never"
		}

		fmt.Printf("Seen studies: %d\n", count)
		fmt.Printf("Last check:   %s\n", lastCheck)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
