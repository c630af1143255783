package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/spp-monitor/internal/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all seen studies",
	Long:  "Resets the seen store so the next check treats every posted study as new.",
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
		if err := st.Clear(ctx); err != nil {
			return err
		}

		fmt.Printf("Cleared %d seen studies. Next run will treat all studies as new.\n", count)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
