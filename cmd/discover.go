package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/spp-monitor/internal/portal"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List available study categories",
	Long:  "Fetches the studies index page and lists every year-type category with its id, for use in monitor.category_ids.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := portal.NewClient(portal.ClientOptions{
			BaseURL:    cfg.Portal.BaseURL,
			Timeout:    time.Duration(cfg.Monitor.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Monitor.MaxRetries,
		})
		if err != nil {
			return err
		}

		categories := client.DiscoverCategories(cmd.Context())
		if len(categories) == 0 {
			fmt.Println("No study categories found. The portal may be unavailable.")
			exitCode = exitNoData
			return nil
		}

		ids := make([]int, 0, len(categories))
		for id := range categories {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		fmt.Printf("\nFound %d study categor(ies):\n\n", len(categories))
		fmt.Printf("%-10s %s\n", "ID", "Label")
		fmt.Println(strings.Repeat("-", 60))
		for _, id := range ids {
			fmt.Printf("%-10d %s\n", id, categories[id])
		}
		fmt.Println("\nAdd desired IDs to your config.yaml under monitor.category_ids")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}
