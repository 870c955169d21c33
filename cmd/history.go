package main

import (
	"context"
	"fmt"
	"os"

	"github.com/glefebvre/animedl/internal/config"
	"github.com/glefebvre/animedl/internal/console"
	"github.com/glefebvre/animedl/internal/history"
	"github.com/glefebvre/animedl/internal/models"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past download runs",
	Long: `Show past download runs, newest first. With --episodes, list what
happened to each episode instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runHistory(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	historyCmd.Flags().StringP("name", "n", "", "only show this catalog")
	historyCmd.Flags().String("status", "", "only show runs with this status: running, succeeded, failed")
	historyCmd.Flags().String("run", "", "only show episodes of this run (implies --episodes)")
	historyCmd.Flags().BoolP("episodes", "e", false, "list episode outcomes instead of runs")
	historyCmd.Flags().Int("limit", 20, "maximum number of rows")
}

func runHistory(cmd *cobra.Command) error {
	name, _ := cmd.Flags().GetString("name")
	status, _ := cmd.Flags().GetString("status")
	runID, _ := cmd.Flags().GetString("run")
	episodes, _ := cmd.Flags().GetBool("episodes")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := config.Get()
	if !cfg.History.Enabled {
		return fmt.Errorf("history is disabled in the configuration")
	}

	store, err := history.Open(cfg.History, cfg.GetDatabaseLogLevel())
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if episodes || runID != "" {
		acquisitions, err := store.ListAcquisitions(ctx, history.AcquisitionFilter{
			Catalog: name,
			RunID:   runID,
			Limit:   limit,
		})
		if err != nil {
			return err
		}
		fmt.Println(console.AcquisitionsTable(acquisitions))
		return nil
	}

	runs, err := store.ListRuns(ctx, history.RunFilter{
		Catalog: name,
		Status:  models.RunStatus(status),
		Limit:   limit,
	})
	if err != nil {
		return err
	}
	fmt.Println(console.RunsTable(runs))
	return nil
}
