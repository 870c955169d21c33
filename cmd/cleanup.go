package main

import (
	"fmt"
	"os"

	"github.com/glefebvre/animedl/internal/config"
	"github.com/glefebvre/animedl/internal/downloader"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Clean up orphaned browser staging directories",
	Long: `Scan the temporary directory and remove browser staging directories
that are older than the retention period (default: 24 hours).

Staging directories are left behind when a run is killed before it could
close its browser session.`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		retentionHours, _ := cmd.Flags().GetInt("retention-hours")

		cfg := config.Get()
		if retentionHours <= 0 {
			retentionHours = cfg.Downloads.RetentionHours
		}

		fmt.Println("=== Staging Cleanup ===")
		if dryRun {
			fmt.Println("Mode: DRY RUN (no files will be deleted)")
		}

		tempDir := cfg.Downloads.TempDir
		if tempDir == "" {
			tempDir = os.TempDir()
		}

		fmt.Printf("Temp directory: %s\n", tempDir)
		fmt.Printf("Retention: %d hours\n\n", retentionHours)

		report, err := downloader.CleanupStaging(downloader.CleanupOptions{
			TempDir:        tempDir,
			RetentionHours: retentionHours,
			DryRun:         dryRun,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during cleanup: %v\n", err)
			os.Exit(1)
		}

		for _, dir := range report.Removed {
			fmt.Printf("  %s\n", dir)
		}
		verb := "Removed"
		if dryRun {
			verb = "Would remove"
		}
		fmt.Printf("\n%s %d directories, kept %d\n", verb, len(report.Removed), report.Skipped)
	},
}

func init() {
	cleanupCmd.Flags().Bool("dry-run", false, "list directories without deleting them")
	cleanupCmd.Flags().Int("retention-hours", 0, "remove directories older than this (0 = use configuration)")
}
