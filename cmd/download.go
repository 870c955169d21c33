package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/glefebvre/animedl/internal/browser"
	"github.com/glefebvre/animedl/internal/catalog"
	"github.com/glefebvre/animedl/internal/config"
	"github.com/glefebvre/animedl/internal/console"
	"github.com/glefebvre/animedl/internal/downloader"
	"github.com/glefebvre/animedl/internal/history"
	"github.com/glefebvre/animedl/internal/logger"
	"github.com/glefebvre/animedl/internal/shutdown"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the episodes of a catalog that are not on disk yet",
	Long: `Download lists every episode the site publishes for the catalog, skips the
ones already present under <path>/<name>/ and downloads the rest.

By default downloads run in the background while the next episode is being
triggered, and the command waits for all of them before exiting. Use --single
to download one episode at a time.

An episode whose download never starts stops the run unless
--continue-when-not-found is given.`,
	Example: `  animedl download -n naruto -p /media/anime
  animedl download -n one-piece -p /media/anime --dubbed --single`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runDownload(cmd); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	downloadCmd.Flags().StringP("name", "n", "", "catalog name as it appears in the site URL")
	downloadCmd.Flags().StringP("path", "p", "", "directory holding one folder per catalog")
	downloadCmd.Flags().BoolP("dubbed", "d", false, "download the dubbed variant instead of the subtitled one")
	downloadCmd.Flags().BoolP("single", "s", false, "download one episode at a time")
	downloadCmd.Flags().Bool("continue-when-not-found", false, "skip episodes whose download does not start instead of stopping")
	downloadCmd.MarkFlagRequired("name")
	downloadCmd.MarkFlagRequired("path")
}

func runDownload(cmd *cobra.Command) error {
	name, _ := cmd.Flags().GetString("name")
	target, _ := cmd.Flags().GetString("path")
	dubbed, _ := cmd.Flags().GetBool("dubbed")
	single, _ := cmd.Flags().GetBool("single")
	keepGoing, _ := cmd.Flags().GetBool("continue-when-not-found")

	cfg := config.Get()
	log := logger.AppLogger()

	ctx, stop := shutdown.SignalContext(context.Background())
	defer stop()

	shutdownHandler := shutdown.New(30 * time.Second)
	defer func() {
		if err := shutdownHandler.Shutdown(); err != nil {
			log.Error("shutdown did not complete cleanly", err)
		}
	}()

	observers := downloader.Observers{console.NewReporter(os.Stdout)}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History, cfg.GetDatabaseLogLevel())
		if err != nil {
			log.Error("history disabled for this run", err)
		} else {
			shutdownHandler.Register("history", func(ctx context.Context) error {
				log.Debug("closing history database")
				return store.Close()
			})
			observers = append(observers, history.NewRecorder(store))
		}
	}

	session, err := browser.Launch(ctx, browser.Options{
		Headless:          cfg.Browser.Headless,
		ExecPath:          cfg.Browser.ExecPath,
		StagingRoot:       cfg.Downloads.TempDir,
		NavigationTimeout: cfg.Downloads.NavigationTimeout(),
	})
	if err != nil {
		return err
	}
	shutdownHandler.Register("browser", func(ctx context.Context) error {
		log.Debug("closing browser")
		return session.Close()
	})

	var filter browser.Filter
	if cfg.Browser.BlockAds {
		filter = browser.NewBlocklistFilter(cfg.Browser.BlockedPatterns)
	}

	mode := downloader.ModeBatch
	if single {
		mode = downloader.ModeSingle
	}

	pipeline := downloader.NewPipeline(session, filter, observers, settingsFromConfig(cfg))
	summary, err := pipeline.Run(ctx, downloader.Request{
		Catalog:               name,
		TargetDir:             target,
		Variant:               catalog.VariantFor(dubbed),
		Mode:                  mode,
		ContinueOnUnavailable: keepGoing,
	})
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"run_id":      summary.RunID,
		"catalog":     summary.Catalog,
		"discovered":  len(summary.Discovered),
		"persisted":   len(summary.Result.Persisted),
		"unavailable": len(summary.Result.Unavailable),
	}).Info("download run completed")
	return nil
}

func settingsFromConfig(cfg *config.Config) downloader.Settings {
	return downloader.Settings{
		Source: catalog.Source{
			BaseURL: cfg.Site.BaseURL,
			Segments: map[catalog.Variant]string{
				catalog.Dubbed:    cfg.Site.Variants.Dubbed,
				catalog.Subtitled: cfg.Site.Variants.Subtitled,
			},
		},
		EpisodeTag: cfg.Site.EpisodeTag,
		Selectors: downloader.Selectors{
			Confirm:       cfg.Site.Selectors.Confirm,
			Reveal:        cfg.Site.Selectors.Reveal,
			DownloadLabel: cfg.Site.Selectors.DownloadLabel,
		},
		TriggerTimeout:   cfg.Downloads.TriggerTimeout(),
		ClickTimeout:     cfg.Downloads.ClickTimeout(),
		DefaultExtension: cfg.Downloads.Extension,
		MinFreeBytes:     cfg.Downloads.MinFreeBytes(),
	}
}
