package main

import (
	"context"
	"fmt"
	"os"

	"github.com/glefebvre/animedl/internal/api"
	"github.com/glefebvre/animedl/internal/config"
	"github.com/glefebvre/animedl/internal/history"
	"github.com/glefebvre/animedl/internal/logger"
	"github.com/glefebvre/animedl/internal/shutdown"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run history over a read-only HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")

		cfg := config.Get()
		if port == 0 {
			port = cfg.API.Port
		}
		if !cfg.History.Enabled {
			fmt.Fprintln(os.Stderr, "Error: history is disabled in the configuration")
			os.Exit(1)
		}

		store, err := history.Open(cfg.History, cfg.GetDatabaseLogLevel())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		ctx, stop := shutdown.SignalContext(context.Background())
		defer stop()

		server := api.NewServer(store, api.Options{AllowedOrigins: cfg.API.AllowedOrigins})
		if err := server.Run(ctx, port); err != nil {
			logger.AppLogger().Error("api server stopped", err)
			store.Close()
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (0 = use configuration)")
}
