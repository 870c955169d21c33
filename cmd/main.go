package main

import (
	"fmt"
	"os"

	"github.com/glefebvre/animedl/internal/config"
	"github.com/glefebvre/animedl/internal/console"
	"github.com/glefebvre/animedl/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "v0.1.0"

var rootCmd = &cobra.Command{
	Use:   "animedl",
	Short: "animedl downloads the episodes of an anime catalog that are missing on disk",
	Long: `animedl lists the episodes a streaming site publishes for a catalog,
compares them with what is already in the target directory and drives a
browser to download the missing ones.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of animedl",
	Run: func(cmd *cobra.Command, args []string) {
		console.Banner(os.Stdout, version)
	},
}

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yml)")
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(versionCmd, downloadCmd, cleanupCmd, historyCmd, serveCmd)
}

func initConfig() {
	// Skip config loading for version command
	if len(os.Args) > 1 && os.Args[1] == "version" {
		return
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	}
	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()
	logger.InitializeLoggersWithFormat(cfg.GetAppLogLevel(), cfg.GetDatabaseLogLevel(), cfg.Logging.Format)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
