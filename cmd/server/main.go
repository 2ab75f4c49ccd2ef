// @title           File Server API
// @version         1.0
// @description     Transient file storage: uploads are deleted automatically after the retention window.
// @schemes         http https
// @BasePath        /
package main

import (
	"os"

	"github.com/BAPONBARMON/file-server/internal/config"
	"github.com/BAPONBARMON/file-server/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "file-server",
		Short: "Transient file storage server",
		Long: `file-server stores uploaded files and folders for a limited time.

Every entry is deleted automatically once it is older than the retention
window (5 days by default).`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to settings file (default ./configs/settings.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the retention reaper",
		RunE:  runServe,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete expired entries once and exit",
		RunE:  runSweep,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply catalog database migrations",
		RunE:  runMigrate,
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}

	log.Debug().Str("db_driver", cfg.DB.Driver).Str("storage_driver", cfg.Storage.Driver).Msg("configuration loaded")
	return cfg, nil
}
