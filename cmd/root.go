package cmd

import (
	"fmt"
	"os"

	"AlbumShelf/config"
	"AlbumShelf/db"
	"AlbumShelf/logger"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:          "albumshelf",
	Short:        "AlbumShelf is a small album catalog web service.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and initialises the global logger.
func setup() (*config.Config, error) {
	cfg := config.Load()
	level := logger.LogLevel(cfg.LogLevel)
	if cfg.Debug {
		level = logger.DebugLevel
	}
	err := logger.InitLogger(logger.Config{
		Level:       level,
		OutputPath:  cfg.LogFile,
		MaxSize:     cfg.LogMaxSize,
		MaxBackups:  cfg.LogMaxBackups,
		MaxAge:      cfg.LogMaxAge,
		Compress:    true,
		Development: cfg.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise logger: %w", err)
	}
	return cfg, nil
}

// openStore connects to the configured database and migrates the schema.
func openStore(cfg *config.Config) (*gorm.DB, error) {
	gdb, err := db.ConnectGormDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		db.Close(gdb)
		return nil, err
	}
	return gdb, nil
}
