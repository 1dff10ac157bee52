package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/streetcurate/internal/config"
	"github.com/andresmejia3/streetcurate/internal/store"
	"github.com/andresmejia3/streetcurate/internal/utils"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// DB is the store shared by subcommands. It stays nil until a command
	// that persists calls connect.
	DB store.Store

	cfg        *config.Config
	logger     *log.Logger
	configPath string
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "streetcurate",
	Short:         "Curate and rank street-scene object detections",
	Version:       Version, // This enables the --version flag
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		logger = utils.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
		return nil
	},
}

// closeDB runs after every command, failed ones included.
func closeDB() {
	if DB != nil {
		// Use Background here because the main context might be cancelled already (due to Ctrl+C)
		// and we still need to close the connection.
		DB.Close(context.Background())
		DB = nil
	}
}

// connect opens the configured store once per process.
func connect(cmd *cobra.Command) (store.Store, error) {
	if DB != nil {
		return DB, nil
	}
	if cfg.DB == "" {
		return nil, fmt.Errorf("no database configured: pass --db or set %s_DB", config.EnvPrefix)
	}
	s, err := store.Open(cmd.Context(), cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	DB = s
	return DB, nil
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		utils.Die(fmt.Sprintf("%s failed", rootCmd.Name()), err)
	}
}

func init() {
	cobra.OnFinalize(closeDB)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("db", "", "Database URL: postgres://..., sqlite://path or a .db file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("root", "data/dataset_cities", "Dataset root holding labels/, images/ and class_name.txt")
}
