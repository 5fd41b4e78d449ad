package cmd

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/jjenkins/okbills/internal/config"
	"github.com/jjenkins/okbills/internal/logging"
	"github.com/jjenkins/okbills/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "okbills",
	Short: "Track Oklahoma legislation from OpenStates",
	Long: `okbills syncs Oklahoma legislators and bills from the OpenStates API into
PostgreSQL, infers each bill's legislative stage from its action history, and
records every stage change.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("log-mode", "", "Log output: development or production (env LOG_MODE)")
}

// setup loads configuration and builds the logger shared by every command
func setup(cmd *cobra.Command) (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}

	log, err := logging.New(cfg.LogMode)
	if err != nil {
		return nil, nil, err
	}

	return cfg, log, nil
}

func connect(cfg *config.Config, log *zap.SugaredLogger) (*sql.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Debugw("connecting to database")
	return store.NewDB(cfg.DatabaseURL)
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(log *zap.SugaredLogger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			log.Warnw("received interrupt signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
