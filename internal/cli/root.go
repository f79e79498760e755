// Package cli implements the docrag command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docrag/internal/app"
	"docrag/internal/config"
	"docrag/internal/logger"
)

// closeTimeout bounds the final store flush on exit.
const closeTimeout = 10 * time.Second

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Ask questions about your own documents",
	Long: `docrag ingests PDF and Word documents into a local vector store and
answers questions about them with a language model, citing the documents
the answer was drawn from.

Documents dropped into the upload folder are picked up by "scan" or "watch".`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file (default ./config.yaml or ~/.config/docrag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the config selected by --config.
func loadConfig() (*config.AppConfig, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	cfg, path, err := config.LoadDefault()
	if err == nil {
		logger.Debug("using config %s", path)
	}
	return cfg, err
}

// withApp builds the application for one command and closes the store when
// the command returns.
func withApp(run func(cmd *cobra.Command, args []string, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.SetLevel(cfg.Log.Level)
		if verbose {
			logger.SetVerbose(true)
		}
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			if cerr := a.Close(ctx); cerr != nil && err == nil {
				err = fmt.Errorf("close store: %w", cerr)
			}
		}()
		return run(cmd, args, a)
	}
}
