package main

import (
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/eventgraph/internal/config"
	"github.com/ibeckermayer/eventgraph/internal/logger"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "egtool",
		Short:         "eventgraph developer tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the user config dir)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newHashtagsCmd())
	rootCmd.AddCommand(newOpenCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// loadConfig resolves the --config flag and falls back to defaults when no
// file exists.
func loadConfig() (*config.Config, string, error) {
	path, err := configPath()
	if err != nil {
		return nil, "", err
	}

	cfg, _, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	return logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
}
