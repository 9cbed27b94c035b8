package main

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/eventgraph/internal/app"
	"github.com/ibeckermayer/eventgraph/internal/export"
)

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "open <config|output|report>",
		Short:     "Open the config file, the output directory or the last report",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"config", "output", "report"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}

			switch args[0] {
			case "config":
				return browser.OpenFile(path)
			case "output":
				dir, err := filepath.Abs(cfg.Output.Dir)
				if err != nil {
					return err
				}
				if _, err := export.ReadManifest(dir); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s has no complete run\n", dir)
				}
				return browser.OpenFile(dir)
			case "report":
				log, err := newLogger(cfg)
				if err != nil {
					return err
				}
				a, err := app.New(cfg, path, log)
				if err != nil {
					return err
				}
				return a.OpenReport()
			default:
				return fmt.Errorf("unknown target: %s", args[0])
			}
		},
	}
}
