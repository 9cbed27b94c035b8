package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/eventgraph/internal/app"
	"github.com/ibeckermayer/eventgraph/internal/report"
)

func newRunCmd() *cobra.Command {
	var (
		input  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			if input != "" {
				cfg.Input.Path = input
			}
			if output != "" {
				cfg.Output.Dir = output
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			a, err := app.New(cfg, path, log)
			if err != nil {
				return err
			}
			res, m, err := a.Run(cmd.Context())
			if err != nil {
				return err
			}

			b, err := report.New(cfg.EventToken(), 10)
			if err != nil {
				return err
			}
			r, err := b.Build(res)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, r.PlainBody)
			fmt.Fprintf(out, "\nwrote %d artifacts to %s\n", len(m.Files), cfg.Output.Dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input table (overrides input.path)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (overrides output.dir)")
	return cmd
}
