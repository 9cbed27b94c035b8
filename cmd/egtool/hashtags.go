package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/eventgraph/internal/export"
	"github.com/ibeckermayer/eventgraph/internal/hashtags"
)

func newHashtagsCmd() *cobra.Command {
	var (
		threshold int
		limit     int
		keepEvent bool
	)

	cmd := &cobra.Command{
		Use:   "hashtags [corpus.json]",
		Short: "Print the ranked hashtags of a corpus file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			path := filepath.Join(cfg.Output.Dir, export.FileCorpus)
			if len(args) == 1 {
				path = args[0]
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			all, err := hashtags.ParseCorpus(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			exclude := cfg.EventToken()
			if keepEvent {
				exclude = ""
			}
			ranked := hashtags.AboveThreshold(hashtags.Rank(all, exclude), threshold)
			if limit > 0 && len(ranked) > limit {
				ranked = ranked[:limit]
			}

			renderHashtags(cmd, ranked, len(all))
			return nil
		},
	}

	cmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "only show tags counted more than this")
	cmd.Flags().IntVarP(&limit, "limit", "n", 30, "maximum rows (0 for all)")
	cmd.Flags().BoolVar(&keepEvent, "keep-event", false, "keep the event hashtag in the ranking")
	return cmd
}

func renderHashtags(cmd *cobra.Command, ranked []hashtags.Frequency, total int) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"#", "Hashtag", "Count", "Share"})
	for i, f := range ranked {
		share := 0.0
		if total > 0 {
			share = 100 * float64(f.Count) / float64(total)
		}
		t.AppendRow(table.Row{i + 1, f.Tag, f.Count, fmt.Sprintf("%.2f%%", share)})
	}
	t.AppendFooter(table.Row{"", "occurrences", total, ""})

	t.Render()
}
