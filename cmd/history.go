package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/mobuild/internal/build"
	"github.com/zjrosen/mobuild/internal/history"
	"github.com/zjrosen/mobuild/internal/presentation"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit    int
		platform string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded builds of this project as JSON",
		Long: `List recorded builds of the current project, newest first, as JSON.

Examples:
  mobuild history
  mobuild history --limit 5 --platform ios

  # Artifact of the last successful build
  mobuild history | jq -r 'map(select(.status == "succeeded"))[0].artifact_path'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := history.ListFilter{Project: a.projectDir, Limit: limit}
			if platform != "" {
				p, err := build.ParsePlatform(platform)
				if err != nil {
					return err
				}
				filter.Platform = p
			}
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative, got %d", limit)
			}

			store, err := history.Open(a.cfg.HistoryPath(a.projectDir))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return presentation.NewFormatter(cmd.OutOrStdout()).FormatRuns(presentation.FromRuns(runs))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs (0 for all)")
	cmd.Flags().StringVar(&platform, "platform", "", "only runs for android or ios")
	return cmd
}
