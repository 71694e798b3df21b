package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/mobuild/internal/config"
	"github.com/zjrosen/mobuild/internal/presentation"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or edit the config file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set one key in the config file, keeping comments",
		Long: fmt.Sprintf(`Set one dotted key in the loaded config file (or .mobuild/config.yaml).
List values take a comma-separated string.

Keys:
  %s

Examples:
  mobuild config set android.flavor staging
  mobuild config set android.target_platforms android-arm64,android-x64`,
			strings.Join(config.Keys, "\n  ")),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.writableConfigFile()
			if err := config.SaveKey(path, args[0], args[1]); err != nil {
				return err
			}
			presentation.NewConsole(cmd.OutOrStdout(), presentation.WithNoColor(a.cfg.NoColor)).
				Infof("Set %s = %s in %s", args[0], args[1], path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			used := a.v.ConfigFileUsed()
			if used == "" {
				used = "(none, using defaults)"
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), used)
			return err
		},
	})

	return cmd
}
