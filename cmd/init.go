package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zjrosen/mobuild/internal/config"
	"github.com/zjrosen/mobuild/internal/presentation"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config to .mobuild/config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfgFile
			if path == "" {
				path = filepath.Join(a.projectDir, config.DefaultConfigPath)
			}
			if err := config.WriteDefaultConfig(path); err != nil {
				return err
			}
			presentation.NewConsole(cmd.OutOrStdout(), presentation.WithNoColor(a.cfg.NoColor)).
				Infof("Created %s", path)
			return nil
		},
	}
}
