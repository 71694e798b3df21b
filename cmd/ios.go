package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/mobuild/internal/build"
)

func newIOSCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ios",
		Aliases: []string{"ipa"},
		Short:   "Build an ad-hoc IPA",
		Long: `Run "flutter build ipa" and move the IPA into <output>/ios.

Examples:
  mobuild ios
  mobuild ios --export-method app-store
  mobuild ios --scheme Staging --configuration Release-Staging --clean`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBuild(cmd, build.PlatformIOS)
		},
	}

	flags := cmd.Flags()
	flags.String("scheme", "", "Xcode scheme (default: Runner)")
	flags.String("configuration", "", "Xcode build configuration (default: Release)")
	flags.String("export-method", "", "ad-hoc, app-store, development or enterprise")
	flags.String("workspace", "", "Xcode workspace, relative to the project")
	flags.Bool("clean", false, `run "flutter clean" before building`)

	_ = a.v.BindPFlag("ios.scheme", flags.Lookup("scheme"))
	_ = a.v.BindPFlag("ios.configuration", flags.Lookup("configuration"))
	_ = a.v.BindPFlag("ios.export_method", flags.Lookup("export-method"))
	_ = a.v.BindPFlag("ios.workspace", flags.Lookup("workspace"))
	_ = a.v.BindPFlag("ios.clean", flags.Lookup("clean"))

	return cmd
}
