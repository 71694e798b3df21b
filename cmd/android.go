package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/mobuild/internal/build"
)

func newAndroidCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "android",
		Aliases: []string{"apk"},
		Short:   "Build a release APK",
		Long: `Run "flutter build apk" and move the APK into <output>/apk.

By default the project is cleaned first and the APK is built in release mode
for android-arm, android-arm64 and android-x64.

Examples:
  mobuild android
  mobuild android --mode debug --clean=false
  mobuild android --flavor staging --target-platform android-arm64`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBuild(cmd, build.PlatformAndroid)
		},
	}

	flags := cmd.Flags()
	flags.String("mode", "", "build mode: debug, profile or release")
	flags.String("flavor", "", "product flavor")
	flags.StringSlice("target-platform", nil, "target ABIs, comma-separated")
	flags.Bool("clean", true, `run "flutter clean" before building`)

	_ = a.v.BindPFlag("android.mode", flags.Lookup("mode"))
	_ = a.v.BindPFlag("android.flavor", flags.Lookup("flavor"))
	_ = a.v.BindPFlag("android.target_platforms", flags.Lookup("target-platform"))
	_ = a.v.BindPFlag("android.clean", flags.Lookup("clean"))

	return cmd
}
