package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/mobuild/internal/build"
	"github.com/zjrosen/mobuild/internal/log"
	"github.com/zjrosen/mobuild/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch android|ios",
		Short: "Rebuild whenever project sources change",
		Long: `Build once, then rebuild each time lib/, pubspec.yaml, android/, ios/ or
assets/ change. Bursts of edits are coalesced into one rebuild. A failed
build is reported and watching continues; stop with Ctrl-C.

Configure watched paths and the debounce interval under "watch" in the
config file.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(build.PlatformAndroid), string(build.PlatformIOS)},
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := build.ParsePlatform(args[0])
			if err != nil {
				return err
			}
			return a.runWatch(cmd, platform)
		},
	}
}

func (a *app) runWatch(cmd *cobra.Command, platform build.Platform) error {
	bc, err := a.cfg.BuildConfig(platform, a.projectDir)
	if err != nil {
		return fmt.Errorf("invalid %s configuration: %w", platform, err)
	}

	wcfg := watcher.DefaultConfig(a.projectDir)
	if len(a.cfg.Watch.Paths) > 0 {
		wcfg.Paths = a.cfg.Watch.Paths
	}
	if a.cfg.Watch.Debounce > 0 {
		wcfg.DebounceDur = a.cfg.Watch.Debounce
	}

	w, err := watcher.New(wcfg)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	if err != nil {
		return err
	}

	s, err := a.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	rebuild := func() error {
		err := s.build(ctx, bc)
		switch {
		case err == nil, errors.Is(err, build.ErrBuildCommandFailed):
			// Failures were reported; keep watching.
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}
		// Drop whatever the build itself wrote under the watched paths.
		w.Flush()
		s.console.Infof("Watching %s for changes...", a.projectDir)
		return nil
	}

	if err := rebuild(); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			log.Info(log.CatWatcher, "Watch stopped", "reason", ctx.Err())
			return nil
		case <-onChange:
			s.console.Infof("Change detected, rebuilding")
			if err := rebuild(); err != nil {
				return err
			}
		}
	}
}
