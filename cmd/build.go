package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/mobuild/internal/build"
	"github.com/zjrosen/mobuild/internal/history"
	"github.com/zjrosen/mobuild/internal/log"
	"github.com/zjrosen/mobuild/internal/presentation"
	"github.com/zjrosen/mobuild/internal/tracing"
)

// session wires one build pipeline for a command: console reporter, tracer
// and history store. watch reuses a session across rebuilds.
type session struct {
	app      *app
	console  *presentation.Console
	wrapper  *build.Wrapper
	provider *tracing.Provider
	store    *history.Store // nil when history is disabled or unavailable
}

func (a *app) openSession(cmd *cobra.Command) (*session, error) {
	console := presentation.NewConsole(cmd.OutOrStdout(), presentation.WithNoColor(a.cfg.NoColor))

	provider, err := tracing.NewProvider(a.cfg.TracingProviderConfig(a.projectDir))
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	s := &session{
		app:      a,
		console:  console,
		provider: provider,
		wrapper: build.NewWrapper(
			a.newRunner(cmd.OutOrStdout(), cmd.ErrOrStderr()),
			build.WithReporter(console),
			build.WithTracer(provider.Tracer()),
		),
	}

	if a.cfg.History.Enabled {
		store, err := history.Open(a.cfg.HistoryPath(a.projectDir))
		if err != nil {
			// A broken history database must not block builds.
			log.Warn(log.CatHistory, "History disabled for this run", "error", err)
		} else {
			s.store = store
		}
	}
	return s, nil
}

// build runs one pipeline for platform and records it in history.
func (s *session) build(ctx context.Context, bc build.Config) error {
	res, err := s.wrapper.Run(ctx, bc)

	if s.store != nil {
		if saveErr := s.store.Save(ctx, history.NewRun(bc, res, err)); saveErr != nil {
			log.Warn(log.CatHistory, "Failed to record run", "error", saveErr)
		}
	}
	if err != nil && !errors.Is(err, build.ErrBuildCommandFailed) {
		return fmt.Errorf("%s build: %w", bc.Platform, err)
	}
	return err
}

func (s *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.provider.Shutdown(ctx); err != nil {
		log.Warn(log.CatTrace, "Failed to flush traces", "error", err)
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Warn(log.CatHistory, "Failed to close history", "error", err)
		}
	}
}

// runBuild builds platform once with the loaded configuration.
func (a *app) runBuild(cmd *cobra.Command, platform build.Platform) error {
	bc, err := a.cfg.BuildConfig(platform, a.projectDir)
	if err != nil {
		return fmt.Errorf("invalid %s configuration: %w", platform, err)
	}

	s, err := a.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.build(cmd.Context(), bc)
}
