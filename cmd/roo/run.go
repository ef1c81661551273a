// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/roomoo/roo/internal/command"
	"github.com/roomoo/roo/internal/config"
	"github.com/roomoo/roo/internal/core"
	"github.com/roomoo/roo/internal/logging"
	"github.com/roomoo/roo/internal/observability"
	"github.com/roomoo/roo/internal/script"
	"github.com/roomoo/roo/internal/seed"
	"github.com/roomoo/roo/internal/session"
	"github.com/roomoo/roo/internal/store"
	"github.com/roomoo/roo/internal/world"
	"github.com/roomoo/roo/pkg/errutil"
)

// shutdownTimeout bounds the final checkpoint and server shutdown.
const shutdownTimeout = 30 * time.Second

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load the world and run a console session",
		Long: `Load the newest snapshot (or build a fresh world from the seed),
then run a console session on stdin/stdout as the first wizard.
Lines starting with ';' are evaluated as Lua; other lines are commands.
The world is checkpointed periodically and once more on exit.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithDeps(cmd.Context(), cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())

	return cmd
}

// runWithDeps runs the world with injectable dependencies.
// If deps is nil, default implementations are used.
func runWithDeps(ctx context.Context, cmd *cobra.Command, deps *RunDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &RunDeps{}
	}
	if deps.StoreFactory == nil {
		deps.StoreFactory = store.Open
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, registrars ...observability.Registrar) ObservabilityServer {
			return observability.NewServer(addr, ready, registrars...)
		}
	}
	if deps.Input == nil {
		deps.Input = cmd.InOrStdin()
	}
	if deps.Output == nil {
		deps.Output = cmd.OutOrStdout()
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logging.SetDefault("roo", version, cfg.Log.Format, cfg.Log.Level)

	worldSeed, err := loadSeed(cfg.World.Seed)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load,
			core.RegisterMetrics,
			command.RegisterMetrics,
			script.RegisterMetrics,
		)
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return fmt.Errorf("failed to start observability server: %w", startErr)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if stopErr := obsServer.Stop(shutdownCtx); stopErr != nil {
				slog.Warn("error stopping observability server", "error", stopErr)
			}
		}()
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	if cfg.Store.Driver == store.DriverFile {
		if err := config.EnsureDir(cfg.Store.Dir); err != nil {
			return err
		}
	}
	snapshots, err := deps.StoreFactory(ctx, store.Options{
		Driver:      cfg.Store.Driver,
		Dir:         cfg.Store.Dir,
		BaseName:    cfg.Store.BaseName,
		KeepBackups: cfg.Store.KeepBackups,
		Compress:    cfg.Store.Compress,
		BoltPath:    cfg.Store.BoltPath,
		PostgresURL: cfg.Store.PostgresURL,
	})
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}

	engine, err := core.Start(ctx, core.EngineConfig{
		Store:         snapshots,
		Fresh:         seed.Fresh(worldSeed, seed.WithCodeCheck(script.ValidateCode)),
		OnLoadFailure: cfg.World.OnLoadFailure,
		Options:       []world.Option{world.WithQuota(cfg.World.MaxObjectsPerOwner)},
	})
	if err != nil {
		_ = snapshots.Close() //nolint:errcheck // start error takes precedence
		return fmt.Errorf("failed to start world: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := engine.Close(shutdownCtx); closeErr != nil {
			errutil.LogErrorContext(shutdownCtx, slog.Default(), "final checkpoint failed", closeErr)
		}
	}()

	player, err := consolePlayer(ctx, engine.Shared())
	if err != nil {
		return err
	}

	notifier := core.NewNotifier()
	proxy := core.NewProxy(engine.Shared(),
		core.WithCodeValidator(script.Validator),
		core.WithCheckpointer(engine),
		core.WithNotifier(notifier),
	)
	runtime := script.New(proxy, script.WithTimeout(cfg.Script.Timeout))

	var dispatchOpts []command.DispatcherOption
	if cfg.RateLimit.Burst > 0 {
		rl := command.NewRateLimiter(command.RateLimiterConfig{
			BurstCapacity: cfg.RateLimit.Burst,
			SustainedRate: cfg.RateLimit.SustainedRate,
		})
		defer rl.Close()
		dispatchOpts = append(dispatchOpts, command.WithRateLimiter(rl))
	}
	dispatcher, err := command.NewDispatcher(engine.Shared(), runtime, dispatchOpts...)
	if err != nil {
		return oops.In("run").Wrap(err)
	}

	var sessionOpts []session.Option
	if obsServer != nil {
		sessionOpts = append(sessionOpts, session.WithMetrics(obsServer.Metrics()))
	}
	console := session.New(player, dispatcher, runtime, notifier, deps.Output, sessionOpts...)

	ready.Store(true)
	slog.InfoContext(ctx, "world ready",
		"store", cfg.Store.Driver,
		"player", player.String(),
		"checkpoint_interval", cfg.Checkpoint.Interval,
	)

	sessionCtx, endSession := context.WithCancel(ctx)
	defer endSession()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if runErr := engine.Run(sessionCtx, cfg.Checkpoint.Interval); runErr != nil {
			slog.Warn("checkpoint loop stopped", "error", runErr)
		}
	}()

	err = console.Run(sessionCtx, deps.Input)
	endSession()
	wg.Wait()
	ready.Store(false)

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("console session failed: %w", err)
	}
	slog.Info("shutting down")
	return nil
}

// loadSeed reads the seed at path, or returns the built-in minimal seed when
// path is empty.
func loadSeed(path string) (*seed.Seed, error) {
	if path == "" {
		return seed.Minimal(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.In("run").With("file", path).Wrapf(err, "read seed")
	}
	s, err := seed.Parse(data)
	if err != nil {
		return nil, oops.In("run").With("file", path).Wrap(err)
	}
	return s, nil
}

// consolePlayer picks the player the console connects as: the first
// wizard, or the first player when there is no wizard.
func consolePlayer(ctx context.Context, shared *core.Shared) (ulid.ULID, error) {
	return core.Query(ctx, shared, "console_player", func(db *world.Database) (ulid.ULID, error) {
		players := db.Players()
		for _, id := range players {
			if db.IsWizard(id) {
				return id, nil
			}
		}
		if len(players) > 0 {
			return players[0], nil
		}
		return world.None, oops.In("run").Code(command.CodeNoPlayer).Errorf("the world has no players")
	})
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
