// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"codeexec-server/internal/command"
	"codeexec-server/internal/config"
	"codeexec-server/internal/container"
	"codeexec-server/internal/dashboard"
	"codeexec-server/internal/engine"
	"codeexec-server/internal/inspector"
	"codeexec-server/internal/jsonrpc"
	"codeexec-server/internal/toolsurface"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the stdio JSON-RPC service and dashboard (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.RunE = runServe
}

// runServe builds the construction graph once at start-up — Container
// Runtime Adapter, Execution Engine, Command Router, Inspector, JSON-RPC
// Front-End, and Dashboard as peer components with no mutable back-pointers
// — then blocks serving stdin until EOF or an interrupt signal.
func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "codeexec-server",
	})
	if os.Getenv("DEBUG") != "" {
		logger.SetLevel(log.DebugLevel)
	}

	cfg, err := config.NewProvider().Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		logger.Warn("failed to load config, using defaults", "err", err)
		cfg = config.DefaultConfig()
	}
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	runtime, err := container.NewEngine(container.EngineType(cfg.ContainerEngine))
	if err != nil {
		logger.Warn("no container runtime available, every call will use the subprocess fallback", "err", err)
		runtime = nil
	}

	eng := engine.New(
		runtime,
		tierLimits(cfg.Isolation),
		tierLimits(cfg.Persistent),
		tierLimits(cfg.Development),
		logger.WithPrefix("engine"),
	)

	router := command.New(eng)
	surface := toolsurface.New(eng, router)

	hub := inspector.NewHub()
	insp := inspector.New(cfg.InspectorBufferLimit, hub)

	jsonrpc.ServerVersion = getVersionString()
	rpcServer := jsonrpc.New(surface.Handle, logger.WithPrefix("jsonrpc"), insp)

	dash := dashboard.New(dashboard.Config{Port: cfg.InspectorPort}, insp, hub, logger.WithPrefix("dashboard"))
	if err := dash.Start(ctx); err != nil {
		logger.Error("failed to start dashboard", "err", err)
		return fmt.Errorf("failed to start dashboard: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = dash.Stop(shutdownCtx)
	}()

	logger.Info("codeexec-server ready", "dashboard", dash.Addr())

	if err := rpcServer.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("stdio server exited with error", "err", err)
		return err
	}

	eng.Cleanup(context.Background(), "")
	logger.Info("shutdown complete")
	return nil
}

func tierLimits(t config.TierConfig) engine.Limits {
	return engine.Limits{
		MemoryMiB:       t.MemoryMiB,
		CPUs:            t.CPUs,
		TmpfsMiB:        t.TmpfsMiB,
		Timeout:         time.Duration(t.TimeoutSeconds) * time.Second,
		NetworkDisabled: t.NetworkDisabled,
		ReadOnlyRootfs:  t.ReadOnlyRootfs,
	}
}
