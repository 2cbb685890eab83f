package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"resident/internal/capture"
	"resident/internal/config"
	"resident/internal/daemon"
	"resident/internal/logging"
	"resident/internal/operation"
	"resident/internal/protocol"
)

func runDaemon(cmd *cobra.Command, ctx *commandContext, s streams) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	// Writes to a closed stdout return EPIPE instead of killing the process.
	signal.Ignore(syscall.SIGPIPE)

	cfg, err := ctx.ensureConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sessionID := uuid.NewString()
	logger, logCloser, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Stderr:     s.err,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		SessionID:  sessionID,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()

	logger.Debug("configuration resolved",
		logging.String(logging.FieldEventType, "config_resolved"),
		logging.String("config_path", ctx.configPath),
		logging.Bool("config_file_present", ctx.configSeen),
		logging.String("version", version),
	)

	codec, err := protocol.ForFormat(cfg.Protocol.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", daemon.ErrStartup, err)
	}
	mode, err := capture.ParseMode(cfg.Daemon.CaptureMode)
	if err != nil {
		return fmt.Errorf("%w: %w", daemon.ErrStartup, err)
	}
	invoker, err := newInvoker(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", daemon.ErrStartup, err)
	}

	d, err := daemon.New(s.in, s.out, daemon.Options{
		Codec:          codec,
		Invoker:        invoker,
		Logger:         logger,
		CaptureMode:    mode,
		MaxLineBytes:   cfg.Daemon.MaxLineBytes,
		RequestTimeout: cfg.RequestTimeout(),
		ReclaimMemory:  cfg.Daemon.ReclaimMemory,
		LockPath:       cfg.Daemon.LockPath,
		SessionID:      sessionID,
	})
	if err != nil {
		logging.ErrorWithContext(logger, "daemon startup failed", "daemon_startup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check configuration and the instance lock"),
		)
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Warn("daemon close failed", logging.Error(err))
		}
	}()

	return d.Serve(signalCtx)
}

// newInvoker resolves built-in operations first and falls back to Go
// plugins named by the request locator.
func newInvoker(cfg *config.Config) (operation.Invocable, error) {
	resolver := operation.Chain{
		builtinRegistry(),
		operation.NewPluginResolver(cfg.Daemon.PluginDir),
	}
	return operation.NewDispatcher(resolver)
}

func builtinRegistry() *operation.Registry {
	reg := operation.NewRegistry()
	if err := operation.RegisterBuiltins(reg, version); err != nil {
		panic(err)
	}
	return reg
}
