package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"resident/internal/config"
)

func runInitConfig(cmd *cobra.Command, target string, overwrite bool) error {
	expanded, err := config.ExpandPath(target)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	dir := filepath.Dir(expanded)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory %q: %w", dir, err)
	}
	if !overwrite {
		if _, err := os.Stat(expanded); err == nil {
			return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", expanded)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("check config path: %w", err)
		}
	}
	if err := config.CreateSample(expanded); err != nil {
		return fmt.Errorf("create sample config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", expanded)
	return nil
}

func runCheckConfig(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	source := ctx.configPath
	if !ctx.configSeen {
		source += " (not found, using defaults)"
	}
	orNone := func(v string) string {
		if v == "" {
			return "(none)"
		}
		return v
	}
	rows := [][]string{
		{"config", source},
		{"daemon.capture_mode", cfg.Daemon.CaptureMode},
		{"daemon.max_line_bytes", strconv.Itoa(cfg.Daemon.MaxLineBytes)},
		{"daemon.request_timeout", cfg.RequestTimeout().String()},
		{"daemon.reclaim_memory", strconv.FormatBool(cfg.Daemon.ReclaimMemory)},
		{"daemon.lock_path", orNone(cfg.Daemon.LockPath)},
		{"daemon.plugin_dir", orNone(cfg.Daemon.PluginDir)},
		{"protocol.format", cfg.Protocol.Format},
		{"logging.level", cfg.Logging.Level},
		{"logging.format", cfg.Logging.Format},
		{"logging.file", orNone(cfg.Logging.File)},
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows))
	return nil
}
