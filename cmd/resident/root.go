package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"resident/internal/config"
)

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

type rootFlags struct {
	config         string
	logLevel       string
	logFormat      string
	logFile        string
	protocol       string
	capture        string
	lockPath       string
	pluginDir      string
	requestTimeout time.Duration

	initConfig  string
	overwrite   bool
	checkConfig bool
}

const longHelp = `resident reads one request per line from standard input, runs the named
operation inside this process, and writes one response per line to standard
output. It stops at end of input or on an exit request.

XML protocol (default):
  request   <Java ClassName="echo" Arguments="hello" Jar="/path/tool.so" />
  exit      <Java Exit="True" />
  response  <Java ExitCode="0" StandardOutput="hello&#xA;"></Java>

JSON protocol (--protocol json):
  request   {"operation":"echo","arguments":"hello","locator":"/path/tool.so"}
  exit      {"exit":true}
  response  {"exitCode":0,"stdout":"hello\n"}

A request that cannot be decoded, names an unknown operation, or whose
operation fails is answered with exit code -1 and a diagnostic in the
standard error field. Names not listed below are looked up as exported
symbols in the Go plugin(s) named by the locator.`

func newRootCommand(s streams) *cobra.Command {
	flags := &rootFlags{}
	ctx := newCommandContext(flags)

	rootCmd := &cobra.Command{
		Use:           "resident [flags]",
		Short:         "Run build operations in a resident process",
		Long:          longHelp,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case flags.initConfig != "":
				return runInitConfig(cmd, flags.initConfig, flags.overwrite)
			case flags.checkConfig:
				return runCheckConfig(cmd, ctx)
			default:
				return runDaemon(cmd, ctx, s)
			}
		},
	}
	rootCmd.SetIn(s.in)
	rootCmd.SetOut(s.out)
	rootCmd.SetErr(s.err)

	f := rootCmd.Flags()
	f.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&flags.logFormat, "log-format", "", "Log format on stderr (auto, console, json)")
	f.StringVar(&flags.logFile, "log-file", "", "Also write JSON logs to this rotated file")
	f.StringVar(&flags.protocol, "protocol", "", fmt.Sprintf("Wire format (%s, %s)", config.ProtocolXML, config.ProtocolJSON))
	f.StringVar(&flags.capture, "capture", "", fmt.Sprintf("Capture mode (%s, %s)", config.CaptureModeStream, config.CaptureModeDescriptor))
	f.StringVar(&flags.lockPath, "lock", "", "Hold an exclusive lock on this file while serving")
	f.StringVar(&flags.pluginDir, "plugin-dir", "", "Directory that relative plugin locators resolve against")
	f.DurationVar(&flags.requestTimeout, "request-timeout", 0, "Cancel each operation's context after this long (0 disables)")
	f.StringVar(&flags.initConfig, "init-config", "", "Write a sample configuration to this path and exit")
	f.BoolVar(&flags.overwrite, "overwrite", false, "With --init-config, replace an existing file")
	f.BoolVar(&flags.checkConfig, "check-config", false, "Print the effective configuration and exit")

	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		defaultHelp(cmd, args)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Built-in operations:")
		fmt.Fprintln(out, renderOperations(builtinRegistry().Describe()))
	})

	return rootCmd
}

func (f *rootFlags) overrides(cmd *cobra.Command) config.Overrides {
	o := config.Overrides{
		CaptureMode: f.capture,
		Protocol:    f.protocol,
		LogLevel:    f.logLevel,
		LogFormat:   f.logFormat,
		LogFile:     f.logFile,
		LockPath:    f.lockPath,
		PluginDir:   f.pluginDir,
	}
	if cmd.Flags().Changed("request-timeout") {
		timeout := f.requestTimeout
		o.RequestTimeout = &timeout
	}
	return o
}
