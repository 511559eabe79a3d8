package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mmfs.ai/launcher/internal/config"
	"mmfs.ai/launcher/internal/launcher"
	"mmfs.ai/launcher/internal/logging"
	"mmfs.ai/launcher/internal/streaming"
)

// failureTailLines is how many trailing output lines a failing launch echoes
// to stderr.
const failureTailLines = 15

// newLaunchCommand creates the launch subcommand
func newLaunchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch [subcommand]",
		Short: "Launch the application and tee its output to the log file",
		Long: `Launch truncates the configured log files, builds the pinned interpreter
environment, starts the application entry point, and duplicates its merged
stdout and stderr to the log file (append mode) and to the terminal.

The optional argument is the entry point subcommand and defaults to the
configured one (normally "run").

Examples:
  mmfs launch
  mmfs launch run-sim
  mmfs launch --best-effort   # keep going past preparation failures`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLaunch,
	}

	cmd.Flags().String("log-file", "", "Override the log file path")
	cmd.Flags().String("app-root", "", "Override the application root directory")
	cmd.Flags().String("env-root", "", "Override the runtime environment root")
	cmd.Flags().Bool("best-effort", false, "Continue past preparation failures instead of aborting")

	return cmd
}

func runLaunch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("log-file"); v != "" {
		cfg.LogFile = v
	}
	if v, _ := cmd.Flags().GetString("app-root"); v != "" {
		cfg.AppRoot = v
	}
	if cmd.Flags().Changed("env-root") {
		cfg.EnvRoot, _ = cmd.Flags().GetString("env-root")
	}
	if bestEffort, _ := cmd.Flags().GetBool("best-effort"); bestEffort {
		cfg.StrictPrepare = false
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)

	warnings, err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, w := range warnings {
		logger.Warn(w)
	}

	subcommand := ""
	if len(args) > 0 {
		subcommand = args[0]
	}

	// Keep the newest output lines so a failing run can show what the
	// application said last, even when the log file is elsewhere.
	tail := streaming.NewTailBuffer(failureTailLines)

	l := launcher.New(cfg, logger, launcher.WithExtraSink(tail))
	code, err := l.Run(ctx, subcommand)
	if err != nil {
		return err
	}
	if code != 0 {
		for _, line := range tail.Lines() {
			fmt.Fprintln(os.Stderr, "  | "+line)
		}
		return &launcher.ExitError{Code: code}
	}

	return nil
}

// loadConfig loads the configuration honoring the persistent flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}
