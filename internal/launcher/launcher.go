package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"mmfs.ai/launcher/internal/config"
	"mmfs.ai/launcher/internal/logfile"
	"mmfs.ai/launcher/internal/process"
	"mmfs.ai/launcher/internal/runtimeenv"
	"mmfs.ai/launcher/internal/streaming"
)

// outputDrainWindow is how long Run keeps reading the merged pipe after the
// child has exited before forcing it closed.
const outputDrainWindow = time.Second

// ExitError carries the child's exit code up to main so the launcher can
// exit with the application's real status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("application exited with code %d", e.Code)
}

// Launcher prepares log files and the runtime environment, starts the
// application entry point, and tees its merged output to the log file and to
// the launcher's stdout.
type Launcher struct {
	cfg      *config.Config
	executor *process.Executor
	logger   *log.Logger

	stdout     io.Writer
	extraSinks []io.Writer
}

// Option customizes a Launcher.
type Option func(*Launcher)

// WithStdout redirects the passthrough sink (used by tests and by watch).
func WithStdout(w io.Writer) Option {
	return func(l *Launcher) {
		l.stdout = w
	}
}

// WithExtraSink adds another tee sink, such as the failure tail buffer.
func WithExtraSink(w io.Writer) Option {
	return func(l *Launcher) {
		l.extraSinks = append(l.extraSinks, w)
	}
}

// New creates a Launcher for the given configuration.
func New(cfg *config.Config, logger *log.Logger, opts ...Option) *Launcher {
	l := &Launcher{
		cfg:      cfg,
		executor: process.NewExecutor(),
		logger:   logger,
		stdout:   os.Stdout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes the launch pipeline and returns the application's exit code.
// In strict mode every preparation failure aborts the launch; otherwise it is
// logged and the pipeline continues to the execution stage regardless, as the
// historical launcher did. Cancelling ctx requests a graceful shutdown:
// SIGTERM first, SIGKILL after the configured grace period. The returned exit
// code is always the child's own.
func (l *Launcher) Run(ctx context.Context, subcommand string) (int, error) {
	if subcommand == "" {
		subcommand = l.cfg.Subcommand
	}

	cmd, logSink, err := l.prepare(subcommand)
	if err != nil {
		return -1, err
	}
	if logSink != nil {
		defer logSink.Close()
	}

	l.logger.WithFields(log.Fields{
		"command":  cmd.String(),
		"app_root": l.cfg.AppRoot,
		"log_file": l.cfg.LogFile,
	}).Info("starting application")

	// The executor gets a background context: shutdown is driven below via
	// signals so the child gets a chance to exit cleanly.
	proc, err := l.executor.Execute(context.Background(), cmd)
	if err != nil {
		return -1, fmt.Errorf("failed to start application: %w", err)
	}

	l.logger.WithField("pid", proc.PID()).Debug("application started")

	sinks := make([]io.Writer, 0, 2+len(l.extraSinks))
	if logSink != nil {
		sinks = append(sinks, logSink)
	}
	sinks = append(sinks, l.stdout)
	sinks = append(sinks, l.extraSinks...)

	tee := streaming.NewTee(l.cfg.BufferSize, sinks...)

	copyDone := make(chan error, 1)
	go func() {
		// The copy runs to EOF on its own context: output must be drained
		// even while a shutdown is in progress.
		_, copyErr := tee.Copy(context.Background(), proc.Output())
		copyDone <- copyErr
	}()

	waitDone := make(chan struct{})
	go func() {
		proc.Wait()
		close(waitDone)
	}()

	select {
	case <-ctx.Done():
		l.shutdown(proc, waitDone)
	case <-waitDone:
	}

	// A background process spawned by the child inherits the write end of
	// the merged pipe and keeps it open past the child's exit, so EOF may
	// never arrive. Once the child itself is gone, give the copy a short
	// window to drain buffered output, then close the read end to force the
	// pending read to return.
	var copyErr error
	select {
	case copyErr = <-copyDone:
	case <-time.After(outputDrainWindow):
		l.logger.Warn("output pipe still open after exit, closing it")
		proc.Output().Close()
		copyErr = <-copyDone
	}
	if copyErr != nil && !errors.Is(copyErr, os.ErrClosed) {
		l.logger.WithError(copyErr).Warn("output copy ended with error")
	}
	proc.Output().Close()

	if sinkErr := tee.FirstSinkError(); sinkErr != nil {
		l.logger.WithError(sinkErr).Warn("an output sink failed during the run")
	}

	exitCode := proc.ExitCode()
	l.logger.WithFields(log.Fields{
		"exit_code":  exitCode,
		"bytes_teed": tee.BytesRead(),
	}).Info("application exited")

	return exitCode, nil
}

// prepare runs the preparatory pipeline: truncate log files, validate the
// application root, activate the runtime environment, and build the child
// command. The returned log sink may be nil in non-strict mode when the log
// file could not be opened.
func (l *Launcher) prepare(subcommand string) (process.Command, *os.File, error) {
	if err := logfile.Truncate(l.cfg.LogFile); err != nil {
		if failErr := l.prepFailure(err); failErr != nil {
			return process.Command{}, nil, failErr
		}
	}

	if l.cfg.ExtraLogFile != "" {
		if err := logfile.Truncate(l.cfg.ExtraLogFile); err != nil {
			if failErr := l.prepFailure(err); failErr != nil {
				return process.Command{}, nil, failErr
			}
		}
	}

	if stat, err := os.Stat(l.cfg.AppRoot); err != nil || !stat.IsDir() {
		rootErr := fmt.Errorf("application root %s is not a directory", l.cfg.AppRoot)
		if failErr := l.prepFailure(rootErr); failErr != nil {
			return process.Command{}, nil, failErr
		}
	}

	activation, err := runtimeenv.NewActivation(l.cfg.EnvRoot, l.cfg.Interpreter)
	if err != nil {
		return process.Command{}, nil, fmt.Errorf("invalid runtime environment: %w", err)
	}

	interpreter, err := activation.Resolve()
	if err != nil {
		if failErr := l.prepFailure(err); failErr != nil {
			return process.Command{}, nil, failErr
		}
		// Keep the pinned path anyway; the execution stage reports the
		// failure, as the historical launcher did.
		interpreter = activation.InterpreterPath()
	}

	cmd, err := process.NewCommandWithOptions(
		interpreter,
		[]string{l.cfg.Entrypoint, subcommand},
		l.cfg.AppRoot,
		activation.Environ(os.Environ()),
	)
	if err != nil {
		return process.Command{}, nil, fmt.Errorf("failed to build command: %w", err)
	}

	logSink, err := logfile.OpenAppend(l.cfg.LogFile)
	if err != nil {
		if failErr := l.prepFailure(err); failErr != nil {
			return process.Command{}, nil, failErr
		}
		logSink = nil
	}

	return cmd, logSink, nil
}

// prepFailure turns a preparation error into an abort in strict mode and a
// logged warning otherwise.
func (l *Launcher) prepFailure(err error) error {
	if l.cfg.StrictPrepare {
		return fmt.Errorf("launch preparation failed: %w", err)
	}
	l.logger.WithError(err).Warn("launch preparation step failed, continuing")
	return nil
}

// shutdown asks the child to terminate, escalating to SIGKILL after the
// grace period.
func (l *Launcher) shutdown(proc process.Process, waitDone <-chan struct{}) {
	l.logger.Info("shutdown requested, signalling application")

	if err := proc.Signal(process.SignalTerminate); err != nil {
		l.logger.WithError(err).Warn("failed to send SIGTERM")
	}

	select {
	case <-waitDone:
	case <-time.After(l.cfg.ShutdownGrace()):
		l.logger.Warn("grace period expired, killing application")
		if err := proc.Kill(); err != nil {
			l.logger.WithError(err).Warn("failed to kill application")
		}
		<-waitDone
	}
}
