package launcher

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmfs.ai/launcher/internal/config"
	"mmfs.ai/launcher/internal/logging"
	"mmfs.ai/launcher/internal/streaming"
)

// testConfig builds a config around a scratch app root and a fake pinned
// interpreter whose body is the given shell script. The script sees the
// entry point as $1 and the subcommand as $2, just like the real one.
func testConfig(t *testing.T, script string) *config.Config {
	t.Helper()

	envRoot := t.TempDir()
	binDir := filepath.Join(envRoot, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(binDir, "python"),
		[]byte("#!/bin/sh\n"+script+"\n"),
		0755,
	))

	cfg := config.Defaults()
	cfg.AppRoot = t.TempDir()
	cfg.EnvRoot = envRoot
	cfg.LogFile = filepath.Join(t.TempDir(), "mmfs.log")
	cfg.ShutdownGraceSeconds = 5

	return cfg
}

func testLauncher(cfg *config.Config, stdout io.Writer) *Launcher {
	return New(cfg, logging.New(io.Discard, "error"), WithStdout(stdout))
}

// TestRun_TeesMergedOutputToLogAndStdout verifies both sinks get the full
// merged stream in emission order
func TestRun_TeesMergedOutputToLogAndStdout(t *testing.T) {
	cfg := testConfig(t, `echo out1; echo err1 1>&2; echo out2`)
	var stdout bytes.Buffer

	code, err := testLauncher(cfg, &stdout).Run(context.Background(), "run")

	require.NoError(t, err)
	assert.Equal(t, 0, code)

	logData, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Equal(t, "out1\nerr1\nout2\n", string(logData))
	assert.Equal(t, string(logData), stdout.String(),
		"Stdout passthrough must be an identical copy of the log")
}

// TestRun_SecondLaunchTruncatesPriorLog is the truncation idempotence
// property: only the latest run's output survives
func TestRun_SecondLaunchTruncatesPriorLog(t *testing.T) {
	cfg := testConfig(t, `echo "tag:$MMFS_TEST_TAG"`)

	t.Setenv("MMFS_TEST_TAG", "first")
	_, err := testLauncher(cfg, io.Discard).Run(context.Background(), "run")
	require.NoError(t, err)

	t.Setenv("MMFS_TEST_TAG", "second")
	_, err = testLauncher(cfg, io.Discard).Run(context.Background(), "run")
	require.NoError(t, err)

	logData, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Equal(t, "tag:second\n", string(logData),
		"No residue from the first run may survive the second launch")
}

// TestRun_RelativePathsResolveUnderAppRoot verifies the working-directory
// effect: files the application writes land under the app root
func TestRun_RelativePathsResolveUnderAppRoot(t *testing.T) {
	cfg := testConfig(t, `echo data > artifact.txt`)

	code, err := testLauncher(cfg, io.Discard).Run(context.Background(), "run")

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(cfg.AppRoot, "artifact.txt"))
}

// TestRun_UsesPinnedInterpreter verifies the child runs the environment's
// interpreter, not whatever PATH would resolve
func TestRun_UsesPinnedInterpreter(t *testing.T) {
	cfg := testConfig(t, `echo "self:$0"; echo "venv:$VIRTUAL_ENV"`)

	var stdout bytes.Buffer
	_, err := testLauncher(cfg, &stdout).Run(context.Background(), "run")
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "self:"+filepath.Join(cfg.EnvRoot, "bin", "python"))
	assert.Contains(t, stdout.String(), "venv:"+cfg.EnvRoot,
		"The child must see the activated environment variables")
}

// TestRun_DefaultSubcommand verifies the configured subcommand applies when
// none is given
func TestRun_DefaultSubcommand(t *testing.T) {
	cfg := testConfig(t, `echo "args:$1 $2"`)

	var stdout bytes.Buffer
	_, err := testLauncher(cfg, &stdout).Run(context.Background(), "")
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "args:main.py run")
}

// TestRun_PropagatesExitCode verifies the launcher reports the child's real
// exit status rather than the tee's
func TestRun_PropagatesExitCode(t *testing.T) {
	cfg := testConfig(t, `echo failing; exit 7`)

	code, err := testLauncher(cfg, io.Discard).Run(context.Background(), "run")

	require.NoError(t, err, "A failing child is not a launcher error")
	assert.Equal(t, 7, code)
}

// TestRun_ExtraLogFileTruncated verifies the secondary path is emptied as one
// literal path
func TestRun_ExtraLogFileTruncated(t *testing.T) {
	cfg := testConfig(t, `true`)
	cfg.ExtraLogFile = filepath.Join(t.TempDir(), "nohup mmfs.log")
	require.NoError(t, os.WriteFile(cfg.ExtraLogFile, []byte("stale"), 0644))

	_, err := testLauncher(cfg, io.Discard).Run(context.Background(), "run")
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.ExtraLogFile)
	require.NoError(t, err)
	assert.Empty(t, data)
}

// TestRun_StrictMode_AbortsOnMissingAppRoot verifies fail-fast preparation
func TestRun_StrictMode_AbortsOnMissingAppRoot(t *testing.T) {
	cfg := testConfig(t, `true`)
	cfg.AppRoot = "/no/such/app/root"

	code, err := testLauncher(cfg, io.Discard).Run(context.Background(), "run")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "launch preparation failed")
	assert.Equal(t, -1, code)
}

// TestRun_StrictMode_AbortsOnMissingInterpreter verifies a broken env root
// fails before the execution stage
func TestRun_StrictMode_AbortsOnMissingInterpreter(t *testing.T) {
	cfg := testConfig(t, `true`)
	cfg.EnvRoot = t.TempDir() // no bin/python inside

	_, err := testLauncher(cfg, io.Discard).Run(context.Background(), "run")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pinned interpreter not found")
}

// TestRun_BestEffort_ReachesExecutionStage is the legacy keep-going behavior:
// a missing working directory must not abort before the execution stage
func TestRun_BestEffort_ReachesExecutionStage(t *testing.T) {
	cfg := testConfig(t, `true`)
	cfg.AppRoot = "/no/such/app/root"
	cfg.StrictPrepare = false

	code, err := testLauncher(cfg, io.Discard).Run(context.Background(), "run")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start application",
		"The failure must come from the execution stage, not preparation")
	assert.Equal(t, -1, code)
}

// TestRun_BestEffort_MissingInterpreter_FailsAtExecution keeps the pinned
// path and lets the start attempt report it
func TestRun_BestEffort_MissingInterpreter_FailsAtExecution(t *testing.T) {
	cfg := testConfig(t, `true`)
	cfg.EnvRoot = t.TempDir() // no bin/python inside
	cfg.StrictPrepare = false

	_, err := testLauncher(cfg, io.Discard).Run(context.Background(), "run")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start application")
}

// TestRun_GracefulShutdownOnCancel verifies SIGTERM-first shutdown
func TestRun_GracefulShutdownOnCancel(t *testing.T) {
	cfg := testConfig(t, strings.Join([]string{
		`trap 'exit 0' TERM`,
		`echo ready`,
		`sleep 30 &`,
		`wait`,
	}, "\n"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		code int
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		code, err := testLauncher(cfg, io.Discard).Run(ctx, "run")
		resCh <- result{code, err}
	}()

	// Wait until the application reports readiness through the log file
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(cfg.LogFile)
		return err == nil && strings.Contains(string(data), "ready")
	}, 5*time.Second, 20*time.Millisecond, "Application never became ready")

	cancel()

	select {
	case res := <-resCh:
		require.NoError(t, res.err)
		assert.Equal(t, 0, res.code, "A child that handles SIGTERM cleanly exits 0")
	case <-time.After(10 * time.Second):
		t.Fatal("Launcher did not return after cancellation")
	}
}

// TestRun_ExtraSinkReceivesOutput verifies an attached tail buffer sees the
// same merged stream as the log file, line for line
func TestRun_ExtraSinkReceivesOutput(t *testing.T) {
	cfg := testConfig(t, `echo one; echo two 1>&2; echo three`)

	tail := streaming.NewTailBuffer(2)
	l := New(cfg, logging.New(io.Discard, "error"),
		WithStdout(io.Discard), WithExtraSink(tail))

	code, err := l.Run(context.Background(), "run")

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"two", "three"}, tail.Lines(),
		"The tail buffer must hold the newest merged lines")
}

// TestRun_BackgroundDescendantDoesNotBlockReturn verifies Run comes back once
// the child itself exits, even when a background process it spawned inherits
// the output pipe and keeps it open
func TestRun_BackgroundDescendantDoesNotBlockReturn(t *testing.T) {
	cfg := testConfig(t, strings.Join([]string{
		`echo started`,
		`sleep 20 &`,
		`exit 5`,
	}, "\n"))

	var stdout bytes.Buffer
	start := time.Now()
	code, err := testLauncher(cfg, &stdout).Run(context.Background(), "run")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 5, code)
	assert.Contains(t, stdout.String(), "started")
	assert.Less(t, elapsed, 5*time.Second,
		"Run must not wait on the orphaned holder of the output pipe")
}

// TestExitError_Message formats the carried code
func TestExitError_Message(t *testing.T) {
	err := &ExitError{Code: 3}

	assert.Equal(t, "application exited with code 3", err.Error())
}
