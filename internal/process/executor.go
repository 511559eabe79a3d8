package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
)

// Executor starts application processes with their stdout and stderr merged
// into a single stream, the way a shell's 2>&1 redirection would.
type Executor struct{}

// NewExecutor creates a new process executor
func NewExecutor() *Executor {
	return &Executor{}
}

// Execute starts the command and returns a Process handle. Both child output
// streams share one pipe, so interleaving is preserved exactly as produced.
func (e *Executor) Execute(ctx context.Context, cmd Command) (Process, error) {
	execCmd := exec.CommandContext(ctx, cmd.Executable(), cmd.Args()...)

	if cmd.WorkingDir() != "" {
		execCmd.Dir = cmd.WorkingDir()
	}

	// nil Env means inherit; an explicit environment replaces it entirely
	execCmd.Env = cmd.Env()

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create output pipe: %w", err)
	}
	execCmd.Stdout = pw
	execCmd.Stderr = pw

	if err := execCmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("failed to start process: %w", err)
	}

	// The child holds its own copy of the write end; dropping ours lets the
	// reader see EOF as soon as the child exits.
	pw.Close()

	proc := &osProcess{
		cmd:      execCmd,
		output:   pr,
		running:  true,
		exitCode: -1,
		done:     make(chan struct{}),
	}

	go proc.monitor()

	return proc, nil
}

// osProcess implements the Process interface
type osProcess struct {
	cmd    *exec.Cmd
	output io.ReadCloser

	mu       sync.RWMutex
	running  bool
	exitCode int
	waitErr  error
	done     chan struct{}
}

// PID returns the process ID
func (p *osProcess) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return -1
	}
	return p.cmd.Process.Pid
}

// Output returns the merged stdout+stderr reader
func (p *osProcess) Output() io.ReadCloser {
	return p.output
}

// Wait blocks until the process has exited
func (p *osProcess) Wait() error {
	<-p.done
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.waitErr
}

func (p *osProcess) Signal(signal Signal) error {
	if p.cmd == nil || p.cmd.Process == nil {
		return fmt.Errorf("process not running")
	}
	return p.cmd.Process.Signal(ConvertSignal(signal))
}

func (p *osProcess) Kill() error {
	if p.cmd == nil || p.cmd.Process == nil {
		return fmt.Errorf("process not running")
	}
	return p.cmd.Process.Kill()
}

func (p *osProcess) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *osProcess) ExitCode() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exitCode
}

func (p *osProcess) monitor() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.running = false
	p.waitErr = err

	if exitError, ok := err.(*exec.ExitError); ok {
		p.exitCode = exitError.ExitCode()
	} else if err == nil {
		p.exitCode = 0
	} else {
		p.exitCode = -1
	}
	p.mu.Unlock()

	// The output read end stays open: the consumer drains it to EOF and
	// closes it itself.
	close(p.done)
}
