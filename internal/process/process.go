package process

import (
	"io"
	"os"
	"syscall"
)

// Process represents a running application process
type Process interface {
	// PID returns the process ID
	PID() int

	// Output returns the reader for the child's merged stdout and stderr.
	// Bytes arrive in the exact order the child wrote them.
	Output() io.ReadCloser

	// Wait blocks until the process has exited
	Wait() error

	// Signal sends a signal to the process (for graceful shutdown)
	Signal(signal Signal) error

	// Kill forcefully terminates the process
	Kill() error

	// IsRunning returns true if the process is still running
	IsRunning() bool

	// ExitCode returns the exit code once the process has finished, -1 before
	ExitCode() int
}

// Signal represents signals that can be sent to processes
type Signal int

const (
	SignalTerminate Signal = iota // SIGTERM
	SignalInterrupt               // SIGINT
	SignalKill                    // SIGKILL
)

// ConvertSignal converts Signal to os.Signal
func ConvertSignal(signal Signal) os.Signal {
	switch signal {
	case SignalTerminate:
		return syscall.SIGTERM
	case SignalInterrupt:
		return syscall.SIGINT
	case SignalKill:
		return syscall.SIGKILL
	default:
		return syscall.SIGTERM
	}
}
