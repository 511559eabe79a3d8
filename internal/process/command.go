package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Command represents an application command to be executed by the launcher
type Command struct {
	executable string
	args       []string
	workingDir string
	env        []string
}

// NewCommand creates a new Command value object
func NewCommand(executable string, args []string) (Command, error) {
	if executable == "" {
		return Command{}, fmt.Errorf("executable cannot be empty")
	}

	// Get current working directory as default
	workingDir, err := os.Getwd()
	if err != nil {
		workingDir = "."
	}

	return Command{
		executable: executable,
		args:       append([]string(nil), args...), // Copy slice
		workingDir: workingDir,
	}, nil
}

// NewCommandWithOptions creates a command with a working directory and an
// explicit environment. A nil env means the child inherits the launcher's
// environment unchanged.
func NewCommandWithOptions(executable string, args []string, workingDir string, env []string) (Command, error) {
	cmd, err := NewCommand(executable, args)
	if err != nil {
		return Command{}, err
	}

	if workingDir != "" {
		// Resolve working directory to absolute path
		if !filepath.IsAbs(workingDir) {
			if absDir, err := filepath.Abs(workingDir); err == nil {
				workingDir = absDir
			}
		}
		cmd = cmd.WithWorkingDir(workingDir)
	}
	if env != nil {
		cmd = cmd.WithEnv(env)
	}

	return cmd, nil
}

// Executable returns the command executable
func (c Command) Executable() string {
	return c.executable
}

// Args returns a copy of the command arguments
func (c Command) Args() []string {
	return append([]string(nil), c.args...)
}

// WorkingDir returns the working directory for the command
func (c Command) WorkingDir() string {
	return c.workingDir
}

// Env returns a copy of the explicit child environment, or nil when the
// command inherits the launcher's environment.
func (c Command) Env() []string {
	if c.env == nil {
		return nil
	}
	return append([]string(nil), c.env...)
}

// String returns a string representation of the command
func (c Command) String() string {
	if len(c.args) == 0 {
		return c.executable
	}
	return fmt.Sprintf("%s %s", c.executable, strings.Join(c.args, " "))
}

// WithWorkingDir returns a new Command with a different working directory
func (c Command) WithWorkingDir(workingDir string) Command {
	return Command{
		executable: c.executable,
		args:       append([]string(nil), c.args...),
		workingDir: workingDir,
		env:        append([]string(nil), c.env...),
	}
}

// WithEnv returns a new Command with the given explicit environment
func (c Command) WithEnv(env []string) Command {
	return Command{
		executable: c.executable,
		args:       append([]string(nil), c.args...),
		workingDir: c.workingDir,
		env:        append([]string(nil), env...),
	}
}

// IsValid validates the command structure
func (c Command) IsValid() error {
	if c.executable == "" {
		return fmt.Errorf("executable cannot be empty")
	}

	// Check if working directory exists (if it's an absolute path)
	if filepath.IsAbs(c.workingDir) {
		if stat, err := os.Stat(c.workingDir); err != nil || !stat.IsDir() {
			return fmt.Errorf("working directory does not exist: %s", c.workingDir)
		}
	}

	return nil
}
