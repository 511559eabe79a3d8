package runtimeenv

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Activation describes a runtime environment prefix holding a pinned
// interpreter. Activating it never mutates the launcher's own process
// environment: Environ derives a fresh environment for the child instead.
type Activation struct {
	root        string
	interpreter string
}

// NewActivation creates an Activation for the given environment root and
// interpreter binary name. An empty root is allowed and means "no pinned
// environment": the interpreter then resolves from the inherited PATH.
func NewActivation(root, interpreter string) (Activation, error) {
	if interpreter == "" {
		return Activation{}, fmt.Errorf("interpreter cannot be empty")
	}
	return Activation{root: root, interpreter: interpreter}, nil
}

// Root returns the environment root prefix, which may be empty.
func (a Activation) Root() string {
	return a.root
}

// BinDir returns the environment's binary directory, or empty without a root.
func (a Activation) BinDir() string {
	if a.root == "" {
		return ""
	}
	return filepath.Join(a.root, "bin")
}

// InterpreterPath returns the pinned interpreter path under the environment
// root, or just the interpreter name when no root is configured.
func (a Activation) InterpreterPath() string {
	if a.root == "" {
		return a.interpreter
	}
	return filepath.Join(a.BinDir(), a.interpreter)
}

// Resolve verifies that the pinned interpreter exists and returns its path.
// Without a root it falls back to a PATH lookup.
func (a Activation) Resolve() (string, error) {
	if a.root == "" {
		path, err := exec.LookPath(a.interpreter)
		if err != nil {
			return "", fmt.Errorf("interpreter %s not found in PATH: %w", a.interpreter, err)
		}
		return path, nil
	}

	path := a.InterpreterPath()
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("pinned interpreter not found at %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("pinned interpreter path %s is a directory", path)
	}
	return path, nil
}

// Environ builds the child environment from the given base environment:
// the environment's bin directory is prepended to PATH, the prefix variables
// are set, and PYTHONHOME is removed so the pinned interpreter uses its own
// installation. The base slice is not modified. With no root configured the
// base is returned as a copy, unchanged.
func (a Activation) Environ(base []string) []string {
	if a.root == "" {
		return append([]string(nil), base...)
	}

	env := make([]string, 0, len(base)+3)
	pathSeen := false

	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			env = append(env, kv)
			continue
		}
		switch key {
		case "PATH":
			env = append(env, "PATH="+a.BinDir()+string(os.PathListSeparator)+value)
			pathSeen = true
		case "PYTHONHOME", "VIRTUAL_ENV", "CONDA_PREFIX", "CONDA_DEFAULT_ENV":
			// Replaced below, or dropped in PYTHONHOME's case
		default:
			env = append(env, kv)
		}
	}

	if !pathSeen {
		env = append(env, "PATH="+a.BinDir())
	}

	env = append(env,
		"VIRTUAL_ENV="+a.root,
		"CONDA_PREFIX="+a.root,
		"CONDA_DEFAULT_ENV="+filepath.Base(a.root),
	)

	return env
}
