package runtimeenv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeEnvRoot creates a fake environment prefix with a pinned interpreter
func makeEnvRoot(t *testing.T, interpreter string) string {
	t.Helper()

	root := t.TempDir()
	binDir := filepath.Join(root, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, interpreter), []byte("#!/bin/sh\n"), 0755))

	return root
}

// TestNewActivation_RequiresInterpreter verifies constructor validation
func TestNewActivation_RequiresInterpreter(t *testing.T) {
	_, err := NewActivation("/opt/env", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "interpreter")
}

// TestInterpreterPath_WithAndWithoutRoot covers pinned vs PATH resolution
func TestInterpreterPath_WithAndWithoutRoot(t *testing.T) {
	pinned, err := NewActivation("/opt/env", "python")
	require.NoError(t, err)
	assert.Equal(t, "/opt/env/bin/python", pinned.InterpreterPath())
	assert.Equal(t, "/opt/env/bin", pinned.BinDir())

	unpinned, err := NewActivation("", "python")
	require.NoError(t, err)
	assert.Equal(t, "python", unpinned.InterpreterPath())
	assert.Empty(t, unpinned.BinDir())
}

// TestResolve_PinnedInterpreter verifies the pinned binary is found
func TestResolve_PinnedInterpreter(t *testing.T) {
	root := makeEnvRoot(t, "python")

	a, err := NewActivation(root, "python")
	require.NoError(t, err)

	path, err := a.Resolve()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "bin", "python"), path)
}

// TestResolve_MissingPinnedInterpreter_Fails verifies a broken prefix errors
func TestResolve_MissingPinnedInterpreter_Fails(t *testing.T) {
	a, err := NewActivation(t.TempDir(), "python")
	require.NoError(t, err)

	_, err = a.Resolve()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "pinned interpreter not found")
}

// TestResolve_NoRoot_UsesPath verifies PATH fallback resolution
func TestResolve_NoRoot_UsesPath(t *testing.T) {
	a, err := NewActivation("", "sh")
	require.NoError(t, err)

	path, err := a.Resolve()

	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path), "PATH lookup should yield an absolute path")
}

// TestEnviron_ActivatesPrefix verifies the child environment construction
func TestEnviron_ActivatesPrefix(t *testing.T) {
	a, err := NewActivation("/opt/envs/mmfs", "python")
	require.NoError(t, err)

	base := []string{
		"PATH=/usr/local/bin:/usr/bin",
		"PYTHONHOME=/usr",
		"HOME=/home/trader",
		"CONDA_PREFIX=/opt/envs/other",
	}
	env := a.Environ(base)

	assert.Contains(t, env, "PATH=/opt/envs/mmfs/bin"+string(os.PathListSeparator)+"/usr/local/bin:/usr/bin",
		"Prefix bin dir must come first on PATH")
	assert.Contains(t, env, "VIRTUAL_ENV=/opt/envs/mmfs")
	assert.Contains(t, env, "CONDA_PREFIX=/opt/envs/mmfs")
	assert.Contains(t, env, "CONDA_DEFAULT_ENV=mmfs")
	assert.Contains(t, env, "HOME=/home/trader", "Unrelated variables pass through")

	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "PYTHONHOME="),
			"PYTHONHOME must be removed so the pinned interpreter uses its own installation")
	}
}

// TestEnviron_DoesNotMutateBase verifies the launcher environment is untouched
func TestEnviron_DoesNotMutateBase(t *testing.T) {
	a, err := NewActivation("/opt/envs/mmfs", "python")
	require.NoError(t, err)

	base := []string{"PATH=/usr/bin", "PYTHONHOME=/usr"}
	baseCopy := append([]string(nil), base...)

	_ = a.Environ(base)

	assert.Equal(t, baseCopy, base, "Environ must never mutate the base environment")
}

// TestEnviron_WithoutPath_StillSetsOne verifies PATH is synthesized if absent
func TestEnviron_WithoutPath_StillSetsOne(t *testing.T) {
	a, err := NewActivation("/opt/envs/mmfs", "python")
	require.NoError(t, err)

	env := a.Environ([]string{"HOME=/home/trader"})

	assert.Contains(t, env, "PATH=/opt/envs/mmfs/bin")
}

// TestEnviron_NoRoot_ReturnsCopy verifies the no-op activation copies base
func TestEnviron_NoRoot_ReturnsCopy(t *testing.T) {
	a, err := NewActivation("", "python")
	require.NoError(t, err)

	base := []string{"PATH=/usr/bin", "PYTHONHOME=/usr"}
	env := a.Environ(base)

	assert.Equal(t, base, env, "Without a root the environment passes through unchanged")

	env[0] = "PATH=/changed"
	assert.Equal(t, "PATH=/usr/bin", base[0], "Returned slice must be a copy")
}
