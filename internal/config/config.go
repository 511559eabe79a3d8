package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the launcher configuration for a single application deployment.
type Config struct {
	// AppRoot is the directory the application runs in. Relative paths the
	// application writes resolve under this directory.
	AppRoot string `json:"app_root"`

	// Entrypoint is the application entry point, relative to AppRoot.
	Entrypoint string `json:"entrypoint"`

	// Subcommand is the default entry point argument (run, run-sim, test, auth).
	Subcommand string `json:"subcommand"`

	// EnvRoot is the runtime environment prefix holding the pinned interpreter.
	EnvRoot string `json:"env_root"`

	// Interpreter is the interpreter binary name resolved under EnvRoot/bin.
	Interpreter string `json:"interpreter"`

	// LogFile receives a copy of the child's merged stdout and stderr.
	LogFile string `json:"log_file"`

	// ExtraLogFile is a second path truncated at launch. It is treated as one
	// literal path even when it looks malformed; Validate surfaces a warning
	// instead of guessing an intended path.
	ExtraLogFile string `json:"extra_log_file"`

	// LogLevel controls the launcher's own diagnostics (debug, info, warn, error).
	LogLevel string `json:"log_level"`

	// StrictPrepare aborts the launch on the first preparation failure. When
	// false the launcher logs each failure and still reaches the execution
	// stage, matching the historical shell behavior.
	StrictPrepare bool `json:"strict_prepare"`

	// ShutdownGraceSeconds is how long to wait after SIGTERM before SIGKILL.
	ShutdownGraceSeconds int `json:"shutdown_grace_seconds"`

	// BufferSize is the chunk size used when copying child output to sinks.
	BufferSize int `json:"buffer_size"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		AppRoot:              "/opt/fyersmmfs",
		Entrypoint:           "main.py",
		Subcommand:           "run",
		EnvRoot:              "/opt/miniconda3/envs/fyersmmfs",
		Interpreter:          "python",
		LogFile:              "/var/log/fyersmmfs/mmfs.log",
		ExtraLogFile:         "",
		LogLevel:             "info",
		StrictPrepare:        true,
		ShutdownGraceSeconds: 10,
		BufferSize:           64 * 1024,
	}
}

// Load reads configuration from the given path, falling back to the
// MMFS_CONFIG_PATH environment variable and then to mmfs-config.json in the
// working directory. A missing file is not an error; defaults apply.
// Individual MMFS_* environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath == "" {
		configPath = os.Getenv("MMFS_CONFIG_PATH")
		if configPath == "" {
			configPath = "mmfs-config.json"
		}
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies MMFS_* environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MMFS_APP_ROOT"); v != "" {
		cfg.AppRoot = v
	}
	if v := os.Getenv("MMFS_ENTRYPOINT"); v != "" {
		cfg.Entrypoint = v
	}
	if v := os.Getenv("MMFS_ENV_ROOT"); v != "" {
		cfg.EnvRoot = v
	}
	if v := os.Getenv("MMFS_INTERPRETER"); v != "" {
		cfg.Interpreter = v
	}
	if v := os.Getenv("MMFS_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("MMFS_EXTRA_LOG_FILE"); v != "" {
		cfg.ExtraLogFile = v
	}
	if v := os.Getenv("MMFS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MMFS_STRICT_PREPARE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StrictPrepare = b
		}
	}
}

// Save writes the configuration to the given path as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	return nil
}

// Validate checks the configuration and returns non-fatal warnings alongside
// any hard error.
func (c *Config) Validate() ([]string, error) {
	var warnings []string

	if c.AppRoot == "" {
		return warnings, fmt.Errorf("app_root cannot be empty")
	}
	if !filepath.IsAbs(c.AppRoot) {
		return warnings, fmt.Errorf("app_root must be an absolute path, got %q", c.AppRoot)
	}
	if c.Entrypoint == "" {
		return warnings, fmt.Errorf("entrypoint cannot be empty")
	}
	if c.Interpreter == "" {
		return warnings, fmt.Errorf("interpreter cannot be empty")
	}
	if c.LogFile == "" {
		return warnings, fmt.Errorf("log_file cannot be empty")
	}
	if !filepath.IsAbs(c.LogFile) {
		return warnings, fmt.Errorf("log_file must be an absolute path, got %q", c.LogFile)
	}
	if c.BufferSize <= 0 {
		return warnings, fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.ShutdownGraceSeconds < 0 {
		return warnings, fmt.Errorf("shutdown_grace_seconds cannot be negative, got %d", c.ShutdownGraceSeconds)
	}

	if c.EnvRoot == "" {
		warnings = append(warnings, "env_root is empty; the interpreter will be resolved from PATH")
	}
	if c.ExtraLogFile != "" && strings.ContainsAny(c.ExtraLogFile, " \t") {
		// Historically this path carried an embedded command token. It stays a
		// single literal path; we only flag it for the operator.
		warnings = append(warnings, fmt.Sprintf("extra_log_file %q contains whitespace and is likely misconfigured; it will be treated as one literal path", c.ExtraLogFile))
	}

	return warnings, nil
}

// ShutdownGrace returns the shutdown grace period as a duration.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}
