package logfile

import (
	"fmt"
	"os"
	"strings"
)

// Truncate reduces the file at path to zero bytes, creating it if absent.
// The parent directory must already exist. The path is always one literal
// path, whatever it contains.
func Truncate(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to truncate %s: %w", path, err)
	}
	return f.Close()
}

// OpenAppend opens the file at path for appending, creating it if absent.
// The caller owns the returned file.
func OpenAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s for append: %w", path, err)
	}
	return f, nil
}

// TailLines returns up to n trailing lines of the file at path, oldest first.
// An empty or missing trailing newline does not produce an empty last line.
func TailLines(path string, n int) ([]string, error) {
	if n < 1 {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	text := strings.TrimSuffix(string(data), "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
