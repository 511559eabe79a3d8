package streaming

import (
	"strings"
	"sync"
)

// TailBuffer is an io.Writer that keeps the most recent lines written through
// it. The launch command attaches one as an extra tee sink so a failing run
// can echo the application's last words.
type TailBuffer struct {
	mu       sync.Mutex
	maxLines int
	lines    []string
	partial  strings.Builder
}

// NewTailBuffer creates a tail buffer keeping up to maxLines lines.
func NewTailBuffer(maxLines int) *TailBuffer {
	if maxLines < 1 {
		maxLines = 1
	}
	return &TailBuffer{maxLines: maxLines}
}

// Write implements io.Writer. It never fails.
func (b *TailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range p {
		if c == '\n' {
			b.appendLine(b.partial.String())
			b.partial.Reset()
			continue
		}
		b.partial.WriteByte(c)
	}

	return len(p), nil
}

func (b *TailBuffer) appendLine(line string) {
	b.lines = append(b.lines, line)
	if len(b.lines) > b.maxLines {
		b.lines = b.lines[len(b.lines)-b.maxLines:]
	}
}

// Lines returns a copy of the buffered lines, oldest first. A trailing
// unterminated line is included last.
func (b *TailBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := append([]string(nil), b.lines...)
	if b.partial.Len() > 0 {
		out = append(out, b.partial.String())
	}
	return out
}
