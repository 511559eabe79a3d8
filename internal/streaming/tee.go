package streaming

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Tee copies a single byte stream to multiple sinks. Every live sink receives
// every byte in the order it was read. A sink that fails is dropped and its
// error recorded; the remaining sinks keep receiving data, and the source is
// drained to EOF even if all sinks have failed so the producer never stalls.
type Tee struct {
	mu        sync.Mutex
	sinks     []io.Writer
	sinkErrs  []error
	bufSize   int
	bytesRead int64
}

// NewTee creates a tee over the given sinks. bufSize is the read chunk size;
// values below 1 fall back to 32KB.
func NewTee(bufSize int, sinks ...io.Writer) *Tee {
	if bufSize < 1 {
		bufSize = 32 * 1024
	}
	return &Tee{
		sinks:    append([]io.Writer(nil), sinks...),
		sinkErrs: make([]error, len(sinks)),
		bufSize:  bufSize,
	}
}

// Copy reads from r until EOF or context cancellation, fanning every chunk
// out to the sinks. It returns the total number of bytes read and the first
// non-EOF read error, if any. Sink failures do not abort the copy; inspect
// SinkErrors afterwards.
func (t *Tee) Copy(ctx context.Context, r io.Reader) (int64, error) {
	buf := make([]byte, t.bufSize)

	for {
		select {
		case <-ctx.Done():
			return t.BytesRead(), ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			t.fanOut(buf[:n])
			t.mu.Lock()
			t.bytesRead += int64(n)
			t.mu.Unlock()
		}
		if err != nil {
			if err == io.EOF {
				return t.BytesRead(), nil
			}
			return t.BytesRead(), fmt.Errorf("read error: %w", err)
		}
	}
}

// fanOut writes one chunk to every live sink
func (t *Tee) fanOut(chunk []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, sink := range t.sinks {
		if sink == nil {
			continue
		}
		if _, err := sink.Write(chunk); err != nil {
			t.sinkErrs[i] = fmt.Errorf("sink %d write error: %w", i, err)
			t.sinks[i] = nil
		}
	}
}

// BytesRead returns the total number of bytes consumed from the source.
func (t *Tee) BytesRead() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bytesRead
}

// SinkErrors returns the recorded per-sink errors, indexed by sink position.
// Entries are nil for sinks that never failed.
func (t *Tee) SinkErrors() []error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]error(nil), t.sinkErrs...)
}

// FirstSinkError returns the first recorded sink error, or nil.
func (t *Tee) FirstSinkError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, err := range t.sinkErrs {
		if err != nil {
			return err
		}
	}
	return nil
}
