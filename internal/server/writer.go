package server

import (
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"
)

// Writer emits one response per line. Concurrent callers never interleave: each line is
// encoded first and then written with a single Write under the lock.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes resp and writes it followed by a newline.
func (w *Writer) Write(resp Response) error {
	line, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(line); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
