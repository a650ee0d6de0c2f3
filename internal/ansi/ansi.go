// Package ansi turns raw console output into plain text for log capture.
package ansi

import (
	"bytes"
	"io"
	"sync"

	xansi "github.com/charmbracelet/x/ansi"
)

// maxPending bounds how much of an unterminated line is held back.
const maxPending = 4096

// Writer strips terminal escape sequences from everything written to it and
// forwards plain text to the underlying writer. Output is released a line at
// a time so sequences split across writes are still recognized.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	pending []byte
}

// NewWriter returns a Writer that forwards plain text to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write reports len(p) on success even when escape bytes were dropped.
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)

	end := bytes.LastIndexByte(w.pending, '\n') + 1
	if end == 0 {
		if len(w.pending) < maxPending {
			return len(p), nil
		}

		end = len(w.pending)
	}

	if err := w.emit(end); err != nil {
		return 0, err
	}

	return len(p), nil
}

// Flush writes any held-back partial line.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return nil
	}

	return w.emit(len(w.pending))
}

func (w *Writer) emit(end int) error {
	text := xansi.Strip(string(w.pending[:end]))
	w.pending = append(w.pending[:0], w.pending[end:]...)

	if text == "" {
		return nil
	}

	_, err := io.WriteString(w.w, text)

	return err
}
