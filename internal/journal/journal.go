// Package journal writes free-text run journals. The engine emits
// human-readable progress notes (capital before/after, position opened/closed
// details) through a Writer; entries are observational only and never read
// back.
package journal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Writer appends journal entries to a file and optionally mirrors them to stdout.
// The zero-value Writer discards everything, so callers never need nil checks.
type Writer struct {
	mu     sync.Mutex
	file   io.WriteCloser
	stdout bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithStdout mirrors every entry to standard output.
func WithStdout() Option {
	return func(w *Writer) {
		w.stdout = true
	}
}

// NewWriter creates a journal writer that appends to a timestamped file under
// dir. The directory is created if missing.
func NewWriter(dir string, opts ...Option) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	name := fmt.Sprintf("journal_%s.txt", time.Now().Format("20060102_150405"))

	file, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create journal file: %w", err)
	}

	writer := &Writer{
		file:   file,
		stdout: false,
	}
	for _, opt := range opts {
		opt(writer)
	}

	return writer, nil
}

// Discard returns a writer that drops all entries. Useful for tests and for
// callers that do not care about the journal.
func Discard() *Writer {
	return &Writer{
		file:   nil,
		stdout: false,
	}
}

// Write appends one entry to the journal.
func (w *Writer) Write(message string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		// a failed journal line never aborts the run
		_, _ = io.WriteString(w.file, message+"\n")
	}

	if w.stdout {
		fmt.Println(message)
	}
}

// Writef appends one formatted entry to the journal.
func (w *Writer) Writef(format string, args ...any) {
	w.Write(fmt.Sprintf(format, args...))
}

// Section writes a section header.
func (w *Writer) Section(title string) {
	separator := strings.Repeat("=", 80)
	w.Write(separator)
	w.Writef("=== %s ===", title)
	w.Write(separator)
}

// Trade writes a trade entry.
func (w *Writer) Trade(action string, symbol string, shares float64, price float64, total float64) {
	w.Writef("TRADE: %s %.3f %s @ $%.2f (Total: $%.2f)", action, shares, symbol, price, total)
}

// Metric writes a named metric entry.
func (w *Writer) Metric(name string, value any) {
	if f, ok := value.(float64); ok {
		w.Writef("%s: %.2f", name, f)

		return
	}

	w.Writef("%s: %v", name, value)
}

// Close flushes and closes the underlying file, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	err := w.file.Close()
	w.file = nil

	return err
}
