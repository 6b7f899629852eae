// Package spool provides a gob-encoded, append-only disk buffer used to hold
// items that do not fit into an in-memory queue.
package spool

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// ErrClosed is returned by operations on a closed spool.
var ErrClosed = errors.New("spool closed")

// FileSpill spills items of type T to disk and hands them back in order.
type FileSpill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	AppendBatch(items []T) error
	// Drain returns every spilled item in append order and empties the spool.
	Drain() ([]T, error)
	Close() error
	// Remove closes the spool and deletes its file.
	Remove() error
}

type fileSpillImpl[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
	closed  bool
}

// NewFileSpill creates a FileSpill for items of type T backed by a new file
// in dir. An empty dir means the system temp directory.
func NewFileSpill[T any](dir string) (FileSpill[T], error) {
	if dir == "" {
		dir = os.TempDir()
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Error("failed to create spool directory", "path", dir, "error", err)
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "spool-*.gob")
	if err != nil {
		slog.Error("failed to create spool file", "path", dir, "error", err)
		return nil, fmt.Errorf("failed to create spool file: %w", err)
	}

	slog.Debug("created spool", "path", file.Name())

	return &fileSpillImpl[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

// Append implements FileSpill.
func (f *fileSpillImpl[T]) Append(item T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	if err := f.encoder.Encode(item); err != nil {
		slog.Error("failed to encode item", "path", f.path, "index", f.length, "error", err)
		return fmt.Errorf("failed to encode item: %w", err)
	}

	f.length++
	slog.Debug("spooled item", "path", f.path, "index", f.length-1)

	return nil
}

// AppendBatch implements FileSpill.
func (f *fileSpillImpl[T]) AppendBatch(items []T) error {
	for _, item := range items {
		if err := f.Append(item); err != nil {
			return err
		}
	}

	return nil
}

// Path implements FileSpill.
func (f *fileSpillImpl[T]) Path() string {
	return f.path
}

// Len implements FileSpill.
func (f *fileSpillImpl[T]) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.length
}

// Drain implements FileSpill.
func (f *fileSpillImpl[T]) Drain() ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}

	items := make([]T, 0, f.length)

	if err := f.decodeLocked(func(_ uint64, item T) error {
		items = append(items, item)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := f.file.Truncate(0); err != nil {
		slog.Error("failed to truncate spool", "path", f.path, "error", err)
		return nil, fmt.Errorf("failed to truncate spool: %w", err)
	}

	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind spool: %w", err)
	}

	// a fresh stream must carry its type information again
	f.encoder = gob.NewEncoder(f.file)
	f.length = 0

	slog.Debug("drained spool", "path", f.path, "count", len(items))

	return items, nil
}

// Close implements FileSpill.
func (f *fileSpillImpl[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closeLocked()
}

// Remove implements FileSpill.
func (f *fileSpillImpl[T]) Remove() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.closeLocked(); err != nil {
		return err
	}

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to remove spool", "path", f.path, "error", err)
		return fmt.Errorf("failed to remove spool: %w", err)
	}

	return nil
}

func (f *fileSpillImpl[T]) closeLocked() error {
	if f.closed {
		return nil
	}

	f.closed = true

	if err := f.file.Close(); err != nil {
		slog.Error("failed to close spool", "path", f.path, "error", err)
		return err
	}

	slog.Debug("closed spool", "path", f.path, "length", f.length)

	return nil
}

// decodeLocked replays the first f.length items of the file through fn.
func (f *fileSpillImpl[T]) decodeLocked(fn func(index uint64, item T) error) error {
	if f.length == 0 {
		return nil
	}

	file, err := os.Open(f.path)
	if err != nil {
		slog.Error("failed to open spool", "path", f.path, "error", err)
		return fmt.Errorf("failed to open file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close file", "path", f.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	for i := range f.length {
		var item T
		if err := decoder.Decode(&item); err != nil {
			slog.Error("failed to decode item", "path", f.path, "index", i, "error", err)
			return fmt.Errorf("failed to decode item at index %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}
