package storage

import (
	"fmt"
	"io"
	"os"
	"sync"

	"htbwriteups/pkg/errors"
	"htbwriteups/pkg/sanitize"
)

// DefaultChunkSize is the copy buffer size used when none is given
const DefaultChunkSize = 1024

// Manager handles file storage operations for one output directory
type Manager struct {
	outputDir string
	saved     map[string]bool
	mu        sync.RWMutex
}

// NewManager creates a storage manager for an existing directory.
// The directory path is sanitized and made absolute.
func NewManager(outputDir string) (*Manager, error) {
	dir, err := sanitize.Path(outputDir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("output directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("output path %s is not a directory", dir)
	}

	return &Manager{
		outputDir: dir,
		saved:     make(map[string]bool),
	}, nil
}

// Dir returns the sanitized absolute output directory
func (m *Manager) Dir() string {
	return m.outputDir
}

// PathFor returns the destination path for a machine name
func (m *Manager) PathFor(name string) (string, error) {
	return sanitize.OutputPath(m.outputDir, name)
}

// CheckWritable verifies that files can be created in the output directory
func (m *Manager) CheckWritable() error {
	probe, err := os.CreateTemp(m.outputDir, ".write-probe-*")
	if err != nil {
		return errors.New(errors.ErrorTypePermission, 0, "no write permission for directory %s", m.outputDir)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}

// Exists checks if the writeup for a machine name is already on disk
func (m *Manager) Exists(name string) bool {
	path, err := m.PathFor(name)
	if err != nil {
		return false
	}

	m.mu.RLock()
	cached := m.saved[path]
	m.mu.RUnlock()
	if cached {
		return true
	}

	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Save streams r into the writeup file for name in chunks of chunkSize
// bytes, writing each chunk to progress as well when it is non-nil. The
// file only appears under its final name once fully written.
func (m *Manager) Save(name string, r io.Reader, chunkSize int, progress io.Writer) (string, int64, error) {
	path, err := m.PathFor(name)
	if err != nil {
		return "", 0, errors.New(errors.ErrorTypeIO, 0, "%v", err)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	// Create temporary file first
	out, err := os.CreateTemp(m.outputDir, ".download-*.tmp")
	if err != nil {
		return "", 0, errors.New(errors.ErrorTypeIO, 0, "failed to create temporary file: %v", err)
	}
	tempFile := out.Name()

	var dst io.Writer = out
	if progress != nil {
		dst = io.MultiWriter(out, progress)
	}

	written, err := io.CopyBuffer(dst, r, make([]byte, chunkSize))
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", written, errors.New(errors.ErrorTypeIO, 0, "write error: %v", err)
	}

	if closeErr != nil {
		os.Remove(tempFile)
		return "", written, errors.New(errors.ErrorTypeIO, 0, "failed to close file: %v", closeErr)
	}

	// Atomic rename
	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return "", written, errors.New(errors.ErrorTypeIO, 0, "failed to rename temporary file: %v", err)
	}

	m.mu.Lock()
	m.saved[path] = true
	m.mu.Unlock()

	return path, written, nil
}

// SavedCount returns the number of files saved through this manager
func (m *Manager) SavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}
