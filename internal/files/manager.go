package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// maxSuffix bounds the numbered-name search of NextFreePath
const maxSuffix = 9999

// Manager provides file management operations
type Manager struct {
	fs afero.Fs
}

// NewManager creates a new file manager instance
func NewManager(fs afero.Fs) *Manager {
	return &Manager{fs: fs}
}

// FileExists checks if anything exists at the given path
func (m *Manager) FileExists(path string) bool {
	_, err := m.fs.Stat(path)
	exists := err == nil

	slog.Debug("FileExists check",
		slog.String("path", path),
		slog.Bool("exists", exists))

	return exists
}

// NextFreePath returns path if nothing exists there. Otherwise it appends
// _01, _02, ... to the name before its extension and returns the first
// candidate that does not exist.
func (m *Manager) NextFreePath(path string) (string, error) {
	if !m.FileExists(path) {
		return path, nil
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	for counter := 1; counter <= maxSuffix; counter++ {
		candidate := fmt.Sprintf("%s_%02d%s", base, counter, ext)
		if !m.FileExists(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no free file name for %s after %d attempts", path, maxSuffix)
}

// CreateExclusive creates path, failing if it already exists
func (m *Manager) CreateExclusive(path string) (afero.File, error) {
	if err := m.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	slog.Debug("Creating file", slog.String("path", path))

	return m.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
}

// IsDirectory reports whether path exists and is a directory
func (m *Manager) IsDirectory(path string) (bool, error) {
	return afero.IsDir(m.fs, path)
}
