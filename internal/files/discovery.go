package files

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// XMLPattern matches record files. Matching is case-sensitive.
const XMLPattern = "*.xml"

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	fs afero.Fs
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(fs afero.Fs) *Discovery {
	return &Discovery{fs: fs}
}

// FindXMLFiles finds the record files directly inside dir, in listing order.
// Subdirectories are neither searched nor returned.
func (d *Discovery) FindXMLFiles(dir string) ([]FileInfo, error) {
	return d.FindFilesByPattern(dir, XMLPattern)
}

// FindFilesByPattern finds the regular files directly inside dir whose name
// matches pattern
func (d *Discovery) FindFilesByPattern(dir string, pattern string) ([]FileInfo, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %s", pattern)
	}

	entries, err := afero.ReadDir(d.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ok, err := doublestar.Match(pattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if !ok {
			continue
		}

		files = append(files, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    entry.Size(),
			ModTime: entry.ModTime(),
		})
	}

	return files, nil
}
