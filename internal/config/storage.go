package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/suse/upscout/pkg/logging"
)

// ErrNotFound is returned when a stored entry does not exist.
var ErrNotFound = errors.New("entry not found")

// Storage persists small YAML documents (scan reports) under the
// configuration directory, one subdirectory per kind:
//
//	~/.config/upscout/<kind>/<name>.yaml
type Storage struct {
	mu  sync.RWMutex
	dir string
}

// NewStorage creates a Storage rooted at the directory containing the
// default configuration file.
func NewStorage() (*Storage, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return NewStorageWithPath(filepath.Dir(path)), nil
}

// NewStorageWithPath creates a Storage rooted at dir.
func NewStorageWithPath(dir string) *Storage {
	return &Storage{dir: dir}
}

// Save stores data for the given kind and name.
func (s *Storage) Save(kind, name string, data []byte) error {
	if kind == "" {
		return fmt.Errorf("kind cannot be empty")
	}
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	targetDir := filepath.Join(s.dir, kind)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", targetDir, err)
	}

	filePath := filepath.Join(targetDir, sanitizeFilename(name)+".yaml")
	if err := os.WriteFile(filePath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file %s: %w", filePath, err)
	}

	logging.Debug("Storage", "Saved %s/%s to %s", kind, name, filePath)
	return nil
}

// Load retrieves data for the given kind and name. Missing entries return
// an error wrapping ErrNotFound.
func (s *Storage) Load(kind, name string) ([]byte, error) {
	if kind == "" || name == "" {
		return nil, fmt.Errorf("kind and name are required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := filepath.Join(s.dir, kind, sanitizeFilename(name)+".yaml")
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", kind, name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return data, nil
}

// Delete removes the entry for the given kind and name.
func (s *Storage) Delete(kind, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := filepath.Join(s.dir, kind, sanitizeFilename(name)+".yaml")
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s/%s: %w", kind, name, ErrNotFound)
		}
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	return nil
}

// List returns the sorted names stored for kind.
func (s *Storage) List(kind string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := filepath.Glob(filepath.Join(s.dir, kind, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		base := filepath.Base(f)
		names = append(names, strings.TrimSuffix(base, filepath.Ext(base)))
	}
	sort.Strings(names)
	return names, nil
}

// sanitizeFilename ensures the filename is safe for filesystem operations
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", ".", "_", " ", "_",
	)
	sanitized := replacer.Replace(name)

	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")

	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
