package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrImageExists is returned when an image path was already written during
// this run. Overwriting would leave two records pointing at one file.
var ErrImageExists = errors.New("image already saved")

// Manager owns the image and debug areas under an output directory
type Manager struct {
	root      string
	imagesDir string
	debugDir  string
	saved     map[string]bool
	mu        sync.RWMutex
}

// NewManager creates a storage manager rooted at root. imagesDir and
// debugDir are relative to root.
func NewManager(root, imagesDir, debugDir string) (*Manager, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		root:      root,
		imagesDir: imagesDir,
		debugDir:  debugDir,
		saved:     make(map[string]bool),
	}, nil
}

// Reset removes every image left by a previous run and recreates an empty
// image area.
func (m *Manager) Reset() error {
	dir := filepath.Join(m.root, m.imagesDir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear image directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	m.mu.Lock()
	m.saved = make(map[string]bool)
	m.mu.Unlock()
	return nil
}

// SaveImage writes r to images/<categoryKey>/<name>.jpg and returns that
// path relative to the output directory, with forward slashes. Each path
// can be written once per run; a repeat fails with ErrImageExists.
func (m *Manager) SaveImage(r io.Reader, categoryKey, name string) (string, error) {
	if err := checkRelative(categoryKey); err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid image name %q", name)
	}

	rel := path.Join(filepath.ToSlash(m.imagesDir), categoryKey, name+".jpg")

	// Claim the path first so two workers cannot both write it
	m.mu.Lock()
	if m.saved[rel] {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrImageExists, rel)
	}
	m.saved[rel] = true
	m.mu.Unlock()

	if err := WriteFileAtomic(filepath.Join(m.root, filepath.FromSlash(rel)), r); err != nil {
		m.mu.Lock()
		delete(m.saved, rel)
		m.mu.Unlock()
		return "", err
	}
	return rel, nil
}

// SaveScreenshot writes a debug capture to debug/<worker>_<key>.png, with
// slashes in the key replaced, and returns the absolute path.
func (m *Manager) SaveScreenshot(data []byte, workerIndex int, categoryKey string) (string, error) {
	name := fmt.Sprintf("%d_%s.png", workerIndex, strings.NewReplacer("/", "_", `\`, "_").Replace(categoryKey))
	full := filepath.Join(m.root, m.debugDir, name)
	if err := WriteFileAtomic(full, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return full, nil
}

// Files lists every file under the image area relative to the output
// directory, sorted, with forward slashes.
func (m *Manager) Files() ([]string, error) {
	dir := filepath.Join(m.root, m.imagesDir)
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == dir {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(m.root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// SavedCount returns the number of images written since the last Reset
func (m *Manager) SavedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}

func checkRelative(key string) error {
	if key == "" || path.IsAbs(key) || strings.Contains(key, `\`) {
		return fmt.Errorf("invalid category key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("invalid category key %q", key)
		}
	}
	return nil
}

// WriteFileAtomic writes r to a temporary file next to filename and renames
// it into place, creating parent directories as needed.
func WriteFileAtomic(filename string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write file data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
