package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir, "images", "debug")
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.SavedCount() != 0 {
		t.Error("Expected initial saved count to be 0")
	}

	testData := []byte("test image data")
	rel, err := manager.SaveImage(bytes.NewReader(testData), "men/tops", "E482305-000")
	if err != nil {
		t.Fatalf("Failed to save image: %v", err)
	}
	if rel != "images/men/tops/E482305-000.jpg" {
		t.Errorf("Unexpected relative path %q", rel)
	}

	content, err := os.ReadFile(filepath.Join(tempDir, "images", "men", "tops", "E482305-000.jpg"))
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}

	if manager.SavedCount() != 1 {
		t.Errorf("Expected saved count to be 1, got %d", manager.SavedCount())
	}

	if _, err := os.Stat(filepath.Join(tempDir, "images", "men", "tops", "E482305-000.jpg.tmp")); !os.IsNotExist(err) {
		t.Error("Expected temporary file to be removed")
	}
}

func TestResetClearsPreviousRun(t *testing.T) {
	tempDir := t.TempDir()
	stale := filepath.Join(tempDir, "images", "old", "stale.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	manager, err := NewManager(tempDir, "images", "debug")
	require.NoError(t, err)
	_, err = manager.SaveImage(bytes.NewReader([]byte("x")), "men/tops", "a")
	require.NoError(t, err)

	require.NoError(t, manager.Reset())

	files, err := manager.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, 0, manager.SavedCount())
	assert.DirExists(t, filepath.Join(tempDir, "images"))
}

func TestFiles(t *testing.T) {
	manager, err := NewManager(t.TempDir(), "images", "debug")
	require.NoError(t, err)

	files, err := manager.Files()
	require.NoError(t, err)
	assert.Empty(t, files, "missing image area lists as empty")

	for _, key := range []string{"women/tops", "men/tops"} {
		_, err := manager.SaveImage(bytes.NewReader([]byte(key)), key, "E1-000")
		require.NoError(t, err)
	}

	files, err = manager.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"images/men/tops/E1-000.jpg", "images/women/tops/E1-000.jpg"}, files)
}

func TestSaveImageRejectsSecondWrite(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir, "images", "debug")
	require.NoError(t, err)

	_, err = manager.SaveImage(bytes.NewReader([]byte("first")), "men/tops", "same-tee")
	require.NoError(t, err)

	_, err = manager.SaveImage(bytes.NewReader([]byte("second")), "men/tops", "same-tee")
	require.ErrorIs(t, err, ErrImageExists)

	content, err := os.ReadFile(filepath.Join(tempDir, "images", "men", "tops", "same-tee.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(content), "the first image is kept")
	assert.Equal(t, 1, manager.SavedCount())

	require.NoError(t, manager.Reset())
	_, err = manager.SaveImage(bytes.NewReader([]byte("next run")), "men/tops", "same-tee")
	assert.NoError(t, err, "Reset starts a new run")
}

func TestSaveImageRejectsEscapingPaths(t *testing.T) {
	manager, err := NewManager(t.TempDir(), "images", "debug")
	require.NoError(t, err)

	for _, tc := range []struct{ key, name string }{
		{"../outside", "a"},
		{"/abs", "a"},
		{"men//tops", "a"},
		{"men/tops", "../a"},
		{"men/tops", ""},
	} {
		_, err := manager.SaveImage(bytes.NewReader([]byte("x")), tc.key, tc.name)
		assert.Error(t, err, "key=%q name=%q", tc.key, tc.name)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSaveImageCleansUpOnFailure(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir, "images", "debug")
	require.NoError(t, err)

	_, err = manager.SaveImage(failingReader{}, "men/tops", "E1-000")
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(tempDir, "images", "men", "tops"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, manager.SavedCount())
}

func TestSaveScreenshot(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir, "images", "debug")
	require.NoError(t, err)

	path, err := manager.SaveScreenshot([]byte("png"), 2, "men/tops")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tempDir, "debug", "2_men_tops.png"), path)
	assert.FileExists(t, path)
}

func TestConcurrentSaves(t *testing.T) {
	manager, err := NewManager(t.TempDir(), "images", "debug")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, err := manager.SaveImage(bytes.NewReader([]byte("x")), fmt.Sprintf("cat%d", w), fmt.Sprintf("p%d", i))
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 40, manager.SavedCount())
}
