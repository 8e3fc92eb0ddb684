package pages

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage(t *testing.T) {
	t.Run("creates storage with valid path", func(t *testing.T) {
		tmpDir := t.TempDir()
		nested := filepath.Join(tmpDir, "images")

		storage, err := NewStorage(nested)
		require.NoError(t, err)
		require.NotNil(t, storage)

		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("returns error for empty path", func(t *testing.T) {
		storage, err := NewStorage("")
		assert.Error(t, err)
		assert.Nil(t, storage)
	})
}

func TestPadWidth(t *testing.T) {
	testCases := []struct {
		pageCount int
		expected  int
	}{
		{0, 1},
		{1, 1},
		{9, 1},
		{10, 2},
		{24, 2},
		{100, 3},
		{1200, 4},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, PadWidth(tc.pageCount), "pageCount=%d", tc.pageCount)
	}
}

func TestPageStem(t *testing.T) {
	assert.Equal(t, "001", PageStem(1, 120))
	assert.Equal(t, "120", PageStem(120, 120))
	assert.Equal(t, "07", PageStem(7, 24))
	assert.Equal(t, "7", PageStem(7, 8))
}

func TestStorage_RemovePageVariants(t *testing.T) {
	t.Run("removes every format variant", func(t *testing.T) {
		storage := setupTestStorage(t)
		dir := storage.ArchiveDir("hash-abc")
		require.NoError(t, os.MkdirAll(dir, 0755))

		for _, name := range []string{"03.png", "03.webp", "04.png"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
		}

		removed, err := storage.RemovePageVariants("hash-abc", 3, 24)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		// The neighbouring page is untouched.
		_, err = os.Stat(filepath.Join(dir, "04.png"))
		assert.NoError(t, err)
	})

	t.Run("succeeds when no variants exist", func(t *testing.T) {
		storage := setupTestStorage(t)

		removed, err := storage.RemovePageVariants("missing-hash", 1, 10)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})

	t.Run("padding follows the page count", func(t *testing.T) {
		storage := setupTestStorage(t)
		dir := storage.ArchiveDir("hash-pad")
		require.NoError(t, os.MkdirAll(dir, 0755))

		// 120-page archive stores page 3 as 003, not 03.
		require.NoError(t, os.WriteFile(filepath.Join(dir, "003.png"), []byte("x"), 0644))

		removed, err := storage.RemovePageVariants("hash-pad", 3, 24)
		require.NoError(t, err)
		assert.Zero(t, removed, "two-digit stem must not match a three-digit file")

		removed, err = storage.RemovePageVariants("hash-pad", 3, 120)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
	})
}

func TestProbeFile(t *testing.T) {
	t.Run("reads png dimensions", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "probe.png")
		writeTestPNG(t, path, 30, 20)

		w, h, err := ProbeFile(path)
		require.NoError(t, err)
		assert.Equal(t, 30, w)
		assert.Equal(t, 20, h)
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, _, err := ProbeFile(filepath.Join(t.TempDir(), "nope.png"))
		assert.Error(t, err)
	})

	t.Run("returns error for non-image data", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.png")
		require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))

		_, _, err := ProbeFile(path)
		assert.Error(t, err)
	})
}

func TestStorage_ProbePage(t *testing.T) {
	t.Run("probes a stored page", func(t *testing.T) {
		storage := setupTestStorage(t)
		dir := storage.ArchiveDir("hash-probe")
		require.NoError(t, os.MkdirAll(dir, 0755))
		writeTestPNG(t, filepath.Join(dir, "01.png"), 640, 480)

		w, h, err := storage.ProbePage("hash-probe", 1, 12)
		require.NoError(t, err)
		assert.Equal(t, 640, w)
		assert.Equal(t, 480, h)
	})

	t.Run("returns error when the page has no files", func(t *testing.T) {
		storage := setupTestStorage(t)

		_, _, err := storage.ProbePage("hash-empty", 1, 12)
		assert.Error(t, err)
	})
}

// setupTestStorage creates a Storage rooted in a temporary directory.
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	storage, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	return storage
}

// writeTestPNG encodes a blank PNG of the given dimensions to path.
func writeTestPNG(t *testing.T, path string, width, height int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}
