// Package pages provides filesystem storage and dimension probing for
// archive page images.
package pages

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Storage manages page image files on disk.
// Pages for an archive live under {basePath}/{hash}/, named by their
// zero-padded page number plus a format extension (e.g. 001.webp).
type Storage struct {
	basePath string
}

// NewStorage creates a Storage rooted at basePath.
// basePath should be the images directory (e.g. ~/Folium/images).
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}

	return &Storage{basePath: basePath}, nil
}

// ArchiveDir returns the directory holding an archive's page files.
func (s *Storage) ArchiveDir(hash string) string {
	return filepath.Join(s.basePath, hash)
}

// PadWidth returns the zero-padding width for page filenames, derived from
// the archive's page count at write time: an archive with 120 pages names
// its first page 001.
func PadWidth(pageCount int) int {
	if pageCount < 1 {
		return 1
	}
	return len(strconv.Itoa(pageCount))
}

// PageStem returns the extension-less filename for a page, zero-padded to
// the width the archive's page count dictates.
func PageStem(pageNumber, pageCount int) string {
	return fmt.Sprintf("%0*d", PadWidth(pageCount), pageNumber)
}

// PageVariants returns the on-disk files for a page, in any format.
func (s *Storage) PageVariants(hash string, pageNumber, pageCount int) ([]string, error) {
	pattern := filepath.Join(s.ArchiveDir(hash), PageStem(pageNumber, pageCount)+".*")
	return filepath.Glob(pattern)
}

// RemovePageVariants deletes every stored file for a page and reports how
// many were removed. Missing files are not an error; a page that was never
// rendered simply has no variants.
func (s *Storage) RemovePageVariants(hash string, pageNumber, pageCount int) (int, error) {
	matches, err := s.PageVariants(hash, pageNumber, pageCount)
	if err != nil {
		return 0, fmt.Errorf("glob page files: %w", err)
	}

	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("remove page file: %w", err)
		}
		removed++
	}

	return removed, nil
}
