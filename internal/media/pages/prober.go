package pages

import (
	"fmt"
	"image"
	"os"

	// Formats gallery pages ship in. DecodeConfig only reads headers.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ProbeFile reads the pixel dimensions from an image file header without
// decoding the full image.
func ProbeFile(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}

	return cfg.Width, cfg.Height, nil
}

// ProbePage probes the dimensions of a stored page, trying each on-disk
// variant until one decodes.
func (s *Storage) ProbePage(hash string, pageNumber, pageCount int) (width, height int, err error) {
	matches, err := s.PageVariants(hash, pageNumber, pageCount)
	if err != nil {
		return 0, 0, fmt.Errorf("glob page files: %w", err)
	}
	if len(matches) == 0 {
		return 0, 0, fmt.Errorf("no stored file for page %d of %s", pageNumber, hash)
	}

	for _, path := range matches {
		width, height, err = ProbeFile(path)
		if err == nil {
			return width, height, nil
		}
	}
	return 0, 0, err
}
