package detect

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"logowatch/internal/services"
)

// LoadReference reads the configured logo asset. Failures are configuration
// errors: without a reference no pass can run.
func LoadReference(path string) (image.Image, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "detect", "load reference", path, err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "detect", "load reference", "reference has zero dimension", nil)
	}
	return img, nil
}

// LoadImage reads a frame image from disk. Failures are scoped to the frame.
func LoadImage(path string) (image.Image, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidImage, "detect", "load image", path, err)
	}
	return img, nil
}

func decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// SaveJPEG writes an image artifact, creating parent directories as needed.
func SaveJPEG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create screenshot directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create screenshot: %w", err)
	}
	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 90}); err != nil {
		file.Close()
		return fmt.Errorf("encode screenshot: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close screenshot: %w", err)
	}
	return nil
}
