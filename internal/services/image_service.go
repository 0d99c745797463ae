package services

import (
	"bytes"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

type ImageService struct {
	maxWidth  int
	maxHeight int
}

func NewImageServiceWithConfig(maxWidth, maxHeight int) *ImageService {
	return &ImageService{
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
	}
}

// Normalize decodes vendor image bytes, fits them into the configured box
// and re-encodes as PNG, the format the publisher uploads.
func (s *ImageService) Normalize(data []byte) ([]byte, image.Point, error) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() > s.maxWidth || bounds.Dy() > s.maxHeight {
		src = imaging.Fit(src, s.maxWidth, s.maxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.PNG); err != nil {
		return nil, image.Point{}, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), src.Bounds().Size(), nil
}

// SaveImage normalises data and writes it to outputPath.
func (s *ImageService) SaveImage(data []byte, outputPath string) (int64, error) {
	normalized, size, err := s.Normalize(data)
	if err != nil {
		return 0, err
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputPath, normalized, 0644); err != nil {
		return 0, fmt.Errorf("failed to write image: %w", err)
	}

	log.Printf("Image saved to %s (%dx%d, %d bytes)", outputPath, size.X, size.Y, len(normalized))
	return int64(len(normalized)), nil
}
