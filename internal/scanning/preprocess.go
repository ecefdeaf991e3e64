package scanning

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	// Images shorter than minOCRHeight are upscaled to ocrHeight.
	minOCRHeight = 900
	ocrHeight    = 1300
)

// preprocessForOCR prepares a PNG for Tesseract: greyscale, a little extra
// contrast and sharpening, and upscaling of small photos.
func preprocessForOCR(pngData []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(pngData))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < minOCRHeight {
		gray = imaging.Resize(gray, 0, ocrHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return buf.Bytes(), nil
}
