package scanning

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements the Scanner interface with a local Tesseract install
type Tesseract struct {
	language string
}

// NewTesseract creates a new Tesseract Scanner. language is a Tesseract
// language code such as "eng".
func NewTesseract(language string) *Tesseract {
	if language == "" {
		language = "eng"
	}
	return &Tesseract{language: language}
}

// ScanReceipt reads the receipt text and the mean word confidence
func (t *Tesseract) ScanReceipt(imageData []byte, contentType string) (*Transcript, error) {
	pngData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}
	processed, err := preprocessForOCR(pngData)
	if err != nil {
		return nil, fmt.Errorf("preprocessing image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return nil, fmt.Errorf("setting language: %w", err)
	}
	if err := client.SetImageFromBytes(processed); err != nil {
		return nil, fmt.Errorf("setting image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	transcript := &Transcript{Text: text, Engine: EngineTesseract}

	// Without word boxes Confidence stays zero.
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err == nil {
		confidences := make([]float64, 0, len(boxes))
		for _, box := range boxes {
			confidences = append(confidences, box.Confidence)
		}
		transcript.Confidence = meanConfidence(confidences)
	}
	return transcript, nil
}

// Close is a no-op; a client is created per scan
func (t *Tesseract) Close() error {
	return nil
}

// meanConfidence averages word confidences, skipping the negative values
// Tesseract reports for non-text regions.
func meanConfidence(values []float64) float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v < 0 {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
