package scanning

// Engine names reported in Transcript.Engine.
const (
	EngineTesseract = "tesseract"
	EngineGemini    = "gemini"
	EngineOllama    = "ollama"
)

// Transcript is the text an OCR engine read from a receipt image, along
// with what the engine reported about its own reliability.
type Transcript struct {
	Text string `json:"text"`
	// Confidence is the engine's overall confidence, 0-100. Zero means the
	// engine did not report one.
	Confidence float64 `json:"confidence"`
	// Fields holds per-field confidences, keyed by field name.
	Fields map[string]float64 `json:"fields,omitempty"`
	// DateHint is a date the engine read as a structured field.
	DateHint string `json:"date_hint,omitempty"`
	Engine   string `json:"engine"`
}

// Scanner defines the interface for receipt transcription
type Scanner interface {
	// ScanReceipt reads the text of a receipt image or PDF
	ScanReceipt(imageData []byte, contentType string) (*Transcript, error)
	// Close closes the scanner and releases resources
	Close() error
}
