package receipt

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receipt-reader/internal/dates"
	"github.com/zombor/receipt-reader/internal/parsing"
	"github.com/zombor/receipt-reader/internal/scanning"
)

var (
	// ErrAlreadyReviewed is returned when a receipt already has a review
	ErrAlreadyReviewed = errors.New("receipt already reviewed")
	// ErrInvalidReview is returned for corrections that fail validation
	ErrInvalidReview = errors.New("invalid review")
	// ErrNoFile is returned for receipts submitted as text
	ErrNoFile = errors.New("receipt has no file")
)

// IDGenerator generates unique IDs for receipts and reviews
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	engine      *parsing.Engine
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, scanner scanning.Scanner, storage Storage, engine *parsing.Engine) *Service {
	return NewServiceWithDeps(db, scanner, storage, engine, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, engine *parsing.Engine, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		engine:      engine,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and shortens long phone
// generated names
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if filenameUnsafe.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = filenameUnsafe.ReplaceAllString(base, "")
	base = strings.TrimSpace(filenameSpaces.ReplaceAllString(base, " "))

	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// ProcessReceipt stores an upload, transcribes it, parses the transcript and
// saves the result. The stored file is removed again if any later step fails.
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string) (*Receipt, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	transcript, err := s.scanner.ScanReceipt(data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.discardFile(savedPath)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	parsed, err := s.engine.Process(parsing.Input{
		Text:             transcript.Text,
		EngineConfidence: transcript.Confidence,
		FieldConfidences: transcript.Fields,
		DateHint:         transcript.DateHint,
	})
	if err != nil {
		s.discardFile(savedPath)
		return nil, fmt.Errorf("parsing receipt: %w", err)
	}

	receipt := &Receipt{
		ID:          id,
		Filename:    savedPath,
		ContentType: contentType,
		Engine:      transcript.Engine,
		Parsed:      parsed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		s.discardFile(savedPath)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	s.logProcessed(receipt)
	return receipt, nil
}

// ProcessText parses a transcript produced elsewhere and saves the result
func (s *Service) ProcessText(input TextInput) (*Receipt, error) {
	parsed, err := s.Preview(input)
	if err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	receipt := &Receipt{
		ID:        s.idGenerator.Generate(),
		Engine:    EngineText,
		Parsed:    parsed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	s.logProcessed(receipt)
	return receipt, nil
}

// Preview parses a transcript without saving anything
func (s *Service) Preview(input TextInput) (*parsing.ParsedReceipt, error) {
	parsed, err := s.engine.Process(parsing.Input{
		Text:             input.Text,
		EngineConfidence: input.Confidence,
		FieldConfidences: input.FieldConfidences,
		DateHint:         input.DateHint,
	})
	if err != nil {
		return nil, fmt.Errorf("parsing receipt: %w", err)
	}
	return parsed, nil
}

func (s *Service) logProcessed(receipt *Receipt) {
	slog.Info("Receipt processed",
		"id", receipt.ID,
		"engine", receipt.Engine,
		"store", receipt.Parsed.Store(),
		"date", receipt.Parsed.Date,
		"items", len(receipt.Parsed.Items),
		"confidence", receipt.Parsed.OCRConfidence,
		"needs_review", receipt.Parsed.NeedsReview,
		"review_reason", receipt.Parsed.ReviewReason,
	)
}

func (s *Service) discardFile(path string) {
	if err := s.storage.Delete(path); err != nil {
		slog.Warn("Failed to delete file", "filename", path, "error", err)
	}
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts, oldest first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	sort.SliceStable(receipts, func(i, j int) bool {
		if !receipts[i].CreatedAt.Equal(receipts[j].CreatedAt) {
			return receipts[i].CreatedAt.Before(receipts[j].CreatedAt)
		}
		return receipts[i].ID < receipts[j].ID
	})
	return receipts, nil
}

// ListNeedingReview returns flagged receipts that have not been reviewed
func (s *Service) ListNeedingReview() ([]*Receipt, error) {
	receipts, err := s.ListReceipts()
	if err != nil {
		return nil, err
	}
	queue := make([]*Receipt, 0, len(receipts))
	for _, r := range receipts {
		if r.NeedsReview() {
			queue = append(queue, r)
		}
	}
	return queue, nil
}

// DeleteReceipt removes a receipt, its file and its review
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if receipt.Filename != "" {
		if err := s.storage.Delete(receipt.Filename); err != nil {
			// Log error but continue with database deletion
			slog.Warn("Failed to delete file", "filename", receipt.Filename, "error", err)
		}
	}

	if receipt.ReviewID != "" {
		if err := s.db.DeleteReview(receipt.ReviewID); err != nil {
			return fmt.Errorf("deleting review from database: %w", err)
		}
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the uploaded file for a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}
	if receipt.Filename == "" {
		return nil, "", ErrNoFile
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}

// ReviewReceipt records a person's correction of a receipt. Fields left
// empty in input keep the parsed value.
func (s *Service) ReviewReceipt(receiptID string, input ReviewInput) (*Review, error) {
	receipt, err := s.db.GetReceipt(receiptID)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	if receipt.ReviewID != "" {
		return nil, fmt.Errorf("receipt %s: %w", receiptID, ErrAlreadyReviewed)
	}
	parsed := receipt.Parsed
	if parsed == nil {
		parsed = &parsing.ParsedReceipt{}
	}

	review := &Review{
		ID:        s.idGenerator.Generate(),
		ReceiptID: receiptID,
		StoreName: strings.TrimSpace(input.StoreName),
		Date:      strings.TrimSpace(input.Date),
		Total:     input.Total,
		Note:      strings.TrimSpace(input.Note),
		CreatedAt: s.timeSource.Now(),
	}
	if review.StoreName == "" {
		review.StoreName = parsed.Store()
	}
	if review.Date == "" {
		review.Date = parsed.Date
	}
	if review.Total == nil {
		review.Total = parsed.Total
	}

	if _, err := time.Parse(dates.Layout, review.Date); err != nil {
		return nil, fmt.Errorf("date %q must be YYYY-MM-DD: %w", review.Date, ErrInvalidReview)
	}
	if review.Total != nil && review.Total.IsNegative() {
		return nil, fmt.Errorf("total must not be negative: %w", ErrInvalidReview)
	}

	if err := s.db.SaveReview(review); err != nil {
		return nil, fmt.Errorf("saving review: %w", err)
	}

	slog.Info("Receipt reviewed", "receipt_id", receiptID, "review_id", review.ID)
	return review, nil
}

// GetReview retrieves a review by ID
func (s *Service) GetReview(id string) (*Review, error) {
	review, err := s.db.GetReview(id)
	if err != nil {
		return nil, fmt.Errorf("getting review: %w", err)
	}
	return review, nil
}

// GetReviewWithReceipt retrieves a review along with the receipt it corrects
func (s *Service) GetReviewWithReceipt(id string) (*Review, *Receipt, error) {
	review, err := s.GetReview(id)
	if err != nil {
		return nil, nil, err
	}
	receipt, err := s.db.GetReceipt(review.ReceiptID)
	if err != nil {
		return nil, nil, fmt.Errorf("getting receipt %s: %w", review.ReceiptID, err)
	}
	return review, receipt, nil
}

// ListReviews returns all reviews, oldest first
func (s *Service) ListReviews() ([]*Review, error) {
	reviews, err := s.db.ListReviews()
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.Before(reviews[j].CreatedAt)
	})
	return reviews, nil
}
