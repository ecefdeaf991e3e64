package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/receipt-reader/internal/parsing"
)

const (
	// maxUploadSize fits high resolution phone photos
	maxUploadSize = int64(50 << 20)
	maxJSONSize   = int64(1 << 20)

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes a JSON error body
func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoFile):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyReviewed):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidReview), errors.Is(err, parsing.ErrEmptyInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON request body into v
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONSize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

// handleHealth reports liveness without authentication
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleParse parses a transcript without saving it
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var input TextInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	parsed, err := s.service.Preview(input)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

// handleSubmitText parses and saves a transcript
func (s *Server) handleSubmitText(w http.ResponseWriter, r *http.Request) {
	var input TextInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	receipt, err := s.service.ProcessText(input)
	if err != nil {
		slog.Error("Error processing text", "error", err)
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// handleListReceipts returns all receipts, or only those waiting for
// review when needs_review=true
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	needsReview, _ := strconv.ParseBool(r.URL.Query().Get("needs_review"))

	var (
		receipts []*Receipt
		err      error
	)
	if needsReview {
		receipts, err = s.service.ListNeedingReview()
	} else {
		receipts, err = s.service.ListReceipts()
	}
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// uploadContentType picks the upload's MIME type, falling back to the
// file extension
func uploadContentType(header string, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(header))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// handleUploadReceipt handles receipt upload
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		msg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			msg = "No file was selected. Please choose a file to upload."
		}
		writeError(w, msg, http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := uploadContentType(header.Header.Get("Content-Type"), header.Filename)

	receipt, err := s.service.ProcessReceipt(header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing receipt", "filename", header.Filename, "error", err)
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			// scanner failures are usually a bad or unreadable image
			code = http.StatusBadRequest
		}
		writeError(w, err.Error(), code)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		writeError(w, "Receipt not found", statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns the uploaded file for a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		writeError(w, "File not found", statusFor(err))
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		slog.Error("Error deleting receipt", "error", err)
		code := statusFor(err)
		msg := "Error deleting receipt"
		if code == http.StatusNotFound {
			msg = "Receipt not found"
		}
		writeError(w, msg, code)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReviewReceipt records a correction for a receipt
func (s *Server) handleReviewReceipt(w http.ResponseWriter, r *http.Request) {
	var input ReviewInput
	if err := decodeBody(w, r, &input); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	review, err := s.service.ReviewReceipt(r.PathValue("id"), input)
	if err != nil {
		slog.Error("Error reviewing receipt", "error", err)
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// handleReviewQueue returns receipts waiting for review
func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := s.service.ListNeedingReview()
	if err != nil {
		slog.Error("Error listing review queue", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, queue)
}

// handleExportReviewQueue returns the review queue as a spreadsheet
func (s *Server) handleExportReviewQueue(w http.ResponseWriter, r *http.Request) {
	data, err := s.service.ExportReviewQueue()
	if err != nil {
		slog.Error("Error exporting review queue", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="review-queue.xlsx"`)
	w.Write(data)
}

// handleListReviews returns all reviews
func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.service.ListReviews()
	if err != nil {
		slog.Error("Error listing reviews", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// handleGetReview returns a review with the receipt it corrects
func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	review, receipt, err := s.service.GetReviewWithReceipt(r.PathValue("id"))
	if err != nil {
		writeError(w, "Review not found", statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"review":  review,
		"receipt": receipt,
	})
}
