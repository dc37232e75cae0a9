package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-splitter/internal/settlement"
)

const (
	// high-resolution phone photos
	maxUploadSize = int64(50 << 20)
	maxJSONSize   = int64(1 << 20)
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes {"error": message}
func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, settlement.ErrInvalidInput),
		errors.Is(err, settlement.ErrInvalidAssignment),
		errors.Is(err, ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoRawText):
		return http.StatusConflict
	case errors.Is(err, settlement.ErrUnimplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError hides internal errors and reports everything else as is
func writeServiceError(w http.ResponseWriter, err error, action string) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("Error "+action, "error", err)
		writeError(w, "Internal server error", code)
		return
	}
	writeError(w, err.Error(), code)
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONSize)).Decode(v); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

// contentTypeFor picks the upload's content type from the part header, then
// the file extension, then the data itself
func contentTypeFor(header string, filename string, data []byte) string {
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
	}
	return http.DetectContentType(data)
}

// handleListReceipts returns all receipts, newest first
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		writeServiceError(w, err, "listing receipts")
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleUploadReceipt handles receipt upload
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "File is too large. Maximum size is 50MB.", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file", http.StatusInternalServerError)
		return
	}

	contentType := contentTypeFor(header.Header.Get("Content-Type"), header.Filename, data)

	receipt, err := s.service.ProcessReceipt(r.Context(), header.Filename, data, contentType)
	if err != nil {
		writeServiceError(w, err, "processing receipt")
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "getting receipt")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns the original upload
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "getting receipt file")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt and its files
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		writeServiceError(w, err, "deleting receipt")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReparseReceipt re-interprets stored OCR text
func (s *Server) handleReparseReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.Reparse(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "reparsing receipt")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleUpdateItems replaces a receipt's items
func (s *Server) handleUpdateItems(w http.ResponseWriter, r *http.Request) {
	var req ItemsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	receipt, err := s.service.UpdateItems(r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "updating items")
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleSplitReceipt settles a stored receipt
func (s *Server) handleSplitReceipt(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	record, err := s.service.Settle(r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "splitting receipt")
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// handleListSettlements returns a receipt's stored splits
func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := s.service.ListSettlements(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "listing settlements")
		return
	}
	writeJSON(w, http.StatusOK, settlements)
}

// handleInterpret parses posted text without storing it
func (s *Server) handleInterpret(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.service.Interpret(req.Text))
}

// handleSplitEqual divides a posted total without storing it
func (s *Server) handleSplitEqual(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Total  *decimal.Decimal `json:"total"`
		People int              `json:"people"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Total == nil {
		writeError(w, "total is required", http.StatusBadRequest)
		return
	}

	res, err := s.service.SplitEqual(*req.Total, req.People)
	if err != nil {
		writeServiceError(w, err, "splitting total")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
