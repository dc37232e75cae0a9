package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-splitter/internal/interpret"
	"github.com/zombor/receipt-splitter/internal/settlement"
)

// Status tracks a receipt through the upload pipeline
type Status string

const (
	StatusUploaded            Status = "uploaded"
	StatusPreprocessing       Status = "preprocessing"
	StatusPreprocessingFailed Status = "preprocessing_failed"
	StatusOCRComplete         Status = "ocr_complete"
	StatusOCRFailed           Status = "ocr_failed"
	StatusNoText              Status = "no_text"
	StatusParsed              Status = "parsed"
)

// Failed reports whether processing stopped before items were parsed
func (s Status) Failed() bool {
	return s == StatusPreprocessingFailed || s == StatusOCRFailed || s == StatusNoText
}

// Receipt is an uploaded receipt and what was read from it
type Receipt struct {
	ID                string               `json:"id"`
	OriginalFilename  string               `json:"original_filename"`
	Filename          string               `json:"filename"`
	ProcessedFilename string               `json:"processed_filename,omitempty"`
	ContentType       string               `json:"content_type"`
	Status            Status               `json:"status"`
	ProcessingError   string               `json:"processing_error,omitempty"`
	RawText           string               `json:"raw_text,omitempty"`
	Items             []interpret.LineItem `json:"items"`
	TotalAmount       *decimal.Decimal     `json:"total_amount,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// Settlement is a stored split of a receipt
type Settlement struct {
	ID        string             `json:"id"`
	ReceiptID string             `json:"receipt_id"`
	Result    *settlement.Result `json:"result"`
	CreatedAt time.Time          `json:"created_at"`
}
