package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-splitter/internal/interpret"
	"github.com/zombor/receipt-splitter/internal/scanning"
	"github.com/zombor/receipt-splitter/internal/settlement"
)

var (
	// ErrUnsupportedType is returned for uploads that cannot be decoded
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrNoRawText is returned when re-parsing a receipt that has no OCR text
	ErrNoRawText = errors.New("receipt has no recognised text")
)

// IDGenerator generates unique IDs for receipts and settlements
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// Enhancer prepares an image for OCR and returns PNG data
type Enhancer interface {
	Enhance(data []byte, contentType string) ([]byte, error)
}

// Interpreter turns OCR text into line items and a total
type Interpreter interface {
	Interpret(raw string) interpret.ParseResult
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Service runs the upload pipeline and settles stored receipts
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	enhancer    Enhancer
	interpreter Interpreter
	metrics     *Metrics
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUIDs and the system clock
func NewService(db DB, scanner scanning.Scanner, storage Storage, enhancer Enhancer, interpreter Interpreter) *Service {
	return NewServiceWithDeps(db, scanner, storage, enhancer, interpreter, uuidGenerator{}, systemClock{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, enhancer Enhancer, interpreter Interpreter, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		enhancer:    enhancer,
		interpreter: interpreter,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// WithMetrics records pipeline and settlement counters on m
func (s *Service) WithMetrics(m *Metrics) *Service {
	s.metrics = m
	return s
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	repeatedSpaces      = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up phone-generated names and keeps them short
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(repeatedSpaces.ReplaceAllString(base, " "))

	if runes := []rune(base); len(runes) > 50 {
		base = strings.TrimSpace(string(runes[:50]))
	}
	if base == "" {
		base = "receipt"
	}
	return base + ext
}

// enhancedName is the storage name of the OCR-ready copy of a stored file
func enhancedName(stored string) string {
	return "enhanced_" + strings.TrimSuffix(stored, filepath.Ext(stored)) + ".png"
}

// save stamps and persists the receipt in the given status
func (s *Service) save(r *Receipt, status Status) error {
	r.Status = status
	r.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveReceipt(r); err != nil {
		return fmt.Errorf("saving receipt to database: %w", err)
	}
	return nil
}

// fail records a terminal failure status. The receipt is still returned to
// the caller so the status is visible.
func (s *Service) fail(r *Receipt, status Status, cause error) (*Receipt, error) {
	r.ProcessingError = cause.Error()
	if err := s.save(r, status); err != nil {
		s.discard(r)
		return nil, err
	}
	s.metrics.receiptProcessed(status, 0)
	return r, nil
}

// removeFiles deletes a receipt's stored files, logging what could not be
// removed
func (s *Service) removeFiles(names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := s.storage.Delete(name); err != nil {
			slog.Warn("Failed to delete file", "filename", name, "error", err)
		}
	}
}

// discard drops a receipt whose processing state could not be persisted
func (s *Service) discard(r *Receipt) {
	s.removeFiles(r.Filename, r.ProcessedFilename)
	if err := s.db.DeleteReceipt(r.ID); err != nil && !errors.Is(err, ErrNotFound) {
		slog.Warn("Failed to delete receipt record", "id", r.ID, "error", err)
	}
}

// ProcessReceipt stores an upload, enhances it, runs OCR and interprets the
// text. Processing failures are recorded on the returned receipt; only
// invalid uploads and persistence errors are returned as errors, after the
// partial upload has been removed.
func (s *Service) ProcessReceipt(ctx context.Context, filename string, data []byte, contentType string) (*Receipt, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}
	if !scanning.IsSupported(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	r := &Receipt{
		ID:               id,
		OriginalFilename: filename,
		Filename:         savedPath,
		ContentType:      contentType,
		Items:            []interpret.LineItem{},
		CreatedAt:        now,
	}
	if err := s.save(r, StatusUploaded); err != nil {
		s.removeFiles(savedPath)
		return nil, err
	}

	if err := s.save(r, StatusPreprocessing); err != nil {
		s.discard(r)
		return nil, err
	}
	enhanced, err := s.enhancer.Enhance(data, contentType)
	if err != nil {
		slog.Error("Failed to enhance receipt image", "id", id, "content_type", contentType, "error", err)
		return s.fail(r, StatusPreprocessingFailed, err)
	}
	processedPath, err := s.storage.Save(enhancedName(savedPath), enhanced)
	if err != nil {
		slog.Error("Failed to save enhanced image", "id", id, "error", err)
		return s.fail(r, StatusPreprocessingFailed, fmt.Errorf("saving enhanced image: %w", err))
	}
	r.ProcessedFilename = processedPath

	started := time.Now()
	text, err := s.scanner.ExtractText(ctx, enhanced, "image/png")
	s.metrics.observeOCR(time.Since(started).Seconds())
	if errors.Is(err, scanning.ErrNoText) {
		slog.Warn("No text recognised on receipt", "id", id)
		return s.fail(r, StatusNoText, err)
	}
	if err != nil {
		slog.Error("Failed to extract receipt text",
			"id", id,
			"filename", filename,
			"file_size", len(data),
			"error", err,
		)
		return s.fail(r, StatusOCRFailed, err)
	}

	r.RawText = text
	if err := s.save(r, StatusOCRComplete); err != nil {
		s.discard(r)
		return nil, err
	}

	if err := s.applyParse(r); err != nil {
		s.discard(r)
		return nil, err
	}
	s.metrics.receiptProcessed(r.Status, len(r.Items))

	slog.Info("Processed receipt", "id", id, "status", r.Status, "items", len(r.Items))
	return r, nil
}

// applyParse interprets the stored text and saves the outcome
func (s *Service) applyParse(r *Receipt) error {
	result := s.interpreter.Interpret(r.RawText)
	r.Items = result.Items
	if r.Items == nil {
		r.Items = []interpret.LineItem{}
	}
	r.TotalAmount = result.Total

	status := StatusParsed
	r.ProcessingError = ""
	if err := result.Err(); err != nil {
		status = StatusNoText
		r.ProcessingError = err.Error()
	}
	return s.save(r, status)
}

// Reparse interprets a receipt's stored text again, replacing its items
func (s *Service) Reparse(id string) (*Receipt, error) {
	r, err := s.GetReceipt(id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(r.RawText) == "" {
		return nil, fmt.Errorf("receipt %s: %w", id, ErrNoRawText)
	}
	if err := s.applyParse(r); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateItems replaces a receipt's items with user corrections
func (s *Service) UpdateItems(id string, req ItemsRequest) (*Receipt, error) {
	items := make([]interpret.LineItem, 0, len(req.Items))
	for i, in := range req.Items {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: item %d has no name", settlement.ErrInvalidInput, i)
		}
		if in.Price.IsNegative() {
			return nil, fmt.Errorf("%w: item %d has a negative price", settlement.ErrInvalidInput, i)
		}
		quantity := in.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 0 {
			return nil, fmt.Errorf("%w: item %d has a negative quantity", settlement.ErrInvalidInput, i)
		}
		items = append(items, interpret.LineItem{Name: name, Price: in.Price.Round(2), Quantity: quantity})
	}
	if req.TotalAmount != nil && req.TotalAmount.IsNegative() {
		return nil, fmt.Errorf("%w: total is negative", settlement.ErrInvalidInput)
	}

	r, err := s.GetReceipt(id)
	if err != nil {
		return nil, err
	}
	r.Items = items
	r.TotalAmount = req.TotalAmount
	r.ProcessingError = ""
	if err := s.save(r, StatusParsed); err != nil {
		return nil, err
	}
	return r, nil
}

// Settle splits a stored receipt and records the result
func (s *Service) Settle(id string, req SplitRequest) (*Settlement, error) {
	policy, err := req.Policy()
	if err != nil {
		s.metrics.settled(req.Method, err)
		return nil, err
	}

	r, err := s.GetReceipt(id)
	if err != nil {
		return nil, err
	}

	result, err := settlement.Settle(policy, r.TotalAmount, r.Items)
	s.metrics.settled(policy.Method(), err)
	if err != nil {
		return nil, fmt.Errorf("settling receipt %s: %w", id, err)
	}

	record := &Settlement{
		ID:        s.idGenerator.Generate(),
		ReceiptID: id,
		Result:    result,
		CreatedAt: s.timeSource.Now(),
	}
	if err := s.db.SaveSettlement(record); err != nil {
		return nil, fmt.Errorf("saving settlement: %w", err)
	}

	slog.Info("Settled receipt", "id", id, "method", result.Method, "total", result.TotalAmount.StringFixed(2))
	return record, nil
}

// ListSettlements returns the stored splits of a receipt
func (s *Service) ListSettlements(id string) ([]*Settlement, error) {
	if _, err := s.GetReceipt(id); err != nil {
		return nil, err
	}
	settlements, err := s.db.ListSettlements(id)
	if err != nil {
		return nil, fmt.Errorf("listing settlements: %w", err)
	}
	return settlements, nil
}

// Interpret parses free text without storing anything
func (s *Service) Interpret(text string) interpret.ParseResult {
	result := s.interpreter.Interpret(text)
	if result.Items == nil {
		result.Items = []interpret.LineItem{}
	}
	return result
}

// SplitEqual divides a bare total without storing anything
func (s *Service) SplitEqual(total decimal.Decimal, people int) (*settlement.EqualResult, error) {
	res, err := settlement.SplitEqual(total, people)
	s.metrics.settled(settlement.MethodEqual, err)
	return res, err
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	r, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return r, nil
}

// ListReceipts returns all receipts, newest first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	sort.SliceStable(receipts, func(i, j int) bool {
		if receipts[i].CreatedAt.Equal(receipts[j].CreatedAt) {
			return receipts[i].ID > receipts[j].ID
		}
		return receipts[i].CreatedAt.After(receipts[j].CreatedAt)
	})
	return receipts, nil
}

// DeleteReceipt removes a receipt, its files and its settlements
func (s *Service) DeleteReceipt(id string) error {
	r, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	s.removeFiles(r.Filename, r.ProcessedFilename)

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the original upload of a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	r, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(r.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, r.ContentType, nil
}
