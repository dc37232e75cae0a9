package scanning

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	tesseractTimeout = 60 * time.Second

	DefaultTesseractLang = "eng+rus"
	// page segmentation mode 6: a single uniform block of text
	DefaultTesseractPSM = 6
)

// Tesseract implements the Scanner interface by running the tesseract CLI
type Tesseract struct {
	binary string
	lang   string
	psm    int
}

// NewTesseract creates a Tesseract scanner. An empty binary resolves
// "tesseract" from PATH.
func NewTesseract(binary, lang string, psm int) (*Tesseract, error) {
	if binary == "" {
		binary = "tesseract"
	}
	if lang == "" {
		lang = DefaultTesseractLang
	}
	if psm <= 0 {
		psm = DefaultTesseractPSM
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("finding tesseract binary %q: %w", binary, err)
	}

	return &Tesseract{binary: path, lang: lang, psm: psm}, nil
}

// ExtractText writes the image to a temp file and reads tesseract's stdout
func (t *Tesseract) ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, tesseractTimeout)
	defer cancel()

	pngData, err := prepareImageData(imageData, contentType)
	if err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp("", "receipt-ocr-")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "receipt.png")
	if err := os.WriteFile(input, pngData, 0600); err != nil {
		return "", fmt.Errorf("writing temp image: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.binary, input, "stdout", "-l", t.lang, "--psm", strconv.Itoa(t.psm))
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("tesseract timed out after %s: %w", tesseractTimeout, ctx.Err())
		}
		return "", fmt.Errorf("running tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Close is a no-op; every call runs its own process
func (t *Tesseract) Close() error {
	return nil
}
