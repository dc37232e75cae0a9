package scanning

import (
	"context"
	"errors"
	"strings"
)

// ErrNoText is returned when recognition ran but produced no text
var ErrNoText = errors.New("no text recognised")

// Scanner defines the interface for OCR engines
type Scanner interface {
	// ExtractText runs text recognition over a receipt image or PDF and
	// returns the raw text, one receipt line per text line
	ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}

// transcriptionPrompt is the shared prompt used by the LLM scanners
const transcriptionPrompt = `You are an OCR engine. Transcribe every line of text on this receipt exactly as printed, from top to bottom.

Rules:
- Output one receipt line per text line, keeping the item name and its price on the same line
- Keep prices exactly as printed, including comma or period decimal separators
- Keep the original language and alphabet; do not translate
- Do not add, summarise, correct or reorder anything
- Do not wrap the output in markdown code blocks
- If there is no readable text, output nothing`

// cleanTranscript strips markdown fences and surrounding whitespace that
// LLMs add despite being told not to
func cleanTranscript(text string) (string, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		// drop the opening fence line, which may carry a language tag
		if idx := strings.Index(text, "\n"); idx >= 0 {
			text = text[idx+1:]
		} else {
			text = ""
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
