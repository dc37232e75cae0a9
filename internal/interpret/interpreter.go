package interpret

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// Interpreter applies an ordered list of line rules to receipt text.
// It holds no mutable state and is safe for concurrent use.
type Interpreter struct {
	rules      []Rule
	rejections []Rejection
}

// New creates an Interpreter for cfg. Empty fields fall back to DefaultConfig.
func New(cfg Config) *Interpreter {
	return NewWithRules(
		[]Rule{TotalRule(cfg), ItemRule(cfg), AmountRule(cfg)},
		[]Rejection{KeywordNameRejection(cfg), NumericNameRejection()},
	)
}

// NewWithRules creates an Interpreter from explicit rules, tried in order
func NewWithRules(rules []Rule, rejections []Rejection) *Interpreter {
	return &Interpreter{
		rules:      rules,
		rejections: rejections,
	}
}

var defaultInterpreter = New(DefaultConfig())

// Interpret parses raw using DefaultConfig
func Interpret(raw string) ParseResult {
	return defaultInterpreter.Interpret(raw)
}

// Interpret parses raw OCR text into items and a total. It never fails: text
// that yields nothing gives an empty result. Lines are processed top to
// bottom; a later total line overrides an earlier one.
func (in *Interpreter) Interpret(raw string) ParseResult {
	items := make([]LineItem, 0)
	var total, trailing *decimal.Decimal

	for _, line := range splitLines(raw) {
		classified, rule, ok := in.classify(line)
		if !ok {
			slog.Debug("Line ignored", "line", line)
			continue
		}

		switch classified.Kind {
		case KindTotal:
			amount := classified.Amount
			total = &amount
			slog.Debug("Found total", "line", line, "amount", amount.String())
		case KindItem:
			if rejection, rejected := in.rejected(classified.Name); rejected {
				slog.Debug("Item rejected", "line", line, "rejection", rejection)
				continue
			}
			items = append(items, LineItem{
				Name:     classified.Name,
				Price:    classified.Amount,
				Quantity: 1,
			})
			trailing = nil
			slog.Debug("Found item", "line", line, "name", classified.Name, "price", classified.Amount.String())
		case KindAmount:
			amount := classified.Amount
			trailing = &amount
			slog.Debug("Found bare amount", "line", line, "amount", amount.String())
		default:
			slog.Debug("Unhandled line kind", "line", line, "rule", rule, "kind", classified.Kind)
		}
	}

	if total == nil && len(items) > 0 {
		total, items = inferTotal(items, trailing)
		if total != nil {
			slog.Debug("Inferred total", "amount", total.String())
		}
	}

	return ParseResult{Items: items, Total: total}
}

func (in *Interpreter) classify(line string) (Line, string, bool) {
	for _, rule := range in.rules {
		if classified, ok := rule.Classify(line); ok {
			return classified, rule.Name, true
		}
	}
	return Line{}, "", false
}

func (in *Interpreter) rejected(name string) (string, bool) {
	for _, rejection := range in.rejections {
		if rejection.Reject(name) {
			return rejection.Name, true
		}
	}
	return "", false
}

// inferTotal guesses a total when no keyword line was found. The candidate
// is a bare amount at the end of the receipt, or else the last item; it is
// taken as the total only when it exceeds the sum of the items before it.
func inferTotal(items []LineItem, trailing *decimal.Decimal) (*decimal.Decimal, []LineItem) {
	if trailing != nil {
		if trailing.GreaterThan(sumPrices(items)) {
			return trailing, items
		}
		return nil, items
	}

	if len(items) < 2 {
		return nil, items
	}
	last := items[len(items)-1]
	others := sumPrices(items[:len(items)-1])
	if others.IsPositive() && last.Price.GreaterThan(others) {
		total := last.Price
		return &total, items[:len(items)-1]
	}
	return nil, items
}

// splitLines returns trimmed, non-empty lines in their original order
func splitLines(raw string) []string {
	raw = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(raw)
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
