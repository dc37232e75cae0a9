package interpret

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Kind says what a classified line contributes to the receipt
type Kind int

const (
	// KindTotal is a keyword total line ("TOTAL 12.50")
	KindTotal Kind = iota + 1
	// KindItem is a name followed by a price ("Bread 2.50")
	KindItem
	// KindAmount is a line holding nothing but a number ("12.50")
	KindAmount
)

func (k Kind) String() string {
	switch k {
	case KindTotal:
		return "total"
	case KindItem:
		return "item"
	case KindAmount:
		return "amount"
	default:
		return "unknown"
	}
}

// Line is the outcome of a rule matching one line of text
type Line struct {
	Kind   Kind
	Name   string
	Amount decimal.Decimal
}

// Rule classifies a single trimmed line. Rules are pure and are tried in
// order; the first one that matches decides the line.
type Rule struct {
	Name     string
	Classify func(line string) (Line, bool)
}

// Rejection drops an item candidate whose name matches
type Rejection struct {
	Name   string
	Reject func(name string) bool
}

// whitespace also covers no-break and other Unicode spaces OCR produces
const whitespace = `[\s\p{Zs}]`

// numberClass builds a character class of digits plus the separators
func numberClass(separators []rune) string {
	var b strings.Builder
	b.WriteString(`[0-9`)
	for _, sep := range separators {
		b.WriteString(regexp.QuoteMeta(string(sep)))
	}
	b.WriteString(`]+`)
	return b.String()
}

// keywordAlternation quotes keywords, longest first so "SUMMARY" wins over "SUM"
func keywordAlternation(keywords []string) string {
	quoted := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}
	sort.SliceStable(quoted, func(i, j int) bool {
		return len(quoted[i]) > len(quoted[j])
	})
	return strings.Join(quoted, "|")
}

// TotalRule matches a line that starts with a keyword and ends with an
// amount. The keyword must end at a word boundary ("TOTALS" is not "TOTAL").
func TotalRule(cfg Config) Rule {
	cfg = cfg.withDefaults()
	pattern := regexp.MustCompile(`(?i)^(?:` + keywordAlternation(cfg.Keywords) + `)` +
		`(?:[^\p{L}\p{N}].*?)?` + whitespace + `+(` + numberClass(cfg.DecimalSeparators) + `)` + whitespace + `*$`)

	return Rule{
		Name: "total",
		Classify: func(line string) (Line, bool) {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				return Line{}, false
			}
			amount, ok := parseAmount(m[1], cfg.DecimalSeparators)
			if !ok {
				return Line{}, false
			}
			return Line{Kind: KindTotal, Amount: amount}, true
		},
	}
}

// ItemRule matches "<text> <amount>"
func ItemRule(cfg Config) Rule {
	cfg = cfg.withDefaults()
	pattern := regexp.MustCompile(`^(.+?)` + whitespace + `+(` + numberClass(cfg.DecimalSeparators) + `)` + whitespace + `*$`)

	return Rule{
		Name: "item",
		Classify: func(line string) (Line, bool) {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				return Line{}, false
			}
			name := strings.TrimSpace(m[1])
			if name == "" {
				return Line{}, false
			}
			amount, ok := parseAmount(m[2], cfg.DecimalSeparators)
			if !ok {
				return Line{}, false
			}
			return Line{Kind: KindItem, Name: name, Amount: amount}, true
		},
	}
}

// AmountRule matches a line that is a bare amount
func AmountRule(cfg Config) Rule {
	cfg = cfg.withDefaults()
	pattern := regexp.MustCompile(`^(` + numberClass(cfg.DecimalSeparators) + `)$`)

	return Rule{
		Name: "amount",
		Classify: func(line string) (Line, bool) {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				return Line{}, false
			}
			amount, ok := parseAmount(m[1], cfg.DecimalSeparators)
			if !ok {
				return Line{}, false
			}
			return Line{Kind: KindAmount, Amount: amount}, true
		},
	}
}

// KeywordNameRejection drops items named exactly like a total keyword; this
// catches total lines the total rule could not parse.
func KeywordNameRejection(cfg Config) Rejection {
	cfg = cfg.withDefaults()
	keywords := make(map[string]struct{}, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		keywords[strings.ToUpper(kw)] = struct{}{}
	}

	return Rejection{
		Name: "keyword_name",
		Reject: func(name string) bool {
			_, ok := keywords[strings.ToUpper(name)]
			return ok
		},
	}
}

// NumericNameRejection drops items whose name has no letters at all,
// typically a stray quantity, tax code or column of numbers.
func NumericNameRejection() Rejection {
	return Rejection{
		Name: "numeric_name",
		Reject: func(name string) bool {
			for _, r := range name {
				if unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
					continue
				}
				return false
			}
			return true
		},
	}
}

// parseAmount normalises a numeric token to a decimal. The last separator is
// the decimal point unless it is followed by exactly three digits and the
// same separator occurs earlier too ("1,234,567"); every other separator is
// digit grouping.
func parseAmount(token string, separators []rune) (decimal.Decimal, bool) {
	isSep := func(r rune) bool {
		for _, sep := range separators {
			if r == sep {
				return true
			}
		}
		return false
	}

	runes := []rune(strings.TrimSpace(token))
	lastSep := -1
	hasDigit := false
	for i, r := range runes {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case isSep(r):
			lastSep = i
		default:
			return decimal.Decimal{}, false
		}
	}
	if !hasDigit {
		return decimal.Decimal{}, false
	}

	decimalPoint := lastSep
	if lastSep >= 0 && len(runes)-lastSep-1 == 3 {
		for _, r := range runes[:lastSep] {
			if r == runes[lastSep] {
				decimalPoint = -1
				break
			}
		}
	}

	var b strings.Builder
	for i, r := range runes {
		switch {
		case i == decimalPoint:
			b.WriteRune('.')
		case isSep(r):
		default:
			b.WriteRune(r)
		}
	}

	normalized := strings.TrimSuffix(b.String(), ".")
	if strings.HasPrefix(normalized, ".") {
		normalized = "0" + normalized
	}
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount, true
}
