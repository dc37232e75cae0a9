package interpret

import "strings"

// Config controls which words mark a total line and which characters may
// separate the integer and fractional part of an amount.
type Config struct {
	// Keywords start a total line. Matching is case-insensitive.
	Keywords []string

	// DecimalSeparators are accepted inside numeric tokens. The last one in a
	// token is treated as the decimal point, the others as digit grouping.
	DecimalSeparators []rune
}

// DefaultConfig returns the bilingual (English/Russian) configuration
func DefaultConfig() Config {
	return Config{
		Keywords:          []string{"TOTAL", "SUM", "AMOUNT", "ИТОГО", "ВСЕГО"},
		DecimalSeparators: []rune{',', '.'},
	}
}

// ParseKeywords splits a comma-separated keyword list, dropping blanks
func ParseKeywords(list string) []string {
	var keywords []string
	for _, kw := range strings.Split(list, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// withDefaults fills empty fields from DefaultConfig
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	out := Config{}

	for _, kw := range c.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out.Keywords = append(out.Keywords, kw)
		}
	}
	if len(out.Keywords) == 0 {
		out.Keywords = def.Keywords
	}

	out.DecimalSeparators = append(out.DecimalSeparators, c.DecimalSeparators...)
	if len(out.DecimalSeparators) == 0 {
		out.DecimalSeparators = def.DecimalSeparators
	}
	return out
}
