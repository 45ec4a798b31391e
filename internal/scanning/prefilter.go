package scanning

import (
	"regexp"
	"strings"
)

var (
	priceLine  = regexp.MustCompile(`\b\d+[.,]\d{2}\b`)
	letterLine = regexp.MustCompile(`[A-Za-z]`)
)

// FilterPricedLines narrows raw OCR text to lines that plausibly describe
// priced items: a currency-style decimal (two fraction digits) plus at
// least one letter. It is a noise reducer for the extraction model, not a
// correctness filter; the model remains the arbiter of what is a food item.
func FilterPricedLines(text string) []string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if priceLine.MatchString(line) && letterLine.MatchString(line) {
			kept = append(kept, line)
		}
	}
	return kept
}
