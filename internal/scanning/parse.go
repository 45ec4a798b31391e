package scanning

import (
	"encoding/json"
	"strings"

	"github.com/zombor/diet-tracker/internal/nutrition"
)

// ExtractionResult is the normalized outcome of one model response. Exactly
// one branch is populated: Items when the response parsed as a JSON array
// (every candidate zero-filled), Raw when it did not. The model output
// format is advisory, so a malformed response is surfaced, never fatal.
type ExtractionResult struct {
	Items []Candidate `json:"items"`
	Raw   string      `json:"-"`
}

// Parsed reports whether the response was valid JSON.
func (r ExtractionResult) Parsed() bool {
	return r.Raw == ""
}

// ParseItems parses a model response into candidates. Markdown code fences
// are stripped and the array boundaries located before unmarshaling, since
// models wrap JSON in commentary despite instructions. On parse failure the
// raw response is preserved for the user instead of fabricating items.
func ParseItems(response string) ExtractionResult {
	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if start := strings.Index(text, "["); start != -1 {
		if end := strings.LastIndex(text, "]"); end > start {
			text = text[start : end+1]
		}
	}

	var items []Candidate
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return ExtractionResult{Raw: response}
	}

	for i := range items {
		macros := nutrition.FillMacros(items[i].Macros)
		micros := nutrition.FillMicros(items[i].Micros)
		items[i].Macros = &macros
		items[i].Micros = &micros
	}
	if items == nil {
		items = []Candidate{}
	}
	return ExtractionResult{Items: items}
}
