package scanning

import (
	"context"
	"fmt"

	"github.com/zombor/diet-tracker/internal/nutrition"
)

// Candidate is a provisional food item extracted from a receipt, pending
// human review. Macros and Micros are nil until normalization fills them;
// nil means "not yet known", distinct from an explicit zero.
type Candidate struct {
	Name   string            `json:"name"`
	Price  float64           `json:"price"`
	Date   string            `json:"date,omitempty"`
	Macros *nutrition.Macros `json:"macros,omitempty"`
	Micros *nutrition.Micros `json:"micros,omitempty"`
}

// TextDetector sends an image to an OCR service and returns the recognized
// full text. An empty string with a nil error means the service found no
// text; that is a valid outcome, not an error.
type TextDetector interface {
	DetectText(ctx context.Context, image []byte) (string, error)
	Close() error
}

// Extractor submits receipt text to a language model and returns the raw
// model response. The response is expected, but not guaranteed, to be a
// JSON array of candidate items; ParseItems handles the difference.
type Extractor interface {
	ExtractItems(ctx context.Context, receiptText string) (string, error)
	Close() error
}

// TransportError marks a failure to reach or use an external service.
// Callers branch on it with errors.As to distinguish a broken service from
// an empty result.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
