package scanning

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

const detectTimeout = 30 * time.Second

// GoogleVision implements TextDetector using the Cloud Vision API.
type GoogleVision struct {
	svc *vision.Service
}

// NewGoogleVision creates a GoogleVision detector authenticated by API key.
func NewGoogleVision(ctx context.Context, apiKey string) (*GoogleVision, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("vision api key is required")
	}

	svc, err := vision.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating vision client: %w", err)
	}
	return &GoogleVision{svc: svc}, nil
}

// DetectText runs one TEXT_DETECTION request and returns the full-text
// annotation, or an empty string when the image contains no readable text.
// The call is one-shot with a bounded timeout; failures surface as
// *TransportError so callers can tell a broken service from an empty image.
func (g *GoogleVision) DetectText(ctx context.Context, image []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, detectTimeout)
	defer cancel()

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
				Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
			},
		},
	}

	resp, err := g.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", &TransportError{Service: "vision", Err: err}
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}

	result := resp.Responses[0]
	if result.Error != nil {
		return "", &TransportError{Service: "vision", Err: fmt.Errorf("annotate: %s", result.Error.Message)}
	}
	// The first annotation spans the whole detected text; the rest are
	// per-word fragments.
	if len(result.TextAnnotations) == 0 {
		return "", nil
	}
	return result.TextAnnotations[0].Description, nil
}

// Close closes the detector (no-op for the REST client).
func (g *GoogleVision) Close() error {
	return nil
}
