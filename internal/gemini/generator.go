package gemini

import (
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/fpang/gemini-stylist/internal/stylist"
)

// GeneratorConfig selects and configures the generation transport.
type GeneratorConfig struct {
	APIKey    string
	Model     string
	Transport string
	Timeout   time.Duration
	// BaseURL overrides the REST endpoint. Ignored by the SDK transport.
	BaseURL string
}

// NewGenerator returns the stylist.Generator for cfg.Transport. The SDK
// transport reuses client; the REST transport ignores it.
func NewGenerator(client *genai.Client, cfg GeneratorConfig) (stylist.Generator, error) {
	switch cfg.Transport {
	case "", TransportSDK:
		if client == nil {
			return nil, fmt.Errorf("sdk transport requires a genai client")
		}
		return NewImageClient(client, cfg.Model), nil
	case TransportREST:
		return NewRESTImageClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want %q or %q)", cfg.Transport, TransportSDK, TransportREST)
	}
}
