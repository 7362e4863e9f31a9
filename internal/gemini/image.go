// Package gemini adapts the Gemini image models to the stylist.Generator
// interface. ImageClient uses the google.golang.org/genai SDK;
// RESTImageClient talks to the REST endpoint directly.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/gemini-stylist/internal/stylist"
)

var (
	// ErrNoImage is returned when a response carries no inline image.
	ErrNoImage = errors.New("no image returned in response")
	// ErrBlocked is returned when the prompt or output was blocked by safety filters.
	ErrBlocked = errors.New("content blocked by safety filters")
)

// NewClient creates a genai client for the Gemini Developer API.
func NewClient(ctx context.Context, apiKey string, timeout time.Duration) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// ImageClient generates stylized images through the genai SDK.
type ImageClient struct {
	client *genai.Client
	model  string
}

var _ stylist.Generator = (*ImageClient)(nil)

// NewImageClient wraps an existing genai client.
func NewImageClient(client *genai.Client, model string) *ImageClient {
	if model == "" {
		model = DefaultImageModel
	}
	return &ImageClient{client: client, model: model}
}

// Generate sends the source image followed by the instruction and returns
// the first inline image of the first candidate.
func (c *ImageClient) Generate(ctx context.Context, src *stylist.SourceImage, instruction string) (*stylist.Image, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: src.MIMEType, Data: src.Data}},
			{Text: instruction},
		},
	}}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	log.Debug().
		Str("model", c.model).
		Int("image_bytes", len(src.Data)).
		Str("image_mime", src.MIMEType).
		Int("instruction_length", len(instruction)).
		Msg("Sending image to Gemini")

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	return extractImage(resp)
}

// extractImage pulls the output image out of a response.
func extractImage(resp *genai.GenerateContentResponse) (*stylist.Image, error) {
	if resp == nil {
		return nil, ErrNoImage
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrNoImage
	}

	cand := resp.Candidates[0]
	var text strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return &stylist.Image{Data: part.InlineData.Data, MIMEType: mime}, nil
			}
			text.WriteString(part.Text)
		}
	}

	switch reason := string(cand.FinishReason); reason {
	case "SAFETY", "IMAGE_SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST", "IMAGE_PROHIBITED_CONTENT":
		return nil, fmt.Errorf("%w: finish reason %s", ErrBlocked, reason)
	}
	return nil, fmt.Errorf("%w (text: %s)", ErrNoImage, truncateString(text.String(), 200))
}

// truncateString truncates a string to maxLen, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
