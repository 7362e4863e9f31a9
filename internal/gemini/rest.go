package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/gemini-stylist/internal/stylist"
)

// DefaultBaseURL is the Gemini REST API base URL.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// RESTImageClient calls generateContent over plain HTTP, reusing the
// base64 form already held by the source image.
type RESTImageClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

var _ stylist.Generator = (*RESTImageClient)(nil)

// NewRESTImageClient creates a REST client. An empty baseURL selects
// DefaultBaseURL.
func NewRESTImageClient(apiKey, model, baseURL string, timeout time.Duration) *RESTImageClient {
	if model == "" {
		model = DefaultImageModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &RESTImageClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type restRequest struct {
	Contents         []restContent         `json:"contents"`
	GenerationConfig *restGenerationConfig `json:"generationConfig,omitempty"`
}

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text       string    `json:"text,omitempty"`
	InlineData *restBlob `json:"inlineData,omitempty"`
}

type restGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type restBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type restResponse struct {
	Candidates []struct {
		Content      restContent `json:"content"`
		FinishReason string      `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *restError `json:"error,omitempty"`
}

type restError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Generate posts the image and instruction and decodes the first inline
// image of the first candidate.
func (c *RESTImageClient) Generate(ctx context.Context, src *stylist.SourceImage, instruction string) (*stylist.Image, error) {
	startTime := time.Now()

	req := restRequest{
		Contents: []restContent{{
			Role: "user",
			Parts: []restPart{
				{InlineData: &restBlob{MIMEType: src.MIMEType, Data: src.Encoded}},
				{Text: instruction},
			},
		}},
		GenerationConfig: &restGenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed restResponse
	if resp.StatusCode != http.StatusOK {
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", truncateString(string(respBody), 500)).
			Msg("Gemini image API returned error")
		apiErr := &genai.APIError{Code: resp.StatusCode, Message: truncateString(string(respBody), 200)}
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Error != nil {
			apiErr.Message = parsed.Error.Message
			apiErr.Status = parsed.Error.Status
		}
		return nil, apiErr
	}

	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return nil, &genai.APIError{Code: parsed.Error.Code, Message: parsed.Error.Message, Status: parsed.Error.Status}
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt %s", ErrBlocked, parsed.PromptFeedback.BlockReason)
	}
	if len(parsed.Candidates) == 0 {
		return nil, ErrNoImage
	}

	cand := parsed.Candidates[0]
	var text string
	for _, part := range cand.Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			decoded, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image data: %w", err)
			}
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			log.Debug().
				Int("output_bytes", len(decoded)).
				Str("output_mime", mime).
				Dur("duration", time.Since(startTime)).
				Msg("Gemini REST image generation complete")
			return &stylist.Image{Data: decoded, MIMEType: mime}, nil
		}
		text += part.Text
	}

	switch cand.FinishReason {
	case "SAFETY", "IMAGE_SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST", "IMAGE_PROHIBITED_CONTENT":
		return nil, fmt.Errorf("%w: finish reason %s", ErrBlocked, cand.FinishReason)
	}
	return nil, fmt.Errorf("%w (text: %s)", ErrNoImage, truncateString(text, 200))
}
