package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/gemini-stylist/internal/metrics"
)

// ValidationError describes an API key problem or a classified Gemini
// failure.
type ValidationError struct {
	Type    ErrorType
	Message string
	Err     error
}

// ErrorType categorizes Gemini failures.
type ErrorType int

const (
	// ErrTypeNoKey indicates no API key was found.
	ErrTypeNoKey ErrorType = iota
	// ErrTypeInvalidKey indicates the API key is invalid or revoked.
	ErrTypeInvalidKey
	// ErrTypeNetworkError indicates a network connectivity issue.
	ErrTypeNetworkError
	// ErrTypeQuotaExceeded indicates the API quota has been exceeded.
	ErrTypeQuotaExceeded
	// ErrTypeServerError indicates a 5xx from the Gemini API.
	ErrTypeServerError
	// ErrTypeContentBlocked indicates a safety filter rejected the request or output.
	ErrTypeContentBlocked
	// ErrTypeUnknown indicates an unknown error occurred.
	ErrTypeUnknown
)

var errorTypeNames = map[ErrorType]string{
	ErrTypeNoKey:          "no_key",
	ErrTypeInvalidKey:     "invalid_key",
	ErrTypeNetworkError:   "network",
	ErrTypeQuotaExceeded:  "quota",
	ErrTypeServerError:    "server",
	ErrTypeContentBlocked: "blocked",
	ErrTypeUnknown:        "unknown",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateAPIKey verifies the key with a minimal request against model.
// It returns nil if the key is valid, or a *ValidationError describing
// the failure.
func ValidateAPIKey(ctx context.Context, client *genai.Client, model string) error {
	log.Debug().Str("model", model).Msg("Validating API key with Gemini API")

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text("hi"), nil)
	elapsed := time.Since(start)

	var valErr *ValidationError
	switch {
	case err != nil:
		valErr = Classify(err)
	case resp == nil || len(resp.Candidates) == 0:
		valErr = &ValidationError{Type: ErrTypeUnknown, Message: "API returned empty response"}
	}

	result := "success"
	if valErr != nil {
		result = valErr.Type.String()
	}
	metrics.New(metrics.Namespace).
		Dimension("Result", result).
		Metric("ApiKeyValidationMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("ApiKeyValidationResult").
		Flush()

	if valErr != nil {
		log.Error().Err(valErr).Str("result", result).Dur("duration", elapsed).Msg("API key validation failed")
		return valErr
	}

	log.Info().Dur("duration", elapsed).Msg("API key validated successfully")
	return nil
}

// FailureClass returns the short name of the category of err, for logs
// and metric properties.
func FailureClass(err error) string {
	if err == nil {
		return ""
	}
	return Classify(err).Type.String()
}

// Classify analyzes an error and returns a ValidationError with the
// appropriate type. It returns nil for a nil error.
func Classify(err error) *ValidationError {
	if err == nil {
		return nil
	}

	var existing *ValidationError
	if errors.As(err, &existing) {
		return existing
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return classifyAPIError(apiErrPtr.Code, apiErrPtr.Message, err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr.Code, apiErr.Message, err)
	}

	errLower := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ValidationError{Type: ErrTypeNetworkError, Message: "Request timed out", Err: err}

	case strings.Contains(errLower, "api key not valid") ||
		strings.Contains(errLower, "invalid api key") ||
		strings.Contains(errLower, "api_key_invalid") ||
		strings.Contains(errLower, "permission denied"):
		return &ValidationError{Type: ErrTypeInvalidKey, Message: "API key is invalid or has been revoked", Err: err}

	case strings.Contains(errLower, "quota") ||
		strings.Contains(errLower, "resource exhausted") ||
		strings.Contains(errLower, "rate limit"):
		return &ValidationError{Type: ErrTypeQuotaExceeded, Message: "API quota exceeded or rate limited", Err: err}

	case strings.Contains(errLower, "blocked") ||
		strings.Contains(errLower, "safety"):
		return &ValidationError{Type: ErrTypeContentBlocked, Message: "Content blocked by safety filters", Err: err}

	case strings.Contains(errLower, "connection") ||
		strings.Contains(errLower, "network") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "dial") ||
		strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "unreachable"):
		return &ValidationError{Type: ErrTypeNetworkError, Message: "Network error - check your internet connection", Err: err}

	default:
		return &ValidationError{Type: ErrTypeUnknown, Message: "Gemini request failed", Err: err}
	}
}

// classifyAPIError categorizes a Gemini API error by HTTP status.
func classifyAPIError(code int, message string, err error) *ValidationError {
	switch {
	case code == 400:
		return &ValidationError{Type: ErrTypeInvalidKey, Message: "Bad request - API key may be malformed", Err: err}
	case code == 401 || code == 403:
		return &ValidationError{Type: ErrTypeInvalidKey, Message: "API key is invalid, expired, or lacks permissions", Err: err}
	case code == 429:
		return &ValidationError{Type: ErrTypeQuotaExceeded, Message: "API rate limit exceeded - try again later", Err: err}
	case code >= 500 && code <= 599:
		return &ValidationError{Type: ErrTypeServerError, Message: "Gemini API server error - try again later", Err: err}
	default:
		return &ValidationError{Type: ErrTypeUnknown, Message: message, Err: err}
	}
}
