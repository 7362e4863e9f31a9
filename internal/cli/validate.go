package cli

import (
	"errors"

	"github.com/fpang/gemini-stylist/internal/auth"
)

// ValidationHint turns a startup or key validation failure into an
// actionable one-line message.
func ValidationHint(err error) string {
	var validationErr *auth.ValidationError
	if !errors.As(err, &validationErr) {
		return err.Error()
	}
	switch validationErr.Type {
	case auth.ErrTypeNoKey:
		return "no API key configured: set GEMINI_API_KEY or store one with gpg at ~/.gemini-stylist/credentials.gpg"
	case auth.ErrTypeInvalidKey:
		return "invalid API key, check it and try again: " + err.Error()
	case auth.ErrTypeNetworkError:
		return "network error, check your internet connection: " + err.Error()
	case auth.ErrTypeQuotaExceeded:
		return "API quota exceeded, try again later or check your usage limits: " + err.Error()
	default:
		return "API key validation failed: " + err.Error()
	}
}
