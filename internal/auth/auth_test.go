package auth

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"google.golang.org/genai"
)

type fakeParameterGetter struct {
	value string
	err   error
	asked string
}

func (f *fakeParameterGetter) GetParameter(ctx context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.asked = aws.ToString(in.Name)
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String(f.value)}}, nil
}

func useFakeSSM(t *testing.T, f *fakeParameterGetter) {
	t.Helper()
	orig := newParameterGetter
	newParameterGetter = func(context.Context) (ParameterGetter, error) { return f, nil }
	t.Cleanup(func() { newParameterGetter = orig })
}

func TestGetAPIKeyFromEnv(t *testing.T) {
	tests := []struct {
		name   string
		gemini string
		legacy string
		want   string
	}{
		{"gemini var", "gemini-key", "", "gemini-key"},
		{"legacy var", "", "legacy-key", "legacy-key"},
		{"gemini wins", "gemini-key", "legacy-key", "gemini-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", tt.gemini)
			t.Setenv("API_KEY", tt.legacy)

			key, err := GetAPIKey(context.Background(), "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if key != tt.want {
				t.Errorf("expected key %q, got %q", tt.want, key)
			}
		})
	}
}

func TestGetAPIKeyFromSSM(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("HOME", t.TempDir())

	fake := &fakeParameterGetter{value: " ssm-key \n"}
	useFakeSSM(t, fake)

	key, err := GetAPIKey(context.Background(), "/stylist/gemini-api-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "ssm-key" {
		t.Errorf("expected key %q, got %q", "ssm-key", key)
	}
	if fake.asked != "/stylist/gemini-api-key" {
		t.Errorf("asked for parameter %q", fake.asked)
	}
}

func TestGetAPIKeyNoSource(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Setenv("HOME", t.TempDir())
	useFakeSSM(t, &fakeParameterGetter{err: errors.New("ParameterNotFound")})

	_, err := GetAPIKey(context.Background(), "/missing")
	if err == nil {
		t.Fatal("expected error when no API key source available")
	}
	var valErr *ValidationError
	if !errors.As(err, &valErr) || valErr.Type != ErrTypeNoKey {
		t.Errorf("expected ErrTypeNoKey, got %v", err)
	}
}

func TestGetCredentialPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path, err := getCredentialPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := filepath.Join(home, ".gemini-stylist", "credentials.gpg")
	if path != expected {
		t.Errorf("expected path %q, got %q", expected, path)
	}
}

func TestGetFromGPGFileNotFound(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := getFromGPG(); err == nil {
		t.Error("expected error when credentials file does not exist")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"api 403", &genai.APIError{Code: 403, Message: "denied"}, ErrTypeInvalidKey},
		{"api 400 wrapped", fmt.Errorf("generate: %w", &genai.APIError{Code: 400}), ErrTypeInvalidKey},
		{"api 429", &genai.APIError{Code: 429}, ErrTypeQuotaExceeded},
		{"api 503", &genai.APIError{Code: 503}, ErrTypeServerError},
		{"api 418", &genai.APIError{Code: 418, Message: "teapot"}, ErrTypeUnknown},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), ErrTypeNetworkError},
		{"dial", errors.New("dial tcp: no such host"), ErrTypeNetworkError},
		{"quota text", errors.New("Resource exhausted"), ErrTypeQuotaExceeded},
		{"blocked", errors.New("content blocked by safety filters"), ErrTypeContentBlocked},
		{"other", errors.New("something odd"), ErrTypeUnknown},
		{"existing", &ValidationError{Type: ErrTypeNoKey, Message: "none"}, ErrTypeNoKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Type != tt.want {
				t.Errorf("Classify(%v).Type = %v, want %v", tt.err, got.Type, tt.want)
			}
			if !errors.Is(got, tt.err) && got != tt.err {
				t.Errorf("Classify(%v) does not wrap the original error", tt.err)
			}
		})
	}

	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestFailureClass(t *testing.T) {
	if got := FailureClass(&genai.APIError{Code: 429}); got != "quota" {
		t.Errorf("FailureClass() = %q, want quota", got)
	}
	if got := FailureClass(nil); got != "" {
		t.Errorf("FailureClass(nil) = %q, want empty", got)
	}
}
