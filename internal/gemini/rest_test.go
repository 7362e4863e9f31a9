package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/fpang/gemini-stylist/internal/stylist"
)

func newTestREST(t *testing.T, handler http.HandlerFunc) *RESTImageClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRESTImageClient("test-key", "", srv.URL, 5*time.Second)
}

func TestRESTGenerate_Success(t *testing.T) {
	src := stylist.NewSourceImage([]byte("input-bytes"), "image/jpeg", "in.jpg")

	var got restRequest
	client := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/"+DefaultImageModel+":generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("x-goog-api-key = %q, want test-key", got)
		}
		if strings.Contains(r.URL.String(), "test-key") {
			t.Errorf("API key found in request URL %q", r.URL.String())
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[
			{"text":"here you go"},
			{"inlineData":{"mimeType":"image/png","data":"b3V0cHV0"}}
		]}}]}`))
	})

	img, err := client.Generate(context.Background(), src, "make it pop")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if string(img.Data) != "output" || img.MIMEType != "image/png" {
		t.Errorf("Generate() = %q (%s), want output (image/png)", img.Data, img.MIMEType)
	}

	if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 2 {
		t.Fatalf("request contents = %+v, want one content with two parts", got.Contents)
	}
	parts := got.Contents[0].Parts
	if parts[0].InlineData == nil || parts[0].InlineData.Data != src.Encoded || parts[0].InlineData.MIMEType != "image/jpeg" {
		t.Errorf("first part = %+v, want the encoded source image", parts[0])
	}
	if parts[1].Text != "make it pop" {
		t.Errorf("second part text = %q, want instruction", parts[1].Text)
	}
}

func TestRESTGenerate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantAPI int
	}{
		{"text only", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`, ErrNoImage, 0},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, ErrNoImage, 0},
		{"safety finish", http.StatusOK, `{"candidates":[{"content":{"parts":[]},"finishReason":"IMAGE_SAFETY"}]}`, ErrBlocked, 0},
		{"prompt blocked", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, ErrBlocked, 0},
		{"unauthorized", http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`, nil, 403},
		{"rate limited", http.StatusTooManyRequests, `not json`, nil, 429},
	}

	src := stylist.NewSourceImage([]byte("x"), "image/png", "x.png")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestREST(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			img, err := client.Generate(context.Background(), src, "anything")
			if err == nil {
				t.Fatalf("Generate() = %v, want error", img)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Generate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantAPI != 0 {
				var apiErr *genai.APIError
				if !errors.As(err, &apiErr) || apiErr.Code != tt.wantAPI {
					t.Errorf("Generate() error = %v, want APIError code %d", err, tt.wantAPI)
				}
			}
		})
	}
}

func TestRESTGenerate_TransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	const key = "SECRET-KEY-123"
	client := NewRESTImageClient(key, "", base, time.Second)
	src := stylist.NewSourceImage([]byte("x"), "image/png", "x.png")

	_, err := client.Generate(context.Background(), src, "anything")
	if err == nil {
		t.Fatal("Generate() against a closed server should fail")
	}
	if strings.Contains(err.Error(), key) {
		t.Errorf("error text contains the API key: %v", err)
	}
}

func TestNewGenerator(t *testing.T) {
	if _, err := NewGenerator(nil, GeneratorConfig{Transport: TransportSDK}); err == nil {
		t.Error("NewGenerator(sdk) without client should fail")
	}
	if _, err := NewGenerator(nil, GeneratorConfig{Transport: "carrier-pigeon"}); err == nil {
		t.Error("NewGenerator(unknown) should fail")
	}
	gen, err := NewGenerator(nil, GeneratorConfig{Transport: TransportREST, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewGenerator(rest) error = %v", err)
	}
	if _, ok := gen.(*RESTImageClient); !ok {
		t.Errorf("NewGenerator(rest) = %T, want *RESTImageClient", gen)
	}
}
