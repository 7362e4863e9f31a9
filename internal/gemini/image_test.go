package gemini

import (
	"errors"
	"testing"

	"google.golang.org/genai"
)

func TestExtractImage(t *testing.T) {
	tests := []struct {
		name     string
		resp     *genai.GenerateContentResponse
		wantData string
		wantMIME string
		wantErr  error
	}{
		{
			name: "first inline image wins",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "styled"},
					{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("first")}},
					{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("second")}},
				}},
			}}},
			wantData: "first",
			wantMIME: "image/png",
		},
		{
			name: "missing mime defaults to png",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{InlineData: &genai.Blob{Data: []byte("img")}},
				}},
			}}},
			wantData: "img",
			wantMIME: "image/png",
		},
		{
			name:    "nil response",
			resp:    nil,
			wantErr: ErrNoImage,
		},
		{
			name: "text only",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "I cannot do that"}}},
			}}},
			wantErr: ErrNoImage,
		},
		{
			name: "safety finish reason",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReason("IMAGE_SAFETY"),
			}}},
			wantErr: ErrBlocked,
		},
		{
			name: "prompt blocked",
			resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
					BlockReason: genai.BlockedReason("SAFETY"),
				},
			},
			wantErr: ErrBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := extractImage(tt.resp)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("extractImage() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractImage() error = %v", err)
			}
			if string(img.Data) != tt.wantData || img.MIMEType != tt.wantMIME {
				t.Errorf("extractImage() = %q (%s), want %q (%s)", img.Data, img.MIMEType, tt.wantData, tt.wantMIME)
			}
		})
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("truncateString() = %q", got)
	}
	if got := truncateString("0123456789abc", 10); got != "0123456789..." {
		t.Errorf("truncateString() = %q", got)
	}
}
