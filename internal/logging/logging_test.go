package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitFallsBackToEnv(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	t.Setenv("STYLIST_LOG_LEVEL", "error")

	var buf bytes.Buffer
	InitWithWriter("", &buf)
	if zerolog.GlobalLevel() != zerolog.ErrorLevel {
		t.Errorf("GlobalLevel() = %v, want error", zerolog.GlobalLevel())
	}

	InitWithWriter("debug", &buf)
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("GlobalLevel() = %v, want debug (explicit level wins)", zerolog.GlobalLevel())
	}
}

func TestStartupLoggerEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	s := NewStartupLogger("stylist-web").
		Resource("exportBucket", "my-bucket").
		Resource("ssmParam", "").
		Feature("export", true).
		Config("model", "gemini-2.5-flash-image").
		InitDuration(150 * time.Millisecond)
	s.event(logger.Info()).Msg("Startup complete")

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse log line: %v\n%s", err, buf.String())
	}

	binary, _ := doc["binary"].(map[string]any)
	if binary["name"] != "stylist-web" {
		t.Errorf("binary.name = %v, want stylist-web", binary["name"])
	}
	resources, _ := doc["resources"].(map[string]any)
	if resources["exportBucket"] != "my-bucket" {
		t.Errorf("resources.exportBucket = %v", resources["exportBucket"])
	}
	if _, ok := resources["ssmParam"]; ok {
		t.Error("empty resource should be omitted")
	}
	features, _ := doc["features"].(map[string]any)
	if features["export"] != true {
		t.Errorf("features.export = %v, want true", features["export"])
	}
	config, _ := doc["config"].(map[string]any)
	if config["model"] != "gemini-2.5-flash-image" {
		t.Errorf("config.model = %v", config["model"])
	}
	if _, ok := doc["initDuration"]; !ok {
		t.Error("missing initDuration")
	}
}
