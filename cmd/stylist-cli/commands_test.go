package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fpang/gemini-stylist/internal/boot"
	"github.com/fpang/gemini-stylist/internal/filehandler"
	"github.com/fpang/gemini-stylist/internal/stylist"
)

func fakeController(t *testing.T) *stylist.Controller {
	t.Helper()
	gen := stylist.GeneratorFunc(func(ctx context.Context, src *stylist.SourceImage, instruction string) (*stylist.Image, error) {
		if strings.Contains(strings.ToLower(instruction), "cyberpunk") {
			return nil, errors.New("blocked")
		}
		return &stylist.Image{Data: []byte("img:" + instruction), MIMEType: "image/png"}, nil
	})
	c := stylist.NewController(gen, stylist.Options{})
	c.SetImage(stylist.NewSourceImage([]byte("src"), "image/png", "src.png"))
	return c
}

func TestListStyles(t *testing.T) {
	var buf bytes.Buffer
	listStyles(&buf)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "Cyberpunk") {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestWriteResult(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := stylist.GenerationResult{
		ID:     "style-1",
		Label:  "Oil Painting",
		State:  stylist.StateSucceeded,
		Output: &stylist.Image{Data: []byte("pixels"), MIMEType: "image/png"},
	}

	first, err := writeResult(dir, r)
	if err != nil {
		t.Fatalf("writeResult() error = %v", err)
	}
	second, err := writeResult(dir, r)
	if err != nil {
		t.Fatalf("second writeResult() error = %v", err)
	}
	if filepath.Base(first) != "stylized-oil-painting.png" || filepath.Base(second) != "stylized-oil-painting-2.png" {
		t.Errorf("paths = %s, %s", first, second)
	}
	data, _ := os.ReadFile(first)
	if string(data) != "pixels" {
		t.Errorf("content = %q", data)
	}

	r.State = stylist.StateFailed
	r.Output = nil
	if _, err := writeResult(dir, r); err == nil {
		t.Error("writeResult() on failed result should error")
	}
}

func TestRunBatch(t *testing.T) {
	ctrl := fakeController(t)
	dir := t.TempDir()
	var out bytes.Buffer

	styles, _ := stylist.SelectStyles([]string{"Cyberpunk", "Pencil Sketch"})
	if err := runBatch(context.Background(), ctrl, styles, dir, &out); err != nil {
		t.Fatalf("runBatch() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "stylized-pencil-sketch.png")); err != nil {
		t.Errorf("pencil sketch not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "stylized-cyberpunk.png")); !os.IsNotExist(err) {
		t.Error("failed style should not be written")
	}
	text := out.String()
	if !strings.Contains(text, "FAILED Cyberpunk") || !strings.Contains(text, "1 of 2 styles failed") {
		t.Errorf("output:\n%s", text)
	}
}

func TestRunBatchAllFailed(t *testing.T) {
	ctrl := fakeController(t)
	styles, _ := stylist.SelectStyles([]string{"Cyberpunk"})
	var out bytes.Buffer
	if err := runBatch(context.Background(), ctrl, styles, t.TempDir(), &out); err == nil {
		t.Error("runBatch() with every style failing should error")
	}
}

func TestRunEdit(t *testing.T) {
	ctrl := fakeController(t)
	dir := t.TempDir()
	var out bytes.Buffer

	if err := runEdit(context.Background(), ctrl, "add sunglasses", dir, &out); err != nil {
		t.Fatalf("runEdit() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "stylized-custom-edit.png"))
	if err != nil || string(data) != "img:add sunglasses" {
		t.Errorf("edit output = %q, %v", data, err)
	}

	err = runEdit(context.Background(), ctrl, "go cyberpunk", dir, &out)
	if !errors.Is(err, stylist.ErrCustomEditFailed) {
		t.Errorf("runEdit() error = %v, want ErrCustomEditFailed", err)
	}
}

func TestResolveImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 2))); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "gray.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	up, err := resolveImage(path, filehandler.DefaultMaxUploadBytes)
	if err != nil {
		t.Fatalf("resolveImage() error = %v", err)
	}
	if up.Width != 3 || up.Height != 2 || up.MIMEType != "image/png" {
		t.Errorf("upload = %+v", up)
	}

	if _, err := resolveImage(filepath.Join(t.TempDir(), "missing.png"), filehandler.DefaultMaxUploadBytes); err == nil {
		t.Error("resolveImage() on missing file should error")
	}

	if _, err := resolveImage(path, int64(buf.Len()-1)); !errors.Is(err, filehandler.ErrTooLarge) {
		t.Errorf("resolveImage() over the configured limit error = %v, want ErrTooLarge", err)
	}
}

func TestLoadConfigUploadLimit(t *testing.T) {
	t.Setenv("STYLIST_MAX_UPLOAD_BYTES", "1234")
	t.Setenv("GEMINI_TRANSPORT", "sdk")
	flags = boot.Flags{EnvFile: writeEnvFile(t, "")}
	t.Cleanup(func() { flags = boot.Flags{} })

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.MaxUploadBytes != 1234 {
		t.Errorf("MaxUploadBytes = %d, want 1234 from the environment", cfg.MaxUploadBytes)
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stylist.env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
