package bundle

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"
)

func TestWriteRoundTrip(t *testing.T) {
	modified := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Name: "stylized-cyberpunk.png", Data: bytes.Repeat([]byte("neon"), 100), Modified: modified},
		{Name: "stylized-custom-edit.png", Data: []byte("first edit"), Modified: modified},
		{Name: "stylized-custom-edit.png", Data: []byte("second edit"), Modified: modified},
	}

	for _, method := range []uint16{zip.Deflate, zip.Store, MethodZstd} {
		var buf bytes.Buffer
		if err := Write(&buf, entries, method); err != nil {
			t.Fatalf("Write(method=%d) error = %v", method, err)
		}

		zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		if err != nil {
			t.Fatalf("zip.NewReader(method=%d) error = %v", method, err)
		}
		wantNames := []string{"stylized-cyberpunk.png", "stylized-custom-edit.png", "stylized-custom-edit-2.png"}
		if len(zr.File) != len(wantNames) {
			t.Fatalf("method %d: got %d files, want %d", method, len(zr.File), len(wantNames))
		}
		for i, f := range zr.File {
			if f.Name != wantNames[i] {
				t.Errorf("method %d: file %d name = %q, want %q", method, i, f.Name, wantNames[i])
			}
			if f.Method != method {
				t.Errorf("file %s method = %d, want %d", f.Name, f.Method, method)
			}
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("open %s: %v", f.Name, err)
			}
			got, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				t.Fatalf("read %s: %v", f.Name, err)
			}
			if !bytes.Equal(got, entries[i].Data) {
				t.Errorf("method %d: file %s content mismatch", method, f.Name)
			}
		}
	}
}

func TestParseMethod(t *testing.T) {
	tests := map[string]uint16{"": zip.Deflate, "deflate": zip.Deflate, "STORE": zip.Store, "zstd": MethodZstd}
	for in, want := range tests {
		got, err := ParseMethod(in)
		if err != nil || got != want {
			t.Errorf("ParseMethod(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	if _, err := ParseMethod("brotli"); err == nil {
		t.Error("ParseMethod(brotli) should fail")
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"Oil Painting":       "stylized-oil-painting.png",
		"3D Render":          "stylized-3d-render.png",
		"Custom Edit":        "stylized-custom-edit.png",
		"  Studio  Ghibli! ": "stylized-studio-ghibli.png",
		"???":                "stylized-image.png",
	}
	for label, want := range tests {
		if got := FileName(label, ".png"); got != want {
			t.Errorf("FileName(%q) = %q, want %q", label, got, want)
		}
	}
}
