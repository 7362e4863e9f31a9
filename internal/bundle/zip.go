// Package bundle packs generated images into a ZIP archive.
package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// MethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
// Archives using it need a zstd-aware unzip tool; Deflate is the default.
const MethodZstd uint16 = 93

func init() {
	zip.RegisterCompressor(MethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
	zip.RegisterDecompressor(MethodZstd, func(r io.Reader) io.ReadCloser {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return io.NopCloser(errReader{err})
		}
		return dec.IOReadCloser()
	})
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

// Entry is one file in the archive.
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// ParseMethod maps a query value ("", "deflate", "store", "zstd") to a
// ZIP method.
func ParseMethod(s string) (uint16, error) {
	switch strings.ToLower(s) {
	case "", "deflate":
		return zip.Deflate, nil
	case "store":
		return zip.Store, nil
	case "zstd":
		return MethodZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

// Write streams entries to w as a ZIP archive. Duplicate names get a
// numeric suffix so no entry is shadowed.
func Write(w io.Writer, entries []Entry, method uint16) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(entries))

	var total int
	for _, e := range entries {
		name := uniqueName(e.Name, seen)
		header := &zip.FileHeader{
			Name:     name,
			Method:   method,
			Modified: e.Modified,
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to create zip entry %s: %w", name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return fmt.Errorf("failed to write zip entry %s: %w", name, err)
		}
		total += len(e.Data)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize zip: %w", err)
	}

	log.Debug().
		Int("entries", len(entries)).
		Int("input_bytes", total).
		Uint16("method", method).
		Msg("Archive written")
	return nil
}

func uniqueName(name string, seen map[string]int) string {
	seen[name]++
	n := seen[name]
	if n == 1 {
		return name
	}
	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return name + "-" + strconv.Itoa(n)
	}
	return name[:dot] + "-" + strconv.Itoa(n) + name[dot:]
}

// FileName returns the download name for a result, e.g.
// "stylized-oil-painting.png".
func FileName(label, ext string) string {
	return "stylized-" + Slug(label) + ext
}

// Slug lowercases s and replaces runs of non-alphanumerics with a dash.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "image"
	}
	return out
}
