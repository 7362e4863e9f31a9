package filehandler

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

var (
	// ErrTooLarge is returned when an image exceeds the size limit.
	ErrTooLarge = errors.New("image exceeds size limit")
	// ErrUnsupportedType is returned for content that is not PNG, JPEG or WebP.
	ErrUnsupportedType = errors.New("unsupported image type (PNG, JPG or WebP only)")
	// ErrCorrupt is returned when the content sniffs as an image but cannot be decoded.
	ErrCorrupt = errors.New("image could not be decoded")
)

// Upload is a validated source image.
type Upload struct {
	Data     []byte
	MIMEType string
	Filename string
	Width    int
	Height   int
	// Metadata is nil when the image carries no readable EXIF block.
	Metadata *ImageMetadata
}

// LoadUpload reads at most maxBytes from r and validates the content.
// The MIME type is taken from the bytes, not from the file name.
func LoadUpload(r io.Reader, filename string, maxBytes int64) (*Upload, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	return validate(data, filepath.Base(filename))
}

// LoadFile reads and validates an image from disk.
func LoadFile(path string, maxBytes int64) (*Upload, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, filepath.Base(path), info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return LoadUpload(f, path, maxBytes)
}

func validate(data []byte, filename string) (*Upload, error) {
	mimeType := http.DetectContentType(data)
	if !SupportedMIMETypes[mimeType] {
		return nil, fmt.Errorf("%w: detected %s", ErrUnsupportedType, mimeType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	up := &Upload{
		Data:     data,
		MIMEType: mimeType,
		Filename: filename,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}

	if meta, err := ExtractImageMetadata(bytes.NewReader(data)); err == nil {
		up.Metadata = meta
	} else {
		log.Debug().Err(err).Str("filename", filename).Msg("No EXIF metadata in upload")
	}

	log.Debug().
		Str("filename", filename).
		Str("mime_type", mimeType).
		Int("bytes", len(data)).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Msg("Upload validated")

	return up, nil
}
