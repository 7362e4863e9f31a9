// Package filehandler validates source images and derives metadata and
// thumbnails from image bytes.
package filehandler

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxUploadBytes is the largest source image accepted by default.
const DefaultMaxUploadBytes = 5 * 1024 * 1024

// SupportedImageExtensions maps accepted file extensions to MIME types.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// SupportedMIMETypes is the set of MIME types accepted as source images.
var SupportedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// PickerPatterns are the glob patterns offered by native file dialogs.
func PickerPatterns() []string {
	return []string{"*.png", "*.jpg", "*.jpeg", "*.webp"}
}

// GetMIMEType returns the MIME type for a file extension.
func GetMIMEType(ext string) (string, error) {
	if mimeType, ok := SupportedImageExtensions[strings.ToLower(ext)]; ok {
		return mimeType, nil
	}
	return "", fmt.Errorf("%w: extension %s", ErrUnsupportedType, ext)
}

// IsSupported reports whether a path has an accepted image extension.
func IsSupported(path string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ExtensionFor returns the canonical file extension for a MIME type.
func ExtensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
