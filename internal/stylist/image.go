package stylist

import (
	"encoding/base64"
	"time"
)

// SourceImage is the photo every generation request is made against.
// The base64 form is computed once by NewSourceImage and shared by all
// outgoing requests.
type SourceImage struct {
	Data       []byte
	MIMEType   string
	Filename   string
	Encoded    string
	UploadedAt time.Time
}

// NewSourceImage wraps raw image bytes and precomputes their base64 encoding.
func NewSourceImage(data []byte, mimeType, filename string) *SourceImage {
	return &SourceImage{
		Data:       data,
		MIMEType:   mimeType,
		Filename:   filename,
		Encoded:    base64.StdEncoding.EncodeToString(data),
		UploadedAt: time.Now(),
	}
}

// Info returns the metadata of the image without its payload.
func (s *SourceImage) Info() SourceInfo {
	return SourceInfo{
		Filename:   s.Filename,
		MIMEType:   s.MIMEType,
		Size:       len(s.Data),
		UploadedAt: s.UploadedAt,
	}
}

// SourceInfo describes the current source image for state snapshots.
type SourceInfo struct {
	Filename   string    `json:"filename"`
	MIMEType   string    `json:"mimeType"`
	Size       int       `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Image is a generated output image.
type Image struct {
	Data     []byte
	MIMEType string
}

// DataURL renders the image as a data: URL suitable for an <img> src.
func (i *Image) DataURL() string {
	mime := i.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}
