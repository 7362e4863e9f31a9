package filehandler

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// ImageMetadata is the EXIF summary of a source image.
//
// evanoberholster/imagemeta reads only the metadata block, so decoding is
// cheap even for a full-size photo. PNG and WebP usually carry nothing and
// yield an error, which callers treat as "no metadata".
type ImageMetadata struct {
	Latitude  float64 `json:"-"`
	Longitude float64 `json:"-"`
	HasGPS    bool    `json:"hasGps"`

	DateTaken time.Time `json:"dateTaken,omitempty"`
	HasDate   bool      `json:"hasDate"`

	CameraMake  string `json:"cameraMake,omitempty"`
	CameraModel string `json:"cameraModel,omitempty"`
}

// ExtractImageMetadata decodes EXIF metadata from an image stream.
// Date fallback order: DateTimeOriginal, CreateDate, ModifyDate.
func ExtractImageMetadata(r io.ReadSeeker) (*ImageMetadata, error) {
	exifData, err := imagemeta.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	metadata := &ImageMetadata{}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		metadata.Latitude = gps.Latitude()
		metadata.Longitude = gps.Longitude()
		metadata.HasGPS = true
	}

	switch {
	case !exifData.DateTimeOriginal().IsZero():
		metadata.DateTaken = exifData.DateTimeOriginal()
	case !exifData.CreateDate().IsZero():
		metadata.DateTaken = exifData.CreateDate()
	case !exifData.ModifyDate().IsZero():
		metadata.DateTaken = exifData.ModifyDate()
	}
	metadata.HasDate = !metadata.DateTaken.IsZero()

	metadata.CameraMake = strings.TrimSpace(exifData.Make)
	metadata.CameraModel = strings.TrimSpace(exifData.Model)

	log.Debug().
		Bool("has_gps", metadata.HasGPS).
		Bool("has_date", metadata.HasDate).
		Str("camera", metadata.Camera()).
		Msg("Image metadata extraction complete")

	return metadata, nil
}

// Camera returns "Make Model", or "" when neither is known.
func (m *ImageMetadata) Camera() string {
	return strings.TrimSpace(m.CameraMake + " " + m.CameraModel)
}

// Summary renders a one-line human description, e.g.
// "Apple iPhone 15 Pro, taken Dec 31, 2024 10:30".
func (m *ImageMetadata) Summary() string {
	var parts []string
	if c := m.Camera(); c != "" {
		parts = append(parts, c)
	}
	if m.HasDate {
		parts = append(parts, "taken "+m.DateTaken.Format("Jan 2, 2006 15:04"))
	}
	if m.HasGPS {
		parts = append(parts, "location tagged")
	}
	if len(parts) == 0 {
		return "no camera metadata"
	}
	return strings.Join(parts, ", ")
}
