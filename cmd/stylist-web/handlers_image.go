package main

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/fpang/gemini-stylist/internal/filehandler"
	"github.com/fpang/gemini-stylist/internal/stylist"
)

// uploadResponse describes an accepted source image.
type uploadResponse struct {
	Filename string                     `json:"filename"`
	MIMEType string                     `json:"mimeType"`
	Size     int                        `json:"size"`
	Width    int                        `json:"width"`
	Height   int                        `json:"height"`
	Metadata *filehandler.ImageMetadata `json:"metadata,omitempty"`
	Summary  string                     `json:"summary"`
}

func newUploadResponse(up *filehandler.Upload) uploadResponse {
	resp := uploadResponse{
		Filename: up.Filename,
		MIMEType: up.MIMEType,
		Size:     len(up.Data),
		Width:    up.Width,
		Height:   up.Height,
		Metadata: up.Metadata,
		Summary:  "no camera metadata",
	}
	if up.Metadata != nil {
		resp.Summary = up.Metadata.Summary()
	}
	return resp
}

// /api/image: POST uploads, GET returns the source bytes, DELETE clears.
func (s *server) handleImage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleUpload(w, r)
	case http.MethodGet:
		src := s.ctrl.Source()
		if src == nil {
			httpError(w, http.StatusNotFound, "no image uploaded")
			return
		}
		w.Header().Set("Content-Type", src.MIMEType)
		w.Header().Set("Cache-Control", "no-store")
		w.Write(src.Data)
	case http.MethodDelete:
		s.ctrl.ClearImage()
		s.thumbs.Flush()
		w.WriteHeader(http.StatusNoContent)
	default:
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Allow headroom for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpError(w, http.StatusRequestEntityTooLarge, filehandler.ErrTooLarge.Error())
			return
		}
		httpError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	up, err := filehandler.LoadUpload(file, header.Filename, s.maxUpload)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	s.accept(w, up)
}

// POST /api/pick opens a native file dialog on the server host.
func (s *server) handlePick(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	path, err := s.pickFile()
	if err != nil {
		if errors.Is(err, filehandler.ErrPickCanceled) {
			respondJSON(w, http.StatusOK, map[string]bool{"canceled": true})
			return
		}
		log.Error().Err(err).Msg("File picker failed")
		httpError(w, http.StatusInternalServerError, "file picker failed")
		return
	}

	up, err := filehandler.LoadFile(path, s.maxUpload)
	if err != nil {
		writeUploadError(w, err)
		return
	}
	s.accept(w, up)
}

func (s *server) accept(w http.ResponseWriter, up *filehandler.Upload) {
	s.ctrl.SetImage(stylist.NewSourceImage(up.Data, up.MIMEType, up.Filename))
	respondJSON(w, http.StatusOK, newUploadResponse(up))
}

func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, filehandler.ErrTooLarge):
		httpError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, filehandler.ErrUnsupportedType):
		httpError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, filehandler.ErrCorrupt):
		httpError(w, http.StatusBadRequest, err.Error())
	default:
		log.Warn().Err(err).Msg("Failed to load image")
		httpError(w, http.StatusBadRequest, "could not read image")
	}
}
