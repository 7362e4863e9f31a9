package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/fpang/gemini-stylist/internal/bundle"
	"github.com/fpang/gemini-stylist/internal/export"
	"github.com/fpang/gemini-stylist/internal/filehandler"
	"github.com/fpang/gemini-stylist/internal/jobs"
	"github.com/fpang/gemini-stylist/internal/stylist"
)

type thumbnail struct {
	data     []byte
	mimeType string
}

// /api/results/{id}/{image|thumbnail|export}
func (s *server) handleResultRoutes(w http.ResponseWriter, r *http.Request) {
	id, action, ok := jobs.ParseRoute(r.URL.Path, "/api/results/")
	if !ok {
		httpError(w, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "image":
		if allowMethod(w, r, http.MethodGet) {
			s.handleResultImage(w, id)
		}
	case "thumbnail":
		if allowMethod(w, r, http.MethodGet) {
			s.handleResultThumbnail(w, id)
		}
	case "export":
		if allowMethod(w, r, http.MethodPost) {
			s.handleResultExport(w, r, id)
		}
	default:
		httpError(w, http.StatusNotFound, "not found")
	}
}

// finished looks up a succeeded result, writing 404 or 409 otherwise.
func (s *server) finished(w http.ResponseWriter, id string) (stylist.GenerationResult, bool) {
	res, ok := s.ctrl.Result(id)
	if !ok {
		httpError(w, http.StatusNotFound, "result not found")
		return res, false
	}
	if res.State != stylist.StateSucceeded || res.Output == nil {
		httpError(w, http.StatusConflict, "result has no image")
		return res, false
	}
	return res, true
}

func (s *server) handleResultImage(w http.ResponseWriter, id string) {
	res, ok := s.finished(w, id)
	if !ok {
		return
	}
	mimeType := res.Output.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}
	name := bundle.FileName(res.Label, filehandler.ExtensionFor(mimeType))
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Output.Data)))
	w.Write(res.Output.Data)
}

func (s *server) handleResultThumbnail(w http.ResponseWriter, id string) {
	res, ok := s.finished(w, id)
	if !ok {
		return
	}

	var thumb thumbnail
	if cached, found := s.thumbs.Get(id); found {
		thumb = cached.(thumbnail)
	} else {
		data, mimeType, err := filehandler.GenerateThumbnail(res.Output.Data, filehandler.DefaultThumbnailMaxDimension)
		if err != nil {
			log.Warn().Err(err).Str("id", id).Msg("Failed to generate thumbnail")
			httpError(w, http.StatusInternalServerError, "thumbnail generation failed")
			return
		}
		thumb = thumbnail{data: data, mimeType: mimeType}
		s.thumbs.Set(id, thumb, cache.DefaultExpiration)
	}

	w.Header().Set("Content-Type", thumb.mimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(thumb.data)
}

func (s *server) handleResultExport(w http.ResponseWriter, r *http.Request, id string) {
	if s.exporter == nil {
		httpError(w, http.StatusNotImplemented, "export is not configured")
		return
	}
	res, ok := s.finished(w, id)
	if !ok {
		return
	}

	out, err := s.exporter.Export(r.Context(), res)
	if err != nil {
		if errors.Is(err, export.ErrNotExportable) {
			httpError(w, http.StatusConflict, err.Error())
			return
		}
		log.Error().Err(err).Str("id", id).Msg("Export failed")
		httpError(w, http.StatusBadGateway, "export failed")
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// GET /api/results/archive?compression=deflate|store|zstd
func (s *server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	method, err := bundle.ParseMethod(r.URL.Query().Get("compression"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	var entries []bundle.Entry
	for _, res := range s.ctrl.State().Results {
		if res.State != stylist.StateSucceeded || res.Output == nil {
			continue
		}
		entries = append(entries, bundle.Entry{
			Name:     bundle.FileName(res.Label, filehandler.ExtensionFor(res.Output.MIMEType)),
			Data:     res.Output.Data,
			Modified: res.SettledAt,
		})
	}
	if len(entries) == 0 {
		httpError(w, http.StatusNotFound, "no finished results")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="stylized-images.zip"`)
	if err := bundle.Write(w, entries, method); err != nil {
		// Headers are already sent; the client sees a truncated archive.
		log.Error().Err(err).Msg("Failed to stream archive")
	}
}
