package main

import (
	"context"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/patrickmn/go-cache"

	"github.com/fpang/gemini-stylist/internal/export"
	"github.com/fpang/gemini-stylist/internal/filehandler"
	"github.com/fpang/gemini-stylist/internal/stylist"
)

// defaultPollWindow bounds how long GET /api/state waits for a change.
const defaultPollWindow = 25 * time.Second

// resultExporter uploads a finished result somewhere durable.
type resultExporter interface {
	Export(ctx context.Context, r stylist.GenerationResult) (*export.Exported, error)
}

// server holds the HTTP surface around one Controller.
type server struct {
	ctrl       *stylist.Controller
	maxUpload  int64
	thumbs     *cache.Cache
	exporter   resultExporter
	pickFile   func() (string, error)
	pollWindow time.Duration
	frontend   fs.FS
}

type serverOptions struct {
	MaxUploadBytes int64
	ThumbnailTTL   time.Duration
	// Exporter is nil when export is not configured.
	Exporter resultExporter
	// PickFile defaults to the native zenity dialog.
	PickFile   func() (string, error)
	PollWindow time.Duration
	Frontend   fs.FS
}

func newServer(ctrl *stylist.Controller, opts serverOptions) *server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = filehandler.DefaultMaxUploadBytes
	}
	if opts.ThumbnailTTL <= 0 {
		opts.ThumbnailTTL = 30 * time.Minute
	}
	if opts.PickFile == nil {
		opts.PickFile = func() (string, error) { return filehandler.PickImage("Select a photo to stylize") }
	}
	if opts.PollWindow <= 0 {
		opts.PollWindow = defaultPollWindow
	}
	return &server{
		ctrl:       ctrl,
		maxUpload:  opts.MaxUploadBytes,
		thumbs:     cache.New(opts.ThumbnailTTL, 2*opts.ThumbnailTTL),
		exporter:   opts.Exporter,
		pickFile:   opts.PickFile,
		pollWindow: opts.PollWindow,
		frontend:   opts.Frontend,
	}
}

// routes builds the full handler chain.
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/styles", s.handleStyles)
	mux.HandleFunc("/api/styles/generate", s.handleGenerate)
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/image", s.handleImage)
	mux.HandleFunc("/api/pick", s.handlePick)
	mux.HandleFunc("/api/edit", s.handleEdit)
	mux.HandleFunc("/api/edit/draft", s.handleDraft)
	mux.HandleFunc("/api/results/archive", s.handleArchive)
	mux.HandleFunc("/api/results/", s.handleResultRoutes)

	if s.frontend != nil {
		mux.Handle("/", spaHandler(s.frontend))
	}

	return withLogging(withMetrics(withCORS(withSecurityHeaders(gzhttp.GzipHandler(mux)))))
}

// spaHandler serves static files and falls back to index.html for
// unknown paths.
func spaHandler(frontend fs.FS) http.Handler {
	fileServer := http.FileServer(http.FS(frontend))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if path := r.URL.Path; path != "/" {
			f, err := frontend.Open(strings.TrimPrefix(path, "/"))
			if err != nil {
				r.URL.Path = "/"
			} else {
				f.Close()
			}
		}
		fileServer.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
