package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/gemini-stylist/internal/stylist"
)

// GET /api/styles
func (s *server) handleStyles(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"styles": stylist.Styles()})
}

// GET /api/state?since=N
//
// Without since the snapshot is returned immediately. With since the
// request is held until the version moves past N or the poll window ends.
func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	raw := r.URL.Query().Get("since")
	if raw == "" {
		respondJSON(w, http.StatusOK, s.ctrl.State())
		return
	}
	since, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "since must be a non-negative integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.pollWindow)
	defer cancel()
	respondJSON(w, http.StatusOK, s.ctrl.WaitForChange(ctx, since))
}

type generateRequest struct {
	Styles []string `json:"styles"`
}

// POST /api/styles/generate starts a batch and returns at once.
func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req generateRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	styles, err := stylist.SelectStyles(req.Styles)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.ctrl.Source() == nil {
		httpError(w, http.StatusConflict, stylist.ErrNoImage.Error())
		return
	}

	// The batch outlives this request; it is never cancelled.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := s.ctrl.RunBatch(ctx, styles); err != nil {
			log.Warn().Err(err).Msg("Style batch not started")
		}
	}()

	names := make([]string, len(styles))
	for i, st := range styles {
		names[i] = st.Name
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "styles": names})
}

type editRequest struct {
	Instruction string `json:"instruction"`
}

// POST /api/edit runs one custom edit. An empty body uses the stored draft.
func (s *server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req editRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	instruction := req.Instruction
	if strings.TrimSpace(instruction) == "" {
		instruction = s.ctrl.State().CustomInstruction
	}
	if strings.TrimSpace(instruction) == "" {
		httpError(w, http.StatusBadRequest, stylist.ErrEmptyInstruction.Error())
		return
	}
	if s.ctrl.Source() == nil {
		httpError(w, http.StatusConflict, stylist.ErrNoImage.Error())
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := s.ctrl.RunSingle(ctx, instruction); err != nil && !errors.Is(err, stylist.ErrCustomEditFailed) {
			log.Warn().Err(err).Msg("Custom edit not started")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

// PUT /api/edit/draft stores the pending custom instruction.
func (s *server) handleDraft(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPut) {
		return
	}
	var req editRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.ctrl.SetCustomInstruction(req.Instruction)
	w.WriteHeader(http.StatusNoContent)
}
