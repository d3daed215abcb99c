// Package handlers implements the segment API endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segdb"
	"github.com/dqtools/segments/internal/segments"
	"github.com/dqtools/segments/pkg/logger"
)

// Store is the flag storage the handlers read from and write to.
type Store interface {
	ListFlags(ctx context.Context) ([]segdb.FlagInfo, error)
	Query(ctx context.Context, name string, start, end segments.Time) (*flags.Flag, error)
	Publish(ctx context.Context, f *flags.Flag) error
}

// Publisher receives flags accepted through the write endpoint, beyond the
// store itself (e.g. the live stream hub).
type Publisher interface {
	Publish(f *flags.Flag)
}

// FlagHandler handles flag and segment API endpoints
type FlagHandler struct {
	store     Store
	publisher Publisher
	logger    *logger.Logger
}

// NewFlagHandler creates a new flag handler
func NewFlagHandler(store Store, publisher Publisher, log *logger.Logger) *FlagHandler {
	return &FlagHandler{
		store:     store,
		publisher: publisher,
		logger:    log,
	}
}

// FlagResponse represents a flag for API responses
type FlagResponse struct {
	Name   string        `json:"name"`
	Known  segments.List `json:"known"`
	Active segments.List `json:"active"`
}

// ListFlags returns every defined flag version
// GET /api/flags
func (h *FlagHandler) ListFlags(w http.ResponseWriter, r *http.Request) {
	infos, err := h.store.ListFlags(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list flags")
		respondError(w, http.StatusInternalServerError, "Failed to list flags")
		return
	}

	respondJSON(w, http.StatusOK, infos)
}

// GetSegments returns known and active segments for one flag version
// GET /api/segments/{ifo}/{flag}/{version}?s=0&e=100
func (h *FlagHandler) GetSegments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)

	name := fmt.Sprintf("%s:%s:%s", vars["ifo"], vars["flag"], vars["version"])
	if vars["version"] == "*" {
		name = fmt.Sprintf("%s:%s", vars["ifo"], vars["flag"])
	}

	start, end, err := parseSpan(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := h.store.Query(ctx, name, start, end)
	if err != nil {
		switch {
		case errors.Is(err, flags.ErrNoData):
			respondError(w, http.StatusNotFound, "Flag not found")
		case errors.Is(err, flags.ErrMalformed):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.WithError(err).WithField("flag", name).Error("Failed to query segments")
			respondError(w, http.StatusInternalServerError, "Failed to query segments")
		}
		return
	}

	respondJSON(w, http.StatusOK, FlagResponse{
		Name:   f.Name,
		Known:  f.Known,
		Active: f.Active,
	})
}

// PublishSegments stores a posted flag and announces it to stream clients
// POST /api/segments
func (h *FlagHandler) PublishSegments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req FlagResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "flag name is required")
		return
	}

	f := flags.New(req.Name, req.Known, req.Active)
	f.Coalesce()

	if err := h.store.Publish(ctx, f); err != nil {
		if errors.Is(err, flags.ErrMalformed) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).WithField("flag", f.Name).Error("Failed to publish segments")
		respondError(w, http.StatusInternalServerError, "Failed to publish segments")
		return
	}

	if h.publisher != nil {
		h.publisher.Publish(f)
	}

	respondJSON(w, http.StatusCreated, FlagResponse{
		Name:   f.Name,
		Known:  f.Known,
		Active: f.Active,
	})
}

// parseSpan reads the s and e query parameters as GPS times.
func parseSpan(r *http.Request) (segments.Time, segments.Time, error) {
	q := r.URL.Query()
	if q.Get("s") == "" || q.Get("e") == "" {
		return 0, 0, fmt.Errorf("s and e query parameters are required")
	}

	start, err := segments.ParseTime(q.Get("s"))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start time: %v", err)
	}
	end, err := segments.ParseTime(q.Get("e"))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end time: %v", err)
	}
	if end <= start {
		return 0, 0, fmt.Errorf("end time must be after start time")
	}
	return start, end, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
