// Traktmirror - Trakt Activity Sync and Metadata Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traktmirror

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/traktmirror/internal/logging"
	"github.com/tomtom215/traktmirror/internal/models"
	"github.com/tomtom215/traktmirror/internal/store"
)

// SyncRunner runs one full sync pass for a user.
type SyncRunner interface {
	Run(ctx context.Context, userID string) error
}

// Handler serves the sync trigger and status endpoints.
type Handler struct {
	store  *store.Store
	runner SyncRunner

	// inflight guards against double dispatch inside this process; the
	// persisted status covers runs observed across restarts.
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewHandler creates a Handler.
func NewHandler(s *store.Store, runner SyncRunner) *Handler {
	return &Handler{
		store:    s,
		runner:   runner,
		inflight: make(map[string]struct{}),
	}
}

// TriggerSync starts a sync run for the user unless one is already in
// progress, in which case it responds 409 without dispatching. The run
// itself executes in the background; the response is 202 plus the
// in-progress status consumers can poll.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !validUserID(userID) {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid user id")
		return
	}

	if !h.begin(userID) {
		writeError(w, http.StatusConflict, ErrCodeConflict, "sync already in progress")
		return
	}

	var status models.SyncStatus
	err := h.store.GetDoc(store.SyncStatusKey(userID), &status)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.end(userID)
		logging.Error().Err(err).Str("user", userID).Msg("failed to read sync status")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to read sync status")
		return
	}
	if err == nil && status.InProgress() {
		h.end(userID)
		writeError(w, http.StatusConflict, ErrCodeConflict, "sync already in progress")
		return
	}

	go func() {
		defer h.end(userID)
		// The run outlives the trigger request on purpose.
		if err := h.runner.Run(context.Background(), userID); err != nil {
			logging.Error().Err(err).Str("user", userID).Msg("sync run failed")
		}
	}()

	writeSuccess(w, http.StatusAccepted, map[string]string{
		"user_id": userID,
		"state":   string(models.SyncStateInProgress),
	})
}

// SyncStatus returns the user's live status document. A user that has
// never synced reads as idle rather than 404: the resource conceptually
// always exists.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !validUserID(userID) {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid user id")
		return
	}

	var status models.SyncStatus
	err := h.store.GetDoc(store.SyncStatusKey(userID), &status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = models.SyncStatus{State: models.SyncStateIdle}
	case err != nil:
		logging.Error().Err(err).Str("user", userID).Msg("failed to read sync status")
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to read sync status")
		return
	}

	writeSuccess(w, http.StatusOK, status)
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) begin(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, running := h.inflight[userID]; running {
		return false
	}
	h.inflight[userID] = struct{}{}
	return true
}

func (h *Handler) end(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inflight, userID)
}

// validUserID rejects ids that would break the store key scheme.
func validUserID(userID string) bool {
	return userID != "" && !strings.Contains(userID, ":")
}
