package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/helliott20/prunerr-sub001/internal/controllers"
	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/sirupsen/logrus"
)

// DeleteHandler executes immediate deletions, streaming progress over SSE
type DeleteHandler struct {
	db         *models.Database
	deleteCtrl *controllers.DeleteController
	defaults   controllers.ScanDefaults
	logger     *logrus.Logger
}

// NewDeleteHandler creates a new delete handler
func NewDeleteHandler(db *models.Database, deleteCtrl *controllers.DeleteController, defaults controllers.ScanDefaults, logger *logrus.Logger) *DeleteHandler {
	return &DeleteHandler{
		db:         db,
		deleteCtrl: deleteCtrl,
		defaults:   defaults,
		logger:     logger,
	}
}

// ServeHTTP handles POST /api/media/{id}/delete. Stage events are streamed
// as SSE. The executor is detached from the request context: closing the
// connection does not halt a deletion already in flight, it runs to
// completion server-side.
func (h *DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid media id", http.StatusBadRequest)
		return
	}

	media, err := h.db.GetMediaByID(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Media not found", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("Failed to get media")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if media.Protected || media.Status == models.StatusProtected {
		http.Error(w, "Media item is protected", http.StatusConflict)
		return
	}

	action := h.defaults.DeletionAction
	if media.DeletionAction != "" {
		action = media.DeletionAction
	}
	if q := r.URL.Query().Get("action"); q != "" {
		action = models.DeletionAction(q)
	}
	if !action.Valid() {
		http.Error(w, fmt.Sprintf("Unknown deletion action %q", action), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		// No streaming support, run synchronously and return the result
		result := h.deleteCtrl.ExecuteDelete(context.Background(), media, action)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events := make(chan models.ProgressEvent, 16)
	resultCh := make(chan controllers.DeletionResult, 1)

	go func() {
		resultCh <- h.deleteCtrl.ExecuteDeleteStream(context.Background(), media, action, events)
		close(events)
	}()

	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		// Write errors mean the client went away; keep draining so the
		// executor never blocks on the channel.
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Stage, payload)
		flusher.Flush()
	}

	result := <-resultCh
	payload, _ := json.Marshal(result)
	fmt.Fprintf(w, "event: result\ndata: %s\n\n", payload)
	flusher.Flush()
}
