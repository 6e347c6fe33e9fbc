package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/helliott20/prunerr-sub001/internal/controllers"
	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/helliott20/prunerr-sub001/internal/scheduler"
	"github.com/sirupsen/logrus"
)

// QueueHandler handles deletion-queue requests
type QueueHandler struct {
	queue      *controllers.QueueController
	deleteCtrl *controllers.DeleteController
	sched      *scheduler.Scheduler
	defaults   controllers.ScanDefaults
	logger     *logrus.Logger
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(queue *controllers.QueueController, deleteCtrl *controllers.DeleteController, sched *scheduler.Scheduler, defaults controllers.ScanDefaults, logger *logrus.Logger) *QueueHandler {
	return &QueueHandler{
		queue:      queue,
		deleteCtrl: deleteCtrl,
		sched:      sched,
		defaults:   defaults,
		logger:     logger,
	}
}

// List returns the queue sorted soonest-expiring first
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.queue.GetQueue()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get queue")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// Mark queues one item for deletion
func (h *QueueHandler) Mark(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid media id", http.StatusBadRequest)
		return
	}

	var body struct {
		GracePeriodDays *int                  `json:"gracePeriodDays"`
		Action          models.DeletionAction `json:"action"`
		ResetOverseerr  *bool                 `json:"resetOverseerr"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	days := h.defaults.GracePeriodDays
	if body.GracePeriodDays != nil {
		days = *body.GracePeriodDays
	}
	action := h.defaults.DeletionAction
	if body.Action != "" {
		action = body.Action
	}
	reset := h.defaults.ResetOverseerr
	if body.ResetOverseerr != nil {
		reset = *body.ResetOverseerr
	}

	if err := h.queue.MarkForDeletion(id, days, 0, action, reset); err != nil {
		switch {
		case errors.Is(err, controllers.ErrProtected):
			http.Error(w, "Media item is protected", http.StatusConflict)
		case errors.Is(err, models.ErrNotFound):
			http.Error(w, "Media not found", http.StatusNotFound)
		default:
			h.logger.WithError(err).Error("Failed to queue media")
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unmark removes one item from the queue
func (h *QueueHandler) Unmark(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid media id", http.StatusBadRequest)
		return
	}

	if err := h.queue.UnmarkForDeletion(id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			http.Error(w, "Media not found", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("Failed to unqueue media")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Process runs one queue-processing pass. With ?dryRun=true the pass reports
// what it would delete without touching anything; a real run goes through
// the scheduler so single-flight is enforced in one place.
func (h *QueueHandler) Process(w http.ResponseWriter, r *http.Request) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dryRun"))

	w.Header().Set("Content-Type", "application/json")

	if dryRun {
		result, err := h.deleteCtrl.ProcessPendingDeletions(r.Context(), true)
		if err != nil {
			h.logger.WithError(err).Error("Dry-run queue processing failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(result)
		return
	}

	result, err := h.sched.RunNow("processDeletionQueue")
	if err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			http.Error(w, "Queue processing already running", http.StatusConflict)
			return
		}
		h.logger.WithError(err).Error("Queue processing failed to start")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(result)
}
