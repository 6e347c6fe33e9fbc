package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/helliott20/prunerr-sub001/internal/controllers"
	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/helliott20/prunerr-sub001/internal/scheduler"
	"github.com/sirupsen/logrus"
)

// StatusHandler handles status requests
type StatusHandler struct {
	db     *models.Database
	queue  *controllers.QueueController
	sched  *scheduler.Scheduler
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, queue *controllers.QueueController, sched *scheduler.Scheduler, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		queue:  queue,
		sched:  sched,
		logger: logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalMedias     int                    `json:"total_medias"`
	Monitored       int                    `json:"monitored"`
	Flagged         int                    `json:"flagged"`
	PendingDeletion int                    `json:"pending_deletion"`
	Protected       int                    `json:"protected"`
	Deleted         int                    `json:"deleted"`
	TotalSize       string                 `json:"total_size"`
	MediasByType    map[string]int         `json:"medias_by_type"`
	QueueReady      int                    `json:"queue_ready"`
	Tasks           []scheduler.TaskStatus `json:"tasks"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	medias, err := h.db.GetAllMedias()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get medias")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		TotalMedias:  len(medias),
		MediasByType: make(map[string]int),
		Tasks:        h.sched.Statuses(),
	}

	var totalSize int64
	for _, media := range medias {
		switch media.Status {
		case models.StatusMonitored:
			response.Monitored++
		case models.StatusFlagged:
			response.Flagged++
		case models.StatusPendingDeletion:
			response.PendingDeletion++
		case models.StatusProtected:
			response.Protected++
		case models.StatusDeleted:
			response.Deleted++
		}

		response.MediasByType[string(media.Type)]++
		if media.Status != models.StatusDeleted {
			totalSize += media.FileSize
		}
	}
	response.TotalSize = humanize.Bytes(uint64(totalSize))

	if queue, err := h.queue.GetQueue(); err == nil {
		for _, item := range queue {
			if item.DaysRemaining == 0 {
				response.QueueReady++
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
