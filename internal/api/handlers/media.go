package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/sirupsen/logrus"
)

// MediaHandler handles media listing and protection requests
type MediaHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(db *models.Database, logger *logrus.Logger) *MediaHandler {
	return &MediaHandler{db: db, logger: logger}
}

// ListResponse is one page of media records
type ListResponse struct {
	Items []*models.Media `json:"items"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
}

// List returns a paginated, filtered media listing
func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 50
	}

	items, total, err := h.db.ListMedias(models.MediaType(q.Get("type")), models.Status(q.Get("status")), page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list media")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListResponse{Items: items, Total: total, Page: page})
}

// Protect toggles the protection flag. Protecting an item takes it off the
// deletion queue if it was there.
func (h *MediaHandler) Protect(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid media id", http.StatusBadRequest)
		return
	}

	var body struct {
		Protected bool `json:"protected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
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

	media.Protected = body.Protected
	if body.Protected {
		if media.Status == models.StatusPendingDeletion {
			media.ClearQueueFields()
		}
		media.Status = models.StatusProtected
	} else if media.Status == models.StatusProtected {
		media.Status = models.StatusMonitored
	}

	if err := h.db.UpdateMedia(media); err != nil {
		h.logger.WithError(err).Error("Failed to update media")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(media)
}
