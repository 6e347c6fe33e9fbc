package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/helliott20/prunerr-sub001/internal/scheduler"
	"github.com/sirupsen/logrus"
)

// TasksHandler exposes the scheduler's tasks over HTTP
type TasksHandler struct {
	sched  *scheduler.Scheduler
	logger *logrus.Logger
}

// NewTasksHandler creates a new tasks handler
func NewTasksHandler(sched *scheduler.Scheduler, logger *logrus.Logger) *TasksHandler {
	return &TasksHandler{sched: sched, logger: logger}
}

// List returns the advisory status of every registered task
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.sched.Statuses())
}

// Run triggers one task by name, blocking until it finishes
func (h *TasksHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	result, err := h.sched.RunNow(name)
	if err != nil {
		switch {
		case errors.Is(err, scheduler.ErrUnknownTask):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, scheduler.ErrAlreadyRunning):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.WithError(err).WithField("task", name).Error("Task trigger failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
