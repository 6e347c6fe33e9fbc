package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/sirupsen/logrus"
)

// RulesHandler handles rule management requests
type RulesHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewRulesHandler creates a new rules handler
func NewRulesHandler(db *models.Database, logger *logrus.Logger) *RulesHandler {
	return &RulesHandler{db: db, logger: logger}
}

// List returns all rules in name order
func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.db.GetAllRules()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list rules")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rules)
}

// Create validates and saves a new rule. Condition operator/field mismatches
// are rejected here, at save time, not silently at scan time.
func (h *RulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rule models.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.db.CreateRule(&rule); err != nil {
		h.logger.WithError(err).Warn("Rejected rule")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.WithField("rule", rule.Name).Info("Rule created")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rule)
}
