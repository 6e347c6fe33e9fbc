package models

import "time"

// Media represents a tracked media item (movie or show)
type Media struct {
	ID uint64 `boltholdKey:"ID"`

	Type  MediaType `boltholdIndex:"Type"`
	Title string
	Year  int

	// File metadata (refreshed by library sync)
	FileSize   int64 // bytes
	Resolution string
	Codec      string

	// Watch statistics from the media server
	PlayCount     int
	LastWatchedAt *time.Time
	AddedAt       time.Time

	// Lifecycle
	Status    Status `boltholdIndex:"Status"`
	Protected bool

	// External identifiers
	PlexRatingKey string `boltholdIndex:"PlexRatingKey"` // media server
	ArrID         int    // owning content manager (Radarr for movies, Sonarr for shows)
	TmdbID        int
	TvdbID        int
	OverseerrID   int // request-broker media id, 0 if unknown

	// Deletion queue fields, set only while Status is pending_deletion
	MarkedAt       *time.Time
	DeleteAfter    *time.Time
	DeletionAction DeletionAction
	ResetOverseerr bool
	QueuedByRuleID uint64 // 0 when queued manually

	// Metadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClearQueueFields resets all pending-deletion bookkeeping on the record
func (m *Media) ClearQueueFields() {
	m.MarkedAt = nil
	m.DeleteAfter = nil
	m.DeletionAction = ""
	m.ResetOverseerr = false
	m.QueuedByRuleID = 0
}
