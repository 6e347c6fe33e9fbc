package models

import "time"

// ScanRecord tracks one rule-evaluation pass over the library.
// Append-only; only the completion timestamp and counts are filled in later.
type ScanRecord struct {
	ID uint64 `boltholdKey:"ID"`

	StartedAt   time.Time
	CompletedAt *time.Time

	ItemsScanned   int
	ItemsFlagged   int
	ItemsQueued    int
	ItemsProtected int
	Error          string
}

// DeletionHistoryEntry records one executed deletion. Append-only.
type DeletionHistoryEntry struct {
	ID uint64 `boltholdKey:"ID"`

	MediaID        uint64 `boltholdIndex:"MediaID"`
	Title          string
	MediaType      MediaType
	Action         DeletionAction
	FileSizeFreed  int64
	OverseerrReset bool
	QueuedByRuleID uint64
	DeletedAt      time.Time
}

// ActivityLogEntry records any notable actor-initiated event. Append-only.
type ActivityLogEntry struct {
	ID uint64 `boltholdKey:"ID"`

	MediaID   uint64 `boltholdIndex:"MediaID"`
	Actor     string // "scheduler", "api", "scan", ...
	Event     string
	Detail    string
	CreatedAt time.Time
}
