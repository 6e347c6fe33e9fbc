package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = bolthold.ErrNotFound

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Media operations

// CreateMedia creates a new media item in the database
func (db *Database) CreateMedia(media *Media) error {
	media.CreatedAt = time.Now()
	media.UpdatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), media)
}

// UpdateMedia updates an existing media item
func (db *Database) UpdateMedia(media *Media) error {
	media.UpdatedAt = time.Now()
	return db.store.Update(media.ID, media)
}

// GetMediaByID retrieves a media item by ID
func (db *Database) GetMediaByID(id uint64) (*Media, error) {
	var media Media
	err := db.store.Get(id, &media)
	if err != nil {
		return nil, err
	}
	return &media, nil
}

// GetMediaByPlexRatingKey retrieves a media item by its media-server key
func (db *Database) GetMediaByPlexRatingKey(key string) (*Media, error) {
	var media Media
	err := db.store.FindOne(&media, bolthold.Where("PlexRatingKey").Eq(key))
	if err != nil {
		return nil, err
	}
	return &media, nil
}

// GetMediasByStatus retrieves all media items with the given status
func (db *Database) GetMediasByStatus(status Status) ([]*Media, error) {
	var medias []*Media
	err := db.store.Find(&medias, bolthold.Where("Status").Eq(status))
	return medias, err
}

// GetMonitoredMedias retrieves the full monitored set a scan pass walks:
// everything not already queued, deleted or protected by status.
func (db *Database) GetMonitoredMedias() ([]*Media, error) {
	var medias []*Media
	err := db.store.Find(&medias, bolthold.Where("Status").In(StatusMonitored, StatusFlagged))
	return medias, err
}

// GetAllMedias retrieves all media items
func (db *Database) GetAllMedias() ([]*Media, error) {
	var medias []*Media
	err := db.store.Find(&medias, nil)
	return medias, err
}

// ListMedias retrieves one page of media items. Type and status filters are
// optional; empty values mean no filter. Results are sorted by title.
func (db *Database) ListMedias(mediaType MediaType, status Status, page, pageSize int) ([]*Media, int, error) {
	query := &bolthold.Query{}
	if mediaType != "" && mediaType != MediaTypeAll {
		query = bolthold.Where("Type").Eq(mediaType)
		if status != "" {
			query = query.And("Status").Eq(status)
		}
	} else if status != "" {
		query = bolthold.Where("Status").Eq(status)
	}

	var medias []*Media
	if err := db.store.Find(&medias, query); err != nil {
		return nil, 0, err
	}

	sort.Slice(medias, func(i, j int) bool { return medias[i].Title < medias[j].Title })

	total := len(medias)
	if pageSize <= 0 {
		return medias, total, nil
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= total {
		return []*Media{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return medias[start:end], total, nil
}

// DeleteMedia deletes a media item by ID
func (db *Database) DeleteMedia(id uint64) error {
	return db.store.Delete(id, &Media{})
}

// Rule operations

// CreateRule validates and creates a new rule
func (db *Database) CreateRule(rule *Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}
	return db.store.Insert(bolthold.NextSequence(), rule)
}

// UpdateRule validates and updates an existing rule
func (db *Database) UpdateRule(rule *Rule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}
	return db.store.Update(rule.ID, rule)
}

// GetRuleByID retrieves a rule by ID
func (db *Database) GetRuleByID(id uint64) (*Rule, error) {
	var rule Rule
	err := db.store.Get(id, &rule)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// GetEnabledRules retrieves all enabled rules sorted by name. The order is
// the rule precedence order consumed by the matcher.
func (db *Database) GetEnabledRules() ([]*Rule, error) {
	var rules []*Rule
	err := db.store.Find(&rules, bolthold.Where("Enabled").Eq(true))
	if err != nil {
		return nil, err
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules, nil
}

// GetAllRules retrieves all rules sorted by name
func (db *Database) GetAllRules() ([]*Rule, error) {
	var rules []*Rule
	err := db.store.Find(&rules, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules, nil
}

// DeleteRule deletes a rule by ID
func (db *Database) DeleteRule(id uint64) error {
	return db.store.Delete(id, &Rule{})
}

// History operations (append-only)

// CreateScanRecord creates a new scan record
func (db *Database) CreateScanRecord(record *ScanRecord) error {
	return db.store.Insert(bolthold.NextSequence(), record)
}

// UpdateScanRecord fills in a scan record's completion fields
func (db *Database) UpdateScanRecord(record *ScanRecord) error {
	return db.store.Update(record.ID, record)
}

// GetRecentScans retrieves the most recent scan records, newest first
func (db *Database) GetRecentScans(limit int) ([]*ScanRecord, error) {
	var records []*ScanRecord
	err := db.store.Find(&records, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].StartedAt.After(records[j].StartedAt) })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// AppendDeletionHistory appends a deletion history entry
func (db *Database) AppendDeletionHistory(entry *DeletionHistoryEntry) error {
	entry.DeletedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), entry)
}

// GetDeletionHistory retrieves the most recent deletion entries, newest first
func (db *Database) GetDeletionHistory(limit int) ([]*DeletionHistoryEntry, error) {
	var entries []*DeletionHistoryEntry
	err := db.store.Find(&entries, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].DeletedAt.After(entries[j].DeletedAt) })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// AppendActivity appends an activity log entry
func (db *Database) AppendActivity(entry *ActivityLogEntry) error {
	entry.CreatedAt = time.Now()
	return db.store.Insert(bolthold.NextSequence(), entry)
}
