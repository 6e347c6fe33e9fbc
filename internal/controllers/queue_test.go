package controllers

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testDB(t *testing.T) *models.Database {
	t.Helper()
	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createMedia(t *testing.T, db *models.Database, media *models.Media) *models.Media {
	t.Helper()
	if media.Status == "" {
		media.Status = models.StatusMonitored
	}
	require.NoError(t, db.CreateMedia(media))
	return media
}

func TestMarkForDeletionProtected(t *testing.T) {
	db := testDB(t)
	queue := NewQueueController(db, testLogger())

	media := createMedia(t, db, &models.Media{Title: "Keeper", Type: models.MediaTypeMovie, Protected: true})

	err := queue.MarkForDeletion(media.ID, 7, 0, models.ActionUnmonitorAndDelete, false)
	require.ErrorIs(t, err, ErrProtected)

	got, err := db.GetMediaByID(media.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMonitored, got.Status)
	assert.Nil(t, got.DeleteAfter)
}

func TestMarkForDeletionNotFound(t *testing.T) {
	db := testDB(t)
	queue := NewQueueController(db, testLogger())

	err := queue.MarkForDeletion(9999, 7, 0, models.ActionUnmonitorAndDelete, false)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestMarkUnmarkRoundTrip(t *testing.T) {
	db := testDB(t)
	queue := NewQueueController(db, testLogger())

	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	queue.now = func() time.Time { return start }

	media := createMedia(t, db, &models.Media{Title: "Old Movie", Type: models.MediaTypeMovie, FileSize: 1000})

	require.NoError(t, queue.MarkForDeletion(media.ID, 7, 42, models.ActionDeleteFilesOnly, true))

	got, err := db.GetMediaByID(media.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingDeletion, got.Status)
	require.NotNil(t, got.DeleteAfter)
	assert.Equal(t, start.Add(7*24*time.Hour), *got.DeleteAfter)
	require.NotNil(t, got.MarkedAt)
	assert.Equal(t, start, *got.MarkedAt)
	assert.Equal(t, models.ActionDeleteFilesOnly, got.DeletionAction)
	assert.True(t, got.ResetOverseerr)
	assert.Equal(t, uint64(42), got.QueuedByRuleID)

	require.NoError(t, queue.UnmarkForDeletion(media.ID))

	got, err = db.GetMediaByID(media.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMonitored, got.Status)
	assert.Nil(t, got.DeleteAfter)
	assert.Nil(t, got.MarkedAt)
	assert.Empty(t, got.DeletionAction)
	assert.False(t, got.ResetOverseerr)
	assert.Zero(t, got.QueuedByRuleID)
}

func TestMarkRejectsNegativeGracePeriod(t *testing.T) {
	db := testDB(t)
	queue := NewQueueController(db, testLogger())

	media := createMedia(t, db, &models.Media{Title: "Rushed", Type: models.MediaTypeMovie})

	err := queue.MarkForDeletion(media.ID, -1, 0, models.ActionUnmonitorAndDelete, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grace period")

	got, err := db.GetMediaByID(media.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMonitored, got.Status)
	assert.Nil(t, got.DeleteAfter)
}

func TestMarkRejectsUnknownAction(t *testing.T) {
	db := testDB(t)
	queue := NewQueueController(db, testLogger())
	media := createMedia(t, db, &models.Media{Title: "Movie", Type: models.MediaTypeMovie})

	err := queue.MarkForDeletion(media.ID, 7, 0, "shred", false)
	require.Error(t, err)
}

func TestDaysRemainingSchedule(t *testing.T) {
	db := testDB(t)
	queue := NewQueueController(db, testLogger())

	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	queue.now = func() time.Time { return start }

	media := createMedia(t, db, &models.Media{Title: "Soon Gone", Type: models.MediaTypeMovie})
	require.NoError(t, queue.MarkForDeletion(media.ID, 3, 0, models.ActionUnmonitorAndDelete, false))

	// At T+1d two full days remain
	queue.now = func() time.Time { return start.Add(24 * time.Hour) }
	items, err := queue.GetQueue()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].DaysRemaining)

	// daysRemaining never increases as the clock advances
	queue.now = func() time.Time { return start.Add(48 * time.Hour) }
	items, err = queue.GetQueue()
	require.NoError(t, err)
	assert.Equal(t, 1, items[0].DaysRemaining)

	// Just past the deadline it clamps to zero: the item is ready
	queue.now = func() time.Time { return start.Add(3*24*time.Hour + time.Second) }
	items, err = queue.GetQueue()
	require.NoError(t, err)
	assert.Equal(t, 0, items[0].DaysRemaining)

	// And stays zero long after
	queue.now = func() time.Time { return start.Add(30 * 24 * time.Hour) }
	items, err = queue.GetQueue()
	require.NoError(t, err)
	assert.Equal(t, 0, items[0].DaysRemaining)
}

func TestGetQueueOrdering(t *testing.T) {
	db := testDB(t)
	queue := NewQueueController(db, testLogger())

	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	queue.now = func() time.Time { return start }

	far := createMedia(t, db, &models.Media{Title: "Far", Type: models.MediaTypeMovie})
	near := createMedia(t, db, &models.Media{Title: "Near", Type: models.MediaTypeMovie})
	ready := createMedia(t, db, &models.Media{Title: "Ready", Type: models.MediaTypeMovie})

	require.NoError(t, queue.MarkForDeletion(far.ID, 10, 0, models.ActionUnmonitorAndDelete, false))
	require.NoError(t, queue.MarkForDeletion(near.ID, 2, 0, models.ActionUnmonitorAndDelete, false))
	require.NoError(t, queue.MarkForDeletion(ready.ID, 0, 0, models.ActionUnmonitorAndDelete, false))

	items, err := queue.GetQueue()
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Ready", items[0].Media.Title)
	assert.Equal(t, "Near", items[1].Media.Title)
	assert.Equal(t, "Far", items[2].Media.Title)
}

func TestReminders(t *testing.T) {
	db := testDB(t)
	queue := NewQueueController(db, testLogger())

	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	queue.now = func() time.Time { return start }

	soon := createMedia(t, db, &models.Media{Title: "Soon", Type: models.MediaTypeShow})
	later := createMedia(t, db, &models.Media{Title: "Later", Type: models.MediaTypeShow})

	require.NoError(t, queue.MarkForDeletion(soon.ID, 1, 0, models.ActionUnmonitorAndDelete, false))
	require.NoError(t, queue.MarkForDeletion(later.ID, 9, 0, models.ActionUnmonitorAndDelete, false))

	due, err := queue.Reminders(1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Soon", due[0].Media.Title)
}
