package controllers

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrProtected is returned when a destructive operation targets a protected item
var ErrProtected = errors.New("media item is protected")

// QueueController manages the pending-deletion queue and its grace periods
type QueueController struct {
	db     *models.Database
	logger *logrus.Logger
	now    func() time.Time
}

// NewQueueController creates a new queue controller
func NewQueueController(db *models.Database, logger *logrus.Logger) *QueueController {
	return &QueueController{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// QueueItem is the read-only queue view of a pending-deletion media item
type QueueItem struct {
	Media         *models.Media `json:"media"`
	DaysRemaining int           `json:"daysRemaining"`
}

// MarkForDeletion queues the item: computes the grace-period deadline and
// persists the chosen action and broker-reset intent so execution replays
// them unchanged no matter how long the grace period lasts. ruleID is 0 for
// manual queueing.
func (c *QueueController) MarkForDeletion(mediaID uint64, gracePeriodDays int, ruleID uint64, action models.DeletionAction, resetOverseerr bool) error {
	media, err := c.db.GetMediaByID(mediaID)
	if err != nil {
		return fmt.Errorf("failed to get media %d: %w", mediaID, err)
	}

	if media.Protected || media.Status == models.StatusProtected {
		return ErrProtected
	}
	if !action.Valid() {
		return fmt.Errorf("unknown deletion action %q", action)
	}
	if gracePeriodDays < 0 {
		return fmt.Errorf("grace period must not be negative, got %d days", gracePeriodDays)
	}

	now := c.now()
	deleteAfter := now.Add(time.Duration(gracePeriodDays) * 24 * time.Hour)

	media.Status = models.StatusPendingDeletion
	media.MarkedAt = &now
	media.DeleteAfter = &deleteAfter
	media.DeletionAction = action
	media.ResetOverseerr = resetOverseerr
	media.QueuedByRuleID = ruleID

	if err := c.db.UpdateMedia(media); err != nil {
		return fmt.Errorf("failed to queue media %d: %w", mediaID, err)
	}

	c.logger.WithFields(logrus.Fields{
		"media_id":     media.ID,
		"title":        media.Title,
		"delete_after": deleteAfter.Format(time.RFC3339),
		"action":       action,
	}).Info("Media queued for deletion")

	actor := "api"
	if ruleID != 0 {
		actor = "scan"
	}
	c.logActivity(media.ID, actor, "queued_for_deletion",
		fmt.Sprintf("action=%s grace_days=%d", action, gracePeriodDays))

	return nil
}

// UnmarkForDeletion takes the item off the queue and restores it to
// monitored. Cancellation is always allowed, whether the item was queued by
// a rule or manually.
func (c *QueueController) UnmarkForDeletion(mediaID uint64) error {
	media, err := c.db.GetMediaByID(mediaID)
	if err != nil {
		return fmt.Errorf("failed to get media %d: %w", mediaID, err)
	}

	media.Status = models.StatusMonitored
	media.ClearQueueFields()

	if err := c.db.UpdateMedia(media); err != nil {
		return fmt.Errorf("failed to unqueue media %d: %w", mediaID, err)
	}

	c.logger.WithFields(logrus.Fields{
		"media_id": media.ID,
		"title":    media.Title,
	}).Info("Media removed from deletion queue")

	c.logActivity(media.ID, "api", "unqueued", "")
	return nil
}

// GetQueue returns every pending-deletion item sorted ascending by days
// remaining, soonest-expiring first. Callers presenting urgency rely on this
// ordering.
func (c *QueueController) GetQueue() ([]QueueItem, error) {
	medias, err := c.db.GetMediasByStatus(models.StatusPendingDeletion)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deletions: %w", err)
	}

	now := c.now()
	items := make([]QueueItem, 0, len(medias))
	for _, media := range medias {
		items = append(items, QueueItem{
			Media:         media,
			DaysRemaining: daysRemaining(media.DeleteAfter, now),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DaysRemaining != items[j].DaysRemaining {
			return items[i].DaysRemaining < items[j].DaysRemaining
		}
		// Same day bucket: earlier deadline first
		return deadline(items[i].Media).Before(deadline(items[j].Media))
	})

	return items, nil
}

// Reminders returns queue items whose remaining days have fallen to or below
// the threshold, ready for notification.
func (c *QueueController) Reminders(thresholdDays int) ([]QueueItem, error) {
	queue, err := c.GetQueue()
	if err != nil {
		return nil, err
	}

	var due []QueueItem
	for _, item := range queue {
		if item.DaysRemaining <= thresholdDays {
			due = append(due, item)
		}
	}
	return due, nil
}

func (c *QueueController) logActivity(mediaID uint64, actor, event, detail string) {
	entry := &models.ActivityLogEntry{MediaID: mediaID, Actor: actor, Event: event, Detail: detail}
	if err := c.db.AppendActivity(entry); err != nil {
		c.logger.WithError(err).Warn("Failed to append activity log entry")
	}
}

// daysRemaining is ceil((deleteAfter - now) / 1 day), clamped at zero. An
// item at zero is ready for execution.
func daysRemaining(deleteAfter *time.Time, now time.Time) int {
	if deleteAfter == nil {
		return 0
	}
	remaining := deleteAfter.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

func deadline(m *models.Media) time.Time {
	if m.DeleteAfter == nil {
		return time.Time{}
	}
	return *m.DeleteAfter
}
