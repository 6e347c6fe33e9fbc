package controllers

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/helliott20/prunerr-sub001/internal/metrics"
	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/sirupsen/logrus"
)

// ContentManager is the call contract the executor needs from Radarr/Sonarr.
// File deletion goes through the manager; it owns the file lifecycle.
type ContentManager interface {
	Unmonitor(ctx context.Context, id int) error
	DeleteFiles(ctx context.Context, id int, progress chan<- models.FileProgress) error
	Remove(ctx context.Context, id int) error
}

// RequestResetter is the optional request-broker contract
type RequestResetter interface {
	Reset(ctx context.Context, mediaID int) (bool, error)
}

// Notifier is the fire-and-forget notification contract
type Notifier interface {
	Notify(event string, payload interface{})
}

// noopResetter stands in when no request broker is configured, so action
// branches that would need one are no-ops by construction.
type noopResetter struct{}

func (noopResetter) Reset(context.Context, int) (bool, error) { return false, nil }

// DeletionResult is the outcome of executing one deletion
type DeletionResult struct {
	MediaID        uint64                `json:"mediaId"`
	Title          string                `json:"title"`
	Action         models.DeletionAction `json:"action"`
	Success        bool                  `json:"success"`
	FileSizeFreed  int64                 `json:"fileSizeFreed"`
	OverseerrReset bool                  `json:"overseerrReset"`
	Error          string                `json:"error,omitempty"`
	OverseerrError string                `json:"overseerrError,omitempty"`
}

// ProcessResult aggregates one queue-processing pass
type ProcessResult struct {
	DryRun          bool             `json:"dryRun"`
	Processed       int              `json:"processed"`
	Deleted         int              `json:"deleted"`
	Failed          int              `json:"failed"`
	FreedSpaceBytes int64            `json:"freedSpaceBytes"`
	OverseerrResets int              `json:"overseerrResets"`
	Items           []DeletionResult `json:"perItemResults"`
}

// Counters flattens the pass outcome into the scheduler's counter map
func (r *ProcessResult) Counters() map[string]int {
	return map[string]int{
		"processed":         r.Processed,
		"deleted":           r.Deleted,
		"failed":            r.Failed,
		"overseerr_resets":  r.OverseerrResets,
		"freed_space_bytes": int(r.FreedSpaceBytes),
	}
}

// DeleteController executes deletions against the external systems
type DeleteController struct {
	db       *models.Database
	movies   ContentManager
	shows    ContentManager
	broker   RequestResetter
	queue    *QueueController
	notifier Notifier
	logger   *logrus.Logger
}

// DeleteOption configures optional executor capabilities
type DeleteOption func(*DeleteController)

// WithRequestBroker wires the optional Overseerr reset capability
func WithRequestBroker(broker RequestResetter) DeleteOption {
	return func(c *DeleteController) {
		c.broker = broker
	}
}

// NewDeleteController creates a new delete controller
func NewDeleteController(db *models.Database, movies, shows ContentManager, queue *QueueController, notifier Notifier, logger *logrus.Logger, opts ...DeleteOption) *DeleteController {
	c := &DeleteController{
		db:       db,
		movies:   movies,
		shows:    shows,
		broker:   noopResetter{},
		queue:    queue,
		notifier: notifier,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExecuteDelete runs the deletion action for one item without progress streaming
func (c *DeleteController) ExecuteDelete(ctx context.Context, media *models.Media, action models.DeletionAction) DeletionResult {
	return c.execute(ctx, media, action, nil)
}

// ExecuteDeleteStream runs the deletion action for one item, writing ordered
// stage events to the channel. The caller owns the channel; the executor
// never closes it and runs to completion even if no one is reading promptly.
func (c *DeleteController) ExecuteDeleteStream(ctx context.Context, media *models.Media, action models.DeletionAction, events chan<- models.ProgressEvent) DeletionResult {
	return c.execute(ctx, media, action, events)
}

func (c *DeleteController) execute(ctx context.Context, media *models.Media, action models.DeletionAction, events chan<- models.ProgressEvent) DeletionResult {
	result := DeletionResult{
		MediaID: media.ID,
		Title:   media.Title,
		Action:  action,
	}

	emitStage(events, models.StageStarting, fmt.Sprintf("Deleting %q (%s)", media.Title, action))

	manager := c.managerFor(media.Type)
	var primaryErr error

	switch action {
	case models.ActionUnmonitorOnly:
		emitStage(events, models.StageUnmonitoring, "Unmonitoring in content manager")
		primaryErr = manager.Unmonitor(ctx, media.ArrID)

	case models.ActionDeleteFilesOnly:
		emitStage(events, models.StageDeletingFiles, "Deleting media files")
		primaryErr = c.deleteFiles(ctx, manager, media, events)

	case models.ActionUnmonitorAndDelete:
		emitStage(events, models.StageUnmonitoring, "Unmonitoring in content manager")
		unmonitorErr := manager.Unmonitor(ctx, media.ArrID)
		if unmonitorErr != nil {
			// Keep going: partial failures run the remaining sub-steps and
			// surface the causal error at the end.
			c.logger.WithError(unmonitorErr).WithField("media_id", media.ID).Error("Unmonitor failed, continuing with file deletion")
		}
		emitStage(events, models.StageDeletingFiles, "Deleting media files")
		deleteErr := c.deleteFiles(ctx, manager, media, events)
		primaryErr = unmonitorErr
		if primaryErr == nil {
			primaryErr = deleteErr
		}

	case models.ActionFullRemoval:
		emitStage(events, models.StageDeletingFiles, "Removing from content manager")
		primaryErr = manager.Remove(ctx, media.ArrID)

	default:
		primaryErr = fmt.Errorf("unknown deletion action %q", action)
	}

	// fileSizeFreed is the record's last-known size, not a post-deletion
	// measurement. Downstream statistics assume this approximation.
	if action.FreesSpace() {
		result.FileSizeFreed = media.FileSize
	}

	// The broker reset is best-effort and can never fail the deletion; its
	// error travels separately.
	if media.ResetOverseerr && media.OverseerrID != 0 {
		emitStage(events, models.StageResettingOverseer, "Resetting request broker")
		result.OverseerrReset, result.OverseerrError = c.resetBroker(ctx, media.OverseerrID)
	}

	result.Success = primaryErr == nil
	if !result.Success {
		// Status stays pending_deletion so the next scheduled pass retries.
		result.Error = primaryErr.Error()
		c.logger.WithError(primaryErr).WithFields(logrus.Fields{
			"media_id": media.ID,
			"title":    media.Title,
			"action":   action,
		}).Error("Deletion failed")
		metrics.Deletions.WithLabelValues(string(action), "failure").Inc()
		emitStage(events, models.StageError, primaryErr.Error())
		return result
	}

	if err := c.finalize(media, action, result); err != nil {
		c.logger.WithError(err).WithField("media_id", media.ID).Error("Failed to record deletion outcome")
	}

	c.logger.WithFields(logrus.Fields{
		"media_id": media.ID,
		"title":    media.Title,
		"action":   action,
		"freed":    humanize.Bytes(uint64(result.FileSizeFreed)),
	}).Info("Deletion completed")

	metrics.Deletions.WithLabelValues(string(action), "success").Inc()
	metrics.BytesFreed.Add(float64(result.FileSizeFreed))
	c.notifier.Notify("media_deleted", result)
	emitStage(events, models.StageComplete, fmt.Sprintf("Deleted %q, freed %s", media.Title, humanize.Bytes(uint64(result.FileSizeFreed))))

	return result
}

// deleteFiles bridges the adapter's per-file progress into the stage stream
func (c *DeleteController) deleteFiles(ctx context.Context, manager ContentManager, media *models.Media, events chan<- models.ProgressEvent) error {
	if events == nil {
		return manager.DeleteFiles(ctx, media.ArrID, nil)
	}

	files := make(chan models.FileProgress)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for fp := range files {
			fp := fp
			events <- models.ProgressEvent{
				Stage:   models.StageDeletingFiles,
				Message: fmt.Sprintf("Deleting file %d/%d: %s", fp.Current, fp.Total, fp.FileName),
				File:    &fp,
			}
		}
	}()

	err := manager.DeleteFiles(ctx, media.ArrID, files)
	close(files)
	<-done
	return err
}

// resetBroker isolates the request-broker call, converting even a panic in
// the adapter into an error string rather than a failed deletion.
func (c *DeleteController) resetBroker(ctx context.Context, overseerrID int) (reset bool, errMsg string) {
	defer func() {
		if r := recover(); r != nil {
			reset = false
			errMsg = fmt.Sprintf("request broker panicked: %v", r)
			c.logger.WithField("panic", r).Error("Request broker reset panicked")
		}
	}()

	reset, err := c.broker.Reset(ctx, overseerrID)
	if err != nil {
		c.logger.WithError(err).WithField("overseerr_id", overseerrID).Warn("Request broker reset failed")
		return false, err.Error()
	}
	return reset, ""
}

// finalize records the outcome: history and activity entries, then either
// the terminal deleted status or, for full removal, dropping the row.
func (c *DeleteController) finalize(media *models.Media, action models.DeletionAction, result DeletionResult) error {
	entry := &models.DeletionHistoryEntry{
		MediaID:        media.ID,
		Title:          media.Title,
		MediaType:      media.Type,
		Action:         action,
		FileSizeFreed:  result.FileSizeFreed,
		OverseerrReset: result.OverseerrReset,
		QueuedByRuleID: media.QueuedByRuleID,
	}
	if err := c.db.AppendDeletionHistory(entry); err != nil {
		return fmt.Errorf("failed to append deletion history: %w", err)
	}

	activity := &models.ActivityLogEntry{
		MediaID: media.ID,
		Actor:   "executor",
		Event:   "deleted",
		Detail:  fmt.Sprintf("action=%s freed=%d", action, result.FileSizeFreed),
	}
	if err := c.db.AppendActivity(activity); err != nil {
		c.logger.WithError(err).Warn("Failed to append activity log entry")
	}

	if action == models.ActionFullRemoval {
		return c.db.DeleteMedia(media.ID)
	}

	media.Status = models.StatusDeleted
	media.ClearQueueFields()
	return c.db.UpdateMedia(media)
}

// ProcessPendingDeletions executes every ready queue entry (daysRemaining
// zero) in ascending urgency order. Items are isolated: one failure never
// aborts the rest of the pass. With dryRun the pass reports what it would do
// and mutates nothing.
func (c *DeleteController) ProcessPendingDeletions(ctx context.Context, dryRun bool) (*ProcessResult, error) {
	queue, err := c.queue.GetQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to read deletion queue: %w", err)
	}

	result := &ProcessResult{DryRun: dryRun, Items: []DeletionResult{}}

	for _, item := range queue {
		if item.DaysRemaining > 0 {
			// Queue is sorted ascending; nothing past this point is ready.
			break
		}

		media := item.Media
		result.Processed++

		if dryRun {
			dry := DeletionResult{
				MediaID: media.ID,
				Title:   media.Title,
				Action:  media.DeletionAction,
				Success: true,
			}
			if media.DeletionAction.FreesSpace() {
				dry.FileSizeFreed = media.FileSize
			}
			result.Items = append(result.Items, dry)
			result.Deleted++
			result.FreedSpaceBytes += dry.FileSizeFreed
			continue
		}

		r := c.execute(ctx, media, media.DeletionAction, nil)
		result.Items = append(result.Items, r)
		if r.Success {
			result.Deleted++
			result.FreedSpaceBytes += r.FileSizeFreed
		} else {
			result.Failed++
		}
		if r.OverseerrReset {
			result.OverseerrResets++
		}
	}

	c.logger.WithFields(logrus.Fields{
		"dry_run":   dryRun,
		"processed": result.Processed,
		"deleted":   result.Deleted,
		"failed":    result.Failed,
		"freed":     humanize.Bytes(uint64(result.FreedSpaceBytes)),
	}).Info("Deletion queue processed")

	return result, nil
}

func (c *DeleteController) managerFor(mediaType models.MediaType) ContentManager {
	if mediaType == models.MediaTypeShow {
		return c.shows
	}
	return c.movies
}

func emitStage(events chan<- models.ProgressEvent, stage models.ProgressStage, message string) {
	if events != nil {
		events <- models.ProgressEvent{Stage: stage, Message: message}
	}
}
