package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/helliott20/prunerr-sub001/internal/metrics"
	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/helliott20/prunerr-sub001/internal/rules"
	"github.com/sirupsen/logrus"
)

// ScanDefaults are the deletion parameters applied when a rule's action
// queues an item. They are captured onto the record at queue time, so later
// configuration changes do not affect items already queued.
type ScanDefaults struct {
	GracePeriodDays int
	DeletionAction  models.DeletionAction
	ResetOverseerr  bool
}

// ScanResult summarizes one rule-evaluation pass
type ScanResult struct {
	ItemsScanned   int `json:"itemsScanned"`
	ItemsFlagged   int `json:"itemsFlagged"`
	ItemsQueued    int `json:"itemsQueued"`
	ItemsProtected int `json:"itemsProtected"`
}

// ScanController runs the rule matcher across the monitored library
type ScanController struct {
	db       *models.Database
	matcher  *rules.Matcher
	queue    *QueueController
	notifier Notifier
	defaults ScanDefaults
	logger   *logrus.Logger
}

// NewScanController creates a new scan controller
func NewScanController(db *models.Database, matcher *rules.Matcher, queue *QueueController, notifier Notifier, defaults ScanDefaults, logger *logrus.Logger) *ScanController {
	return &ScanController{
		db:       db,
		matcher:  matcher,
		queue:    queue,
		notifier: notifier,
		defaults: defaults,
		logger:   logger,
	}
}

// RunScan evaluates every enabled rule against the monitored set, applying
// the first matching rule's action per item. Already-queued, deleted and
// protected items are left alone.
func (c *ScanController) RunScan(ctx context.Context) (*ScanResult, error) {
	c.logger.Info("Starting library scan")

	record := &models.ScanRecord{StartedAt: time.Now()}
	if err := c.db.CreateScanRecord(record); err != nil {
		return nil, fmt.Errorf("failed to create scan record: %w", err)
	}

	enabledRules, err := c.db.GetEnabledRules()
	if err != nil {
		return nil, c.fail(record, fmt.Errorf("failed to load rules: %w", err))
	}

	medias, err := c.db.GetMonitoredMedias()
	if err != nil {
		return nil, c.fail(record, fmt.Errorf("failed to load media: %w", err))
	}

	result := &ScanResult{}
	for _, media := range medias {
		select {
		case <-ctx.Done():
			return nil, c.fail(record, ctx.Err())
		default:
		}

		result.ItemsScanned++

		if media.Protected {
			result.ItemsProtected++
			continue
		}

		rule := c.matcher.Match(media, enabledRules)
		if rule == nil {
			continue
		}

		switch rule.Action {
		case models.RuleActionFlag:
			if media.Status != models.StatusFlagged {
				media.Status = models.StatusFlagged
				if err := c.db.UpdateMedia(media); err != nil {
					c.logger.WithError(err).WithField("media_id", media.ID).Error("Failed to flag media")
					continue
				}
			}
			result.ItemsFlagged++
			metrics.ItemsFlagged.Inc()

		case models.RuleActionDelete:
			err := c.queue.MarkForDeletion(media.ID, c.defaults.GracePeriodDays, rule.ID, c.defaults.DeletionAction, c.defaults.ResetOverseerr)
			if err != nil {
				c.logger.WithError(err).WithFields(logrus.Fields{
					"media_id": media.ID,
					"rule":     rule.Name,
				}).Error("Failed to queue media for deletion")
				continue
			}
			result.ItemsQueued++
			metrics.ItemsQueued.Inc()

		case models.RuleActionNotify:
			c.notifier.Notify("rule_matched", map[string]interface{}{
				"mediaId": media.ID,
				"title":   media.Title,
				"rule":    rule.Name,
			})
		}
	}

	now := time.Now()
	record.CompletedAt = &now
	record.ItemsScanned = result.ItemsScanned
	record.ItemsFlagged = result.ItemsFlagged
	record.ItemsQueued = result.ItemsQueued
	record.ItemsProtected = result.ItemsProtected
	if err := c.db.UpdateScanRecord(record); err != nil {
		c.logger.WithError(err).Warn("Failed to complete scan record")
	}

	metrics.ScansTotal.Inc()
	c.logger.WithFields(logrus.Fields{
		"scanned":   result.ItemsScanned,
		"flagged":   result.ItemsFlagged,
		"queued":    result.ItemsQueued,
		"protected": result.ItemsProtected,
	}).Info("Library scan completed")

	return result, nil
}

func (c *ScanController) fail(record *models.ScanRecord, err error) error {
	now := time.Now()
	record.CompletedAt = &now
	record.Error = err.Error()
	if updateErr := c.db.UpdateScanRecord(record); updateErr != nil {
		c.logger.WithError(updateErr).Warn("Failed to record scan failure")
	}
	return err
}
