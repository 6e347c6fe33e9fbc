package sonarr

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/helliott20/prunerr-sub001/internal/services/arrhttp"
	"github.com/sirupsen/logrus"
)

// Client talks to the Sonarr v3 API, the content manager owning TV shows
type Client struct {
	http   *arrhttp.Client
	logger *logrus.Logger
}

// NewClient creates a new Sonarr client
func NewClient(baseURL, apiKey string, logger *logrus.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Sonarr API key is required")
	}
	httpClient, err := arrhttp.New(arrhttp.Config{BaseURL: baseURL, APIKey: apiKey}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sonarr client: %w", err)
	}
	return &Client{http: httpClient, logger: logger}, nil
}

// Series is a Sonarr series record
type Series struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Year       int    `json:"year"`
	TvdbID     int    `json:"tvdbId"`
	Monitored  bool   `json:"monitored"`
	Statistics struct {
		SizeOnDisk int64 `json:"sizeOnDisk"`
	} `json:"statistics"`
}

type episodeFile struct {
	ID           int    `json:"id"`
	RelativePath string `json:"relativePath"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
}

// GetSeries retrieves all series (used by library sync)
func (c *Client) GetSeries(ctx context.Context) ([]Series, error) {
	var series []Series
	if err := c.http.Get(ctx, "/api/v3/series", nil, &series); err != nil {
		return nil, fmt.Errorf("failed to get series: %w", err)
	}
	return series, nil
}

// Unmonitor marks the series unmonitored so Sonarr stops tracking it
func (c *Client) Unmonitor(ctx context.Context, id int) error {
	var s map[string]interface{}
	if err := c.http.Get(ctx, "/api/v3/series/"+strconv.Itoa(id), nil, &s); err != nil {
		return fmt.Errorf("failed to get series %d: %w", id, err)
	}
	s["monitored"] = false
	if err := c.http.Put(ctx, "/api/v3/series/"+strconv.Itoa(id), s, nil); err != nil {
		return fmt.Errorf("failed to unmonitor series %d: %w", id, err)
	}
	c.logger.WithField("series_id", id).Debug("Series unmonitored")
	return nil
}

// DeleteFiles removes every episode file Sonarr holds for the series,
// reporting per-file progress to the channel when one is provided. One file
// failing does not stop the rest; the first error is returned at the end.
func (c *Client) DeleteFiles(ctx context.Context, id int, progress chan<- models.FileProgress) error {
	query := url.Values{"seriesId": []string{strconv.Itoa(id)}}
	var files []episodeFile
	if err := c.http.Get(ctx, "/api/v3/episodefile", query, &files); err != nil {
		return fmt.Errorf("failed to list episode files for %d: %w", id, err)
	}

	var firstErr error
	for i, f := range files {
		name := f.RelativePath
		if name == "" {
			name = filepath.Base(f.Path)
		}
		emit(progress, models.FileProgress{Current: i + 1, Total: len(files), FileName: name, Status: "deleting"})

		if err := c.http.Delete(ctx, "/api/v3/episodefile/"+strconv.Itoa(f.ID), nil); err != nil {
			c.logger.WithError(err).WithField("file", name).Error("Failed to delete episode file")
			emit(progress, models.FileProgress{Current: i + 1, Total: len(files), FileName: name, Status: "failed"})
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to delete file %s: %w", name, err)
			}
			continue
		}
		emit(progress, models.FileProgress{Current: i + 1, Total: len(files), FileName: name, Status: "deleted"})
	}

	return firstErr
}

// Remove deletes the series record from Sonarr entirely, including its files
func (c *Client) Remove(ctx context.Context, id int) error {
	query := url.Values{"deleteFiles": []string{"true"}}
	if err := c.http.Delete(ctx, "/api/v3/series/"+strconv.Itoa(id), query); err != nil {
		return fmt.Errorf("failed to remove series %d: %w", id, err)
	}
	c.logger.WithField("series_id", id).Debug("Series removed from Sonarr")
	return nil
}

func emit(ch chan<- models.FileProgress, p models.FileProgress) {
	if ch != nil {
		ch <- p
	}
}
