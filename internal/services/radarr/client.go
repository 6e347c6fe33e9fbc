package radarr

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

// Client talks to the Radarr v3 API. Radarr owns the file lifecycle for
// movies; files are always removed through it, never from the filesystem.
type Client struct {
	http   *arrhttp.Client
	logger *logrus.Logger
}

// NewClient creates a new Radarr client
func NewClient(baseURL, apiKey string, logger *logrus.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Radarr API key is required")
	}
	httpClient, err := arrhttp.New(arrhttp.Config{BaseURL: baseURL, APIKey: apiKey}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Radarr client: %w", err)
	}
	return &Client{http: httpClient, logger: logger}, nil
}

// Movie is a Radarr movie record
type Movie struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Year       int    `json:"year"`
	TmdbID     int    `json:"tmdbId"`
	Monitored  bool   `json:"monitored"`
	SizeOnDisk int64  `json:"sizeOnDisk"`
	HasFile    bool   `json:"hasFile"`
	MovieFile  *struct {
		Quality struct {
			Quality struct {
				Resolution int `json:"resolution"`
			} `json:"quality"`
		} `json:"quality"`
		MediaInfo struct {
			VideoCodec string `json:"videoCodec"`
		} `json:"mediaInfo"`
	} `json:"movieFile"`
}

type movieFile struct {
	ID           int    `json:"id"`
	RelativePath string `json:"relativePath"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
}

// GetMovies retrieves all movies (used by library sync)
func (c *Client) GetMovies(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	if err := c.http.Get(ctx, "/api/v3/movie", nil, &movies); err != nil {
		return nil, fmt.Errorf("failed to get movies: %w", err)
	}
	return movies, nil
}

// Unmonitor marks the movie unmonitored so Radarr stops tracking it
func (c *Client) Unmonitor(ctx context.Context, id int) error {
	var m map[string]interface{}
	if err := c.http.Get(ctx, "/api/v3/movie/"+strconv.Itoa(id), nil, &m); err != nil {
		return fmt.Errorf("failed to get movie %d: %w", id, err)
	}
	m["monitored"] = false
	if err := c.http.Put(ctx, "/api/v3/movie/"+strconv.Itoa(id), m, nil); err != nil {
		return fmt.Errorf("failed to unmonitor movie %d: %w", id, err)
	}
	c.logger.WithField("movie_id", id).Debug("Movie unmonitored")
	return nil
}

// DeleteFiles removes every file Radarr holds for the movie, reporting
// per-file progress to the channel when one is provided. A failure on one
// file does not stop the remaining files; the first error is returned after
// the pass completes.
func (c *Client) DeleteFiles(ctx context.Context, id int, progress chan<- models.FileProgress) error {
	query := url.Values{"movieId": []string{strconv.Itoa(id)}}
	var files []movieFile
	if err := c.http.Get(ctx, "/api/v3/moviefile", query, &files); err != nil {
		return fmt.Errorf("failed to list movie files for %d: %w", id, err)
	}

	var firstErr error
	for i, f := range files {
		name := f.RelativePath
		if name == "" {
			name = filepath.Base(f.Path)
		}
		emit(progress, models.FileProgress{Current: i + 1, Total: len(files), FileName: name, Status: "deleting"})

		if err := c.http.Delete(ctx, "/api/v3/moviefile/"+strconv.Itoa(f.ID), nil); err != nil {
			c.logger.WithError(err).WithField("file", name).Error("Failed to delete movie file")
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

// Remove deletes the movie record from Radarr entirely, including its files
func (c *Client) Remove(ctx context.Context, id int) error {
	query := url.Values{
		"deleteFiles":        []string{"true"},
		"addImportExclusion": []string{"false"},
	}
	if err := c.http.Delete(ctx, "/api/v3/movie/"+strconv.Itoa(id), query); err != nil {
		return fmt.Errorf("failed to remove movie %d: %w", id, err)
	}
	c.logger.WithField("movie_id", id).Debug("Movie removed from Radarr")
	return nil
}

func emit(ch chan<- models.FileProgress, p models.FileProgress) {
	if ch != nil {
		ch <- p
	}
}
