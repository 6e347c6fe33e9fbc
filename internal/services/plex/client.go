package plex

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/helliott20/prunerr-sub001/internal/services/arrhttp"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const sectionsCacheKey = "library_sections"

// Client talks to the Plex media server. Library sections change rarely, so
// they are cached between sync passes.
type Client struct {
	http   *arrhttp.Client
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewClient creates a new Plex client
func NewClient(baseURL, token string, logger *logrus.Logger) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("Plex token is required")
	}
	httpClient, err := arrhttp.New(arrhttp.Config{
		BaseURL:   baseURL,
		APIKey:    token,
		KeyHeader: "X-Plex-Token",
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Plex client: %w", err)
	}

	return &Client{
		http:   httpClient,
		cache:  cache.New(10*time.Minute, 30*time.Minute),
		logger: logger,
	}, nil
}

// Section is one Plex library section
type Section struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"` // "movie" or "show"
}

// Item is one library item with its watch statistics
type Item struct {
	RatingKey    string `json:"ratingKey"`
	Title        string `json:"title"`
	Year         int    `json:"year"`
	Type         string `json:"type"`
	ViewCount    int    `json:"viewCount"`
	LastViewedAt int64  `json:"lastViewedAt"` // unix seconds, 0 if never
	AddedAt      int64  `json:"addedAt"`      // unix seconds
	Media        []struct {
		VideoResolution string `json:"videoResolution"`
		VideoCodec      string `json:"videoCodec"`
	} `json:"Media"`
	// Guid carries external ids as URIs (tmdb://603, tvdb://79126)
	Guid []struct {
		ID string `json:"id"`
	} `json:"Guid"`
}

// TmdbID returns the item's TMDB id, 0 when Plex does not report one
func (i Item) TmdbID() int {
	return i.externalID("tmdb")
}

// TvdbID returns the item's TVDB id, 0 when Plex does not report one
func (i Item) TvdbID() int {
	return i.externalID("tvdb")
}

func (i Item) externalID(scheme string) int {
	prefix := scheme + "://"
	for _, g := range i.Guid {
		if !strings.HasPrefix(g.ID, prefix) {
			continue
		}
		if id, err := strconv.Atoi(strings.TrimPrefix(g.ID, prefix)); err == nil {
			return id
		}
	}
	return 0
}

// LastWatched converts the raw timestamp, nil when the item was never played
func (i Item) LastWatched() *time.Time {
	if i.LastViewedAt == 0 {
		return nil
	}
	t := time.Unix(i.LastViewedAt, 0)
	return &t
}

// Added converts the raw added timestamp
func (i Item) Added() time.Time {
	return time.Unix(i.AddedAt, 0)
}

type sectionsResponse struct {
	MediaContainer struct {
		Directory []Section `json:"Directory"`
	} `json:"MediaContainer"`
}

type itemsResponse struct {
	MediaContainer struct {
		Metadata []Item `json:"Metadata"`
	} `json:"MediaContainer"`
}

// GetSections returns the movie and show library sections, cached
func (c *Client) GetSections(ctx context.Context) ([]Section, error) {
	if cached, ok := c.cache.Get(sectionsCacheKey); ok {
		return cached.([]Section), nil
	}

	var resp sectionsResponse
	if err := c.http.Get(ctx, "/library/sections", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get library sections: %w", err)
	}

	var sections []Section
	for _, dir := range resp.MediaContainer.Directory {
		if dir.Type == "movie" || dir.Type == "show" {
			sections = append(sections, dir)
		}
	}

	c.cache.Set(sectionsCacheKey, sections, cache.DefaultExpiration)
	c.logger.WithField("count", len(sections)).Debug("Plex sections loaded")
	return sections, nil
}

// GetSectionItems returns all items in one library section
func (c *Client) GetSectionItems(ctx context.Context, sectionKey string) ([]Item, error) {
	var resp itemsResponse
	path := "/library/sections/" + sectionKey + "/all"
	if err := c.http.Get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get items for section %s: %w", sectionKey, err)
	}
	return resp.MediaContainer.Metadata, nil
}
