package controllers

import (
	"context"
	"fmt"

	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/helliott20/prunerr-sub001/internal/services/plex"
	"github.com/helliott20/prunerr-sub001/internal/services/radarr"
	"github.com/helliott20/prunerr-sub001/internal/services/sonarr"
	"github.com/helliott20/prunerr-sub001/internal/utils"
	"github.com/sirupsen/logrus"
)

// MediaServer is the call contract the sync needs from Plex
type MediaServer interface {
	GetSections(ctx context.Context) ([]plex.Section, error)
	GetSectionItems(ctx context.Context, sectionKey string) ([]plex.Item, error)
}

// MovieLister lists the movie content manager's records
type MovieLister interface {
	GetMovies(ctx context.Context) ([]radarr.Movie, error)
}

// SeriesLister lists the TV content manager's records
type SeriesLister interface {
	GetSeries(ctx context.Context) ([]sonarr.Series, error)
}

// SyncResult summarizes one library sync pass
type SyncResult struct {
	ItemsSynced  int `json:"itemsSynced"`
	ItemsCreated int `json:"itemsCreated"`
	ItemsRemoved int `json:"itemsRemoved"`
}

// SyncController keeps the local media records aligned with the media server
// and the content managers: watch statistics and file metadata flow in from
// them, and records whose content vanished from both systems are retired.
type SyncController struct {
	db     *models.Database
	server MediaServer
	movies MovieLister
	shows  SeriesLister
	logger *logrus.Logger
}

// NewSyncController creates a new sync controller
func NewSyncController(db *models.Database, server MediaServer, movies MovieLister, shows SeriesLister, logger *logrus.Logger) *SyncController {
	return &SyncController{
		db:     db,
		server: server,
		movies: movies,
		shows:  shows,
		logger: logger,
	}
}

// SyncLibrary runs one full sync pass
func (c *SyncController) SyncLibrary(ctx context.Context) (*SyncResult, error) {
	c.logger.Info("Starting library sync")

	movies, err := c.movies.GetMovies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	series, err := c.shows.GetSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	sections, err := c.server.GetSections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list library sections: %w", err)
	}

	result := &SyncResult{}
	seen := make(map[string]bool)

	for _, section := range sections {
		items, err := c.server.GetSectionItems(ctx, section.Key)
		if err != nil {
			c.logger.WithError(err).WithField("section", section.Title).Error("Failed to read section, skipping")
			continue
		}

		for i := range items {
			item := &items[i]
			seen[item.RatingKey] = true
			created, err := c.syncItem(item, movies, series)
			if err != nil {
				c.logger.WithError(err).WithField("title", item.Title).Error("Failed to sync item")
				continue
			}
			result.ItemsSynced++
			if created {
				result.ItemsCreated++
			}
		}
	}

	removed, err := c.retireVanished(seen, movies, series)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to retire vanished items")
	}
	result.ItemsRemoved = removed

	c.logger.WithFields(logrus.Fields{
		"synced":  result.ItemsSynced,
		"created": result.ItemsCreated,
		"removed": result.ItemsRemoved,
	}).Info("Library sync completed")

	return result, nil
}

// syncItem upserts one media-server item, returning whether it was created
func (c *SyncController) syncItem(item *plex.Item, movies []radarr.Movie, series []sonarr.Series) (bool, error) {
	var mediaType models.MediaType
	switch item.Type {
	case "movie":
		mediaType = models.MediaTypeMovie
	case "show":
		mediaType = models.MediaTypeShow
	default:
		return false, nil
	}

	media, err := c.db.GetMediaByPlexRatingKey(item.RatingKey)
	created := false
	if err == models.ErrNotFound {
		media = &models.Media{
			PlexRatingKey: item.RatingKey,
			Type:          mediaType,
			Title:         item.Title,
			Year:          item.Year,
			Status:        models.StatusMonitored,
			AddedAt:       item.Added(),
		}
		created = true
	} else if err != nil {
		return false, err
	}

	// Watch statistics always come from the media server
	media.PlayCount = item.ViewCount
	media.LastWatchedAt = item.LastWatched()
	if len(item.Media) > 0 {
		media.Resolution = item.Media[0].VideoResolution
		media.Codec = item.Media[0].VideoCodec
	}

	// File size and the arr id come from the owning content manager
	if mediaType == models.MediaTypeMovie {
		media.TmdbID = item.TmdbID()
		if m := matchMovie(item, movies); m != nil {
			media.ArrID = m.ID
			media.TmdbID = m.TmdbID
			media.FileSize = m.SizeOnDisk
		}
	} else {
		media.TvdbID = item.TvdbID()
		if s := matchSeries(item, series); s != nil {
			media.ArrID = s.ID
			media.TvdbID = s.TvdbID
			media.FileSize = s.Statistics.SizeOnDisk
		}
	}

	if created {
		return true, c.db.CreateMedia(media)
	}
	return false, c.db.UpdateMedia(media)
}

// retireVanished marks records deleted when the content is gone from the
// media server and its content manager both. Queued items are left alone so
// an in-flight grace period is never silently dropped.
func (c *SyncController) retireVanished(seen map[string]bool, movies []radarr.Movie, series []sonarr.Series) (int, error) {
	movieIDs := make(map[int]bool, len(movies))
	for _, m := range movies {
		movieIDs[m.ID] = true
	}
	seriesIDs := make(map[int]bool, len(series))
	for _, s := range series {
		seriesIDs[s.ID] = true
	}

	medias, err := c.db.GetAllMedias()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, media := range medias {
		if seen[media.PlexRatingKey] {
			continue
		}
		if media.Status == models.StatusDeleted || media.Status == models.StatusPendingDeletion {
			continue
		}

		stillManaged := false
		if media.ArrID != 0 {
			if media.Type == models.MediaTypeMovie {
				stillManaged = movieIDs[media.ArrID]
			} else {
				stillManaged = seriesIDs[media.ArrID]
			}
		}
		if stillManaged {
			continue
		}

		media.Status = models.StatusDeleted
		if err := c.db.UpdateMedia(media); err != nil {
			c.logger.WithError(err).WithField("media_id", media.ID).Error("Failed to retire media")
			continue
		}
		removed++
	}

	return removed, nil
}

// matchMovie pairs a media-server item with its Radarr record, TMDB id
// first. An item that carries an id never falls back to title matching: a
// title hit against the wrong record would hand its files to the deletion
// executor.
func matchMovie(item *plex.Item, movies []radarr.Movie) *radarr.Movie {
	if tmdbID := item.TmdbID(); tmdbID != 0 {
		for i := range movies {
			if movies[i].TmdbID == tmdbID {
				return &movies[i]
			}
		}
		return nil
	}

	var best *radarr.Movie
	bestScore := 0.0
	for i := range movies {
		m := &movies[i]
		if item.Year != 0 && m.Year != 0 && item.Year != m.Year {
			continue
		}
		score := utils.TitleSimilarity(item.Title, m.Title)
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	if best != nil && utils.TitlesMatch(item.Title, best.Title) {
		return best
	}
	return nil
}

// matchSeries mirrors matchMovie with the TVDB id
func matchSeries(item *plex.Item, series []sonarr.Series) *sonarr.Series {
	if tvdbID := item.TvdbID(); tvdbID != 0 {
		for i := range series {
			if series[i].TvdbID == tvdbID {
				return &series[i]
			}
		}
		return nil
	}

	var best *sonarr.Series
	bestScore := 0.0
	for i := range series {
		s := &series[i]
		if item.Year != 0 && s.Year != 0 && item.Year != s.Year {
			continue
		}
		score := utils.TitleSimilarity(item.Title, s.Title)
		if score > bestScore {
			best, bestScore = s, score
		}
	}
	if best != nil && utils.TitlesMatch(item.Title, best.Title) {
		return best
	}
	return nil
}
