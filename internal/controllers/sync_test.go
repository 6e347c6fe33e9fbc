package controllers

import (
	"context"
	"testing"
	"time"

	"github.com/helliott20/prunerr-sub001/internal/models"
	"github.com/helliott20/prunerr-sub001/internal/services/plex"
	"github.com/helliott20/prunerr-sub001/internal/services/radarr"
	"github.com/helliott20/prunerr-sub001/internal/services/sonarr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMediaServer struct {
	sections []plex.Section
	items    map[string][]plex.Item
}

func (f *fakeMediaServer) GetSections(context.Context) ([]plex.Section, error) {
	return f.sections, nil
}

func (f *fakeMediaServer) GetSectionItems(_ context.Context, key string) ([]plex.Item, error) {
	return f.items[key], nil
}

type fakeMovieLister struct{ movies []radarr.Movie }

func (f *fakeMovieLister) GetMovies(context.Context) ([]radarr.Movie, error) {
	return f.movies, nil
}

type fakeSeriesLister struct{ series []sonarr.Series }

func (f *fakeSeriesLister) GetSeries(context.Context) ([]sonarr.Series, error) {
	return f.series, nil
}

func TestSyncLibraryCreatesAndMatches(t *testing.T) {
	db := testDB(t)

	watched := time.Date(2026, 4, 10, 20, 0, 0, 0, time.UTC)
	item := plex.Item{
		RatingKey:    "rk-1",
		Title:        "Amélie",
		Year:         2001,
		Type:         "movie",
		ViewCount:    4,
		LastViewedAt: watched.Unix(),
		AddedAt:      watched.Add(-90 * 24 * time.Hour).Unix(),
	}
	item.Media = append(item.Media, struct {
		VideoResolution string `json:"videoResolution"`
		VideoCodec      string `json:"videoCodec"`
	}{VideoResolution: "1080p", VideoCodec: "h264"})

	server := &fakeMediaServer{
		sections: []plex.Section{{Key: "1", Title: "Movies", Type: "movie"}},
		items:    map[string][]plex.Item{"1": {item}},
	}
	movies := &fakeMovieLister{movies: []radarr.Movie{
		{ID: 55, Title: "Amelie", Year: 2001, TmdbID: 194, SizeOnDisk: 4_200_000_000},
		{ID: 56, Title: "Heat", Year: 1995, TmdbID: 949, SizeOnDisk: 9_000_000_000},
	}}

	ctrl := NewSyncController(db, server, movies, &fakeSeriesLister{}, testLogger())
	result, err := ctrl.SyncLibrary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsSynced)
	assert.Equal(t, 1, result.ItemsCreated)

	got, err := db.GetMediaByPlexRatingKey("rk-1")
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeMovie, got.Type)
	assert.Equal(t, 4, got.PlayCount)
	require.NotNil(t, got.LastWatchedAt)
	assert.Equal(t, watched.Unix(), got.LastWatchedAt.Unix())
	assert.Equal(t, "1080p", got.Resolution)
	assert.Equal(t, 55, got.ArrID, "title match survives the diacritic difference")
	assert.Equal(t, int64(4_200_000_000), got.FileSize)
	assert.Equal(t, models.StatusMonitored, got.Status)
}

func TestSyncLibraryDisambiguatesByExternalID(t *testing.T) {
	db := testDB(t)

	// Two same-title, same-year releases; only the TMDB id tells them apart
	item := plex.Item{RatingKey: "rk-remake", Title: "Nosferatu", Year: 2024, Type: "movie"}
	item.Guid = append(item.Guid, struct {
		ID string `json:"id"`
	}{ID: "tmdb://426063"})

	server := &fakeMediaServer{
		sections: []plex.Section{{Key: "1", Title: "Movies", Type: "movie"}},
		items:    map[string][]plex.Item{"1": {item}},
	}
	movies := &fakeMovieLister{movies: []radarr.Movie{
		{ID: 70, Title: "Nosferatu", Year: 2024, TmdbID: 111111, SizeOnDisk: 1_000},
		{ID: 71, Title: "Nosferatu", Year: 2024, TmdbID: 426063, SizeOnDisk: 2_000},
	}}

	ctrl := NewSyncController(db, server, movies, &fakeSeriesLister{}, testLogger())
	_, err := ctrl.SyncLibrary(context.Background())
	require.NoError(t, err)

	got, err := db.GetMediaByPlexRatingKey("rk-remake")
	require.NoError(t, err)
	assert.Equal(t, 71, got.ArrID, "id match must win over title similarity")
	assert.Equal(t, 426063, got.TmdbID)
	assert.Equal(t, int64(2_000), got.FileSize)
}

func TestSyncLibraryUnknownExternalIDBindsNothing(t *testing.T) {
	db := testDB(t)

	item := plex.Item{RatingKey: "rk-orphan", Title: "Solaris", Year: 2002, Type: "movie"}
	item.Guid = append(item.Guid, struct {
		ID string `json:"id"`
	}{ID: "tmdb://999999"})

	server := &fakeMediaServer{
		sections: []plex.Section{{Key: "1", Title: "Movies", Type: "movie"}},
		items:    map[string][]plex.Item{"1": {item}},
	}
	// Same title and year, different id: must not bind
	movies := &fakeMovieLister{movies: []radarr.Movie{
		{ID: 80, Title: "Solaris", Year: 2002, TmdbID: 593},
	}}

	ctrl := NewSyncController(db, server, movies, &fakeSeriesLister{}, testLogger())
	_, err := ctrl.SyncLibrary(context.Background())
	require.NoError(t, err)

	got, err := db.GetMediaByPlexRatingKey("rk-orphan")
	require.NoError(t, err)
	assert.Zero(t, got.ArrID)
	assert.Equal(t, 999999, got.TmdbID, "the media server's id is kept even without an arr record")
}

func TestSyncLibraryUpdatesExisting(t *testing.T) {
	db := testDB(t)
	createMedia(t, db, &models.Media{Title: "Stale", Type: models.MediaTypeMovie, PlexRatingKey: "rk-2", PlayCount: 0})

	server := &fakeMediaServer{
		sections: []plex.Section{{Key: "1", Title: "Movies", Type: "movie"}},
		items: map[string][]plex.Item{"1": {
			{RatingKey: "rk-2", Title: "Stale", Type: "movie", ViewCount: 2},
		}},
	}

	ctrl := NewSyncController(db, server, &fakeMovieLister{}, &fakeSeriesLister{}, testLogger())
	result, err := ctrl.SyncLibrary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsSynced)
	assert.Equal(t, 0, result.ItemsCreated)

	got, err := db.GetMediaByPlexRatingKey("rk-2")
	require.NoError(t, err)
	assert.Equal(t, 2, got.PlayCount)
}

func TestSyncLibraryRetiresVanished(t *testing.T) {
	db := testDB(t)

	gone := createMedia(t, db, &models.Media{Title: "Gone", Type: models.MediaTypeMovie, PlexRatingKey: "rk-gone", ArrID: 77})
	queued := createMedia(t, db, &models.Media{Title: "Queued", Type: models.MediaTypeMovie, PlexRatingKey: "rk-queued", Status: models.StatusPendingDeletion})
	managed := createMedia(t, db, &models.Media{Title: "Still In Radarr", Type: models.MediaTypeMovie, PlexRatingKey: "rk-managed", ArrID: 88})

	server := &fakeMediaServer{sections: []plex.Section{{Key: "1", Title: "Movies", Type: "movie"}}}
	movies := &fakeMovieLister{movies: []radarr.Movie{{ID: 88, Title: "Still In Radarr"}}}

	ctrl := NewSyncController(db, server, movies, &fakeSeriesLister{}, testLogger())
	result, err := ctrl.SyncLibrary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ItemsRemoved)

	gotGone, err := db.GetMediaByID(gone.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, gotGone.Status)

	gotQueued, err := db.GetMediaByID(queued.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingDeletion, gotQueued.Status, "grace periods survive a sync")

	gotManaged, err := db.GetMediaByID(managed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusMonitored, gotManaged.Status)
}

func TestSyncLibrarySeriesMatch(t *testing.T) {
	db := testDB(t)

	server := &fakeMediaServer{
		sections: []plex.Section{{Key: "2", Title: "TV", Type: "show"}},
		items: map[string][]plex.Item{"2": {
			{RatingKey: "rk-s1", Title: "The Wire", Year: 2002, Type: "show", ViewCount: 10},
		}},
	}
	s := sonarr.Series{ID: 7, Title: "Wire", Year: 2002, TvdbID: 79126}
	s.Statistics.SizeOnDisk = 60_000_000_000
	shows := &fakeSeriesLister{series: []sonarr.Series{s}}

	ctrl := NewSyncController(db, server, &fakeMovieLister{}, shows, testLogger())
	_, err := ctrl.SyncLibrary(context.Background())
	require.NoError(t, err)

	got, err := db.GetMediaByPlexRatingKey("rk-s1")
	require.NoError(t, err)
	assert.Equal(t, models.MediaTypeShow, got.Type)
	assert.Equal(t, 7, got.ArrID)
	assert.Equal(t, 79126, got.TvdbID)
	assert.Equal(t, int64(60_000_000_000), got.FileSize)
}
