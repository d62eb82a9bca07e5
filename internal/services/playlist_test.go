package services

import (
	"context"
	"strings"
	"testing"

	"github.com/alphamusic/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPlaylistRepo struct {
	created []types.Playlist
}

func (r *recordingPlaylistRepo) Create(_ context.Context, playlist types.Playlist) (types.Playlist, error) {
	r.created = append(r.created, playlist)
	playlist.ID = len(r.created)
	return playlist, nil
}

func (r *recordingPlaylistRepo) ListByOwner(context.Context, int) ([]types.Playlist, error) {
	return nil, nil
}

func (r *recordingPlaylistRepo) ListAll(context.Context) ([]types.Playlist, error) { return nil, nil }

func (r *recordingPlaylistRepo) GetByID(context.Context, int, string) (types.Playlist, error) {
	return types.Playlist{}, nil
}

func (r *recordingPlaylistRepo) FindBySong(context.Context, int, string) ([]types.Playlist, error) {
	return nil, nil
}

func (r *recordingPlaylistRepo) Delete(context.Context, int, string) error { return nil }

func (r *recordingPlaylistRepo) AddSongs(context.Context, int, string, []string, []string) error {
	return nil
}

func (r *recordingPlaylistRepo) RemoveSong(context.Context, int, string, string, string) error {
	return nil
}

func (r *recordingPlaylistRepo) Update(context.Context, int, string, *string, *string, *string, *string) error {
	return nil
}

func TestCreateBuildsEmptyPlaylist(t *testing.T) {
	repo := &recordingPlaylistRepo{}
	service := NewPlaylistService(repo, nil)

	playlist, err := service.Create(context.Background(), 42, "Road Trip", "long drives", "")
	require.NoError(t, err)

	assert.Equal(t, 42, playlist.OwnerID)
	assert.Equal(t, "Road Trip", playlist.Name)
	assert.Equal(t, "long drives", playlist.Description)
	assert.Equal(t, []string{}, playlist.Songs)
	assert.Equal(t, []string{}, playlist.ImageURLs)
}

func TestCreateSeedsInitialImage(t *testing.T) {
	repo := &recordingPlaylistRepo{}
	service := NewPlaylistService(repo, nil)

	playlist, err := service.Create(context.Background(), 1, "Covers", "", "https://img.example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.example.com/a.png"}, playlist.ImageURLs)
}

func TestNewPlaylistIDFormat(t *testing.T) {
	id := newPlaylistID(42)
	require.True(t, strings.HasPrefix(id, "42-"), "id %q should carry the owner prefix", id)
	// The suffix is a UUID, so it is comfortably longer than the historical
	// four-digit random number.
	assert.Greater(t, len(id), len("42-")+30)
}

func TestNewPlaylistIDsDoNotCollide(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := newPlaylistID(1)
		require.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}
