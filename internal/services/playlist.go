package services

import (
	"context"
	"fmt"

	"github.com/alphamusic/apiserver/internal/events"
	"github.com/alphamusic/apiserver/types"
	"github.com/google/uuid"
)

// PlaylistRepository defines persistence operations for playlists.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist types.Playlist) (types.Playlist, error)
	ListByOwner(ctx context.Context, ownerID int) ([]types.Playlist, error)
	ListAll(ctx context.Context) ([]types.Playlist, error)
	GetByID(ctx context.Context, ownerID int, playlistID string) (types.Playlist, error)
	FindBySong(ctx context.Context, ownerID int, songID string) ([]types.Playlist, error)
	Delete(ctx context.Context, ownerID int, playlistID string) error
	AddSongs(ctx context.Context, ownerID int, playlistID string, songs, imageURLs []string) error
	RemoveSong(ctx context.Context, ownerID int, playlistID, song, imageURL string) error
	Update(ctx context.Context, ownerID int, playlistID string, name, description, imageBlob, imageURL *string) error
}

// PlaylistService encapsulates playlist use-cases.
type PlaylistService struct {
	repo      PlaylistRepository
	publisher *events.Publisher
}

func NewPlaylistService(repo PlaylistRepository, publisher *events.Publisher) *PlaylistService {
	return &PlaylistService{repo: repo, publisher: publisher}
}

// Create builds a new playlist for ownerID with an empty song list. The
// playlist id carries the owner id plus a random suffix; the suffix is a
// UUID so ids never collide, not the historical 0-9999 number.
func (s *PlaylistService) Create(ctx context.Context, ownerID int, name, description, imageURL string) (types.Playlist, error) {
	playlist := types.Playlist{
		PlaylistID:  newPlaylistID(ownerID),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Songs:       []string{},
		ImageURLs:   []string{},
	}
	if imageURL != "" {
		playlist.ImageURLs = []string{imageURL}
	}

	created, err := s.repo.Create(ctx, playlist)
	if err != nil {
		return types.Playlist{}, err
	}
	s.publisher.Playlist(ctx, events.TypePlaylistCreated, ownerID, created.PlaylistID)
	return created, nil
}

func (s *PlaylistService) ListByOwner(ctx context.Context, ownerID int) ([]types.Playlist, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *PlaylistService) ListAll(ctx context.Context) ([]types.Playlist, error) {
	return s.repo.ListAll(ctx)
}

func (s *PlaylistService) GetByID(ctx context.Context, ownerID int, playlistID string) (types.Playlist, error) {
	return s.repo.GetByID(ctx, ownerID, playlistID)
}

func (s *PlaylistService) FindBySong(ctx context.Context, ownerID int, songID string) ([]types.Playlist, error) {
	return s.repo.FindBySong(ctx, ownerID, songID)
}

func (s *PlaylistService) Delete(ctx context.Context, ownerID int, playlistID string) error {
	if err := s.repo.Delete(ctx, ownerID, playlistID); err != nil {
		return err
	}
	s.publisher.Playlist(ctx, events.TypePlaylistDeleted, ownerID, playlistID)
	return nil
}

func (s *PlaylistService) AddSongs(ctx context.Context, ownerID int, playlistID string, songs, imageURLs []string) error {
	return s.repo.AddSongs(ctx, ownerID, playlistID, songs, imageURLs)
}

func (s *PlaylistService) RemoveSong(ctx context.Context, ownerID int, playlistID, song, imageURL string) error {
	return s.repo.RemoveSong(ctx, ownerID, playlistID, song, imageURL)
}

// PlaylistUpdate carries the optional fields of a partial playlist update.
// ImageBlob and ImageURL are not validated as mutually exclusive; when both
// are set the blob wins.
type PlaylistUpdate struct {
	Name        *string
	Description *string
	ImageBlob   *string
	ImageURL    *string
}

func (s *PlaylistService) Update(ctx context.Context, ownerID int, playlistID string, update PlaylistUpdate) error {
	return s.repo.Update(ctx, ownerID, playlistID, update.Name, update.Description, update.ImageBlob, update.ImageURL)
}

func newPlaylistID(ownerID int) string {
	return fmt.Sprintf("%d-%s", ownerID, uuid.NewString())
}
