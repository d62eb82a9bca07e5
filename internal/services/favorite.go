package services

import (
	"context"
	"errors"

	"github.com/alphamusic/apiserver/internal/events"
	"github.com/alphamusic/apiserver/internal/store"
	"github.com/alphamusic/apiserver/types"
)

// FavoriteRepository defines persistence operations for favorite snapshots.
type FavoriteRepository interface {
	Get(ctx context.Context, userID int, playlistID string) (types.Favorite, error)
	Create(ctx context.Context, favorite types.Favorite) (types.Favorite, error)
	Delete(ctx context.Context, userID int, playlistID string) error
	ListByUser(ctx context.Context, userID int) ([]types.Favorite, error)
}

// FavoriteService encapsulates favorite use-cases. Each (user, playlist)
// pair is favorited at most once; the only transitions are absent to
// favorited via Add and favorited to absent via Remove.
type FavoriteService struct {
	repo      FavoriteRepository
	publisher *events.Publisher
}

func NewFavoriteService(repo FavoriteRepository, publisher *events.Publisher) *FavoriteService {
	return &FavoriteService{repo: repo, publisher: publisher}
}

// Add records a favorite snapshot. It returns store.ErrDuplicate when the
// pair is already favorited. The snapshot fields are stored as supplied and
// never refreshed from the source playlist.
func (s *FavoriteService) Add(ctx context.Context, favorite types.Favorite) (types.Favorite, error) {
	_, err := s.repo.Get(ctx, favorite.UserID, favorite.PlaylistID)
	if err == nil {
		return types.Favorite{}, store.ErrDuplicate
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.Favorite{}, err
	}

	created, err := s.repo.Create(ctx, favorite)
	if err != nil {
		return types.Favorite{}, err
	}
	s.publisher.Playlist(ctx, events.TypePlaylistFavorited, favorite.UserID, favorite.PlaylistID)
	return created, nil
}

// Remove deletes the favorite for the pair, returning store.ErrNotFound when
// no favorite existed.
func (s *FavoriteService) Remove(ctx context.Context, userID int, playlistID string) error {
	if err := s.repo.Delete(ctx, userID, playlistID); err != nil {
		return err
	}
	s.publisher.Playlist(ctx, events.TypePlaylistUnfavorited, userID, playlistID)
	return nil
}

func (s *FavoriteService) ListByUser(ctx context.Context, userID int) ([]types.Favorite, error) {
	return s.repo.ListByUser(ctx, userID)
}
