package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alphamusic/apiserver/types"
)

// FavoriteRepository handles persistence for favorite snapshots. The
// (user_id, playlist_id) pair is unique; the database index is the final
// arbiter even when two requests race past the existence pre-check.
type FavoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

func (r *FavoriteRepository) Get(ctx context.Context, userID int, playlistID string) (types.Favorite, error) {
	const query = `
		SELECT id, user_id, playlist_id, name, image_url, url, song_count, type, created_at
		FROM favorites
		WHERE user_id = $1 AND playlist_id = $2`
	var favorite types.Favorite
	err := r.db.QueryRowContext(ctx, query, userID, playlistID).Scan(
		&favorite.ID,
		&favorite.UserID,
		&favorite.PlaylistID,
		&favorite.Name,
		&favorite.ImageURL,
		&favorite.URL,
		&favorite.SongCount,
		&favorite.Type,
		&favorite.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Favorite{}, ErrNotFound
		}
		return types.Favorite{}, err
	}
	return favorite, nil
}

func (r *FavoriteRepository) Create(ctx context.Context, favorite types.Favorite) (types.Favorite, error) {
	favorite.CreatedAt = time.Now()

	const query = `
		INSERT INTO favorites (user_id, playlist_id, name, image_url, url, song_count, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		favorite.UserID,
		favorite.PlaylistID,
		favorite.Name,
		favorite.ImageURL,
		favorite.URL,
		favorite.SongCount,
		favorite.Type,
		favorite.CreatedAt,
	).Scan(&favorite.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Favorite{}, ErrDuplicate
		}
		return types.Favorite{}, err
	}
	return favorite, nil
}

func (r *FavoriteRepository) Delete(ctx context.Context, userID int, playlistID string) error {
	const query = `DELETE FROM favorites WHERE user_id = $1 AND playlist_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, playlistID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, userID int) ([]types.Favorite, error) {
	const query = `
		SELECT id, user_id, playlist_id, name, image_url, url, song_count, type, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := make([]types.Favorite, 0)
	for rows.Next() {
		var favorite types.Favorite
		if err := rows.Scan(
			&favorite.ID,
			&favorite.UserID,
			&favorite.PlaylistID,
			&favorite.Name,
			&favorite.ImageURL,
			&favorite.URL,
			&favorite.SongCount,
			&favorite.Type,
			&favorite.CreatedAt,
		); err != nil {
			return nil, err
		}
		favorites = append(favorites, favorite)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return favorites, nil
}
