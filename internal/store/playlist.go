package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/alphamusic/apiserver/types"
)

// PlaylistRepository handles persistence for playlists. Array mutations are
// issued as single statements so concurrent writers cannot lose updates.
type PlaylistRepository struct {
	db *sql.DB
}

func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistColumns = `id, playlist_id, owner_id, name, description, image_urls, songs, created_at, updated_at`

func (r *PlaylistRepository) Create(ctx context.Context, playlist types.Playlist) (types.Playlist, error) {
	now := time.Now()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now

	imagesJSON, err := marshalStrings(playlist.ImageURLs)
	if err != nil {
		return types.Playlist{}, err
	}
	songsJSON, err := marshalStrings(playlist.Songs)
	if err != nil {
		return types.Playlist{}, err
	}

	const query = `
		INSERT INTO playlists (playlist_id, owner_id, name, description, image_urls, songs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		playlist.PlaylistID,
		playlist.OwnerID,
		playlist.Name,
		playlist.Description,
		imagesJSON,
		songsJSON,
		playlist.CreatedAt,
		playlist.UpdatedAt,
	).Scan(&playlist.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Playlist{}, ErrDuplicate
		}
		return types.Playlist{}, err
	}
	return playlist, nil
}

func (r *PlaylistRepository) ListByOwner(ctx context.Context, ownerID int) ([]types.Playlist, error) {
	const query = `
		SELECT ` + playlistColumns + `
		FROM playlists
		WHERE owner_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlaylists(rows)
}

// ListAll returns every playlist regardless of owner. Kept as an unscoped
// admin-style capability pending product clarification.
func (r *PlaylistRepository) ListAll(ctx context.Context) ([]types.Playlist, error) {
	const query = `
		SELECT ` + playlistColumns + `
		FROM playlists
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlaylists(rows)
}

func (r *PlaylistRepository) GetByID(ctx context.Context, ownerID int, playlistID string) (types.Playlist, error) {
	const query = `
		SELECT ` + playlistColumns + `
		FROM playlists
		WHERE owner_id = $1 AND playlist_id = $2`
	row := r.db.QueryRowContext(ctx, query, ownerID, playlistID)
	playlist, err := scanPlaylist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Playlist{}, ErrNotFound
		}
		return types.Playlist{}, err
	}
	return playlist, nil
}

func (r *PlaylistRepository) FindBySong(ctx context.Context, ownerID int, songID string) ([]types.Playlist, error) {
	const query = `
		SELECT ` + playlistColumns + `
		FROM playlists
		WHERE owner_id = $1 AND songs ? $2
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, ownerID, songID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlaylists(rows)
}

// Delete removes the playlist matching both owner and playlist id. Matching
// zero rows is not an error.
func (r *PlaylistRepository) Delete(ctx context.Context, ownerID int, playlistID string) error {
	const query = `DELETE FROM playlists WHERE owner_id = $1 AND playlist_id = $2`
	_, err := r.db.ExecContext(ctx, query, ownerID, playlistID)
	return err
}

// AddSongs appends songs to the playlist's song list and merges the incoming
// image list. An incoming image list with fewer than four entries is appended
// to the existing list; four or more replaces it outright. A missing playlist
// is implicitly created with the merged fields (upsert). Returns ErrNotFound
// when the playlist id exists but belongs to another owner.
func (r *PlaylistRepository) AddSongs(ctx context.Context, ownerID int, playlistID string, songs, imageURLs []string) error {
	songsJSON, err := marshalStrings(songs)
	if err != nil {
		return err
	}
	imagesJSON, err := marshalStrings(imageURLs)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO playlists (playlist_id, owner_id, name, description, image_urls, songs, created_at, updated_at)
		VALUES ($1, $2, '', '', $3, $4, $5, $5)
		ON CONFLICT (playlist_id) DO UPDATE
		SET songs = playlists.songs || EXCLUDED.songs,
			image_urls = CASE
				WHEN jsonb_array_length(EXCLUDED.image_urls) >= 4 THEN EXCLUDED.image_urls
				ELSE playlists.image_urls || EXCLUDED.image_urls
			END,
			updated_at = EXCLUDED.updated_at
		WHERE playlists.owner_id = EXCLUDED.owner_id`
	result, err := r.db.ExecContext(ctx, query, playlistID, ownerID, imagesJSON, songsJSON, time.Now())
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

// RemoveSong drops the first occurrence of song from the song list and every
// exact match of imageURL from the image list. A missing playlist is a no-op.
func (r *PlaylistRepository) RemoveSong(ctx context.Context, ownerID int, playlistID, song, imageURL string) error {
	const query = `
		UPDATE playlists
		SET songs = COALESCE((
				SELECT jsonb_agg(s.elem ORDER BY s.ord)
				FROM jsonb_array_elements(songs) WITH ORDINALITY AS s(elem, ord)
				WHERE s.ord IS DISTINCT FROM (
					SELECT MIN(m.ord)
					FROM jsonb_array_elements(songs) WITH ORDINALITY AS m(elem, ord)
					WHERE m.elem = to_jsonb($3::text)
				)
			), '[]'::jsonb),
			image_urls = COALESCE((
				SELECT jsonb_agg(i.img ORDER BY i.ord)
				FROM jsonb_array_elements(image_urls) WITH ORDINALITY AS i(img, ord)
				WHERE i.img <> to_jsonb($4::text)
			), '[]'::jsonb),
			updated_at = $5
		WHERE owner_id = $1 AND playlist_id = $2`
	_, err := r.db.ExecContext(ctx, query, ownerID, playlistID, song, imageURL, time.Now())
	return err
}

// Update applies a partial update; nil fields are left untouched. An image
// blob replaces the image list with that single entry, an image URL is
// appended. Returns ErrNotFound when the playlist does not exist.
func (r *PlaylistRepository) Update(ctx context.Context, ownerID int, playlistID string, name, description, imageBlob, imageURL *string) error {
	const query = `
		UPDATE playlists
		SET name = COALESCE($3, name),
			description = COALESCE($4, description),
			image_urls = CASE
				WHEN $5::text IS NOT NULL THEN jsonb_build_array($5::text)
				WHEN $6::text IS NOT NULL THEN image_urls || to_jsonb($6::text)
				ELSE image_urls
			END,
			updated_at = $7
		WHERE owner_id = $1 AND playlist_id = $2`
	result, err := r.db.ExecContext(ctx, query, ownerID, playlistID, name, description, imageBlob, imageURL, time.Now())
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

func scanPlaylist(row *sql.Row) (types.Playlist, error) {
	var playlist types.Playlist
	var imagesJSON, songsJSON []byte
	err := row.Scan(
		&playlist.ID,
		&playlist.PlaylistID,
		&playlist.OwnerID,
		&playlist.Name,
		&playlist.Description,
		&imagesJSON,
		&songsJSON,
		&playlist.CreatedAt,
		&playlist.UpdatedAt,
	)
	if err != nil {
		return types.Playlist{}, err
	}
	_ = json.Unmarshal(imagesJSON, &playlist.ImageURLs)
	_ = json.Unmarshal(songsJSON, &playlist.Songs)
	return playlist, nil
}

func scanPlaylists(rows *sql.Rows) ([]types.Playlist, error) {
	playlists := make([]types.Playlist, 0)
	for rows.Next() {
		var playlist types.Playlist
		var imagesJSON, songsJSON []byte
		if err := rows.Scan(
			&playlist.ID,
			&playlist.PlaylistID,
			&playlist.OwnerID,
			&playlist.Name,
			&playlist.Description,
			&imagesJSON,
			&songsJSON,
			&playlist.CreatedAt,
			&playlist.UpdatedAt,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(imagesJSON, &playlist.ImageURLs)
		_ = json.Unmarshal(songsJSON, &playlist.Songs)
		playlists = append(playlists, playlist)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return playlists, nil
}

// marshalStrings renders a string slice as a JSON array, never as null.
func marshalStrings(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}
