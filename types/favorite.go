package types

import "time"

// Favorite is a denormalized snapshot of a playlist a user has flagged as a
// favorite. Display fields are copied in at favorite-time and never refreshed
// from the source playlist. The (UserID, PlaylistID) pair is unique.
type Favorite struct {
	// ID is the internal row identifier.
	ID int `json:"-" db:"id"`

	// UserID is the id of the user that favorited the playlist.
	UserID int `json:"userId" db:"user_id"`

	// PlaylistID identifies the favorited playlist. It is not required to
	// reference a playlist managed by this service.
	PlaylistID string `json:"playlistId" db:"playlist_id"`

	Name      string    `json:"name" db:"name"`
	ImageURL  string    `json:"imageUrl" db:"image_url"`
	URL       string    `json:"url" db:"url"`
	SongCount int       `json:"songCount" db:"song_count"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// FavoriteView is the projection returned by the favorites listing.
type FavoriteView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	ImageURL  string `json:"imageUrl"`
	SongCount int    `json:"songCount"`
	Type      string `json:"type"`
}
