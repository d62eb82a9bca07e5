package types

import "time"

// Playlist is an owner-curated, ordered list of songs with optional cover
// images. Playlists are created, mutated, and deleted only by their owner.
type Playlist struct {
	// ID is the internal row identifier.
	ID int `json:"-" db:"id"`

	// PlaylistID is the external identifier handed to clients. It is formed
	// from the owner's id and a random suffix and is unique across owners.
	PlaylistID string `json:"playlistId" db:"playlist_id"`

	// OwnerID is the id of the user that owns the playlist.
	OwnerID int `json:"userId" db:"owner_id"`

	// Name is the display name of the playlist.
	Name string `json:"name" db:"name"`

	// Description is free-form text describing the playlist.
	Description string `json:"description" db:"description"`

	// ImageURLs holds cover image references in order. Entries are either
	// plain URLs or base64 data blobs.
	ImageURLs []string `json:"imageUrl" db:"image_urls"`

	// Songs holds song identifiers in insertion order. Duplicates are
	// permitted.
	Songs []string `json:"songs" db:"songs"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
