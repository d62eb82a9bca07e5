package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/alphamusic/apiserver/internal/services"
	"github.com/alphamusic/apiserver/internal/store"
	"github.com/alphamusic/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const testJWTSecret = "test-secret"

// memUserRepo is an in-memory stand-in for store.UserRepository.
type memUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int]types.User)}
}

func (r *memUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.users[user.ID] = user
	return user, nil
}

// memPlaylistRepo is an in-memory stand-in for store.PlaylistRepository. Its
// merge behavior mirrors the SQL repository: append-only songs, the
// four-entry image threshold, first-occurrence removal, and upserts scoped
// by owner.
type memPlaylistRepo struct {
	mu        sync.Mutex
	nextID    int
	playlists map[string]types.Playlist
}

func newMemPlaylistRepo() *memPlaylistRepo {
	return &memPlaylistRepo{playlists: make(map[string]types.Playlist)}
}

func (r *memPlaylistRepo) Create(_ context.Context, playlist types.Playlist) (types.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.playlists[playlist.PlaylistID]; ok {
		return types.Playlist{}, store.ErrDuplicate
	}
	r.nextID++
	playlist.ID = r.nextID
	now := time.Now()
	playlist.CreatedAt = now
	playlist.UpdatedAt = now
	r.playlists[playlist.PlaylistID] = playlist
	return playlist, nil
}

func (r *memPlaylistRepo) ListByOwner(_ context.Context, ownerID int) ([]types.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]types.Playlist, 0)
	for _, playlist := range r.playlists {
		if playlist.OwnerID == ownerID {
			result = append(result, playlist)
		}
	}
	sortPlaylists(result)
	return result, nil
}

func (r *memPlaylistRepo) ListAll(_ context.Context) ([]types.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]types.Playlist, 0, len(r.playlists))
	for _, playlist := range r.playlists {
		result = append(result, playlist)
	}
	sortPlaylists(result)
	return result, nil
}

func (r *memPlaylistRepo) GetByID(_ context.Context, ownerID int, playlistID string) (types.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[playlistID]
	if !ok || playlist.OwnerID != ownerID {
		return types.Playlist{}, store.ErrNotFound
	}
	return playlist, nil
}

func (r *memPlaylistRepo) FindBySong(_ context.Context, ownerID int, songID string) ([]types.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]types.Playlist, 0)
	for _, playlist := range r.playlists {
		if playlist.OwnerID != ownerID {
			continue
		}
		for _, song := range playlist.Songs {
			if song == songID {
				result = append(result, playlist)
				break
			}
		}
	}
	sortPlaylists(result)
	return result, nil
}

func (r *memPlaylistRepo) Delete(_ context.Context, ownerID int, playlistID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[playlistID]
	if ok && playlist.OwnerID == ownerID {
		delete(r.playlists, playlistID)
	}
	return nil
}

func (r *memPlaylistRepo) AddSongs(_ context.Context, ownerID int, playlistID string, songs, imageURLs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[playlistID]
	if !ok {
		r.nextID++
		now := time.Now()
		r.playlists[playlistID] = types.Playlist{
			ID:         r.nextID,
			PlaylistID: playlistID,
			OwnerID:    ownerID,
			Songs:      append([]string{}, songs...),
			ImageURLs:  append([]string{}, imageURLs...),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return nil
	}
	if playlist.OwnerID != ownerID {
		return store.ErrNotFound
	}
	playlist.Songs = append(playlist.Songs, songs...)
	if len(imageURLs) >= 4 {
		playlist.ImageURLs = append([]string{}, imageURLs...)
	} else {
		playlist.ImageURLs = append(playlist.ImageURLs, imageURLs...)
	}
	playlist.UpdatedAt = time.Now()
	r.playlists[playlistID] = playlist
	return nil
}

func (r *memPlaylistRepo) RemoveSong(_ context.Context, ownerID int, playlistID, song, imageURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[playlistID]
	if !ok || playlist.OwnerID != ownerID {
		return nil
	}
	for i, existing := range playlist.Songs {
		if existing == song {
			playlist.Songs = append(playlist.Songs[:i], playlist.Songs[i+1:]...)
			break
		}
	}
	images := make([]string, 0, len(playlist.ImageURLs))
	for _, img := range playlist.ImageURLs {
		if img != imageURL {
			images = append(images, img)
		}
	}
	playlist.ImageURLs = images
	playlist.UpdatedAt = time.Now()
	r.playlists[playlistID] = playlist
	return nil
}

func (r *memPlaylistRepo) Update(_ context.Context, ownerID int, playlistID string, name, description, imageBlob, imageURL *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	playlist, ok := r.playlists[playlistID]
	if !ok || playlist.OwnerID != ownerID {
		return store.ErrNotFound
	}
	if name != nil {
		playlist.Name = *name
	}
	if description != nil {
		playlist.Description = *description
	}
	switch {
	case imageBlob != nil:
		playlist.ImageURLs = []string{*imageBlob}
	case imageURL != nil:
		playlist.ImageURLs = append(playlist.ImageURLs, *imageURL)
	}
	playlist.UpdatedAt = time.Now()
	r.playlists[playlistID] = playlist
	return nil
}

// memFavoriteRepo is an in-memory stand-in for store.FavoriteRepository.
type memFavoriteRepo struct {
	mu        sync.Mutex
	nextID    int
	favorites map[int]map[string]types.Favorite
}

func newMemFavoriteRepo() *memFavoriteRepo {
	return &memFavoriteRepo{favorites: make(map[int]map[string]types.Favorite)}
}

func (r *memFavoriteRepo) Get(_ context.Context, userID int, playlistID string) (types.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	favorite, ok := r.favorites[userID][playlistID]
	if !ok {
		return types.Favorite{}, store.ErrNotFound
	}
	return favorite, nil
}

func (r *memFavoriteRepo) Create(_ context.Context, favorite types.Favorite) (types.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.favorites[favorite.UserID][favorite.PlaylistID]; ok {
		return types.Favorite{}, store.ErrDuplicate
	}
	if r.favorites[favorite.UserID] == nil {
		r.favorites[favorite.UserID] = make(map[string]types.Favorite)
	}
	r.nextID++
	favorite.ID = r.nextID
	favorite.CreatedAt = time.Now()
	r.favorites[favorite.UserID][favorite.PlaylistID] = favorite
	return favorite, nil
}

func (r *memFavoriteRepo) Delete(_ context.Context, userID int, playlistID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.favorites[userID][playlistID]; !ok {
		return store.ErrNotFound
	}
	delete(r.favorites[userID], playlistID)
	return nil
}

func (r *memFavoriteRepo) ListByUser(_ context.Context, userID int) ([]types.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]types.Favorite, 0, len(r.favorites[userID]))
	for _, favorite := range r.favorites[userID] {
		result = append(result, favorite)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func sortPlaylists(playlists []types.Playlist) {
	sort.Slice(playlists, func(i, j int) bool { return playlists[i].ID < playlists[j].ID })
}

// newTestRouter wires the API router over in-memory repositories, mirroring
// the construction in internal/server.
func newTestRouter() *chi.Mux {
	userService := services.NewUserService(newMemUserRepo())
	playlistService := services.NewPlaylistService(newMemPlaylistRepo(), nil)
	favoriteService := services.NewFavoriteService(newMemFavoriteRepo(), nil)

	authMiddleware := RequireAuth(testJWTSecret)

	router := chi.NewRouter()
	router.Get("/", Root)
	router.Get("/healthz", Healthz)
	router.Route("/api", func(r chi.Router) {
		AuthRouter(r, userService, testJWTSecret)
		PlaylistRouter(r, playlistService, nil, authMiddleware)
		FavoriteRouter(r, favoriteService, authMiddleware)
	})
	return router
}

func authHeader(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}
