package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alphamusic/apiserver/internal/services"
	"github.com/alphamusic/apiserver/internal/store"
	"github.com/alphamusic/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// FavoriteHandler provides HTTP handlers for favorite snapshots.
type FavoriteHandler struct {
	favoriteService *services.FavoriteService
}

// NewFavoriteHandler constructs a handler with the provided service.
func NewFavoriteHandler(favoriteService *services.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favoriteService: favoriteService}
}

// FavoriteRouter registers favorite routes on the given router.
func FavoriteRouter(
	r chi.Router,
	favoriteService *services.FavoriteService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewFavoriteHandler(favoriteService)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/playlists/favorite", handler.AddFavorite)
		r.Delete("/playlists/unfavorite/{playlistID}", handler.RemoveFavorite)
		r.Get("/playlists/favorites", handler.ListFavorites)
	})
}

// AddFavorite records a snapshot of a playlist in the caller's favorites.
// Favoriting the same playlist twice is rejected, not merged.
func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req FavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.PlaylistID = strings.TrimSpace(req.PlaylistID)
	if req.PlaylistID == "" || req.Name == "" || req.URL == "" || req.ImageURL == "" || req.SongCount == 0 {
		writeError(w, http.StatusBadRequest, "Missing required playlist fields (name, url, songCount, imageUrl, playlistId)")
		return
	}

	_, err = h.favoriteService.Add(r.Context(), types.Favorite{
		UserID:     userID,
		PlaylistID: req.PlaylistID,
		Name:       req.Name,
		ImageURL:   req.ImageURL,
		URL:        req.URL,
		SongCount:  req.SongCount,
		Type:       req.Type,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "Playlist already in favorites")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error adding to favorites")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Added to favorites"})
}

// RemoveFavorite deletes a favorite from the caller's list.
func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	playlistID := chi.URLParam(r, "playlistID")
	if err := h.favoriteService.Remove(r.Context(), userID, playlistID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Playlist not found in favorites")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error removing from favorites")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Removed from favorites"})
}

// ListFavorites returns the caller's favorite snapshots. Fields reflect the
// playlists as they were at favorite-time, not their current state.
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	favorites, err := h.favoriteService.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching favorites")
		return
	}

	views := make([]types.FavoriteView, 0, len(favorites))
	for _, favorite := range favorites {
		views = append(views, types.FavoriteView{
			ID:        favorite.PlaylistID,
			Name:      favorite.Name,
			URL:       favorite.URL,
			ImageURL:  favorite.ImageURL,
			SongCount: favorite.SongCount,
			Type:      favorite.Type,
		})
	}

	writeJSON(w, http.StatusOK, views)
}

type FavoriteRequest struct {
	PlaylistID string `json:"playlistId"`
	Name       string `json:"name"`
	ImageURL   string `json:"imageUrl"`
	URL        string `json:"url"`
	SongCount  int    `json:"songCount"`
	Type       string `json:"type"`
}
