package handlers

import "net/http"

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Root summarises the API for unauthenticated callers.
func Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "OK",
		"message": "API is running",
		"version": "1.0.0",
		"endpoints": map[string][]string{
			"auth": {"/api/register", "/api/login"},
			"playlists": {
				"/api/create/playlist",
				"/api/all/playlist",
				"/api/playlists",
			},
			"favorites": {
				"/api/playlists/favorite",
				"/api/playlists/unfavorite/:id",
				"/api/playlists/favorites",
			},
		},
	})
}
