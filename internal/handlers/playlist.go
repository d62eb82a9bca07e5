package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/alphamusic/apiserver/internal/services"
	"github.com/alphamusic/apiserver/internal/store"
	"github.com/alphamusic/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	maxMultipartMemory = 32 << 20
	maxCoverBytes      = 8 << 20
	formFieldImage     = "image"
	formFieldName      = "name"
	formFieldDesc      = "desc"
	formFieldImageURL  = "imageUrl"
)

// PlaylistHandler provides HTTP handlers for playlists.
type PlaylistHandler struct {
	playlistService *services.PlaylistService
	coverArchive    *services.CoverArchive
}

// NewPlaylistHandler constructs a handler with the provided dependencies.
func NewPlaylistHandler(playlistService *services.PlaylistService, coverArchive *services.CoverArchive) *PlaylistHandler {
	return &PlaylistHandler{
		playlistService: playlistService,
		coverArchive:    coverArchive,
	}
}

// PlaylistRouter registers playlist routes on the given router. The route
// shapes (including the slash-less id suffixes) are the de facto client
// contract and are kept as-is.
func PlaylistRouter(
	r chi.Router,
	playlistService *services.PlaylistService,
	coverArchive *services.CoverArchive,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewPlaylistHandler(playlistService, coverArchive)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/create/playlist", handler.CreatePlaylist)
		r.Get("/all/playlist", handler.ListPlaylists)
		r.Get("/playlist{playlistID}", handler.GetPlaylist)
		r.Delete("/remove/playlist{playlistID}", handler.DeletePlaylist)
		r.Post("/playlists/add/songs{playlistID}", handler.AddSongs)
		r.Post("/playlists/remove/songs{playlistID}", handler.RemoveSongs)
		r.Post("/playlists/update/playlist/{playlistID}", handler.UpdatePlaylist)
		r.Get("/playlists", handler.ListAllPlaylists)
		r.Get("/playlists/song/{songID}", handler.FindBySong)
	})
}

// CreatePlaylist creates an empty playlist owned by the caller.
func (h *PlaylistHandler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Playlist name is required")
		return
	}

	playlist, err := h.playlistService.Create(r.Context(), userID, req.Name, req.Description, req.ImageURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error to create playlist")
		return
	}

	writeJSON(w, http.StatusOK, CreatePlaylistResponse{
		Message:    "Playlist created successfully",
		PlaylistID: playlist.PlaylistID,
	})
}

// ListPlaylists returns the caller's playlists.
func (h *PlaylistHandler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	playlists, err := h.playlistService.ListByOwner(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching playlists")
		return
	}

	writeJSON(w, http.StatusOK, PlaylistListResponse{Playlist: playlists})
}

// GetPlaylist returns a single playlist owned by the caller.
func (h *PlaylistHandler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	playlistID := chi.URLParam(r, "playlistID")
	playlist, err := h.playlistService.GetByID(r.Context(), userID, playlistID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Playlist not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error fetching playlist")
		return
	}

	writeJSON(w, http.StatusOK, PlaylistListResponse{Playlist: []types.Playlist{playlist}})
}

// DeletePlaylist removes a playlist owned by the caller. Deleting a playlist
// that is already gone succeeds.
func (h *PlaylistHandler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	playlistID := chi.URLParam(r, "playlistID")
	if err := h.playlistService.Delete(r.Context(), userID, playlistID); err != nil {
		writeError(w, http.StatusInternalServerError, "Error removing playlist")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Playlist removed"})
}

// AddSongs appends songs to a playlist and merges the incoming image list.
func (h *PlaylistHandler) AddSongs(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req AddSongsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if len(req.Songs) == 0 {
		writeError(w, http.StatusBadRequest, "Songs are required")
		return
	}

	playlistID := chi.URLParam(r, "playlistID")
	if err := h.playlistService.AddSongs(r.Context(), userID, playlistID, req.Songs, req.ImageURLs); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Playlist not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error adding songs")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Songs added to playlist"})
}

// RemoveSongs removes the first occurrence of a song from a playlist along
// with exact matches of the supplied image reference. The call succeeds even
// when the playlist no longer exists.
func (h *PlaylistHandler) RemoveSongs(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req RemoveSongsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Song == "" {
		writeError(w, http.StatusBadRequest, "Songs are required")
		return
	}

	playlistID := chi.URLParam(r, "playlistID")
	if err := h.playlistService.RemoveSong(r.Context(), userID, playlistID, req.Song, req.ImageURL); err != nil {
		writeError(w, http.StatusInternalServerError, "Error removing songs")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Song removed from playlist"})
}

// UpdatePlaylist applies a partial update from a multipart form. Only
// supplied fields change. An uploaded image file replaces the image list
// with a single base64 blob; an image URL string is appended instead.
func (h *PlaylistHandler) UpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	playlistID := chi.URLParam(r, "playlistID")
	update := services.PlaylistUpdate{
		Name:        formValue(r.MultipartForm, formFieldName),
		Description: formValue(r.MultipartForm, formFieldDesc),
		ImageURL:    formValue(r.MultipartForm, formFieldImageURL),
	}

	cover, err := parseCoverFile(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if cover != nil {
		blob := fmt.Sprintf("data:%s;base64,%s", cover.ContentType, base64.StdEncoding.EncodeToString(cover.Data))
		update.ImageBlob = &blob
	}

	if err := h.playlistService.Update(r.Context(), userID, playlistID, update); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Playlist not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error updating playlist")
		return
	}

	// Archive originals only after the document update succeeded.
	if cover != nil {
		h.coverArchive.Archive(r.Context(), playlistID, cover.Filename, cover.Data, cover.ContentType)
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Playlist updated"})
}

// ListAllPlaylists returns every playlist regardless of owner.
func (h *PlaylistHandler) ListAllPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlistService.ListAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching playlists")
		return
	}

	writeJSON(w, http.StatusOK, playlists)
}

// FindBySong returns the caller's playlists containing the given song.
func (h *PlaylistHandler) FindBySong(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	songID := chi.URLParam(r, "songID")
	playlists, err := h.playlistService.FindBySong(r.Context(), userID, songID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching playlists")
		return
	}

	writeJSON(w, http.StatusOK, PlaylistListResponse{Playlist: playlists})
}

type CreatePlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"desc"`
	ImageURL    string `json:"imageUrl"`
}

type CreatePlaylistResponse struct {
	Message    string `json:"message"`
	PlaylistID string `json:"playlistId"`
}

type AddSongsRequest struct {
	Songs     []string `json:"songs"`
	ImageURLs []string `json:"imageUrl"`
}

type RemoveSongsRequest struct {
	Song     string `json:"songs"`
	ImageURL string `json:"imageUrl"`
}

// PlaylistListResponse wraps playlist results in the envelope clients expect.
type PlaylistListResponse struct {
	Playlist []types.Playlist `json:"playlist"`
}

// CoverFile represents an uploaded cover image.
type CoverFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// formValue returns a pointer to the field's value when the field was
// supplied, or nil when it was absent. An empty supplied value still counts.
func formValue(form *multipart.Form, field string) *string {
	if form == nil {
		return nil
	}
	values, ok := form.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	value := values[0]
	return &value
}

func parseCoverFile(form *multipart.Form) (*CoverFile, error) {
	if form == nil {
		return nil, nil
	}

	files := form.File[formFieldImage]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > 1 {
		return nil, errors.New("only one image file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	data, err := readFileLimited(file, maxCoverBytes)
	_ = file.Close()
	if err != nil {
		return nil, err
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &CoverFile{
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
