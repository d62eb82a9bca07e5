//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alphamusic/apiserver/config"
	"github.com/alphamusic/apiserver/internal/logging"
	"github.com/alphamusic/apiserver/internal/server"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestPlaylistLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("alice_%d@example.com", time.Now().UnixNano())

	token, err := registerUser(baseURL, email, "secret123")
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	playlistID, err := createPlaylist(baseURL, token, "Road Trip")
	if err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	if err := addSongs(baseURL, token, playlistID, []string{"song-1", "song-2"}, []string{"img-1"}); err != nil {
		t.Fatalf("add songs: %v", err)
	}

	playlist, err := getPlaylist(baseURL, token, playlistID)
	if err != nil {
		t.Fatalf("get playlist: %v", err)
	}
	if len(playlist.Songs) != 2 || playlist.Songs[0] != "song-1" || playlist.Songs[1] != "song-2" {
		t.Fatalf("unexpected songs after add: %v", playlist.Songs)
	}

	if err := updatePlaylist(baseURL, token, playlistID, "Long Road Trip"); err != nil {
		t.Fatalf("update playlist: %v", err)
	}
	playlist, err = getPlaylist(baseURL, token, playlistID)
	if err != nil {
		t.Fatalf("get playlist after update: %v", err)
	}
	if playlist.Name != "Long Road Trip" {
		t.Fatalf("unexpected playlist name after update: %q", playlist.Name)
	}

	if err := removeSong(baseURL, token, playlistID, "song-1", "img-1"); err != nil {
		t.Fatalf("remove song: %v", err)
	}
	playlist, err = getPlaylist(baseURL, token, playlistID)
	if err != nil {
		t.Fatalf("get playlist after remove: %v", err)
	}
	if len(playlist.Songs) != 1 || playlist.Songs[0] != "song-2" {
		t.Fatalf("unexpected songs after remove: %v", playlist.Songs)
	}

	if err := favoritePlaylist(baseURL, token, playlistID, playlist.Name, len(playlist.Songs)); err != nil {
		t.Fatalf("favorite playlist: %v", err)
	}
	favorites, err := listFavorites(baseURL, token)
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(favorites) != 1 || favorites[0].ID != playlistID {
		t.Fatalf("unexpected favorites: %+v", favorites)
	}

	if err := unfavoritePlaylist(baseURL, token, playlistID); err != nil {
		t.Fatalf("unfavorite playlist: %v", err)
	}
	favorites, err = listFavorites(baseURL, token)
	if err != nil {
		t.Fatalf("list favorites after removal: %v", err)
	}
	if len(favorites) != 0 {
		t.Fatalf("expected no favorites, got %+v", favorites)
	}

	if err := deletePlaylist(baseURL, token, playlistID); err != nil {
		t.Fatalf("delete playlist: %v", err)
	}
	if err := expectPlaylistNotFound(baseURL, token, playlistID); err != nil {
		t.Fatalf("expected deleted playlist to be missing: %v", err)
	}
}

type authResponse struct {
	Token string `json:"token"`
}

type playlistResponse struct {
	PlaylistID string   `json:"playlistId"`
	Name       string   `json:"name"`
	Songs      []string `json:"songs"`
	ImageURLs  []string `json:"imageUrl"`
}

type playlistEnvelope struct {
	Playlist []playlistResponse `json:"playlist"`
}

type favoriteView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SongCount int    `json:"songCount"`
}

func registerUser(baseURL, email, password string) (string, error) {
	payload := map[string]string{
		"email":    email,
		"name":     "Test User",
		"password": password,
	}

	var parsed authResponse
	if err := postJSON(baseURL+"/api/register", "", payload, &parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("missing token in register response")
	}
	return parsed.Token, nil
}

func createPlaylist(baseURL, token, name string) (string, error) {
	payload := map[string]string{
		"name": name,
		"desc": "cross-country driving songs",
	}

	var parsed struct {
		PlaylistID string `json:"playlistId"`
	}
	if err := postJSON(baseURL+"/api/create/playlist", token, payload, &parsed); err != nil {
		return "", err
	}
	if parsed.PlaylistID == "" {
		return "", fmt.Errorf("missing playlist id in create response")
	}
	return parsed.PlaylistID, nil
}

func addSongs(baseURL, token, playlistID string, songs, images []string) error {
	payload := map[string]any{
		"songs":    songs,
		"imageUrl": images,
	}
	return postJSON(baseURL+"/api/playlists/add/songs"+playlistID, token, payload, nil)
}

func removeSong(baseURL, token, playlistID, song, imageURL string) error {
	payload := map[string]string{
		"songs":    song,
		"imageUrl": imageURL,
	}
	return postJSON(baseURL+"/api/playlists/remove/songs"+playlistID, token, payload, nil)
}

func updatePlaylist(baseURL, token, playlistID, name string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("name", name); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/playlists/update/playlist/"+playlistID, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return doExpectOK(req, nil)
}

func getPlaylist(baseURL, token, playlistID string) (playlistResponse, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/playlist"+playlistID, nil)
	if err != nil {
		return playlistResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var parsed playlistEnvelope
	if err := doExpectOK(req, &parsed); err != nil {
		return playlistResponse{}, err
	}
	if len(parsed.Playlist) != 1 {
		return playlistResponse{}, fmt.Errorf("expected one playlist, got %d", len(parsed.Playlist))
	}
	return parsed.Playlist[0], nil
}

func deletePlaylist(baseURL, token, playlistID string) error {
	req, err := http.NewRequest(http.MethodDelete, baseURL+"/api/remove/playlist"+playlistID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return doExpectOK(req, nil)
}

func expectPlaylistNotFound(baseURL, token, playlistID string) error {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/playlist"+playlistID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("expected 404 after delete, got %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func favoritePlaylist(baseURL, token, playlistID, name string, songCount int) error {
	payload := map[string]any{
		"playlistId": playlistID,
		"name":       name,
		"url":        baseURL + "/api/playlist" + playlistID,
		"imageUrl":   "https://img.example.com/cover.png",
		"songCount":  songCount,
		"type":       "playlist",
	}
	return postJSON(baseURL+"/api/playlists/favorite", token, payload, nil)
}

func unfavoritePlaylist(baseURL, token, playlistID string) error {
	req, err := http.NewRequest(http.MethodDelete, baseURL+"/api/playlists/unfavorite/"+playlistID, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return doExpectOK(req, nil)
}

func listFavorites(baseURL, token string) ([]favoriteView, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/api/playlists/favorites", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var parsed []favoriteView
	if err := doExpectOK(req, &parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func postJSON(url, token string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return doExpectOK(req, out)
}

func doExpectOK(req *http.Request, out any) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func buildPostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	host := fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		host,
		cfg.Database.DBName,
		sslmode,
	)
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "alphamusic")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "alphamusic_db")
	_ = os.Setenv("DB_USE_SSL", "false")

	cfg := config.LoadConfig()
	logger := logging.NewLogger(os.Stderr)
	srv, err := server.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
