package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alphamusic/apiserver/config"
	"github.com/alphamusic/apiserver/internal/db"
	"github.com/alphamusic/apiserver/internal/events"
	"github.com/alphamusic/apiserver/internal/handlers"
	"github.com/alphamusic/apiserver/internal/mq"
	"github.com/alphamusic/apiserver/internal/services"
	"github.com/alphamusic/apiserver/internal/storage"
	"github.com/alphamusic/apiserver/internal/store"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server, router, and long-lived clients. All
// dependencies are constructed here once and injected down the stack; no
// package holds a global connection handle.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	logger     *log.Logger
}

// New constructs a Server with its full dependency graph. A database that
// cannot be reached is a fatal construction error; object storage and the
// message broker are optional and only built when configured.
func New(ctx context.Context, cfg config.Config, logger *log.Logger) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	coverStorage, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	queue, err := newQueue(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	var publisher *events.Publisher
	if queue != nil {
		publisher = events.NewPublisher(queue, logger)
	}
	var coverArchive *services.CoverArchive
	if coverStorage != nil {
		coverArchive = services.NewCoverArchive(coverStorage, logger)
	}

	userRepo := store.NewUserRepository(dbConn)
	playlistRepo := store.NewPlaylistRepository(dbConn)
	favoriteRepo := store.NewFavoriteRepository(dbConn)

	userService := services.NewUserService(userRepo)
	playlistService := services.NewPlaylistService(playlistRepo, publisher)
	favoriteService := services.NewFavoriteService(favoriteRepo, publisher)

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/", handlers.Root)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, userService, jwtSecret)
		handlers.PlaylistRouter(r, playlistService, coverArchive, authMiddleware)
		handlers.FavoriteRouter(r, favoriteService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 5000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	if s.logger != nil {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown closes the HTTP server and every long-lived client.
func (s *Server) Shutdown() error {
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		st := storage.NewStorage(client)
		if err := st.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return st, nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		st := storage.NewStorage(client)
		if err := st.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func newQueue(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}
