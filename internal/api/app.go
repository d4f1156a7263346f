package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/gorilla/handlers"
	"github.com/npezzotti/blend/internal/blend"
	"github.com/npezzotti/blend/internal/config"
	"github.com/npezzotti/blend/internal/database"
	"github.com/npezzotti/blend/internal/server"
	"github.com/rs/zerolog"
)

type BlendApp struct {
	log            zerolog.Logger
	db             database.BlendRepository
	svc            *blend.Service
	cs             *server.ChatServer
	metrics        http.Handler
	signingKey     []byte
	allowedOrigins []string
	rateLimit      int
	srv            *http.Server
}

// NewBlendApp builds the HTTP server. metrics may be nil, in which case
// /metrics is not served.
func NewBlendApp(
	logger zerolog.Logger,
	cfg *config.Config,
	db database.BlendRepository,
	svc *blend.Service,
	cs *server.ChatServer,
	metrics http.Handler,
) *BlendApp {
	s := &BlendApp{
		log:            logger.With().Str("component", "api").Logger(),
		db:             db,
		svc:            svc,
		cs:             cs,
		metrics:        metrics,
		signingKey:     cfg.Auth.SigningKey,
		allowedOrigins: cfg.Server.AllowedOrigins,
		rateLimit:      cfg.Server.RateLimit,
	}

	s.srv = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *BlendApp) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.errorHandler)

	r.Get("/healthz", s.healthCheck)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	r.With(s.authMiddleware).Get("/ws", s.serveWs)

	r.Route("/api", func(r chi.Router) {
		if s.rateLimit > 0 {
			r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))
		}
		r.Use(s.authMiddleware)

		r.Route("/blend/rooms", func(r chi.Router) {
			r.Post("/", s.createRoom)
			r.Route("/{roomId}", func(r chi.Router) {
				r.Get("/", s.getRoom)
				r.Post("/join", s.joinRoom)
				r.Post("/leave", s.leaveRoom)
				r.Post("/messages", s.postMessage)
				r.Post("/playlists", s.addPlaylist)
				r.Put("/playlists/{playlistId}", s.updatePlaylist)
				r.Delete("/playlists/{playlistId}", s.deletePlaylist)
				r.Post("/playlists/{playlistId}/movies", s.addMovie)
				r.Delete("/playlists/{playlistId}/movies/{movieId}", s.deleteMovie)
				r.Get("/recommendations", s.recommendations)
				r.Post("/recommendations/ai", s.suggestTitles)
			})
		})

		r.Route("/invites", func(r chi.Router) {
			r.Get("/", s.pendingInvites)
			r.Post("/", s.sendInvite)
			r.Post("/{inviteId}/respond", s.respondInvite)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", s.userPlaylists)
			r.Post("/", s.createUserPlaylist)
			r.Delete("/{playlistId}", s.deleteUserPlaylist)
			r.Post("/{playlistId}/movies", s.addUserPlaylistMovie)
			r.Delete("/{playlistId}/movies/{movieId}", s.deleteUserPlaylistMovie)
		})

		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", s.favorites)
			r.Post("/", s.addFavorite)
			r.Delete("/{movieId}", s.removeFavorite)
		})
	})

	return handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(s.allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(r)
}

func (s *BlendApp) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("starting server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *BlendApp) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
