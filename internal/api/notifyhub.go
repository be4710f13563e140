package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/supchat-io/notifyhub/internal/config"
	"github.com/supchat-io/notifyhub/internal/counter"
	"github.com/supchat-io/notifyhub/internal/dispatch"
	"github.com/supchat-io/notifyhub/internal/hub"
	"github.com/supchat-io/notifyhub/internal/prefs"
	"github.com/supchat-io/notifyhub/internal/stats"
	"github.com/supchat-io/notifyhub/internal/store"
)

type NotifyApp struct {
	log            *log.Logger
	repo           store.NotifyRepository
	counters       counter.Store
	hub            *hub.Hub
	dispatcher     *dispatch.Dispatcher
	prefs          *prefs.Service
	stats          stats.StatsProvider
	mux            *http.Server
	signingKey     []byte
	allowedOrigins []string
}

func NewNotifyApp(mux *http.ServeMux, logger *log.Logger, h *hub.Hub, d *dispatch.Dispatcher,
	repo store.NotifyRepository, counters counter.Store, prefsSvc *prefs.Service,
	su stats.StatsProvider, cfg *config.Config) *NotifyApp {
	s := &NotifyApp{
		log:            logger,
		repo:           repo,
		counters:       counters,
		hub:            h,
		dispatcher:     d,
		prefs:          prefsSvc,
		stats:          su,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("POST /api/events", s.authMiddleware(s.ingestEvent))
	mux.Handle("GET /api/notifications", s.authMiddleware(s.listNotifications))
	mux.Handle("GET /api/notifications/count", s.authMiddleware(s.countUnread))
	mux.Handle("PATCH /api/notifications/read", s.authMiddleware(s.markRead))
	mux.Handle("PATCH /api/notifications/read-all", s.authMiddleware(s.markAllRead))
	mux.Handle("GET /api/workspaces/unread", s.authMiddleware(s.getWorkspaceUnread))
	mux.Handle("GET /api/preferences", s.authMiddleware(s.getPreferences))
	mux.Handle("PATCH /api/preferences", s.authMiddleware(s.updatePreferences))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	corsHandler := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: s.errorHandler(corsHandler),
	}

	s.mux = srv
	return s
}

func (s *NotifyApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *NotifyApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
