package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"AlbumShelf/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the route table.
func NewRouter(h *APIHandler, static http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(recoverer, requestLogger)

	router.HandleFunc("/", h.withActor(h.Home)).Methods(http.MethodGet)

	// 专辑
	router.HandleFunc("/albums/", h.withActor(h.ListAlbums)).Methods(http.MethodGet)
	router.HandleFunc("/albums/new", h.withActor(h.AddAlbum)).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/albums/{pk:[0-9]+}", h.withActor(h.ShowAlbum)).Methods(http.MethodGet)
	router.HandleFunc("/albums/{pk:[0-9]+}/edit", h.withActor(h.EditAlbum)).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/albums/{pk:[0-9]+}/delete", h.withActor(h.DeleteAlbum)).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/albums/{pk:[0-9]+}/favorite", h.withActor(h.Favorite)).Methods(http.MethodPost, http.MethodDelete)
	router.HandleFunc("/favorites/", h.withActor(h.ListFavorites)).Methods(http.MethodGet)
	router.HandleFunc("/genres/{slug}", h.withActor(h.ShowGenre)).Methods(http.MethodGet)
	router.HandleFunc("/search/", h.withActor(h.Search)).Methods(http.MethodGet)

	// 用户认证
	router.HandleFunc("/auth/login", h.withActor(h.LoginHandler)).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/auth/register", h.withActor(h.RegisterHandler)).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/auth/logout", h.LogoutHandler).Methods(http.MethodPost)
	router.HandleFunc("/auth/me", h.withActor(h.ProfileHandler)).Methods(http.MethodGet)

	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	router.Handle("/_metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.PathPrefix("/static/").Handler(static).Methods(http.MethodGet, http.MethodHead)

	// mux skips middleware for its NotFoundHandler, so wrap it explicitly.
	router.NotFoundHandler = requestLogger(h.withActor(h.NotFound))
	return router
}

// Start serves handler on addr until ctx is cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
