package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/cache"
	"github.com/desertthunder/spindle/internal/models"
)

// Catalog is the slice of the upstream client the playlist API uses.
type Catalog interface {
	FeaturedPlaylists(ctx context.Context) ([]models.Playlist, error)
	CurrentUserPlaylists(ctx context.Context, sess *models.Session) ([]models.Playlist, error)
	PlaylistTracks(ctx context.Context, sess *models.Session, playlistID string) ([]models.Track, error)
}

// PlaylistHandler serves the playlist API, reading through the cache
// and falling back to the upstream on a miss.
type PlaylistHandler struct {
	catalog Catalog
	cache   *cache.Store
	maxAge  time.Duration
	logger  *log.Logger
}

// NewPlaylistHandler creates a [PlaylistHandler]. A zero maxAge uses
// [cache.DefaultMaxAge].
func NewPlaylistHandler(catalog Catalog, store *cache.Store, maxAge time.Duration, logger *log.Logger) *PlaylistHandler {
	if maxAge <= 0 {
		maxAge = cache.DefaultMaxAge
	}

	return &PlaylistHandler{
		catalog: catalog,
		cache:   store,
		maxAge:  maxAge,
		logger:  logger,
	}
}

// Routes returns the patterns this handler serves.
func (h *PlaylistHandler) Routes() []string {
	return []string{
		"GET /api/playlists",
		"GET /api/playlists/featured",
		"GET /api/playlists/{id}/tracks",
	}
}

// ServeHTTP dispatches to the endpoint matching the request path.
func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if id := r.PathValue("id"); id != "" {
		h.tracks(w, r, id)
		return
	}

	if strings.HasSuffix(r.URL.Path, "/featured") {
		h.featured(w, r)
		return
	}

	h.list(w, r)
}

// list returns the session user's playlists, cached per account.
func (h *PlaylistHandler) list(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	if sess == nil || sess.Bundle == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required"})
		return
	}

	owner := sess.Account
	if owner == "" {
		owner = sess.ID
	}

	if playlists, hit, err := h.cache.Get(r.Context(), cache.User, owner, h.maxAge); err == nil && hit {
		w.Header().Set("X-Cache", "hit")
		writeJSON(w, http.StatusOK, playlists)
		return
	} else if err != nil {
		h.logger.Warn("cache read failed", "owner", owner, "error", err)
	}

	playlists, err := h.catalog.CurrentUserPlaylists(r.Context(), sess)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.cache.Put(r.Context(), cache.User, owner, playlists); err != nil {
		h.logger.Warn("cache write failed", "owner", owner, "error", err)
	}

	w.Header().Set("X-Cache", "miss")
	writeJSON(w, http.StatusOK, playlists)
}

// featured returns the featured playlist set using the app credential;
// no login is required.
func (h *PlaylistHandler) featured(w http.ResponseWriter, r *http.Request) {
	if playlists, hit, err := h.cache.Get(r.Context(), cache.Featured, "", h.maxAge); err == nil && hit {
		w.Header().Set("X-Cache", "hit")
		writeJSON(w, http.StatusOK, playlists)
		return
	} else if err != nil {
		h.logger.Warn("cache read failed", "entity", cache.Featured, "error", err)
	}

	playlists, err := h.catalog.FeaturedPlaylists(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.cache.Put(r.Context(), cache.Featured, "", playlists); err != nil {
		h.logger.Warn("cache write failed", "entity", cache.Featured, "error", err)
	}

	w.Header().Set("X-Cache", "miss")
	writeJSON(w, http.StatusOK, playlists)
}

// tracks returns a playlist's full track listing straight from the
// upstream; track listings are not cached.
func (h *PlaylistHandler) tracks(w http.ResponseWriter, r *http.Request, playlistID string) {
	sess := SessionFromContext(r.Context())
	if sess == nil || sess.Bundle == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "login required"})
		return
	}

	tracks, err := h.catalog.PlaylistTracks(r.Context(), sess, playlistID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tracks)
}
