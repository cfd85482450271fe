package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bool64/ctxd"
	"github.com/swaggest/usecase/status"
	cache "github.com/veartutop/feedcache"
)

// StatsProvider exposes cache contents.
type StatsProvider interface {
	Stats() cache.Stats
}

// Handler serves feed API.
type Handler struct {
	// Cached serves cached results.
	Cached *Service

	// Direct serves uncached results.
	Direct *Service

	// Stats reports cache contents.
	Stats StatsProvider

	// Invalidator drops cache.
	Invalidator *cache.Invalidator

	// Logger collects messages with context.
	Logger ctxd.Logger

	// TimeNow overrides response timestamp source, time.Now by default.
	TimeNow func() time.Time
}

// Routes returns HTTP handler with API endpoints.
func (h *Handler) Routes() http.Handler {
	if h.Logger == nil {
		h.Logger = ctxd.NoOpLogger{}
	}

	if h.TimeNow == nil {
		h.TimeNow = time.Now
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.method(http.MethodGet, h.health))
	mux.HandleFunc("/api/posts", h.method(http.MethodGet, h.posts))
	mux.HandleFunc("/api/cached-posts", h.method(http.MethodGet, h.cachedPosts))
	mux.HandleFunc("/api/gallery", h.method(http.MethodGet, h.gallery))
	mux.HandleFunc("/api/cached-gallery", h.method(http.MethodGet, h.cachedGallery))
	mux.HandleFunc("/api/cache", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.cacheStats(w, r)
		case http.MethodDelete:
			h.clearCache(w, r)
		default:
			h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		}
	})

	return mux
}

func (h *Handler) method(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			h.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")

			return
		}

		fn(w, r)
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "up"})
}

// posts serves uncached posts, failure results in empty list.
//
// Platform defaults to chamet, date is echoed as requested and is null when absent.
func (h *Handler) posts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	platform := q.Get("platform")

	if platform == "" {
		platform = string(Chamet)
	}

	date := q.Get("date")

	var dateEcho *string
	if q.Has("date") {
		dateEcho = &date
	}

	res, err := h.Direct.Posts(r.Context(), date, platform)
	if err != nil {
		h.Logger.Error(r.Context(), "failed to fetch posts", "error", err)

		res.Posts = []Post{}
	} else {
		w.Header().Set("Cache-Control", "public, s-maxage=60, stale-while-revalidate=120")
	}

	h.writeJSON(w, r, http.StatusOK, struct {
		Posts    []Post  `json:"posts"`
		Platform string  `json:"platform"`
		Date     *string `json:"date"`
	}{
		Posts:    res.Posts,
		Platform: platform,
		Date:     dateEcho,
	})
}

func (h *Handler) cachedPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	res, err := h.Cached.Posts(h.refresh(r), q.Get("date"), q.Get("platform"))
	if err != nil {
		h.fail(w, r, err, "failed to fetch posts")

		return
	}

	h.writeJSON(w, r, http.StatusOK, struct {
		Posts     []Post    `json:"posts"`
		Cached    bool      `json:"cached"`
		Stale     bool      `json:"stale"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Posts:     res.Posts,
		Cached:    res.Cached,
		Stale:     res.Stale,
		Timestamp: h.TimeNow(),
	})
}

func (h *Handler) gallery(w http.ResponseWriter, r *http.Request) {
	res, err := h.Direct.Gallery(r.Context(), r.URL.Query().Get("folder"))
	if err != nil {
		h.fail(w, r, err, "failed to fetch gallery")

		return
	}

	h.writeJSON(w, r, http.StatusOK, struct {
		Images []Image `json:"images"`
	}{
		Images: res.Images,
	})
}

func (h *Handler) cachedGallery(w http.ResponseWriter, r *http.Request) {
	res, err := h.Cached.Gallery(h.refresh(r), r.URL.Query().Get("folder"))
	if err != nil {
		h.fail(w, r, err, "failed to fetch gallery")

		return
	}

	h.writeJSON(w, r, http.StatusOK, struct {
		Images    []Image   `json:"images"`
		Cached    bool      `json:"cached"`
		Stale     bool      `json:"stale"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Images:    res.Images,
		Cached:    res.Cached,
		Stale:     res.Stale,
		Timestamp: h.TimeNow(),
	})
}

func (h *Handler) cacheStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, struct {
		Success   bool        `json:"success"`
		Stats     cache.Stats `json:"stats"`
		Timestamp time.Time   `json:"timestamp"`
	}{
		Success:   true,
		Stats:     h.Stats.Stats(),
		Timestamp: h.TimeNow(),
	})
}

func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Invalidator.Invalidate(r.Context()); err != nil {
		if errors.Is(err, cache.ErrAlreadyInvalidated) {
			h.writeError(w, r, http.StatusTooManyRequests, err.Error())

			return
		}

		h.fail(w, r, err, "failed to clear cache")

		return
	}

	h.writeJSON(w, r, http.StatusOK, struct {
		Success   bool      `json:"success"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Success:   true,
		Message:   "Cache cleared successfully",
		Timestamp: h.TimeNow(),
	})
}

// refresh returns request context that bypasses cache read if refresh=1 is requested.
func (h *Handler) refresh(r *http.Request) context.Context {
	if r.URL.Query().Get("refresh") == "1" {
		return cache.WithSkipRead(r.Context())
	}

	return r.Context()
}

type withStatus interface {
	Status() status.Code
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var se withStatus

	if errors.As(err, &se) && se.Status() == status.InvalidArgument {
		h.writeError(w, r, http.StatusBadRequest, err.Error())

		return
	}

	h.Logger.Error(r.Context(), msg, "error", err)
	h.writeError(w, r, http.StatusInternalServerError, msg)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	h.writeJSON(w, r, code, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error(r.Context(), "failed to encode response", "error", err)
	}
}
