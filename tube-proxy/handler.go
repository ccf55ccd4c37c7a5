package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	streamCacheTTL = 30 * time.Second
	searchCacheTTL = 5 * time.Minute
	requestTimeout = 15 * time.Second
)

// videoIDPattern is the 11-character upstream video identifier.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// APIServer wires the proxy HTTP routes to the backend client and cache.
type APIServer struct {
	backend *Backend
	cache   *responseCache
	name    string
}

func NewAPIServer(name string, backend *Backend, cache *responseCache) *APIServer {
	return &APIServer{backend: backend, cache: cache, name: name}
}

// Router builds the proxy router: API surface plus the page and its assets.
func (s *APIServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Get("/", s.serveIndex)
	r.Get("/index.html", s.serveIndex)
	r.Get("/app.js", serveAppJS)
	r.Get("/offline.appcache", serveManifest)
	r.Get("/api/search", s.handleSearch)
	r.Get("/api/stream/{id}", s.handleStream)
	r.Get("/api/yt-img", s.handleThumbnail)
	r.Get("/api/health", s.handleHealth)
	return r
}

func (s *APIServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing search query")
		return
	}
	if body, ok := s.cache.Get("search:" + query); ok {
		writeRaw(w, body)
		return
	}
	if !s.backend.Ready() {
		writeError(w, http.StatusServiceUnavailable, "backend not ready, try again later")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	results, err := s.backend.Search(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("[proxy] search failed")
		writeError(w, http.StatusBadGateway, "search unavailable, try again later")
		return
	}
	body, _ := json.Marshal(results)
	if err := s.cache.Put("search:"+query, body, searchCacheTTL); err != nil {
		log.Debug().Err(err).Msg("[proxy] cache search")
	}
	writeRaw(w, body)
}

func (s *APIServer) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !videoIDPattern.MatchString(id) {
		writeError(w, http.StatusBadRequest, "invalid video id")
		return
	}
	if body, ok := s.cache.Get("stream:" + id); ok {
		w.Header().Set("Cache-Control", "public, max-age=30")
		writeRaw(w, body)
		return
	}
	if !s.backend.Ready() {
		writeError(w, http.StatusServiceUnavailable, "backend not ready, try again later")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	renditions, err := s.backend.Streams(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("[proxy] stream lookup failed")
		writeError(w, http.StatusBadGateway, "stream lookup failed, try again later")
		return
	}
	sel := SelectBest(renditions)
	body, _ := json.Marshal(struct {
		ID string `json:"id"`
		Selection
	}{ID: id, Selection: sel})
	if err := s.cache.Put("stream:"+id, body, streamCacheTTL); err != nil {
		log.Debug().Err(err).Msg("[proxy] cache stream")
	}
	w.Header().Set("Cache-Control", "public, max-age=30")
	writeRaw(w, body)
}

func (s *APIServer) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if !videoIDPattern.MatchString(id) {
		writeError(w, http.StatusBadRequest, "invalid video id")
		return
	}
	if !s.backend.Ready() {
		writeError(w, http.StatusServiceUnavailable, "backend not ready, try again later")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	u, err := s.backend.ThumbnailURL(ctx, id)
	if err != nil {
		if errors.Is(err, errNoThumbnail) {
			writeError(w, http.StatusNotFound, "no thumbnail found")
			return
		}
		log.Error().Err(err).Str("id", id).Msg("[proxy] thumbnail probe failed")
		writeError(w, http.StatusBadGateway, "thumbnail lookup failed, try again later")
		return
	}
	http.Redirect(w, r, u, http.StatusFound)
}

func (s *APIServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"backendReady": s.backend.Ready(),
		"time":         time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
