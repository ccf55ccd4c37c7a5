package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVideoID = "dQw4w9WgXcQ"

// fakeUpstream serves an Invidious-shaped API and counts hits.
func fakeUpstream(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/search":
			_, _ = w.Write([]byte(`[{
				"videoId": "` + testVideoID + `",
				"title": "Test Video",
				"author": "tester",
				"viewCount": 1234,
				"lengthSeconds": 212,
				"videoThumbnails": [{"url": "https://img.example/hq.jpg"}, {"url": "https://img.example/mq.jpg"}]
			}]`))
		case "/api/v1/videos/" + testVideoID:
			_, _ = w.Write([]byte(`{
				"formatStreams": [
					{"url": "https://cdn.example/muxed-360", "container": "mp4", "bitrate": "500000", "qualityLabel": "360p"},
					{"url": "https://cdn.example/muxed-720", "container": "mp4", "bitrate": "1500000", "qualityLabel": "720p"}
				],
				"adaptiveFormats": [
					{"url": "https://cdn.example/video-1080", "container": "mp4", "bitrate": "4000000", "type": "video/mp4; codecs=\"avc1\"", "qualityLabel": "1080p"},
					{"url": "https://cdn.example/audio", "container": "m4a", "bitrate": "128000", "type": "audio/mp4; codecs=\"mp4a\"", "audioQuality": "AUDIO_QUALITY_MEDIUM"}
				]
			}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func newTestServer(t *testing.T, withCache bool) (*APIServer, *atomic.Int64) {
	t.Helper()
	ts, calls := fakeUpstream(t)
	backend, err := NewBackend(ts.URL)
	require.NoError(t, err)
	var cache *responseCache
	if withCache {
		cache, err = openResponseCache(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { _ = cache.Close() })
	}
	return NewAPIServer("test", backend, cache), calls
}

func TestHandleStream_InvalidID(t *testing.T) {
	srv, calls := newTestServer(t, false)
	router := srv.Router()

	for _, id := range []string{"short", "way-too-long-to-be-valid", "bad<>chars!"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream/"+id, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "id %q", id)
	}
	assert.Equal(t, int64(0), calls.Load(), "invalid ids must not reach the backend")
}

func TestHandleStream_SelectsMuxed(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream/"+testVideoID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=30", rec.Header().Get("Cache-Control"))

	var got struct {
		ID string `json:"id"`
		Selection
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, testVideoID, got.ID)
	require.NotNil(t, got.Muxed)
	assert.Equal(t, "https://cdn.example/muxed-720", got.Muxed.URL)
	assert.Nil(t, got.Adaptive)
}

func TestHandleStream_CachedSecondHit(t *testing.T) {
	srv, calls := newTestServer(t, true)
	router := srv.Router()

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream/"+testVideoID, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "public, max-age=30", rec.Header().Get("Cache-Control"))
	}
	assert.Equal(t, int64(1), calls.Load(), "second hit must come from the cache")
}

func TestHandleStream_UpstreamDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)
	backend, err := NewBackend(ts.URL)
	require.NoError(t, err)
	srv := NewAPIServer("test", backend, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream/"+testVideoID, nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleSearch(t *testing.T) {
	srv, _ := newTestServer(t, false)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?q=test", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var results []SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, testVideoID, results[0].ID)
	assert.Equal(t, "Test Video", results[0].Title)
	assert.Equal(t, "tester", results[0].Author)
	assert.Equal(t, int64(1234), results[0].Views)
	assert.Equal(t, int64(212), results[0].Duration)
	assert.Equal(t, "https://img.example/hq.jpg", results[0].Thumbnail)
	assert.Len(t, results[0].Thumbnails, 2)
}

func TestHandleThumbnail(t *testing.T) {
	img := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/vi/"+testVideoID+"/hqdefault.jpg" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(img.Close)

	backend, err := NewBackend("https://example.com")
	require.NoError(t, err)
	backend.imgBase = img.URL
	srv := NewAPIServer("test", backend, nil)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/yt-img?id="+testVideoID, nil))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, img.URL+"/vi/"+testVideoID+"/hqdefault.jpg", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/yt-img?id=bad", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleThumbnail_NoneFound(t *testing.T) {
	img := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(img.Close)

	backend, err := NewBackend("https://example.com")
	require.NoError(t, err)
	backend.imgBase = img.URL
	srv := NewAPIServer("test", backend, nil)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/yt-img?id="+testVideoID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, true, got["backendReady"])
	assert.NotEmpty(t, got["time"])
}

func TestBackendNotReady(t *testing.T) {
	srv := NewAPIServer("test", nil, nil)
	router := srv.Router()

	for _, path := range []string{"/api/search?q=x", "/api/stream/" + testVideoID, "/api/yt-img?id=" + testVideoID} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "path %s", path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, false, got["backendReady"])
}
