package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const backendTimeout = 10 * time.Second

var errNoThumbnail = errors.New("no thumbnail available")

// thumbQualities is the fixed descending-quality probe order.
var thumbQualities = []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault", "default"}

// SearchResult is one entry of the search proxy response.
type SearchResult struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Thumbnail  string   `json:"thumbnail"`
	Thumbnails []string `json:"thumbnails"`
	Author     string   `json:"author"`
	Views      int64    `json:"views"`
	Duration   int64    `json:"duration"`
}

// Backend talks to an Invidious-compatible metadata API and to the thumbnail
// host. All calls are bounded by the request context plus a client timeout,
// so a stalled upstream resolves to an error exactly once.
type Backend struct {
	base    *url.URL
	imgBase string
	hc      *http.Client
	ready   atomic.Bool
}

func NewBackend(rawURL string) (*Backend, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q missing scheme or host", rawURL)
	}
	b := &Backend{
		base:    base,
		imgBase: "https://i.ytimg.com",
		hc:      &http.Client{Timeout: backendTimeout},
	}
	b.ready.Store(true)
	return b, nil
}

// Ready reports whether the backend client initialized successfully.
func (b *Backend) Ready() bool {
	return b != nil && b.ready.Load()
}

type searchItem struct {
	VideoID         string `json:"videoId"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ViewCount       int64  `json:"viewCount"`
	LengthSeconds   int64  `json:"lengthSeconds"`
	VideoThumbnails []struct {
		URL string `json:"url"`
	} `json:"videoThumbnails"`
}

// Search proxies a video search and maps the upstream shape to the API shape.
func (b *Backend) Search(ctx context.Context, query string) ([]SearchResult, error) {
	u := b.endpoint("/api/v1/search", url.Values{"q": {query}, "type": {"video"}})
	var items []searchItem
	if err := b.getJSON(ctx, u, &items); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	out := make([]SearchResult, 0, len(items))
	for _, it := range items {
		thumbs := make([]string, 0, len(it.VideoThumbnails))
		for _, t := range it.VideoThumbnails {
			thumbs = append(thumbs, t.URL)
		}
		first := ""
		if len(thumbs) > 0 {
			first = thumbs[0]
		}
		out = append(out, SearchResult{
			ID:         it.VideoID,
			Title:      it.Title,
			Thumbnail:  first,
			Thumbnails: thumbs,
			Author:     it.Author,
			Views:      it.ViewCount,
			Duration:   it.LengthSeconds,
		})
	}
	return out, nil
}

type videoInfo struct {
	FormatStreams []struct {
		URL          string `json:"url"`
		Container    string `json:"container"`
		Bitrate      string `json:"bitrate"`
		QualityLabel string `json:"qualityLabel"`
	} `json:"formatStreams"`
	AdaptiveFormats []struct {
		URL          string `json:"url"`
		Container    string `json:"container"`
		Bitrate      string `json:"bitrate"`
		Type         string `json:"type"`
		QualityLabel string `json:"qualityLabel"`
		AudioQuality string `json:"audioQuality"`
	} `json:"adaptiveFormats"`
}

// Streams fetches the rendition list for one video id. Muxed format streams
// carry both tracks; adaptive formats are split by their MIME type.
func (b *Backend) Streams(ctx context.Context, id string) ([]Rendition, error) {
	u := b.endpoint("/api/v1/videos/"+id, url.Values{"fields": {"formatStreams,adaptiveFormats"}})
	var info videoInfo
	if err := b.getJSON(ctx, u, &info); err != nil {
		return nil, fmt.Errorf("streams %s: %w", id, err)
	}

	out := make([]Rendition, 0, len(info.FormatStreams)+len(info.AdaptiveFormats))
	for _, f := range info.FormatStreams {
		out = append(out, Rendition{
			URL:       f.URL,
			Container: f.Container,
			Bitrate:   parseBitrate(f.Bitrate),
			HasVideo:  true,
			HasAudio:  true,
			Quality:   f.QualityLabel,
		})
	}
	for _, f := range info.AdaptiveFormats {
		hasVideo := strings.HasPrefix(f.Type, "video/")
		hasAudio := strings.HasPrefix(f.Type, "audio/")
		r := Rendition{
			URL:       f.URL,
			Container: f.Container,
			HasVideo:  hasVideo,
			HasAudio:  hasAudio,
			Quality:   f.QualityLabel,
		}
		if hasAudio && !hasVideo {
			r.AudioBitrate = parseBitrate(f.Bitrate)
			if r.Quality == "" {
				r.Quality = f.AudioQuality
			}
		} else {
			r.Bitrate = parseBitrate(f.Bitrate)
		}
		out = append(out, r)
	}
	return out, nil
}

// ThumbnailURL probes the thumbnail host and returns the first resolution
// that exists, in fixed descending-quality order.
func (b *Backend) ThumbnailURL(ctx context.Context, id string) (string, error) {
	for _, q := range thumbQualities {
		u := fmt.Sprintf("%s/vi/%s/%s.jpg", b.imgBase, id, q)
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
		if err != nil {
			return "", err
		}
		resp, err := b.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return u, nil
		}
	}
	return "", errNoThumbnail
}

func (b *Backend) endpoint(path string, q url.Values) string {
	u := *b.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = q.Encode()
	return u.String()
}

func (b *Backend) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := b.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func parseBitrate(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
