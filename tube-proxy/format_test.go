package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBest_Empty(t *testing.T) {
	sel := SelectBest(nil)
	assert.Nil(t, sel.Muxed)
	require.NotNil(t, sel.Adaptive)
	assert.Nil(t, sel.Adaptive.Video)
	assert.Nil(t, sel.Adaptive.Audio)
}

func TestSelectBest_PicksHighestBitrateMuxed(t *testing.T) {
	sel := SelectBest([]Rendition{
		{URL: "low", Bitrate: 100, HasVideo: true, HasAudio: true},
		{URL: "high", Bitrate: 200, HasVideo: true, HasAudio: true},
		{URL: "video-only", Bitrate: 900, HasVideo: true},
	})
	require.NotNil(t, sel.Muxed)
	assert.Equal(t, "high", sel.Muxed.URL)
	assert.Nil(t, sel.Adaptive, "adaptive is omitted when a muxed stream exists")
}

func TestSelectBest_AdaptiveFallback(t *testing.T) {
	video := Rendition{URL: "v", Bitrate: 50, HasVideo: true}
	audio := Rendition{URL: "a", AudioBitrate: 30, HasAudio: true}
	sel := SelectBest([]Rendition{video, audio})

	assert.Nil(t, sel.Muxed)
	require.NotNil(t, sel.Adaptive)
	require.NotNil(t, sel.Adaptive.Video)
	require.NotNil(t, sel.Adaptive.Audio)
	assert.Equal(t, "v", sel.Adaptive.Video.URL)
	assert.Equal(t, "a", sel.Adaptive.Audio.URL)
}

func TestSelectBest_AdaptiveIndependentSides(t *testing.T) {
	tests := []struct {
		name      string
		in        []Rendition
		wantVideo string
		wantAudio string
	}{
		{
			name: "highest of each side",
			in: []Rendition{
				{URL: "v1", Bitrate: 100, HasVideo: true},
				{URL: "v2", Bitrate: 400, HasVideo: true},
				{URL: "a1", AudioBitrate: 64, HasAudio: true},
				{URL: "a2", AudioBitrate: 128, HasAudio: true},
			},
			wantVideo: "v2",
			wantAudio: "a2",
		},
		{
			name:      "video only, audio side nil",
			in:        []Rendition{{URL: "v1", Bitrate: 100, HasVideo: true}},
			wantVideo: "v1",
		},
		{
			name:      "audio only, video side nil",
			in:        []Rendition{{URL: "a1", AudioBitrate: 100, HasAudio: true}},
			wantAudio: "a1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := SelectBest(tt.in)
			assert.Nil(t, sel.Muxed)
			require.NotNil(t, sel.Adaptive)
			if tt.wantVideo == "" {
				assert.Nil(t, sel.Adaptive.Video)
			} else {
				require.NotNil(t, sel.Adaptive.Video)
				assert.Equal(t, tt.wantVideo, sel.Adaptive.Video.URL)
			}
			if tt.wantAudio == "" {
				assert.Nil(t, sel.Adaptive.Audio)
			} else {
				require.NotNil(t, sel.Adaptive.Audio)
				assert.Equal(t, tt.wantAudio, sel.Adaptive.Audio.URL)
			}
		})
	}
}

func TestSelectBest_TieKeepsFirstOccurrence(t *testing.T) {
	sel := SelectBest([]Rendition{
		{URL: "first", Bitrate: 200, HasVideo: true, HasAudio: true},
		{URL: "second", Bitrate: 200, HasVideo: true, HasAudio: true},
	})
	require.NotNil(t, sel.Muxed)
	assert.Equal(t, "first", sel.Muxed.URL)
}

func TestSelectBest_MissingBitrateTreatedAsZero(t *testing.T) {
	sel := SelectBest([]Rendition{
		{URL: "no-bitrate", HasVideo: true, HasAudio: true},
		{URL: "some-bitrate", Bitrate: 1, HasVideo: true, HasAudio: true},
	})
	require.NotNil(t, sel.Muxed)
	assert.Equal(t, "some-bitrate", sel.Muxed.URL)
}

func TestSelectBest_DoesNotMutateInput(t *testing.T) {
	in := []Rendition{
		{URL: "b", Bitrate: 100, HasVideo: true, HasAudio: true},
		{URL: "a", Bitrate: 200, HasVideo: true, HasAudio: true},
	}
	_ = SelectBest(in)
	assert.Equal(t, "b", in[0].URL)
	assert.Equal(t, "a", in[1].URL)
}
