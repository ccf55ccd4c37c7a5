package main

import "sort"

// Rendition is one concrete encoded variant of a video as reported by the
// upstream metadata backend.
type Rendition struct {
	URL          string `json:"url"`
	Container    string `json:"container,omitempty"`
	Bitrate      int64  `json:"bitrate"`
	HasVideo     bool   `json:"hasVideo"`
	HasAudio     bool   `json:"hasAudio"`
	AudioBitrate int64  `json:"audioBitrate,omitempty"`
	Quality      string `json:"quality,omitempty"`
}

// AdaptivePair is a video-only plus audio-only rendition pair meant to be
// combined client-side. Either side may be absent.
type AdaptivePair struct {
	Video *Rendition `json:"video"`
	Audio *Rendition `json:"audio"`
}

// Selection is the outcome of picking playable streams for one video.
// When Muxed is set Adaptive is nil; otherwise Adaptive is always present,
// possibly with both sides nil.
type Selection struct {
	Muxed    *Rendition    `json:"muxed"`
	Adaptive *AdaptivePair `json:"adaptive"`
}

// SelectBest picks the best combined rendition, falling back to the best
// separate video and audio tracks. Pure and total: never fails, empty or
// unmatchable input yields an all-nil selection. Missing bitrates count as
// zero and ties keep the first occurrence (stable sort).
func SelectBest(renditions []Rendition) Selection {
	muxed := make([]Rendition, 0, len(renditions))
	for _, r := range renditions {
		if r.HasVideo && r.HasAudio {
			muxed = append(muxed, r)
		}
	}
	if len(muxed) > 0 {
		sort.SliceStable(muxed, func(i, j int) bool {
			return muxed[i].Bitrate > muxed[j].Bitrate
		})
		best := muxed[0]
		return Selection{Muxed: &best}
	}

	var video, audio *Rendition
	for i := range renditions {
		r := &renditions[i]
		switch {
		case r.HasVideo && !r.HasAudio:
			if video == nil || r.Bitrate > video.Bitrate {
				video = r
			}
		case r.HasAudio && !r.HasVideo:
			if audio == nil || r.AudioBitrate > audio.AudioBitrate {
				audio = r
			}
		}
	}
	return Selection{Adaptive: &AdaptivePair{Video: video, Audio: audio}}
}
