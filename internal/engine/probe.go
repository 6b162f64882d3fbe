package engine

import (
	"encoding/json"
	"fmt"

	"github.com/ytget/tg-downloader/internal/model"
)

const playlistType = "playlist"

type probeJSON struct {
	ID            string            `json:"id"`
	Type          string            `json:"_type"`
	Title         string            `json:"title"`
	Uploader      string            `json:"uploader"`
	Channel       string            `json:"channel"`
	Duration      float64           `json:"duration"`
	PlaylistCount int               `json:"playlist_count"`
	Entries       []json.RawMessage `json:"entries"`
	Formats       []formatJSON      `json:"formats"`
}

type formatJSON struct {
	FormatID       string `json:"format_id"`
	Resolution     string `json:"resolution"`
	Height         *int   `json:"height"`
	Ext            string `json:"ext"`
	VCodec         string `json:"vcodec"`
	ACodec         string `json:"acodec"`
	Filesize       *int64 `json:"filesize"`
	FilesizeApprox *int64 `json:"filesize_approx"`
}

// ParseProbe decodes the single-JSON metadata document printed by yt-dlp
func ParseProbe(data []byte) (*model.ProbeResult, error) {
	var info probeJSON
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("yt-dlp metadata parse error: %w", err)
	}

	result := &model.ProbeResult{
		ID:              info.ID,
		Title:           info.Title,
		DurationSeconds: int(info.Duration),
		Uploader:        info.Uploader,
		IsPlaylist:      info.Type == playlistType || len(info.Entries) > 0,
		PlaylistCount:   info.PlaylistCount,
	}
	if result.Uploader == "" {
		result.Uploader = info.Channel
	}
	if result.IsPlaylist && result.PlaylistCount == 0 {
		result.PlaylistCount = len(info.Entries)
	}

	result.Formats = make([]model.FormatDescriptor, 0, len(info.Formats))
	for _, f := range info.Formats {
		d := model.FormatDescriptor{
			ID:         f.FormatID,
			Resolution: f.Resolution,
			Ext:        f.Ext,
			VideoCodec: f.VCodec,
			AudioCodec: f.ACodec,
		}
		if f.Height != nil {
			d.Height = *f.Height
		}
		switch {
		case f.Filesize != nil:
			d.FileSize = *f.Filesize
		case f.FilesizeApprox != nil:
			d.FileSize = *f.FilesizeApprox
		}
		if d.VideoCodec == "none" {
			d.Resolution = "audio only"
		}
		result.Formats = append(result.Formats, d)
	}
	return result, nil
}
