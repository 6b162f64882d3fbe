package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"
)

// Timeout constants
const (
	DefaultPlaylistTimeout = 20 * time.Second
)

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// PlaylistInspector looks up playlist sizes so rejections can tell the
// requester what was sent.
type PlaylistInspector struct {
	timeout time.Duration
}

// NewPlaylistInspector creates a new inspector
func NewPlaylistInspector() *PlaylistInspector {
	return &PlaylistInspector{
		timeout: DefaultPlaylistTimeout,
	}
}

// SetTimeout sets the timeout for inspection
func (p *PlaylistInspector) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// CountItems returns the number of entries in the playlist referenced by url
func (p *PlaylistInspector) CountItems(ctx context.Context, url string) (int, error) {
	playlistID := ExtractPlaylistID(url)
	if playlistID == "" {
		return 0, fmt.Errorf("could not extract playlist ID from URL: %s", url)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to get playlist items: %w", err)
	}
	return len(items), nil
}

// IsPlaylistURL checks if the URL carries a playlist parameter
func IsPlaylistURL(url string) bool {
	return ExtractPlaylistID(url) != ""
}

// ExtractPlaylistID extracts the playlist ID from various URL formats
func ExtractPlaylistID(url string) string {
	if !strings.Contains(url, PlaylistParam) {
		return ""
	}
	parts := strings.SplitN(url, PlaylistParam, 2)
	playlistPart := parts[1]
	if strings.Contains(playlistPart, ParamSeparator) {
		playlistPart = strings.Split(playlistPart, ParamSeparator)[0]
	}
	return playlistPart
}
