package platform

import (
	"context"
	"testing"
	"time"
)

func TestNewPlaylistInspector(t *testing.T) {
	inspector := NewPlaylistInspector()

	if inspector == nil {
		t.Fatal("inspector should not be nil")
	}
	if inspector.timeout != DefaultPlaylistTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultPlaylistTimeout, inspector.timeout)
	}

	inspector.SetTimeout(5 * time.Second)
	if inspector.timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", inspector.timeout)
	}
}

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		expectedID string
	}{
		{
			name:       "extract playlist ID from watch URL",
			url:        "https://www.youtube.com/watch?v=VIDEO_ID&list=PLAYLIST_ID",
			expectedID: "PLAYLIST_ID",
		},
		{
			name:       "extract playlist ID from playlist URL",
			url:        "https://www.youtube.com/playlist?list=PLAYLIST_ID",
			expectedID: "PLAYLIST_ID",
		},
		{
			name:       "extract playlist ID with additional parameters",
			url:        "https://www.youtube.com/watch?v=VIDEO_ID&list=PLAYLIST_ID&start_radio=1",
			expectedID: "PLAYLIST_ID",
		},
		{
			name:       "no playlist parameter",
			url:        "https://www.youtube.com/watch?v=VIDEO_ID",
			expectedID: "",
		},
		{
			name:       "empty playlist parameter",
			url:        "https://www.youtube.com/watch?v=VIDEO_ID&list=",
			expectedID: "",
		},
		{
			name:       "empty URL",
			url:        "",
			expectedID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractPlaylistID(tt.url); got != tt.expectedID {
				t.Errorf("expected %q, got %q for URL: %s", tt.expectedID, got, tt.url)
			}
			if got := IsPlaylistURL(tt.url); got != (tt.expectedID != "") {
				t.Errorf("IsPlaylistURL(%s) = %v", tt.url, got)
			}
		})
	}
}

func TestCountItems_InvalidURL(t *testing.T) {
	_, err := NewPlaylistInspector().CountItems(context.Background(), "https://www.youtube.com/watch?v=VIDEO_ID")
	if err == nil {
		t.Error("expected error for URL without playlist ID")
	}
}
