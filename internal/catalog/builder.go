// Package catalog turns a probe result into the format menu offered to a requester.
package catalog

import (
	"fmt"
	"strings"

	"github.com/ytget/tg-downloader/internal/engine"
	"github.com/ytget/tg-downloader/internal/model"
)

// Menu limits
const (
	MaxVideoOptions = 5
)

// Selectors understood by the extraction engine
const (
	AudioSelector model.Selector = "bestaudio/best"
	BestSelector  model.Selector = "best"
)

// Labels
const (
	AudioLabel      = "🎵 Audio Only (%s)"
	BestLabel       = "🏆 Best Quality"
	VideoLabel      = "📹 Video %s"
	UnknownTitle    = "Unknown Title"
	UnknownUploader = "Unknown"
	UnknownDuration = "Unknown"
)

// UnsupportedError reports content the bot refuses to handle
type UnsupportedError struct {
	Reason string
}

func (e *UnsupportedError) Error() string {
	return "unsupported content: " + e.Reason
}

// Builder builds format menus
type Builder struct {
	audioFormat string
	audioExt    string
}

// NewBuilder creates a builder; audioFormat names the audio container offered in the menu
func NewBuilder(audioFormat string) *Builder {
	if audioFormat == "" {
		audioFormat = "mp3"
	}
	ext, _ := engine.AudioExtension(audioFormat)
	return &Builder{audioFormat: audioFormat, audioExt: ext}
}

// Build returns the menu for probe. Playlists fail with an UnsupportedContent JobError.
func (b *Builder) Build(probe *model.ProbeResult) (*model.Catalog, error) {
	if probe == nil {
		return nil, model.NewJobError(model.ErrProbeFailed, fmt.Errorf("empty probe result"))
	}
	if probe.IsPlaylist {
		return nil, model.NewJobError(model.ErrUnsupportedContent, &UnsupportedError{Reason: "playlist"})
	}

	seen := make(map[string]struct{})
	options := make([]model.FormatOption, 0, MaxVideoOptions+2)
	for _, f := range probe.Formats {
		if len(options) == MaxVideoOptions {
			break
		}
		if !f.HasResolution() {
			continue
		}
		if _, dup := seen[f.Resolution]; dup {
			continue
		}
		seen[f.Resolution] = struct{}{}
		options = append(options, model.FormatOption{
			Kind:       model.FormatVideo,
			Label:      fmt.Sprintf(VideoLabel, f.Resolution),
			Resolution: f.Resolution,
			Selector:   videoSelector(f),
			Ext:        f.Ext,
		})
	}

	options = append(options,
		model.FormatOption{
			Kind:     model.FormatAudio,
			Label:    fmt.Sprintf(AudioLabel, audioLabelFormat(b.audioFormat)),
			Selector: AudioSelector,
			Ext:      b.audioExt,
		},
		model.FormatOption{
			Kind:     model.FormatBest,
			Label:    BestLabel,
			Selector: BestSelector,
		},
	)

	return &model.Catalog{
		Title:    orDefault(probe.Title, UnknownTitle),
		Duration: FormatDuration(probe.DurationSeconds),
		Uploader: orDefault(probe.Uploader, UnknownUploader),
		Options:  options,
	}, nil
}

// ShortcutOption returns the option used by direct commands that skip the menu
func (b *Builder) ShortcutOption(kind model.FormatKind) model.FormatOption {
	if kind == model.FormatAudio {
		return model.FormatOption{
			Kind:     model.FormatAudio,
			Label:    fmt.Sprintf(AudioLabel, audioLabelFormat(b.audioFormat)),
			Selector: AudioSelector,
			Ext:      b.audioExt,
		}
	}
	return model.FormatOption{Kind: model.FormatBest, Label: BestLabel, Selector: BestSelector}
}

// FormatDuration renders seconds as M:SS, or "Unknown" for zero
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return UnknownDuration
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// videoSelector picks the exact format when it already carries audio, otherwise
// merges it with the best audio stream.
func videoSelector(f model.FormatDescriptor) model.Selector {
	if f.HasAudio() || f.AudioCodec == "" {
		return model.Selector(f.ID)
	}
	if f.Height > 0 {
		return model.Selector(fmt.Sprintf("%s+bestaudio/best[height<=%d]", f.ID, f.Height))
	}
	return model.Selector(f.ID + "+bestaudio")
}

func audioLabelFormat(format string) string {
	return strings.ToUpper(format)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
