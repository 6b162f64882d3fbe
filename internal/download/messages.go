package download

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/ytget/tg-downloader/internal/engine"
	"github.com/ytget/tg-downloader/internal/model"
)

// Job status texts
const (
	StartingText    = "🔄 Starting download..."
	QueuedText      = "⏳ Queued. Waiting for a free download slot..."
	ProbingText     = "🔍 Fetching video information..."
	AudioHeader     = "🎵 Extracting audio..."
	ProcessingText  = "⚙️ Processing..."
	UploadingText   = "📤 Uploading to Telegram..."
	DoneText        = "✅ Done! Send another URL or use /start"
	AudioCaption    = "🎵 Converted to audio"
	VideoCaption    = "📹 Downloaded"
	DefaultAudioTag = "Audio"
	DefaultArtist   = "Unknown"
)

// Failure texts
const (
	InvalidInputText       = "Please send me a valid video URL!"
	UnsupportedContentText = "⚠️ Playlists are not supported. Please send a single video URL."
	ProbeFailedText        = "❌ Could not fetch video information."
	SessionExpiredText     = "Session expired. Please send the URL again."
	ArtifactTooLargeText   = "❌ File is too large (%s). The upload limit is %s."
	ArtifactMissingText    = "❌ The download finished but no file was produced."
	EngineFailureText      = "❌ Download failed."
	DeliveryFailedText     = "❌ Failed to upload the file."
)

// FailureText renders the single terminal message a requester sees for err
func FailureText(err error, limit int64) string {
	if err == nil {
		return ""
	}
	je := model.AsJobError(err, model.ErrEngineFailure)

	switch je.Kind {
	case model.ErrInvalidInput:
		return InvalidInputText
	case model.ErrUnsupportedContent:
		return UnsupportedContentText
	case model.ErrProbeFailed:
		return withHint(ProbeFailedText, je)
	case model.ErrSessionExpired:
		return SessionExpiredText
	case model.ErrArtifactTooLarge:
		return fmt.Sprintf(ArtifactTooLargeText, humanize.IBytes(uint64(je.Size)), humanize.IBytes(uint64(limit)))
	case model.ErrArtifactMissing:
		return ArtifactMissingText
	case model.ErrDeliveryFailed:
		return DeliveryFailedText
	default:
		return withHint(EngineFailureText, je)
	}
}

func withHint(text string, je *model.JobError) string {
	hint := engine.Hint(je)
	if hint == "" {
		return text
	}
	return text + "\n" + hint
}
