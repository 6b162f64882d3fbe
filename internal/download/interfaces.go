package download

import (
	"context"

	"github.com/ytget/tg-downloader/internal/gateway"
	"github.com/ytget/tg-downloader/internal/model"
)

// Messenger is the part of the chat transport a job needs
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) (model.MessageRef, error)
	EditText(ctx context.Context, ref model.MessageRef, text string) error
	Delete(ctx context.Context, ref model.MessageRef) error
	SendVideo(ctx context.Context, chatID int64, upload gateway.Upload) error
	SendAudio(ctx context.Context, chatID int64, upload gateway.Upload) error
}

// Releaser drops the session a job belongs to
type Releaser interface {
	Remove(sessionID string)
}

// Downloader defines the interface for the download service.
type Downloader interface {
	SetUpdateCallback(func(model.DownloadJob))
	Start(req Request) (model.DownloadJob, error)
	GetJob(id string) (model.DownloadJob, bool)
	ActiveJobs() []model.DownloadJob
	Shutdown(ctx context.Context) error
}

var _ Downloader = (*Service)(nil)
