// Package gateway is the boundary to the chat transport. Handlers and jobs
// only talk to Messenger; telegram.go adapts it to the Telegram Bot API.
package gateway

import (
	"context"
	"io"

	"github.com/ytget/tg-downloader/internal/model"
)

// Button is one inline button; Data comes back verbatim in a Callback
type Button struct {
	Label string
	Data  string
}

// Upload is a file handed to the transport. Reader is owned by the caller.
type Upload struct {
	Name      string
	Reader    io.Reader
	Size      int64
	Caption   string
	Title     string // audio only
	Performer string // audio only
	Duration  int
	Width     int // video only
	Height    int // video only
}

// Messenger sends and edits conversation messages
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) (model.MessageRef, error)
	SendMenu(ctx context.Context, chatID int64, text string, rows [][]Button) (model.MessageRef, error)
	EditText(ctx context.Context, ref model.MessageRef, text string) error
	EditMenu(ctx context.Context, ref model.MessageRef, text string, rows [][]Button) error
	Delete(ctx context.Context, ref model.MessageRef) error
	SendVideo(ctx context.Context, chatID int64, upload Upload) error
	SendAudio(ctx context.Context, chatID int64, upload Upload) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Message is an inbound text message
type Message struct {
	ChatID    int64
	SenderID  int64
	MessageID int
	Text      string
	Command   string // without the leading slash, empty for plain text
	Args      string
}

// Callback is an inbound button press
type Callback struct {
	ID        string
	ChatID    int64
	SenderID  int64
	MessageID int
	Data      string
}

// Handler receives inbound events. Each call runs on its own goroutine.
type Handler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandleCallback(ctx context.Context, cb Callback)
}
