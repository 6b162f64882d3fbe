package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ytget/tg-downloader/internal/model"
)

// Polling and webhook settings
const (
	PollTimeoutSeconds = 60
	ShutdownTimeout    = 10 * time.Second
	ReadHeaderTimeout  = 10 * time.Second

	sendVideoMethod = "sendVideo"
	videoField      = "video"
)

// Telegram implements Messenger on the Bot API
type Telegram struct {
	bot *tgbotapi.BotAPI
	wg  sync.WaitGroup
}

var _ Messenger = (*Telegram)(nil)

// NewTelegram authenticates with token
func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize bot: %w", err)
	}
	log.Printf("Authorized on account %s", bot.Self.UserName)
	return &Telegram{bot: bot}, nil
}

// SendText implements Messenger
func (t *Telegram) SendText(ctx context.Context, chatID int64, text string) (model.MessageRef, error) {
	return t.send(ctx, tgbotapi.NewMessage(chatID, text))
}

// SendMenu implements Messenger
func (t *Telegram) SendMenu(ctx context.Context, chatID int64, text string, rows [][]Button) (model.MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard(rows)
	return t.send(ctx, msg)
}

// EditText implements Messenger
func (t *Telegram) EditText(ctx context.Context, ref model.MessageRef, text string) error {
	return t.request(ctx, tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text))
}

// EditMenu implements Messenger
func (t *Telegram) EditMenu(ctx context.Context, ref model.MessageRef, text string, rows [][]Button) error {
	return t.request(ctx, tgbotapi.NewEditMessageTextAndMarkup(ref.ChatID, ref.MessageID, text, keyboard(rows)))
}

// Delete implements Messenger
func (t *Telegram) Delete(ctx context.Context, ref model.MessageRef) error {
	return t.request(ctx, tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID))
}

// SendVideo implements Messenger. VideoConfig has no width/height fields, so the
// request is built by hand.
func (t *Telegram) SendVideo(ctx context.Context, chatID int64, upload Upload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	files := []tgbotapi.RequestFile{{
		Name: videoField,
		Data: tgbotapi.FileReader{Name: upload.Name, Reader: upload.Reader},
	}}
	_, err := t.bot.UploadFiles(sendVideoMethod, videoParams(chatID, upload), files)
	return err
}

// SendAudio implements Messenger
func (t *Telegram) SendAudio(ctx context.Context, chatID int64, upload Upload) error {
	audio := tgbotapi.NewAudio(chatID, tgbotapi.FileReader{Name: upload.Name, Reader: upload.Reader})
	audio.Caption = upload.Caption
	audio.Title = upload.Title
	audio.Performer = upload.Performer
	audio.Duration = upload.Duration
	_, err := t.send(ctx, audio)
	return err
}

// AnswerCallback implements Messenger
func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return t.request(ctx, tgbotapi.NewCallback(callbackID, text))
}

// RunPolling receives updates by long polling until ctx is done
func (t *Telegram) RunPolling(ctx context.Context, handler Handler) error {
	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Printf("Failed to delete webhook: %v", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = PollTimeoutSeconds
	updates := t.bot.GetUpdatesChan(u)

	log.Printf("Polling for updates")
	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			t.wg.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				t.wg.Wait()
				return nil
			}
			t.dispatch(ctx, handler, update)
		}
	}
}

// RunWebhook registers webhookURL/<token> and serves updates on port until ctx is done
func (t *Telegram) RunWebhook(ctx context.Context, handler Handler, webhookURL string, port int) error {
	path := "/" + t.bot.Token
	wh, err := tgbotapi.NewWebhook(webhookURL + path)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := t.bot.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		update, err := t.bot.HandleUpdate(r)
		if err != nil {
			log.Printf("Bad webhook request: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		t.dispatch(ctx, handler, *update)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           mux,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening for webhook on :%d", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	t.wg.Wait()
	return err
}

// dispatch hands one update to the handler on its own goroutine
func (t *Telegram) dispatch(ctx context.Context, handler Handler, update tgbotapi.Update) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic while handling update %d: %v\n%s", update.UpdateID, r, debug.Stack())
			}
		}()

		if msg, ok := toMessage(update); ok {
			handler.HandleMessage(ctx, msg)
			return
		}
		if cb, ok := toCallback(update); ok {
			handler.HandleCallback(ctx, cb)
		}
	}()
}

func (t *Telegram) send(ctx context.Context, c tgbotapi.Chattable) (model.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return model.MessageRef{}, err
	}
	msg, err := t.bot.Send(c)
	if err != nil {
		return model.MessageRef{}, err
	}
	return model.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID}, nil
}

func (t *Telegram) request(ctx context.Context, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Request(c)
	return err
}

func toMessage(update tgbotapi.Update) (Message, bool) {
	m := update.Message
	if m == nil || m.Chat == nil || m.From == nil {
		return Message{}, false
	}
	msg := Message{
		ChatID:    m.Chat.ID,
		SenderID:  m.From.ID,
		MessageID: m.MessageID,
		Text:      m.Text,
	}
	if m.IsCommand() {
		msg.Command = m.Command()
		msg.Args = m.CommandArguments()
	}
	return msg, true
}

func toCallback(update tgbotapi.Update) (Callback, bool) {
	q := update.CallbackQuery
	if q == nil || q.From == nil {
		return Callback{}, false
	}
	cb := Callback{
		ID:       q.ID,
		SenderID: q.From.ID,
		Data:     q.Data,
	}
	if q.Message != nil && q.Message.Chat != nil {
		cb.ChatID = q.Message.Chat.ID
		cb.MessageID = q.Message.MessageID
	}
	return cb, true
}

func videoParams(chatID int64, upload Upload) tgbotapi.Params {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonEmpty("caption", upload.Caption)
	params.AddNonZero("duration", upload.Duration)
	params.AddNonZero("width", upload.Width)
	params.AddNonZero("height", upload.Height)
	params.AddBool("supports_streaming", true)
	return params
}

func keyboard(rows [][]Button) tgbotapi.InlineKeyboardMarkup {
	markup := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		markup = append(markup, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(markup...)
}
