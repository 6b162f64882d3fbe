// Package bot maps inbound chat events onto sessions and download jobs.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ytget/tg-downloader/internal/catalog"
	"github.com/ytget/tg-downloader/internal/download"
	"github.com/ytget/tg-downloader/internal/engine"
	"github.com/ytget/tg-downloader/internal/gateway"
	"github.com/ytget/tg-downloader/internal/history"
	"github.com/ytget/tg-downloader/internal/model"
	"github.com/ytget/tg-downloader/internal/session"
)

// Commands
const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandStats = "stats"
	CommandBest  = "best"
	CommandAudio = "audio"
)

// Limits
const (
	DefaultMessagesPerMinute = 10
	maxTrackedRequesters     = 10000
	callbackSeparator        = ":"
)

var urlPattern = regexp.MustCompile(`https?://(?:[-\w.]|(?:%[\da-fA-F]{2}))+[/\w.\-?=&%#+~:@!$,;]*`)

// JobStarter runs download jobs
type JobStarter interface {
	Start(req download.Request) (model.DownloadJob, error)
}

// PlaylistCounter counts the entries of a playlist URL
type PlaylistCounter interface {
	CountItems(ctx context.Context, url string) (int, error)
}

// Options configures the orchestrator
type Options struct {
	MessagesPerMinute int
	MaxUploadSize     int64
}

// Bot is the orchestrator behind the gateway Handler
type Bot struct {
	messenger gateway.Messenger
	engine    engine.Engine
	builder   *catalog.Builder
	store     *session.Store
	jobs      JobStarter
	recorder  history.Recorder
	playlists PlaylistCounter
	opts      Options

	limitersMu sync.Mutex
	limiters   map[int64]*rate.Limiter
}

// New creates the orchestrator
func New(messenger gateway.Messenger, eng engine.Engine, builder *catalog.Builder, store *session.Store, jobs JobStarter, opts Options) *Bot {
	if opts.MessagesPerMinute <= 0 {
		opts.MessagesPerMinute = DefaultMessagesPerMinute
	}
	return &Bot{
		messenger: messenger,
		engine:    eng,
		builder:   builder,
		store:     store,
		jobs:      jobs,
		recorder:  history.Nop{},
		opts:      opts,
		limiters:  make(map[int64]*rate.Limiter),
	}
}

// SetRecorder sets the ledger used by /stats
func (b *Bot) SetRecorder(recorder history.Recorder) {
	if recorder != nil {
		b.recorder = recorder
	}
}

// SetPlaylistCounter enables item counts in the playlist rejection message
func (b *Bot) SetPlaylistCounter(counter PlaylistCounter) {
	b.playlists = counter
}

// HandleMessage implements gateway.Handler
func (b *Bot) HandleMessage(ctx context.Context, msg gateway.Message) {
	switch msg.Command {
	case "":
		b.handleURL(ctx, msg)
	case CommandStart:
		b.reply(ctx, msg.ChatID, WelcomeText)
	case CommandHelp:
		b.reply(ctx, msg.ChatID, HelpText(b.opts.MaxUploadSize))
	case CommandStats:
		b.handleStats(ctx, msg)
	case CommandBest:
		b.handleShortcut(ctx, msg, model.FormatBest)
	case CommandAudio:
		b.handleShortcut(ctx, msg, model.FormatAudio)
	default:
		b.reply(ctx, msg.ChatID, UnknownCommandText)
	}
}

// HandleCallback implements gateway.Handler
func (b *Bot) HandleCallback(ctx context.Context, cb gateway.Callback) {
	if err := b.messenger.AnswerCallback(ctx, cb.ID, ""); err != nil {
		log.Printf("Failed to answer callback %s: %v", cb.ID, err)
	}
	menu := model.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}

	sessionID, index, err := ParseCallbackData(cb.Data)
	if err != nil {
		log.Printf("Bad callback data %q from %d: %v", cb.Data, cb.SenderID, err)
		b.edit(ctx, menu, download.SessionExpiredText)
		return
	}

	jobID := download.NewJobID()
	sess, opt, err := b.store.AttachJob(cb.SenderID, sessionID, jobID, index)
	switch {
	case errors.Is(err, session.ErrJobActive):
		// a second tap on a menu whose job already started
		return
	case err != nil:
		log.Printf("Selection for session %s rejected: %v", sessionID, err)
		b.edit(ctx, menu, download.SessionExpiredText)
		return
	}

	b.edit(ctx, menu, ProcessingTextFor(opt))
	b.startJob(ctx, download.Request{
		JobID:       jobID,
		SessionID:   sess.ID,
		RequesterID: sess.RequesterID,
		ChatID:      sess.ChatID,
		URL:         sess.URL,
		Option:      opt,
		Catalog:     sess.Catalog,
	})
}

// OnSessionExpired is called by the store janitor for swept sessions
func (b *Bot) OnSessionExpired(sess model.Session) {
	log.Printf("Session %s of %d expired waiting for a selection", sess.ID, sess.RequesterID)
	if sess.Menu.IsZero() {
		return
	}
	b.edit(context.Background(), sess.Menu, SelectionExpiredText)
}

// handleURL probes a submitted URL and shows the format menu
func (b *Bot) handleURL(ctx context.Context, msg gateway.Message) {
	url := ExtractURL(msg.Text)
	if url == "" {
		b.reply(ctx, msg.ChatID, download.InvalidInputText)
		return
	}
	if !b.allow(msg.SenderID) {
		b.reply(ctx, msg.ChatID, RateLimitedText)
		return
	}
	if b.store.HasActiveJob(msg.SenderID) {
		b.reply(ctx, msg.ChatID, JobActiveText)
		return
	}

	status, err := b.messenger.SendText(ctx, msg.ChatID, FetchingText)
	if err != nil {
		log.Printf("Failed to send status to %d: %v", msg.ChatID, err)
	}

	probe, err := b.engine.Probe(ctx, url)
	if err != nil {
		log.Printf("Probe failed for %s: %v", url, err)
		b.show(ctx, msg.ChatID, status, download.FailureText(model.NewJobError(model.ErrProbeFailed, err), b.opts.MaxUploadSize))
		return
	}

	cat, err := b.builder.Build(probe)
	if err != nil {
		if model.KindOf(err) == model.ErrUnsupportedContent {
			b.show(ctx, msg.ChatID, status, b.playlistText(ctx, url, probe))
			return
		}
		b.show(ctx, msg.ChatID, status, download.FailureText(err, b.opts.MaxUploadSize))
		return
	}

	sess, err := b.store.Put(msg.SenderID, msg.ChatID, url, cat)
	if err != nil {
		// a job started for this requester while we were probing
		b.show(ctx, msg.ChatID, status, JobActiveText)
		return
	}

	text := ConfirmationText(cat)
	rows := MenuRows(sess.ID, cat)
	menu := status
	if status.IsZero() {
		menu, err = b.messenger.SendMenu(ctx, msg.ChatID, text, rows)
	} else {
		err = b.messenger.EditMenu(ctx, status, text, rows)
	}
	if err != nil {
		log.Printf("Failed to show menu for session %s: %v", sess.ID, err)
		b.store.Remove(sess.ID)
		return
	}
	if err := b.store.SetMenu(sess.ID, menu); err != nil {
		log.Printf("Session %s gone before its menu was shown: %v", sess.ID, err)
	}
}

// handleShortcut starts a job without a menu
func (b *Bot) handleShortcut(ctx context.Context, msg gateway.Message, kind model.FormatKind) {
	url := ExtractURL(msg.Args)
	if url == "" {
		b.reply(ctx, msg.ChatID, download.InvalidInputText)
		return
	}
	if !b.allow(msg.SenderID) {
		b.reply(ctx, msg.ChatID, RateLimitedText)
		return
	}

	jobID := download.NewJobID()
	sess, err := b.store.StartDirect(msg.SenderID, msg.ChatID, url, jobID)
	if err != nil {
		b.reply(ctx, msg.ChatID, JobActiveText)
		return
	}

	b.startJob(ctx, download.Request{
		JobID:       jobID,
		SessionID:   sess.ID,
		RequesterID: msg.SenderID,
		ChatID:      msg.ChatID,
		URL:         url,
		Option:      b.builder.ShortcutOption(kind),
	})
}

func (b *Bot) handleStats(ctx context.Context, msg gateway.Message) {
	stats, err := b.recorder.Stats(ctx, msg.SenderID)
	if err != nil {
		log.Printf("Failed to load stats for %d: %v", msg.SenderID, err)
		b.reply(ctx, msg.ChatID, StatsUnavailableText)
		return
	}
	b.reply(ctx, msg.ChatID, StatsText(stats))
}

func (b *Bot) startJob(ctx context.Context, req download.Request) {
	job, err := b.jobs.Start(req)
	if err != nil {
		log.Printf("Failed to start job for session %s: %v", req.SessionID, err)
		b.store.Remove(req.SessionID)
		b.reply(ctx, req.ChatID, download.FailureText(err, b.opts.MaxUploadSize))
		return
	}
	log.Printf("Job %s started for session %s (%s)", job.ID, req.SessionID, req.Option.Kind)
}

func (b *Bot) playlistText(ctx context.Context, url string, probe *model.ProbeResult) string {
	count := probe.PlaylistCount
	if count == 0 && b.playlists != nil {
		n, err := b.playlists.CountItems(ctx, url)
		if err != nil {
			log.Printf("Failed to count playlist items for %s: %v", url, err)
		}
		count = n
	}
	if count <= 0 {
		return download.UnsupportedContentText
	}
	return fmt.Sprintf(PlaylistCountText, download.UnsupportedContentText, count)
}

// allow applies the per-requester inbound rate
func (b *Bot) allow(requesterID int64) bool {
	b.limitersMu.Lock()
	defer b.limitersMu.Unlock()

	limiter, ok := b.limiters[requesterID]
	if !ok {
		if len(b.limiters) >= maxTrackedRequesters {
			b.limiters = make(map[int64]*rate.Limiter)
		}
		n := b.opts.MessagesPerMinute
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
		b.limiters[requesterID] = limiter
	}
	return limiter.Allow()
}

// show replaces status with text, or sends text when there is no status message
func (b *Bot) show(ctx context.Context, chatID int64, status model.MessageRef, text string) {
	if !status.IsZero() {
		if err := b.messenger.EditText(ctx, status, text); err == nil {
			return
		}
	}
	b.reply(ctx, chatID, text)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.messenger.SendText(ctx, chatID, text); err != nil {
		log.Printf("Failed to send message to %d: %v", chatID, err)
	}
}

func (b *Bot) edit(ctx context.Context, ref model.MessageRef, text string) {
	if ref.IsZero() {
		return
	}
	if err := b.messenger.EditText(ctx, ref, text); err != nil {
		log.Printf("Failed to edit message %d: %v", ref.MessageID, err)
	}
}

// ExtractURL returns the first http(s) URL in text
func ExtractURL(text string) string {
	return urlPattern.FindString(text)
}

// MenuRows renders one button per catalog option
func MenuRows(sessionID string, cat *model.Catalog) [][]gateway.Button {
	rows := make([][]gateway.Button, 0, len(cat.Options))
	for i, opt := range cat.Options {
		rows = append(rows, []gateway.Button{{Label: opt.Label, Data: CallbackData(sessionID, i)}})
	}
	return rows
}

// CallbackData encodes a menu selection
func CallbackData(sessionID string, index int) string {
	return sessionID + callbackSeparator + strconv.Itoa(index)
}

// ParseCallbackData decodes a menu selection
func ParseCallbackData(data string) (string, int, error) {
	i := strings.LastIndex(data, callbackSeparator)
	if i <= 0 {
		return "", 0, fmt.Errorf("malformed callback data: %q", data)
	}
	index, err := strconv.Atoi(data[i+1:])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("malformed option index in %q", data)
	}
	return data[:i], index, nil
}
