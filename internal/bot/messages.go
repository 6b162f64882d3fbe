package bot

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ytget/tg-downloader/internal/history"
	"github.com/ytget/tg-downloader/internal/model"
)

// Conversation texts
const (
	WelcomeText = "🤖 Video Downloader Bot\n\n" +
		"Send me any video URL from:\n" +
		"• YouTube\n• TikTok\n• Instagram\n• Facebook\n• Twitter\n• 1000+ sites\n\n" +
		"⚡ Just send the URL!"

	helpTemplate = "📖 How to use\n\n" +
		"1. Send a video URL\n" +
		"2. Pick a quality or audio only\n" +
		"3. Wait for the file\n\n" +
		"Commands:\n" +
		"/start - welcome message\n" +
		"/help - this help\n" +
		"/best <url> - download the best quality right away\n" +
		"/audio <url> - extract audio right away\n" +
		"/stats - your download statistics\n\n" +
		"Files larger than %s cannot be sent.\n" +
		"Note: some sites may have restrictions."

	FetchingText         = "🔍 Fetching video information..."
	ProcessingText       = "⏳ Processing your request..."
	JobActiveText        = "⏳ A download is already in progress. Please wait for it to finish."
	RateLimitedText      = "🐢 Too many requests. Please wait a minute and try again."
	SelectionExpiredText = "⌛ Selection expired, send the link again."
	UnknownCommandText   = "Unknown command. Use /help to see what I can do."
	PlaylistCountText    = "%s\nThis playlist has %d videos."
	StatsUnavailableText = "Statistics are not available right now."

	confirmationTemplate = "📹 Video Found!\n\n" +
		"Title: %s\n" +
		"Duration: %s\n" +
		"Uploader: %s\n\n" +
		"Select download option:"

	statsTemplate = "📊 Your downloads\n\n" +
		"Total: %d\n" +
		"Completed: %d\n" +
		"Failed: %d\n" +
		"Delivered: %s"
)

// HelpText renders /help for the configured upload limit
func HelpText(limit int64) string {
	return fmt.Sprintf(helpTemplate, humanize.IBytes(uint64(limit)))
}

// ConfirmationText renders the menu header for a probed catalog
func ConfirmationText(cat *model.Catalog) string {
	return fmt.Sprintf(confirmationTemplate, cat.Title, cat.Duration, cat.Uploader)
}

// StatsText renders /stats
func StatsText(stats history.Stats) string {
	return fmt.Sprintf(statsTemplate, stats.Total, stats.Completed, stats.Failed, humanize.IBytes(uint64(stats.Bytes)))
}

// ProcessingTextFor echoes the chosen option under the processing notice
func ProcessingTextFor(opt model.FormatOption) string {
	var b strings.Builder
	b.WriteString(ProcessingText)
	if opt.Label != "" {
		b.WriteString("\n")
		b.WriteString(opt.Label)
	}
	return b.String()
}
