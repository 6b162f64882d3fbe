package gateway

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMessage_Text(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: 42},
		Chat:      &tgbotapi.Chat{ID: 100},
		Text:      "look https://example.com/v",
	}}

	msg, ok := toMessage(update)
	require.True(t, ok)
	assert.Equal(t, Message{ChatID: 100, SenderID: 42, MessageID: 7, Text: "look https://example.com/v"}, msg)
}

func TestToMessage_Command(t *testing.T) {
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 8,
		From:      &tgbotapi.User{ID: 42},
		Chat:      &tgbotapi.Chat{ID: 100},
		Text:      "/audio https://example.com/v",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}},
	}}

	msg, ok := toMessage(update)
	require.True(t, ok)
	assert.Equal(t, "audio", msg.Command)
	assert.Equal(t, "https://example.com/v", msg.Args)
}

func TestToMessage_Ignored(t *testing.T) {
	_, ok := toMessage(tgbotapi.Update{})
	assert.False(t, ok)

	_, ok = toMessage(tgbotapi.Update{Message: &tgbotapi.Message{Text: "no sender"}})
	assert.False(t, ok)
}

func TestToCallback(t *testing.T) {
	update := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: 42},
		Message: &tgbotapi.Message{
			MessageID: 9,
			Chat:      &tgbotapi.Chat{ID: 100},
		},
		Data: "sess:2",
	}}

	cb, ok := toCallback(update)
	require.True(t, ok)
	assert.Equal(t, Callback{ID: "cb-1", ChatID: 100, SenderID: 42, MessageID: 9, Data: "sess:2"}, cb)

	_, ok = toCallback(tgbotapi.Update{})
	assert.False(t, ok)
}

func TestKeyboard(t *testing.T) {
	markup := keyboard([][]Button{
		{{Label: "A", Data: "s:0"}},
		{{Label: "B", Data: "s:1"}, {Label: "C", Data: "s:2"}},
	})

	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[1], 2)
	assert.Equal(t, "B", markup.InlineKeyboard[1][0].Text)
	require.NotNil(t, markup.InlineKeyboard[1][1].CallbackData)
	assert.Equal(t, "s:2", *markup.InlineKeyboard[1][1].CallbackData)
}

func TestVideoParams(t *testing.T) {
	params := videoParams(100, Upload{Caption: "clip", Duration: 61, Width: 640, Height: 360})

	assert.Equal(t, "100", params["chat_id"])
	assert.Equal(t, "clip", params["caption"])
	assert.Equal(t, "61", params["duration"])
	assert.Equal(t, "640", params["width"])
	assert.Equal(t, "360", params["height"])
	assert.Equal(t, "true", params["supports_streaming"])

	params = videoParams(100, Upload{})
	assert.NotContains(t, params, "width")
	assert.NotContains(t, params, "height")
	assert.NotContains(t, params, "caption")
}
