package publish

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

// TelegramSender delivers posts through the Telegram Bot API.
type TelegramSender struct {
	api telegramAPI
}

// NewTelegramSender wraps an authorized bot API client.
func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

// SendText sends a plain text message and returns its message ID.
func (t *TelegramSender) SendText(chatID int64, text string) (int64, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	sent, err := t.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return int64(sent.MessageID), nil
}

// SendMedia sends the text with attached photos: a single photo becomes
// a captioned photo message, several become a media group with the text
// as the first item's caption. The first message's ID is returned.
func (t *TelegramSender) SendMedia(chatID int64, text string, mediaURLs []string) (int64, error) {
	if len(mediaURLs) == 0 {
		return t.SendText(chatID, text)
	}

	if len(mediaURLs) == 1 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(mediaURLs[0]))
		photo.Caption = text
		sent, err := t.api.Send(photo)
		if err != nil {
			return 0, fmt.Errorf("send photo: %w", err)
		}
		return int64(sent.MessageID), nil
	}

	var media []interface{}
	for i, url := range mediaURLs {
		photo := tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(url))
		if i == 0 {
			photo.Caption = text
		}
		media = append(media, photo)
	}

	sent, err := t.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, media))
	if err != nil {
		return 0, fmt.Errorf("send media group: %w", err)
	}
	if len(sent) == 0 {
		return 0, fmt.Errorf("empty media group response")
	}
	return int64(sent[0].MessageID), nil
}
