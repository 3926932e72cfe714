package sink

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	// Bot API limit for uploads through sendDocument.
	maxTelegramDocument = 50 << 20
	maxTelegramCaption  = 1024
)

// Sender is the subset of *tgbotapi.BotAPI the sink needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink uploads archives as documents to a Telegram chat. The target is
// the numeric chat ID; when empty the default chat is used.
type TelegramSink struct {
	bot         Sender
	defaultChat int64
}

// NewTelegramSink creates a sink backed by a bot API client.
func NewTelegramSink(token string, defaultChat int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &TelegramSink{bot: bot, defaultChat: defaultChat}, nil
}

// NewTelegramSinkWithSender is used when the caller already owns a sender.
func NewTelegramSinkWithSender(bot Sender, defaultChat int64) *TelegramSink {
	return &TelegramSink{bot: bot, defaultChat: defaultChat}
}

func (t *TelegramSink) Deliver(ctx context.Context, target, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	chatID, err := t.resolveChat(target)
	if err != nil {
		return "", err
	}
	if len(data) > maxTelegramDocument {
		return "", fmt.Errorf("archive %s is %d bytes, exceeds telegram limit", name, len(data))
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = truncateCaption(name)
	msg, err := t.bot.Send(doc)
	if err != nil {
		return "", fmt.Errorf("send document: %w", err)
	}

	loc := fmt.Sprintf("telegram:%d", chatID)
	if msg.Document != nil && msg.Document.FileID != "" {
		loc += "/" + msg.Document.FileID
	}
	return loc, nil
}

func (t *TelegramSink) resolveChat(target string) (int64, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		if t.defaultChat == 0 {
			return 0, fmt.Errorf("no telegram chat configured")
		}
		return t.defaultChat, nil
	}
	id, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", target, err)
	}
	return id, nil
}

func truncateCaption(text string) string {
	if len(text) <= maxTelegramCaption {
		return text
	}
	return text[:maxTelegramCaption]
}
