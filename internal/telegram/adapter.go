// Package telegram implements the messaging capability on the Telegram Bot
// API. A session thread is an ordinary message; posts into the thread reply
// to it, which Telegram renders as a discussion chain.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/clawrelay/internal/types"
)

const maxTelegramMessage = 4096

// Adapter posts relay messages to Telegram, implementing types.Messenger.
type Adapter struct {
	bot   *tgbotapi.BotAPI
	retry *RetryPolicy
}

// New creates a Telegram adapter.
func New(token string) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{bot: bot, retry: DefaultRetryPolicy()}, nil
}

var _ types.Messenger = (*Adapter)(nil)

// Post renders the message to Telegram markdown and sends it, splitting
// oversized texts. Returns the handle of the first sent part.
func (a *Adapter) Post(_ context.Context, msg *types.OutboundMessage) (*types.PostedMessage, error) {
	chatID, err := strconv.ParseInt(string(msg.Channel), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid channel %q: %w", msg.Channel, err)
	}
	var replyTo int
	if msg.ThreadHandle != "" {
		replyTo, err = strconv.Atoi(string(msg.ThreadHandle))
		if err != nil {
			return nil, fmt.Errorf("invalid thread handle %q: %w", msg.ThreadHandle, err)
		}
	}

	parts := splitMessage(renderMessage(msg))
	var firstID int
	for i, part := range parts {
		m := tgbotapi.NewMessage(chatID, part)
		m.ParseMode = tgbotapi.ModeMarkdown
		m.ReplyToMessageID = replyTo
		sent, err := a.send(m)
		if err != nil {
			return nil, fmt.Errorf("send message: %w", err)
		}
		if i == 0 {
			firstID = sent.MessageID
		}
	}
	return &types.PostedMessage{
		Handle:  types.ThreadHandle(strconv.Itoa(firstID)),
		Channel: msg.Channel,
	}, nil
}

// send delivers one message with bounded retry, falling back to plain text
// when Telegram rejects the markdown.
func (a *Adapter) send(m tgbotapi.MessageConfig) (tgbotapi.Message, error) {
	var sent tgbotapi.Message
	err := a.retry.Execute(func() error {
		var err error
		sent, err = a.bot.Send(m)
		if err != nil && m.ParseMode != "" && strings.Contains(strings.ToLower(err.Error()), "parse") {
			plain := m
			plain.ParseMode = ""
			sent, err = a.bot.Send(plain)
		}
		return err
	})
	return sent, err
}

// renderMessage flattens the structured blocks into Telegram markdown. The
// plain fallback text is used when no blocks are present.
func renderMessage(msg *types.OutboundMessage) string {
	if len(msg.Blocks) == 0 {
		return msg.Text
	}
	lines := make([]string, 0, len(msg.Blocks))
	for _, block := range msg.Blocks {
		switch block.Kind {
		case types.BlockHeader:
			lines = append(lines, "*"+block.Text+"*")
		case types.BlockCode:
			lines = append(lines, "```\n"+block.Text+"\n```")
		case types.BlockContext:
			lines = append(lines, "_"+block.Text+"_")
		default:
			lines = append(lines, block.Text)
		}
	}
	return strings.Join(lines, "\n")
}

func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end > len(text) {
			end = len(text)
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
