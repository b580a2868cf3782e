package channels

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/halcyonchat/halcyon/internal/bus"
	"github.com/halcyonchat/halcyon/internal/config/channel"
)

// How long a typing indicator keeps refreshing when no reply arrives,
// e.g. for messages the engine drops without publishing anything.
const typingTimeout = 2 * time.Minute

// TelegramChannel implements the Telegram bot via long polling.
type TelegramChannel struct {
	Base
	cfg    *channel.TelegramConfig
	bot    *tgbotapi.BotAPI
	typing sync.Map // chat id → context.CancelFunc for the typing loop
}

func NewTelegramChannel(cfg *channel.TelegramConfig, b *bus.MessageBus) *TelegramChannel {
	return &TelegramChannel{
		Base: NewBase(bus.ChannelTelegram, b, cfg.AllowFrom),
		cfg:  cfg,
	}
}

func (t *TelegramChannel) Name() string { return bus.ChannelTelegram }

func (t *TelegramChannel) Start(ctx context.Context) error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: bot token not configured")
	}
	bot, err := tgbotapi.NewBotAPI(t.cfg.Token)
	if err != nil {
		return fmt.Errorf("telegram: create bot: %w", err)
	}
	t.bot = bot
	slog.Info("telegram: connected", "username", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go t.handleUpdate(ctx, update)
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (t *TelegramChannel) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	senderID := strconv.FormatInt(msg.From.ID, 10)
	if msg.From.UserName != "" {
		senderID = senderID + "|" + msg.From.UserName
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	content := msg.Text
	if content == "" {
		content = msg.Caption
	}
	if content == "" {
		return
	}

	// Typing indicator until the reply goes out; Send cancels it.
	t.startTyping(ctx, chatID, msg.Chat.ID)

	t.HandleMessage(senderID, chatID, content, map[string]any{
		"message_id": msg.MessageID,
		"username":   msg.From.UserName,
		"is_group":   msg.Chat.Type != "private",
	})
}

// startTyping runs a typing loop for the chat, replacing any loop still
// running from an earlier message in the same chat.
func (t *TelegramChannel) startTyping(ctx context.Context, chatKey string, chatID int64) {
	loopCtx, cancel := context.WithTimeout(ctx, typingTimeout)
	if prev, ok := t.typing.Swap(chatKey, context.CancelFunc(cancel)); ok {
		prev.(context.CancelFunc)()
	}
	go t.sendTypingLoop(loopCtx, chatID)
}

func (t *TelegramChannel) stopTyping(chatKey string) {
	if cancel, ok := t.typing.LoadAndDelete(chatKey); ok {
		cancel.(context.CancelFunc)()
	}
}

func (t *TelegramChannel) sendTypingLoop(ctx context.Context, chatID int64) {
	for {
		if t.bot != nil {
			action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
			_, _ = t.bot.Send(action)
		}
		select {
		case <-time.After(4 * time.Second):
		case <-ctx.Done():
			return
		}
	}
}

func (t *TelegramChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	defer t.stopTyping(msg.ChatID())
	if t.bot == nil {
		return fmt.Errorf("telegram: bot not running")
	}
	chatID, err := strconv.ParseInt(msg.ChatID(), 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat id %q", msg.ChatID())
	}
	if msg.Content() == "" {
		return nil
	}

	var replyMsgID int
	if t.cfg.ReplyToMessage {
		if mid, ok := msg.Metadata()["message_id"]; ok {
			switch v := mid.(type) {
			case int:
				replyMsgID = v
			case float64:
				replyMsgID = int(v)
			}
		}
	}

	for _, chunk := range splitMessage(msg.Content(), 4000) {
		m := tgbotapi.NewMessage(chatID, chunk)
		if replyMsgID != 0 {
			m.ReplyToMessageID = replyMsgID
		}
		if _, err := t.bot.Send(m); err != nil {
			return fmt.Errorf("telegram: send: %w", err)
		}
	}
	return nil
}
