package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"groqchat/internal/interfaces"
)

const (
	telegramWelcome = "Hi! Send me any message and I'll pass it to the model.\n\nEvery message is answered on its own; I don't remember earlier ones."
	telegramFailure = "Sorry, the LLM request failed. Please try again."
)

// telegramSender is the part of *tgbotapi.BotAPI the relay writes through.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// telegramPoller is the long-polling side of *tgbotapi.BotAPI.
type telegramPoller interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramRelay long-polls a Telegram bot and relays private text
// messages through the same ChatRelayer the web endpoint uses.
type TelegramRelay struct {
	bot     *tgbotapi.BotAPI
	sender  telegramSender
	poller  telegramPoller
	relayer interfaces.ChatRelayer
	logger  *slog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewTelegramRelay validates the token against the Bot API (getMe).
func NewTelegramRelay(token string, relayer interfaces.ChatRelayer, logger *slog.Logger) (*TelegramRelay, error) {
	if relayer == nil {
		return nil, errors.New("telegram: relayer must not be nil")
	}
	if token == "" {
		return nil, errors.New("telegram: bot token must not be empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: invalid token: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramRelay{
		bot:     bot,
		sender:  bot,
		poller:  bot,
		relayer: relayer,
		logger:  logger.With("component", "telegram"),
	}, nil
}

// BotName returns the bot's @username.
func (t *TelegramRelay) BotName() string {
	if t.bot == nil {
		return ""
	}
	return t.bot.Self.UserName
}

// Start begins polling in a goroutine. Calling Start twice is a no-op.
func (t *TelegramRelay) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stopChan = make(chan struct{})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.poller.GetUpdatesChan(u)

	t.logger.Info("started polling", "bot", t.BotName())
	t.wg.Add(1)
	go t.poll(ctx, updates, t.stopChan)
}

func (t *TelegramRelay) poll(ctx context.Context, updates tgbotapi.UpdatesChannel, stop <-chan struct{}) {
	defer t.wg.Done()
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.wg.Add(1)
			go func() {
				defer t.wg.Done()
				t.handleUpdate(ctx, update)
			}()
		}
	}
}

// Stop ends polling and waits for in-flight replies to finish.
func (t *TelegramRelay) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stopChan)
	t.poller.StopReceivingUpdates()
	t.mu.Unlock()

	t.wg.Wait()
	t.logger.Info("stopped polling")
}

// handleUpdate answers a single update. Only private text messages are
// relayed; everything else is ignored.
func (t *TelegramRelay) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.Chat.IsPrivate() || msg.Text == "" {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			t.send(tgbotapi.NewMessage(chatID, telegramWelcome))
		}
		return
	}

	if _, err := t.sender.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		t.logger.Debug("chat action failed", "chat_id", chatID, "err", err)
	}

	exchange := t.relayer.Relay(ctx, msg.Text)
	text := exchange.BotReply
	if !exchange.OK() {
		t.logger.Error("llm request failed", "chat_id", chatID, "err", exchange.Err)
		text = telegramFailure
	} else if text == "" {
		text = "(empty reply)"
	}

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ReplyToMessageID = msg.MessageID
	t.send(reply)
}

func (t *TelegramRelay) send(c tgbotapi.Chattable) {
	if _, err := t.sender.Send(c); err != nil {
		t.logger.Error("send failed", "err", err)
	}
}
