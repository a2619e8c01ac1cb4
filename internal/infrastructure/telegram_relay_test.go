package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"groqchat/internal/entities"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.sendErr
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type stubRelayer struct {
	reply string
	err   error
	got   []string
}

func (s *stubRelayer) Relay(_ context.Context, message string) entities.ChatExchange {
	s.got = append(s.got, message)
	return entities.ChatExchange{UserMessage: message, BotReply: s.reply, Err: s.err}
}

type fakePoller struct {
	updates chan tgbotapi.Update
	calls   atomic.Int32
	stopped atomic.Bool
}

func newFakePoller() *fakePoller {
	return &fakePoller{updates: make(chan tgbotapi.Update)}
}

func (f *fakePoller) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	f.calls.Add(1)
	return f.updates
}

func (f *fakePoller) StopReceivingUpdates() {
	f.stopped.Store(true)
}

// blockingRelayer holds every Relay call until release is closed.
type blockingRelayer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingRelayer) Relay(_ context.Context, message string) entities.ChatExchange {
	b.started <- struct{}{}
	<-b.release
	return entities.ChatExchange{UserMessage: message, BotReply: "done"}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func newTestRelay(sender *fakeSender, relayer *stubRelayer) *TelegramRelay {
	return &TelegramRelay{
		sender:  sender,
		relayer: relayer,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func privateText(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 42,
		Chat:      &tgbotapi.Chat{ID: 1001, Type: "private"},
		Text:      text,
	}}
}

func command(name string) tgbotapi.Update {
	u := privateText("/" + name)
	u.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name) + 1}}
	return u
}

func TestNewTelegramRelay_Validation(t *testing.T) {
	_, err := NewTelegramRelay("123:abc", nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "relayer")

	_, err = NewTelegramRelay("", &stubRelayer{}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "token")
}

func TestTelegramRelay_RelaysText(t *testing.T) {
	sender := &fakeSender{}
	relayer := &stubRelayer{reply: "hi there"}
	relay := newTestRelay(sender, relayer)

	relay.handleUpdate(context.Background(), privateText("hello"))

	require.Equal(t, []string{"hello"}, relayer.got)
	require.Len(t, sender.requests, 1)
	action, ok := sender.requests[0].(tgbotapi.ChatActionConfig)
	require.True(t, ok)
	require.Equal(t, tgbotapi.ChatTyping, action.Action)

	require.Len(t, sender.sent, 1)
	reply, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	require.Equal(t, int64(1001), reply.ChatID)
	require.Equal(t, "hi there", reply.Text)
	require.Equal(t, 42, reply.ReplyToMessageID)
}

func TestTelegramRelay_UpstreamFailureHidesDetails(t *testing.T) {
	sender := &fakeSender{}
	relay := newTestRelay(sender, &stubRelayer{err: errors.New("401 invalid api key gsk-secret")})

	relay.handleUpdate(context.Background(), privateText("hello"))

	require.Len(t, sender.sent, 1)
	reply := sender.sent[0].(tgbotapi.MessageConfig)
	require.Equal(t, telegramFailure, reply.Text)
	require.NotContains(t, reply.Text, "gsk-secret")
}

func TestTelegramRelay_EmptyReply(t *testing.T) {
	sender := &fakeSender{}
	relay := newTestRelay(sender, &stubRelayer{reply: ""})

	relay.handleUpdate(context.Background(), privateText("hello"))

	require.Len(t, sender.sent, 1)
	require.Equal(t, "(empty reply)", sender.sent[0].(tgbotapi.MessageConfig).Text)
}

func TestTelegramRelay_Commands(t *testing.T) {
	for _, name := range []string{"start", "help"} {
		t.Run(name, func(t *testing.T) {
			sender := &fakeSender{}
			relayer := &stubRelayer{reply: "should not be used"}
			relay := newTestRelay(sender, relayer)

			relay.handleUpdate(context.Background(), command(name))

			require.Empty(t, relayer.got, "commands must not reach the LLM")
			require.Len(t, sender.sent, 1)
			require.Equal(t, telegramWelcome, sender.sent[0].(tgbotapi.MessageConfig).Text)
		})
	}

	sender := &fakeSender{}
	relayer := &stubRelayer{}
	newTestRelay(sender, relayer).handleUpdate(context.Background(), command("unknown"))
	require.Empty(t, relayer.got)
	require.Empty(t, sender.sent)
}

func TestTelegramRelay_IgnoresNonPrivateAndNonText(t *testing.T) {
	group := privateText("hello")
	group.Message.Chat.Type = "group"

	cases := map[string]tgbotapi.Update{
		"no message": {},
		"no chat":    {Message: &tgbotapi.Message{Text: "hello"}},
		"group":      group,
		"empty text": privateText(""),
	}
	for name, update := range cases {
		t.Run(name, func(t *testing.T) {
			sender := &fakeSender{}
			relayer := &stubRelayer{reply: "x"}
			newTestRelay(sender, relayer).handleUpdate(context.Background(), update)
			require.Empty(t, relayer.got)
			require.Empty(t, sender.sent)
			require.Empty(t, sender.requests)
		})
	}
}

func TestTelegramRelay_SendErrorIsNotFatal(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("telegram down")}
	relay := newTestRelay(sender, &stubRelayer{reply: "ok"})

	require.NotPanics(t, func() {
		relay.handleUpdate(context.Background(), privateText("hello"))
	})
	require.Len(t, sender.sent, 1)
}

func TestTelegramRelay_StopWithoutStart(t *testing.T) {
	relay := newTestRelay(&fakeSender{}, &stubRelayer{})
	require.NotPanics(t, relay.Stop)
	require.Empty(t, relay.BotName())
}

func TestTelegramRelay_StopWaitsForInFlightReplies(t *testing.T) {
	poller := newFakePoller()
	sender := &fakeSender{}
	relayer := &blockingRelayer{started: make(chan struct{}, 1), release: make(chan struct{})}
	relay := newTestRelay(sender, &stubRelayer{})
	relay.relayer = relayer
	relay.poller = poller

	relay.Start(context.Background())
	poller.updates <- privateText("hello")
	waitFor(t, relayer.started, "relay to start")

	stopped := make(chan struct{})
	go func() {
		relay.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a reply was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(relayer.release)
	waitFor(t, stopped, "Stop")

	require.True(t, poller.stopped.Load())
	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.sent, 1)
	require.Equal(t, "done", sender.sent[0].(tgbotapi.MessageConfig).Text)
}

func TestTelegramRelay_ContextCancelEndsPolling(t *testing.T) {
	poller := newFakePoller()
	relay := newTestRelay(&fakeSender{}, &stubRelayer{})
	relay.poller = poller

	ctx, cancel := context.WithCancel(context.Background())
	relay.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		relay.wg.Wait()
		close(done)
	}()
	waitFor(t, done, "poll to exit")

	require.NotPanics(t, relay.Stop)
	require.True(t, poller.stopped.Load())
}

func TestTelegramRelay_SecondStartIsNoop(t *testing.T) {
	poller := newFakePoller()
	relay := newTestRelay(&fakeSender{}, &stubRelayer{})
	relay.poller = poller

	relay.Start(context.Background())
	relay.Start(context.Background())
	require.Equal(t, int32(1), poller.calls.Load())

	relay.Stop()
	relay.Stop()
	require.True(t, poller.stopped.Load())
}
