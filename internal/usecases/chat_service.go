package usecases

import (
	"context"
	"errors"

	"groqchat/internal/entities"
	"groqchat/internal/interfaces"
)

// ChatService relays a single message to the LLM provider.
// It holds no per-request state and is safe for concurrent use as long as
// the underlying AIClient is.
type ChatService struct {
	ai interfaces.AIClient
}

func NewChatService(ai interfaces.AIClient) (*ChatService, error) {
	if ai == nil {
		return nil, errors.New("usecase: ai client must not be nil")
	}
	return &ChatService{ai: ai}, nil
}

// Relay forwards message unchanged and records the outcome.
func (s *ChatService) Relay(ctx context.Context, message string) entities.ChatExchange {
	exchange := entities.ChatExchange{UserMessage: message}

	reply, err := s.ai.GenerateReply(ctx, message)
	if err != nil {
		exchange.Err = newError(ErrorUpstream, "llm_request_failed", err)
		return exchange
	}

	exchange.BotReply = reply
	return exchange
}
