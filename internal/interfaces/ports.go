package interfaces

import (
	"context"

	"groqchat/internal/entities"
)

// AIClient is the LLM provider capability consumed by the relay.
type AIClient interface {
	GenerateReply(ctx context.Context, prompt string) (string, error)
}

// ChatRelayer turns a user message into a completed ChatExchange.
// Transports (web, Telegram) depend on this rather than on the LLM client.
type ChatRelayer interface {
	Relay(ctx context.Context, message string) entities.ChatExchange
}
