package http

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"groqchat/internal/usecases"
)

// chatRequest is the only accepted shape for POST /chat. The pointer lets
// binding tell a missing or null "message" apart from an empty string.
type chatRequest struct {
	Message *string `json:"message" binding:"required"`
}

var errMalformedBody = errors.New("body is not a single JSON value")

// bindChatRequest decodes and validates the body before any relay work.
// Any failure (no body, bad JSON, trailing data, wrong type, missing key)
// is an INVALID_INPUT error.
func bindChatRequest(c *gin.Context) (string, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return "", usecases.InvalidInput("unreadable_body", err)
	}
	// The JSON binding stops after the first value, so reject the rest here.
	if !json.Valid(raw) {
		return "", usecases.InvalidInput("malformed_body", errMalformedBody)
	}

	var req chatRequest
	if err := binding.JSON.BindBody(raw, &req); err != nil {
		return "", usecases.InvalidInput("missing_message", err)
	}
	return *req.Message, nil
}
