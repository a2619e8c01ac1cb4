package http

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"groqchat/internal/infrastructure"
	"groqchat/internal/interfaces"
	"groqchat/internal/usecases"
)

const (
	msgMissingMessage = "Missing 'message' field"
	msgLLMFailed      = "LLM request failed"
	msgInternal       = "Internal server error"

	maxRequestBytes = 10 << 20
)

//go:embed templates/index.html
var templateFS embed.FS

type chatResponse struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type Handler struct {
	relayer   interfaces.ChatRelayer
	model     string
	publicURL string
	logger    *slog.Logger
}

func NewHandler(relayer interfaces.ChatRelayer, model, publicURL string, logger *slog.Logger) (*Handler, error) {
	if relayer == nil {
		return nil, errors.New("http: relayer must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		relayer:   relayer,
		model:     model,
		publicURL: publicURL,
		logger:    logger,
	}, nil
}

func SetupRoutes(r *gin.Engine, h *Handler, middleware *Middleware) {
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/index.html")))

	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(maxRequestBytes))
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.CorrelationID())

	r.GET("/", h.Index)
	r.POST("/chat", h.Chat)
	r.GET("/qr", h.QRCode)
	r.GET("/healthz", h.Health)
}

// Index renders the chat page. It reads no request or server state.
func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title": "Groq Chat",
		"Model": h.model,
	})
}

// Chat relays one message: validate, call the LLM, respond.
func (h *Handler) Chat(c *gin.Context) {
	message, err := bindChatRequest(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	exchange := h.relayer.Relay(c.Request.Context(), message)
	if !exchange.OK() {
		h.writeError(c, exchange.Err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		User: exchange.UserMessage,
		Bot:  exchange.BotReply,
	})
}

// QRCode returns a PNG that opens the chat UI, for phones on the same network.
func (h *Handler) QRCode(c *gin.Context) {
	target := h.publicURL
	if target == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		target = scheme + "://" + c.Request.Host + "/"
	}

	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		h.logger.Error("qr encode failed", "correlation_id", correlationID(c), "err", err)
		c.String(http.StatusInternalServerError, "Failed to generate QR code")
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": h.model})
}

// writeError maps usecase error codes onto the two documented responses.
// Upstream details are returned to the caller verbatim.
func (h *Handler) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var ucErr *usecases.Error
	if errors.As(err, &ucErr) {
		switch ucErr.Code {
		case usecases.ErrorInvalidInput:
			c.JSON(http.StatusBadRequest, errorResponse{Error: msgMissingMessage})
			return
		case usecases.ErrorUpstream:
			attrs := []any{"correlation_id", correlationID(c), "reason", ucErr.Reason, "err", ucErr.Err}
			if status, ok := infrastructure.UpstreamStatusCode(err); ok {
				attrs = append(attrs, "upstream_status", status)
			}
			h.logger.Error("llm request failed", attrs...)
			c.JSON(http.StatusInternalServerError, errorResponse{Error: msgLLMFailed, Details: ucErr.Details()})
			return
		}
	}

	h.logger.Error("unhandled error", "correlation_id", correlationID(c), "err", err)
	c.JSON(http.StatusInternalServerError, errorResponse{Error: msgInternal})
}
