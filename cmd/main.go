package main

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"groqchat/internal/config"
	"groqchat/internal/infrastructure"
	"groqchat/internal/interfaces/http"
	"groqchat/internal/usecases"
)

func main() {
	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- LLM client (built once, shared by every request) ----
	groqClient, err := infrastructure.NewGroqClient(cfg.GroqAPIKey, cfg.ChatModel, infrastructure.WithBaseURL(cfg.GroqBaseURL))
	if err != nil {
		logger.Error("failed to create Groq client", "err", err)
		os.Exit(1)
	}

	chatService, err := usecases.NewChatService(groqClient)
	if err != nil {
		logger.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	// ---- Optional Telegram relay ----
	var telegram *infrastructure.TelegramRelay
	if cfg.TelegramBotToken != "" {
		telegram, err = infrastructure.NewTelegramRelay(cfg.TelegramBotToken, chatService, logger)
		if err != nil {
			logger.Warn("telegram disabled", "err", err)
		} else {
			telegram.Start(ctx)
		}
	} else {
		logger.Info("telegram disabled (TELEGRAM_BOT_TOKEN not set)")
	}

	// ---- HTTP server ----
	handler, err := http.NewHandler(chatService, cfg.ChatModel, cfg.PublicURL, logger)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	r := gin.Default()
	http.SetupRoutes(r, handler, http.NewMiddleware(logger))

	srv := &nethttp.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "model", groqClient.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", "err", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	cancel()

	if telegram != nil {
		telegram.Stop()
	}
	stop()
	os.Exit(exitCode)
}
