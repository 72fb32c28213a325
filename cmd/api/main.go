package main

import (
	"context"
	"crypto/tls"
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/brightsmile/dental-chat-widget/cmd/mainconfig"
	"github.com/brightsmile/dental-chat-widget/internal/api/router"
	appconfig "github.com/brightsmile/dental-chat-widget/internal/config"
	"github.com/brightsmile/dental-chat-widget/internal/conversation"
	"github.com/brightsmile/dental-chat-widget/internal/notify"
	"github.com/brightsmile/dental-chat-widget/internal/observability/metrics"
	"github.com/brightsmile/dental-chat-widget/pkg/logging"
)

//go:embed widget.js
var widgetJS []byte

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting dental-chat-widget API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx := context.Background()

	// Redis mirrors transcripts for session resume and dedupes notifications.
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()
	historyStore := conversation.NewHistoryStore(rdb, cfg.HistoryTTL, nil)

	llm, closeLLM, err := buildLLMClient(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize LLM provider", "error", err)
		os.Exit(1)
	}
	if closeLLM != nil {
		defer closeLLM()
	}

	budget := conversation.NewTokenBucketBudget(cfg.SessionCallRate, cfg.SessionCallBurst)
	go budgetJanitor(budget)

	sender := buildEmailSender(ctx, cfg, logger)
	notifier := notify.NewService(sender, historyStore, cfg.ClinicNotifyEmails, cfg.ClinicName, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	chatMetrics := metrics.NewChatMetrics(reg)

	svc := conversation.NewService(cfg.ClinicName, llm, budget, historyStore, notifier, chatMetrics, logger, conversation.ServiceOptions{
		MaxTokens:   int32(cfg.LLMMaxTokens),
		Temperature: float32(cfg.LLMTemperature),
	})
	chatHandler := conversation.NewHandler(svc, historyStore, widgetJS, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRatePerSecond:  cfg.ChatRatePerSecond,
		ChatBurst:          cfg.ChatRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // WebSocket sessions hold the connection
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// buildLLMClient assembles the provider chain: the configured primary with
// the other provider as fallback when its key is present. Provider "scripted"
// disables LLM calls entirely.
func buildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.LLMClient, func(), error) {
	switch cfg.LLMProvider {
	case "scripted":
		logger.Info("LLM disabled, all replies are scripted")
		return nil, nil, nil

	case "gemini":
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = gemini.Close() }
		if cfg.OpenAIAPIKey == "" {
			return gemini, closeFn, nil
		}
		openAI, err := conversation.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMRetryMaxAttempts, cfg.LLMRetryBaseDelay)
		if err != nil {
			return nil, nil, err
		}
		return conversation.NewFallbackLLMClient(gemini, openAI, logger.Logger), closeFn, nil

	default: // "openai"
		openAI, err := conversation.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMRetryMaxAttempts, cfg.LLMRetryBaseDelay)
		if err != nil {
			return nil, nil, err
		}
		if cfg.GeminiAPIKey == "" {
			return openAI, nil, nil
		}
		gemini, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = gemini.Close() }
		return conversation.NewFallbackLLMClient(openAI, gemini, logger.Logger), closeFn, nil
	}
}

// buildEmailSender picks the notification transport from config. Missing or
// misconfigured providers degrade to the logging stub so the chat flow never
// depends on email being up.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected but no API key configured, using stub sender")

	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Warn("failed to load AWS config, using stub sender", "error", err)
			break
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender != nil {
			return sender
		}
	}
	return notify.NewStubEmailSender(logger)
}

// budgetJanitor evicts idle per-session buckets so long-running processes do
// not accumulate state for every visitor that ever opened the widget.
func budgetJanitor(budget *conversation.TokenBucketBudget) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		budget.Evict(time.Now().Add(-time.Hour))
	}
}
