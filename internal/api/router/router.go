package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brightsmile/dental-chat-widget/internal/conversation"
	httpmiddleware "github.com/brightsmile/dental-chat-widget/internal/http/middleware"
	"github.com/brightsmile/dental-chat-widget/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *conversation.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP rate limit for the chat endpoints.
	ChatRatePerSecond float64
	ChatBurst         int
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ChatHandler != nil {
		r.Get("/widget.js", cfg.ChatHandler.HandleWidgetJS)

		r.Route("/chat", func(chat chi.Router) {
			if cfg.ChatRatePerSecond > 0 && cfg.ChatBurst > 0 {
				chat.Use(httpmiddleware.RateLimit(cfg.ChatRatePerSecond, cfg.ChatBurst))
			}
			chat.Post("/message", cfg.ChatHandler.HandleMessage)
			chat.Get("/history", cfg.ChatHandler.HandleHistory)
			chat.Get("/ws", cfg.ChatHandler.HandleWebSocket)
		})
	}

	return r
}
