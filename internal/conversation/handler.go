package conversation

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/brightsmile/dental-chat-widget/internal/booking"
	"github.com/brightsmile/dental-chat-widget/pkg/logging"
)

// Handler exposes the chat widget's HTTP and WebSocket surface.
type Handler struct {
	service  *Service
	history  TranscriptStore
	logger   *logging.Logger
	widgetJS []byte

	mu       sync.RWMutex
	sessions map[string]*wsConn // sessionID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// InboundMessage is what the widget sends over the WebSocket.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget over the WebSocket.
type OutboundMessage struct {
	Type         string          `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text         string          `json:"text,omitempty"`
	Role         string          `json:"role,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	Timestamp    string          `json:"timestamp,omitempty"`
	Messages     []ChatMessage   `json:"messages,omitempty"`
	Booking      *booking.Record `json:"booking,omitempty"`
	QuickReplies []string        `json:"quick_replies,omitempty"`
}

// MessageRequest is the HTTP request body for POST /chat/message. The widget
// keeps the authoritative transcript and sends it whole on every turn.
type MessageRequest struct {
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages"`
}

// MessageResponse is the HTTP reply for POST /chat/message.
type MessageResponse struct {
	SessionID    string         `json:"session_id"`
	Reply        string         `json:"reply"`
	Step         int            `json:"step"`
	Complete     bool           `json:"complete"`
	Booking      booking.Record `json:"booking"`
	QuickReplies []string       `json:"quick_replies,omitempty"`
	Source       string         `json:"source"`
}

// NewHandler creates a chat handler. history may be nil when session resume
// is disabled.
func NewHandler(service *Service, history TranscriptStore, widgetJS []byte, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:  service,
		history:  history,
		logger:   logger,
		widgetJS: widgetJS,
		sessions: make(map[string]*wsConn),
	}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleMessage handles POST /chat/message: one user turn in, one assistant
// turn out, with the recomputed booking state.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	reply := h.service.Respond(r.Context(), req.SessionID, req.Messages)

	writeJSON(w, MessageResponse{
		SessionID:    req.SessionID,
		Reply:        reply.Text,
		Step:         reply.Record.Step,
		Complete:     reply.Record.Complete,
		Booking:      reply.Record,
		QuickReplies: reply.QuickReplies,
		Source:       reply.Source,
	})
}

// HandleHistory returns the mirrored transcript for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if h.history == nil {
		writeJSON(w, map[string][]ChatMessage{"messages": {}})
		return
	}

	msgs, err := h.history.Load(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load chat history", "error", err, "session_id", sessionID)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []ChatMessage{}
	}
	writeJSON(w, map[string][]ChatMessage{"messages": msgs})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}

// HandleWebSocket upgrades to WebSocket for real-time chat.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = generateSessionID()
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})

	transcript := h.loadTranscript(r, sessionID)
	if len(transcript) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: transcript})
	}

	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.sessions[sessionID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[sessionID] == wsc {
			delete(h.sessions, sessionID)
		}
		h.mu.Unlock()
		close(wsc.done)
	}()

	h.logger.Info("chat connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("chat connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})

		transcript = append(transcript, ChatMessage{Role: ChatRoleUser, Content: msg.Text})
		reply := h.service.Respond(r.Context(), sessionID, transcript)
		transcript = append(transcript, ChatMessage{Role: ChatRoleAssistant, Content: reply.Text})

		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:         "message",
			Role:         ChatRoleAssistant,
			Text:         reply.Text,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Booking:      &reply.Record,
			QuickReplies: reply.QuickReplies,
		})
	}
}

func (h *Handler) loadTranscript(r *http.Request, sessionID string) []ChatMessage {
	if h.history == nil {
		return nil
	}
	msgs, err := h.history.Load(r.Context(), sessionID)
	if err != nil {
		h.logger.Warn("failed to resume chat history", "error", err, "session_id", sessionID)
		return nil
	}
	return msgs
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
