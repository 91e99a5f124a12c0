package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/ava-relay/backend/internal/model/chat"
	conversationService "github.com/zhouzirui/ava-relay/backend/internal/service/conversation"
	"github.com/zhouzirui/ava-relay/backend/internal/service/relay"
)

const (
	defaultReadTimeout = 60 * time.Second
	writeTimeout       = 10 * time.Second
	pingInterval       = 30 * time.Second
)

// Inbound and outbound frame types.
const (
	TypeUserMessage = "user_message"
	TypeConnected   = "connected"
	TypeMessage     = chat.KindMessage
	TypeError       = chat.KindError
)

// Handler serves the chat UI over a WebSocket. A conversation opened on a
// socket ends when the socket closes.
type Handler struct {
	convSvc     *conversationService.Service
	relay       *relay.Relay
	upgrader    websocket.Upgrader
	readTimeout time.Duration
}

// New creates a WebSocket handler
func New(convSvc *conversationService.Service, r *relay.Relay) *Handler {
	return &Handler{
		convSvc:     convSvc,
		relay:       r,
		readTimeout: defaultReadTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the WebSocket route
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{conversationID}", h.handleWebSocket)
}

// InboundMessage is a frame sent by the chat UI.
type InboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// OutgoingMessage is a frame sent to the chat UI.
type OutgoingMessage struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId,omitempty"`
	Content        string `json:"content,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// conn serializes writes; gorilla connections allow one concurrent writer.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(v)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if _, err := h.convSvc.Get(r.Context(), conversationID); err != nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("component", "ws").Msg("upgrade failed")
		return
	}
	defer wsConn.Close()

	logger := log.With().Str("component", "ws").Str("conversation_id", conversationID).Logger()
	logger.Info().Msg("connection opened")
	defer func() { logger.Info().Msg("connection closed") }()
	defer func() {
		endCtx := context.WithoutCancel(r.Context())
		if err := h.convSvc.End(endCtx, conversationID); err != nil && !errors.Is(err, conversationService.ErrConversationNotFound) {
			logger.Warn().Err(err).Msg("failed to end conversation")
		}
	}()

	c := &conn{ws: wsConn}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = wsConn.SetReadDeadline(time.Now().Add(h.readTimeout))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	go h.pingLoop(ctx, c)

	if err := c.writeJSON(outgoing(TypeConnected, conversationID, "")); err != nil {
		return
	}

	sink := h.convSvc.Sink(conversationID, func(m chat.Message) error {
		return c.writeJSON(outgoing(m.Kind, conversationID, m.Content))
	})
	state := h.convSvc.State(conversationID)

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("read error")
			}
			return
		}
		_ = wsConn.SetReadDeadline(time.Now().Add(h.readTimeout))

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = c.writeJSON(outgoing(TypeError, conversationID, "invalid message format"))
			continue
		}
		if msg.Type != TypeUserMessage {
			_ = c.writeJSON(outgoing(TypeError, conversationID, "unsupported message type: "+msg.Type))
			continue
		}
		if strings.TrimSpace(msg.Content) == "" {
			_ = c.writeJSON(outgoing(TypeError, conversationID, "content is required"))
			continue
		}

		if _, err := h.convSvc.Record(ctx, chat.Message{
			ConversationID: conversationID,
			Author:         chat.AuthorUser,
			Content:        msg.Content,
		}); err != nil {
			_ = c.writeJSON(outgoing(TypeError, conversationID, err.Error()))
			return
		}

		h.relay.OnMessage(ctx, state, sink, msg.Content)
		// The relay call may outlast the read deadline.
		_ = wsConn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

func (h *Handler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func outgoing(kind, conversationID, content string) OutgoingMessage {
	return OutgoingMessage{
		Type:           kind,
		ConversationID: conversationID,
		Content:        content,
		Timestamp:      time.Now().UnixMilli(),
	}
}
