package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/ava-relay/backend/internal/model/chat"
	conversationService "github.com/zhouzirui/ava-relay/backend/internal/service/conversation"
	"github.com/zhouzirui/ava-relay/backend/internal/service/relay"
	"github.com/zhouzirui/ava-relay/backend/pkg/utils"
)

// Handler relays one user turn and reports the outcome via Server-Sent Events
type Handler struct {
	convSvc *conversationService.Service
	relay   *relay.Relay
}

// New creates a new stream handler
func New(convSvc *conversationService.Service, r *relay.Relay) *Handler {
	return &Handler{convSvc: convSvc, relay: r}
}

// StreamResponse represents one streamed event payload
type StreamResponse struct {
	Event          string `json:"event"`
	ConversationID string `json:"conversationId,omitempty"`
	Content        string `json:"content,omitempty"`
	Finished       bool   `json:"finished,omitempty"`
}

// RegisterRoutes mounts the streaming route
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations/{conversationID}/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	userMessage := r.URL.Query().Get("message")

	if strings.TrimSpace(userMessage) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}
	if _, err := h.convSvc.Get(r.Context(), conversationID); err != nil {
		if errors.Is(err, conversationService.ErrConversationNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.HandleStreamRequest(r.Context(), w, conversationID, userMessage); err != nil {
		log.Warn().Err(err).Str("component", "stream").Str("conversation_id", conversationID).Msg("stream failed")
	}
}

// HandleStreamRequest relays userMessage and streams start, message|error and end events
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, conversationID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return fmt.Errorf("streaming unsupported")
	}

	if _, err := h.convSvc.Record(ctx, chat.Message{
		ConversationID: conversationID,
		Author:         chat.AuthorUser,
		Content:        userMessage,
	}); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return err
	}

	utils.SetupSSEHeaders(w)

	if err := utils.SendSSEEvent(w, flusher, "start", StreamResponse{
		Event:          "start",
		ConversationID: conversationID,
	}); err != nil {
		return err
	}

	sink := h.convSvc.Sink(conversationID, func(m chat.Message) error {
		return utils.SendSSEEvent(w, flusher, m.Kind, StreamResponse{
			Event:          m.Kind,
			ConversationID: conversationID,
			Content:        m.Content,
		})
	})
	h.relay.OnMessage(ctx, h.convSvc.State(conversationID), sink, userMessage)

	return utils.SendSSEEvent(w, flusher, "end", StreamResponse{
		Event:          "end",
		ConversationID: conversationID,
		Finished:       true,
	})
}
