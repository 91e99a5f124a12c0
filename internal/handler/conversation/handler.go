package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/ava-relay/backend/internal/model/chat"
	conversationService "github.com/zhouzirui/ava-relay/backend/internal/service/conversation"
	"github.com/zhouzirui/ava-relay/backend/internal/service/relay"
	"github.com/zhouzirui/ava-relay/backend/pkg/utils"
)

// Handler serves the REST conversation API
type Handler struct {
	convSvc *conversationService.Service
	relay   *relay.Relay
}

// New creates a conversation handler
func New(convSvc *conversationService.Service, r *relay.Relay) *Handler {
	return &Handler{convSvc: convSvc, relay: r}
}

// RegisterRoutes mounts the conversation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/conversations", h.handleOpen)
	r.Delete("/conversations/{conversationID}", h.handleEnd)
	r.Get("/conversations/{conversationID}/messages", h.handleTranscript)
	r.Post("/conversations/{conversationID}/messages", h.handleSendMessage)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusCreated, h.convSvc.Open(r.Context()))
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	if err := h.convSvc.End(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	messages, err := h.convSvc.Transcript(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// handleSendMessage relays one user turn and returns what was emitted.
// Relay failures are chat content, so they still answer 200.
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Content) == "" {
		utils.RespondError(w, http.StatusBadRequest, "content is required")
		return
	}

	ctx := r.Context()
	if _, err := h.convSvc.Record(ctx, chat.Message{
		ConversationID: id,
		Author:         chat.AuthorUser,
		Content:        payload.Content,
	}); err != nil {
		respondServiceError(w, err)
		return
	}

	emitted := make([]chat.Message, 0, 1)
	sink := h.convSvc.Sink(id, func(m chat.Message) error {
		emitted = append(emitted, m)
		return nil
	})
	h.relay.OnMessage(ctx, h.convSvc.State(id), sink, payload.Content)

	utils.RespondJSON(w, http.StatusOK, map[string]any{"messages": emitted})
}

func respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, conversationService.ErrConversationNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	log.Error().Err(err).Str("component", "conversation").Msg("request failed")
	utils.RespondError(w, http.StatusInternalServerError, err.Error())
}
