package starter

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/ava-relay/backend/internal/model/starter"
	"github.com/zhouzirui/ava-relay/backend/pkg/utils"
)

// Handler serves the starter prompts shown before the first message.
type Handler struct {
	starters starter.Store
}

// New creates a starter handler
func New(starters starter.Store) *Handler {
	return &Handler{starters: starters}
}

// RegisterRoutes mounts the starter routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/starters", h.handleListStarters)
}

func (h *Handler) handleListStarters(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.starters.List())
}
