package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/ava-relay/backend/internal/handler/conversation"
	"github.com/zhouzirui/ava-relay/backend/internal/handler/starter"
	"github.com/zhouzirui/ava-relay/backend/internal/handler/stream"
	"github.com/zhouzirui/ava-relay/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/ava-relay/backend/internal/middleware"
	starterModel "github.com/zhouzirui/ava-relay/backend/internal/model/starter"
	conversationService "github.com/zhouzirui/ava-relay/backend/internal/service/conversation"
	"github.com/zhouzirui/ava-relay/backend/internal/service/relay"
	"github.com/zhouzirui/ava-relay/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(starters starterModel.Store, convSvc *conversationService.Service, relaySvc *relay.Relay) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		starter.New(starters).RegisterRoutes(api)
		conversation.New(convSvc, relaySvc).RegisterRoutes(api)
		stream.New(convSvc, relaySvc).RegisterRoutes(api)
		ws.New(convSvc, relaySvc).RegisterRoutes(api)
	})

	return r
}
