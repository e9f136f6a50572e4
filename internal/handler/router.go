package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/science-tutor/backend/internal/config"
	"github.com/zhouzirui/science-tutor/backend/internal/handler/chat"
	"github.com/zhouzirui/science-tutor/backend/internal/handler/info"
	"github.com/zhouzirui/science-tutor/backend/internal/handler/web"
	"github.com/zhouzirui/science-tutor/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/science-tutor/backend/internal/middleware"
	chatService "github.com/zhouzirui/science-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/science-tutor/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, llmCfg config.LLMConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	web.New(web.PageInfo{Provider: llmCfg.Provider, Model: llmCfg.Model}).RegisterRoutes(r)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		chat.New(chatSvc).RegisterRoutes(api)
		ws.New(chatSvc).RegisterRoutes(api)
		info.New(llmCfg, chatSvc).RegisterRoutes(api)
	})

	return r
}
