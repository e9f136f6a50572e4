package info

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/science-tutor/backend/internal/config"
	"github.com/zhouzirui/science-tutor/backend/pkg/utils"
)

// Info 当前使用的模型信息，从不包含密钥本身
type Info struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	APIKeyPresent bool   `json:"apiKeyPresent"`
	ActiveSession int    `json:"activeSessions"`
}

// SessionCounter 返回当前会话数量
type SessionCounter interface {
	Count() int
}

// Handler 模型信息的HTTP处理器
type Handler struct {
	cfg      config.LLMConfig
	sessions SessionCounter
}

// New 创建信息处理器
func New(cfg config.LLMConfig, sessions SessionCounter) *Handler {
	return &Handler{cfg: cfg, sessions: sessions}
}

// RegisterRoutes 注册信息相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/info", h.handleInfo)
}

// handleInfo 返回模型和凭证状态
func (h *Handler) handleInfo(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, Info{
		Provider:      h.cfg.Provider,
		Model:         h.cfg.Model,
		APIKeyPresent: h.cfg.HasCredential(),
		ActiveSession: h.sessions.Count(),
	})
}
