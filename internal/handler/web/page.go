package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/science-tutor/backend/internal/logger"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// PageInfo 页面上展示的模型信息
type PageInfo struct {
	Title    string
	Provider string
	Model    string
}

// Handler 提供聊天页面
type Handler struct {
	info PageInfo
}

// New 创建页面处理器
func New(info PageInfo) *Handler {
	if info.Title == "" {
		info.Title = "Science Tutor Chatbot"
	}
	return &Handler{info: info}
}

// RegisterRoutes 注册页面路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, h.info); err != nil {
		logger.L.Error("failed to render index page", "error", err)
	}
}
