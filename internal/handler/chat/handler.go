package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/science-tutor/backend/internal/logger"
	"github.com/zhouzirui/science-tutor/backend/internal/model/chat"
	chatService "github.com/zhouzirui/science-tutor/backend/internal/service/chat"
	"github.com/zhouzirui/science-tutor/backend/internal/service/completion"
	"github.com/zhouzirui/science-tutor/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/sessions/{sessionID}", h.handleEndSession)
	r.Post("/sessions/{sessionID}/messages", h.handleSubmit)
}

// submitResponse 一次问答成功后的响应体
type submitResponse struct {
	Reply   chat.Turn    `json:"reply"`
	Session chat.Session `json:"session"`
}

// upstreamFailure 上游模型调用失败时的响应体，会话保持可用
type upstreamFailure struct {
	Error   string       `json:"error"`
	Kind    string       `json:"kind"`
	Hint    string       `json:"hint"`
	Session chat.Session `json:"session"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.L.Info("session created", "session", session.ID)
	utils.RespondJSON(w, http.StatusCreated, session)
}

// handleGetSession 返回会话及完整记录
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, session)
}

// handleEndSession 结束会话并丢弃记录
func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.chatSvc.EndSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	logger.L.Info("session ended", "session", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmit 提交用户问题并同步等待模型回复
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	exchange, err := h.chatSvc.Submit(r.Context(), sessionID, payload.Content)

	var upstream *completion.UpstreamError
	if errors.As(err, &upstream) {
		session, getErr := h.chatSvc.GetSession(r.Context(), sessionID)
		if getErr != nil {
			respondServiceError(w, getErr)
			return
		}
		utils.RespondJSON(w, http.StatusBadGateway, upstreamFailure{
			Error:   "error generating response: " + upstream.Error(),
			Kind:    string(upstream.Kind),
			Hint:    upstream.Hint(),
			Session: session,
		})
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, submitResponse{Reply: exchange.Assistant, Session: session})
}

// respondServiceError 将服务层错误映射为HTTP状态码
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrEmptyPrompt):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrSessionBusy):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		logger.L.Error("unexpected chat error", "error", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
