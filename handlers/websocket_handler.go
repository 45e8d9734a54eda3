package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/alumni-network/notify"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *notify.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler принимает тот же список origin, что и CORS. "*" разрешает любой.
func NewWebSocketHandler(hub *notify.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// ServeWs подписывает соединение на личную комнату текущего пользователя.
// @Summary Поток уведомлений
// @Description Токен передаётся в заголовке Authorization или параметре token.
// @Tags notifications
// @Param token query string false "JWT"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string
// @Router /ws/notifications [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту
		h.logger.Warn("websocket upgrade failed", "user_id", actor.UserID(), "error", err)
		return
	}

	h.hub.Attach(conn, actor.UserID())
	h.logger.Debug("websocket client attached", "user_id", actor.UserID())
}
