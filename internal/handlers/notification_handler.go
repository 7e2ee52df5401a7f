package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/services"
)

// NotificationHandler serves the unread total, as a one-shot GET and as a live
// websocket stream.
type NotificationHandler struct {
	notifications *services.NotificationService
	permissions   *services.PermissionService
	upgrader      websocket.Upgrader
}

func NewNotificationHandler(notifications *services.NotificationService, permissions *services.PermissionService) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		permissions:   permissions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checking is delegated to the CORS layer; the socket
			// itself authenticates via JWT.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleNaoLidas handles GET /api/notificacoes/nao-lidas
func (h *NotificationHandler) HandleNaoLidas(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r)
	if !ok {
		respondError(w, r, apperrors.Authentication("não autenticado"))
		return
	}
	capability, err := h.permissions.Resolver(claims.UsuarioID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	total, err := h.notifications.TotalNaoLidas(capability)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"total_nao_lidas": total})
}

// HandleWebsocket handles GET /api/notificacoes/ws
func (h *NotificationHandler) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r)
	if !ok {
		respondError(w, r, apperrors.Authentication("não autenticado"))
		return
	}
	capability, err := h.permissions.Resolver(claims.UsuarioID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("⚠️ Falha no upgrade websocket: %v", err)
		return
	}

	log.Printf("🔔 Cliente de notificações conectado: %s", claims.Email)
	h.notifications.Attach(conn, capability)
	log.Printf("🔕 Cliente de notificações desconectado: %s", claims.Email)
}
