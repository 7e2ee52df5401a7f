package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
	"github.com/msalmeida123/sistema-clube-sub003/internal/services"
	"github.com/msalmeida123/sistema-clube-sub003/internal/whatsapp"
)

// MessageHandler covers outbound sends and provider session management.
type MessageHandler struct {
	db          *gorm.DB
	ledger      *services.LedgerService
	permissions *services.PermissionService
}

func NewMessageHandler(db *gorm.DB, ledger *services.LedgerService, permissions *services.PermissionService) *MessageHandler {
	return &MessageHandler{db: db, ledger: ledger, permissions: permissions}
}

// HandleSend handles POST /api/whatsapp/send
func (h *MessageHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r)
	if !ok {
		respondError(w, r, apperrors.Authentication("não autenticado"))
		return
	}

	var payload whatsapp.SendMessagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, r, apperrors.Validation("payload inválido"))
		return
	}
	if err := whatsapp.ValidatePayload(payload); err != nil {
		respondError(w, r, err)
		return
	}

	// Reply permission is evaluated against the conversation's current
	// sector. An unknown phone has no sector yet, which the capability
	// treats as the sector-less case.
	capability, err := h.permissions.Resolver(claims.UsuarioID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	telefone := whatsapp.OnlyDigits(payload.To)
	var conversa models.Conversa
	var setorID *string
	if err := h.db.Select("id", "setor_id").Where("telefone = ?", telefone).First(&conversa).Error; err == nil {
		setorID = conversa.SetorID
	}
	if !capability.PodeResponder(setorID) {
		respondError(w, r, apperrors.Authorization("sem permissão para responder neste setor"))
		return
	}

	provider, err := whatsapp.ProviderForConversa(h.db, conversa.ID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := provider.SendMessage(payload)
	if err != nil {
		respondError(w, r, err)
		return
	}

	tipo := payload.MessageType
	if tipo == "" {
		tipo = models.TipoTexto
	}
	conteudo := payload.Text
	if conteudo == "" {
		conteudo = payload.Caption
	}
	if conteudo == "" {
		conteudo = payload.MediaURL
	}
	mensagem, err := h.ledger.RegistrarSaida(telefone, conteudo, tipo, result.MessageID, payload.MediaURL)
	if err != nil {
		// The provider accepted the send; a ledger failure must not report
		// the send as failed.
		log.Printf("⚠️ Mensagem enviada mas não registrada: %v", err)
	}

	response := map[string]interface{}{
		"success":    true,
		"message_id": result.MessageID,
		"provider":   provider.Type(),
	}
	if mensagem != nil {
		response["mensagem"] = mensagem
	}
	respondJSON(w, http.StatusOK, response)
}

// HandleStatus handles GET /api/whatsapp/status
func (h *MessageHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	provider, err := h.resolveProvider(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	status, err := provider.GetSessionStatus()
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"provider": provider.Type(),
		"status":   status,
	})
}

// HandleConnect handles POST /api/whatsapp/connect
func (h *MessageHandler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	provider, err := h.resolveProvider(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	result, err := provider.Connect()
	if err != nil {
		respondError(w, r, err)
		return
	}

	response := map[string]interface{}{
		"success":  result.Success,
		"provider": provider.Type(),
	}
	if result.QRCode != "" {
		response["qr_code"] = result.QRCode
		// Pairing string rendered as a PNG data URI so the frontend can
		// display it directly.
		if png, err := qrcode.Encode(result.QRCode, qrcode.Medium, 256); err == nil {
			response["qr_code_image"] = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
		}
	}
	respondJSON(w, http.StatusOK, response)
}

// HandleDisconnect handles POST /api/whatsapp/disconnect
func (h *MessageHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	provider, err := h.resolveProvider(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := provider.Disconnect(); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"provider": provider.Type(),
	})
}

// HandleProviders handles GET /api/whatsapp/providers
func (h *MessageHandler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	configs, err := whatsapp.ListProviders(h.db)
	if err != nil {
		respondError(w, r, err)
		return
	}

	// Credentials never leave the server.
	providers := make([]map[string]interface{}, 0, len(configs))
	for _, config := range configs {
		providers = append(providers, map[string]interface{}{
			"id":         config.ID,
			"tipo":       config.Tipo,
			"ativo":      config.Ativo,
			"is_default": config.IsDefault,
			"status":     config.Status,
			"ultimo_check": config.UltimoCheck,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"providers": providers})
}

// resolveProvider picks the provider by explicit ?provider_id= / ?provider=
// query, falling back to the default.
func (h *MessageHandler) resolveProvider(r *http.Request) (whatsapp.Provider, error) {
	if id := r.URL.Query().Get("provider_id"); id != "" {
		return whatsapp.ProviderByID(h.db, id)
	}
	if tipo := r.URL.Query().Get("provider"); tipo != "" {
		return whatsapp.ProviderByType(h.db, tipo)
	}
	return whatsapp.DefaultProvider(h.db)
}
