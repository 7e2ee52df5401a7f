package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
	"github.com/msalmeida123/sistema-clube-sub003/internal/services"
	"github.com/msalmeida123/sistema-clube-sub003/internal/whatsapp"
)

// WebhookHandler ingests provider webhook events into the ledger.
type WebhookHandler struct {
	db     *gorm.DB
	ledger *services.LedgerService
}

func NewWebhookHandler(db *gorm.DB, ledger *services.LedgerService) *WebhookHandler {
	return &WebhookHandler{db: db, ledger: ledger}
}

// ---------------------------------------------------------------------------
// WaSender
// ---------------------------------------------------------------------------

// wasenderEvent covers the payload shapes WaSender delivers. Message data may
// sit at the top level, under data, or under data.messages.
type wasenderEvent struct {
	Event     string          `json:"event"`
	Type      string          `json:"type"`
	Action    string          `json:"action"`
	SessionID string          `json:"sessionId"`
	DeviceID  string          `json:"deviceId"`
	Data      json.RawMessage `json:"data"`

	// Flat shape
	From      string `json:"from"`
	Sender    string `json:"sender"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
	Body      string `json:"body"`
	Text      string `json:"text"`
	Content   string `json:"content"`
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	MsgType   string `json:"messageType"`
	MediaURL  string `json:"mediaUrl"`
	PushName  string `json:"pushName"`
	Ack       any    `json:"ack"`
	Status    string `json:"status"`
}

type wasenderMediaRef struct {
	URL string `json:"url"`
}

type wasenderData struct {
	SessionID string `json:"sessionId"`
	DeviceID  string `json:"deviceId"`
	From      string `json:"from"`
	Sender    string `json:"sender"`
	Phone     string `json:"phone"`
	Message   string `json:"message"`
	Body      string `json:"body"`
	Text      string `json:"text"`
	Content   string `json:"content"`
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	MsgType   string `json:"messageType"`
	Type      string `json:"type"`
	MediaURL  string `json:"mediaUrl"`
	PushName  string `json:"pushName"`
	Ack       any    `json:"ack"`

	Messages *struct {
		Key struct {
			ID                 string `json:"id"`
			RemoteJid          string `json:"remoteJid"`
			CleanedSenderPn    string `json:"cleanedSenderPn"`
			CleanedParticipant string `json:"cleanedParticipantPn"`
		} `json:"key"`
		MessageBody string `json:"messageBody"`
		PushName    string `json:"pushName"`
		Message     *struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage *struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
			ImageMessage    *wasenderMediaRef `json:"imageMessage"`
			VideoMessage    *wasenderMediaRef `json:"videoMessage"`
			AudioMessage    *wasenderMediaRef `json:"audioMessage"`
			DocumentMessage *wasenderMediaRef `json:"documentMessage"`
		} `json:"message"`
	} `json:"messages"`
}

var wasenderMessageEvents = map[string]bool{
	"message":           true,
	"message.received":  true,
	"messages.received": true,
	"messages.upsert":   true,
	"message_received":  true,
	"incoming_message":  true,
	"new_message":       true,
}

var wasenderAckEvents = map[string]bool{
	"message.ack":    true,
	"ack":            true,
	"message_status": true,
}

func eventName(ev *wasenderEvent) string {
	for _, name := range []string{ev.Event, ev.Type, ev.Action} {
		if name != "" {
			return strings.ToLower(name)
		}
	}
	return ""
}

// HandleWaSenderWebhook handles POST /api/wasender/webhook
func (h *WebhookHandler) HandleWaSenderWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, r, apperrors.Validation("falha ao ler corpo da requisição"))
		return
	}

	var ev wasenderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		respondError(w, r, apperrors.Validation("payload inválido"))
		return
	}
	var data wasenderData
	if len(ev.Data) > 0 {
		_ = json.Unmarshal(ev.Data, &data)
	}

	// Identity gate: the session/device id in the payload (or the webhook
	// secret header) must match the active WaSender configuration. Spoofed
	// identifiers answer 401 so upstream retries stay observable.
	provider, err := whatsapp.ProviderByType(h.db, models.ProviderWaSender)
	if err != nil {
		respondError(w, r, err)
		return
	}
	config := provider.Config()
	if !wasenderIdentityOK(&ev, &data, r, config) {
		respondError(w, r, apperrors.Authentication("identificador de sessão do webhook não confere"))
		return
	}

	name := eventName(&ev)
	if wasenderAckEvents[name] {
		h.handleWaSenderAck(w, r, &ev, &data)
		return
	}
	if !wasenderMessageEvents[name] && name != "" {
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Evento ignorado"})
		return
	}

	inbound := extractWaSenderMessage(&ev, &data)
	if inbound.Telefone == "" || inbound.Conteudo == "" {
		respondError(w, r, apperrors.Validation("dados incompletos: telefone e mensagem são obrigatórios"))
		return
	}

	result, err := h.ledger.ProcessarEntrada(inbound)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if result.Duplicada {
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "duplicada": true})
		return
	}

	log.Printf("📩 Webhook WaSender: conversa=%s nova=%v", result.Conversa.ID, result.NovaConversa)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"conversa_id": result.Conversa.ID,
	})
}

func wasenderIdentityOK(ev *wasenderEvent, data *wasenderData, r *http.Request, config models.ProviderConfig) bool {
	if secret := r.Header.Get("x-webhook-secret"); secret != "" && secret == config.WasenderAPIKey {
		return true
	}
	for _, id := range []string{ev.SessionID, ev.DeviceID, data.SessionID, data.DeviceID} {
		if id != "" {
			return id == config.WasenderDeviceID
		}
	}
	return false
}

func (h *WebhookHandler) handleWaSenderAck(w http.ResponseWriter, r *http.Request, ev *wasenderEvent, data *wasenderData) {
	messageID := firstNonEmpty(data.ID, data.MessageID, ev.ID, ev.MessageID)

	ack := data.Ack
	if ack == nil {
		ack = ev.Ack
	}
	status := models.MensagemEnviada
	switch v := ack.(type) {
	case float64:
		if v == 2 {
			status = models.MensagemEntregue
		} else if v == 3 {
			status = models.MensagemLida
		}
	case string:
		if v == "delivered" {
			status = models.MensagemEntregue
		} else if v == "read" {
			status = models.MensagemLida
		}
	case nil:
		if ev.Status == "delivered" {
			status = models.MensagemEntregue
		} else if ev.Status == "read" {
			status = models.MensagemLida
		}
	}

	if messageID != "" {
		if err := h.ledger.AtualizarStatusMensagem(messageID, status); err != nil {
			respondError(w, r, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "type": "ack"})
}

func extractWaSenderMessage(ev *wasenderEvent, data *wasenderData) services.InboundEvent {
	// messages.received shape
	if data.Messages != nil {
		msg := data.Messages
		telefone := firstNonEmpty(msg.Key.CleanedSenderPn, msg.Key.CleanedParticipant, jidDigits(msg.Key.RemoteJid))

		conteudo := msg.MessageBody
		tipo := models.TipoTexto
		mediaURL := ""
		if msg.Message != nil {
			if conteudo == "" {
				conteudo = msg.Message.Conversation
			}
			if conteudo == "" && msg.Message.ExtendedTextMessage != nil {
				conteudo = msg.Message.ExtendedTextMessage.Text
			}
			switch {
			case msg.Message.ImageMessage != nil:
				tipo, mediaURL = models.TipoImagem, msg.Message.ImageMessage.URL
			case msg.Message.VideoMessage != nil:
				tipo, mediaURL = models.TipoVideo, msg.Message.VideoMessage.URL
			case msg.Message.AudioMessage != nil:
				tipo, mediaURL = models.TipoAudio, msg.Message.AudioMessage.URL
			case msg.Message.DocumentMessage != nil:
				tipo, mediaURL = models.TipoDocumento, msg.Message.DocumentMessage.URL
			}
		}

		return services.InboundEvent{
			Telefone:    whatsapp.OnlyDigits(telefone),
			Conteudo:    conteudo,
			Tipo:        tipo,
			MessageID:   msg.Key.ID,
			MediaURL:    mediaURL,
			NomeContato: firstNonEmpty(msg.PushName, data.PushName),
			Timestamp:   time.Now(),
		}
	}

	// data shape
	if data.From != "" || data.Sender != "" || data.Phone != "" || data.Message != "" || data.Body != "" {
		return services.InboundEvent{
			Telefone:    firstNonEmpty(jidDigits(data.From), jidDigits(data.Sender), whatsapp.OnlyDigits(data.Phone)),
			Conteudo:    firstNonEmpty(data.Message, data.Body, data.Text, data.Content),
			Tipo:        normalizeTipo(firstNonEmpty(data.Type, data.MsgType)),
			MessageID:   firstNonEmpty(data.ID, data.MessageID),
			MediaURL:    data.MediaURL,
			NomeContato: data.PushName,
			Timestamp:   time.Now(),
		}
	}

	// flat shape
	return services.InboundEvent{
		Telefone:    firstNonEmpty(jidDigits(ev.From), jidDigits(ev.Sender), whatsapp.OnlyDigits(ev.Phone)),
		Conteudo:    firstNonEmpty(ev.Message, ev.Body, ev.Text, ev.Content),
		Tipo:        normalizeTipo(firstNonEmpty(ev.Type, ev.MsgType)),
		MessageID:   firstNonEmpty(ev.ID, ev.MessageID),
		MediaURL:    ev.MediaURL,
		NomeContato: ev.PushName,
		Timestamp:   time.Now(),
	}
}

func jidDigits(jid string) string {
	jid = strings.TrimSuffix(jid, "@c.us")
	jid = strings.TrimSuffix(jid, "@s.whatsapp.net")
	return whatsapp.OnlyDigits(jid)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func normalizeTipo(tipo string) string {
	switch strings.ToLower(tipo) {
	case "image", models.TipoImagem:
		return models.TipoImagem
	case models.TipoVideo:
		return models.TipoVideo
	case models.TipoAudio:
		return models.TipoAudio
	case "document", models.TipoDocumento:
		return models.TipoDocumento
	default:
		return models.TipoTexto
	}
}

// HandleWaSenderChallenge handles GET /api/wasender/webhook
func (h *WebhookHandler) HandleWaSenderChallenge(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("hub.challenge")
	if challenge == "" {
		challenge = r.URL.Query().Get("challenge")
	}
	if challenge != "" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"message":   "Webhook WhatsApp ativo",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ---------------------------------------------------------------------------
// Meta Cloud API
// ---------------------------------------------------------------------------

type metaWebhookBody struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					WaID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []metaMessage `json:"messages"`
				Statuses []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type metaMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image    *metaMedia `json:"image"`
	Video    *metaMedia `json:"video"`
	Audio    *metaMedia `json:"audio"`
	Document *metaMedia `json:"document"`
	Button   *struct {
		Text string `json:"text"`
	} `json:"button"`
}

type metaMedia struct {
	ID      string `json:"id"`
	Caption string `json:"caption"`
}

// HandleMetaWebhook handles POST /api/meta/webhook
func (h *WebhookHandler) HandleMetaWebhook(w http.ResponseWriter, r *http.Request) {
	var body metaWebhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, r, apperrors.Validation("payload inválido"))
		return
	}
	if body.Object != "whatsapp_business_account" {
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Ignorado"})
		return
	}

	for _, entry := range body.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			value := change.Value
			if value.Metadata.PhoneNumberID == "" {
				respondError(w, r, apperrors.Validation("phone_number_id ausente no payload"))
				return
			}

			// Identity gate: the phone_number_id must belong to an active
			// Meta provider.
			provider, err := whatsapp.MetaProviderByPhoneNumberID(h.db, value.Metadata.PhoneNumberID)
			if err != nil {
				respondError(w, r, err)
				return
			}

			for _, status := range value.Statuses {
				h.applyMetaStatus(status.ID, status.Status)
			}

			for _, message := range value.Messages {
				nome := ""
				for _, contact := range value.Contacts {
					if contact.WaID == message.From {
						nome = contact.Profile.Name
						break
					}
					if nome == "" {
						nome = contact.Profile.Name
					}
				}

				inbound, mediaID := extractMetaMessage(message, nome)
				if inbound.Telefone == "" || inbound.Conteudo == "" {
					continue
				}
				if mediaID != "" {
					if url, err := provider.ResolveMediaURL(mediaID); err == nil {
						inbound.MediaURL = url
					}
				}

				result, err := h.ledger.ProcessarEntrada(inbound)
				if err != nil {
					log.Printf("⚠️ Falha ao processar mensagem Meta: %v", err)
					continue
				}
				if result.Duplicada {
					continue
				}

				// Bind the provider to the conversation on first contact.
				h.db.Model(&models.Conversa{}).
					Where("id = ? AND provider_id IS NULL", result.Conversa.ID).
					Update("provider_id", provider.Config().ID)

				// Read receipt on the Meta side is best-effort.
				if message.ID != "" {
					if err := provider.MarkAsRead(message.ID); err != nil {
						log.Printf("⚠️ markAsRead falhou: %v", err)
					}
				}
			}
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *WebhookHandler) applyMetaStatus(messageID, statusType string) {
	if messageID == "" {
		return
	}
	status := models.MensagemEnviada
	switch statusType {
	case "delivered":
		status = models.MensagemEntregue
	case "read":
		status = models.MensagemLida
	case "failed":
		status = models.MensagemFalhou
	}
	if err := h.ledger.AtualizarStatusMensagem(messageID, status); err != nil {
		log.Printf("⚠️ Falha ao aplicar status Meta %s: %v", messageID, err)
	}
}

func extractMetaMessage(message metaMessage, nomeContato string) (services.InboundEvent, string) {
	inbound := services.InboundEvent{
		Telefone:    whatsapp.OnlyDigits(message.From),
		MessageID:   message.ID,
		NomeContato: nomeContato,
		Timestamp:   time.Now(),
	}
	if ts, err := strconv.ParseInt(message.Timestamp, 10, 64); err == nil {
		inbound.Timestamp = time.Unix(ts, 0)
	}

	mediaID := ""
	switch message.Type {
	case "text":
		inbound.Tipo = models.TipoTexto
		if message.Text != nil {
			inbound.Conteudo = message.Text.Body
		}
	case "image":
		inbound.Tipo = models.TipoImagem
		if message.Image != nil {
			mediaID = message.Image.ID
			inbound.Conteudo = firstNonEmpty(message.Image.Caption, "📷 Imagem")
		}
	case "video":
		inbound.Tipo = models.TipoVideo
		if message.Video != nil {
			mediaID = message.Video.ID
			inbound.Conteudo = firstNonEmpty(message.Video.Caption, "🎥 Vídeo")
		}
	case "audio":
		inbound.Tipo = models.TipoAudio
		if message.Audio != nil {
			mediaID = message.Audio.ID
		}
		inbound.Conteudo = "🎤 Áudio"
	case "document":
		inbound.Tipo = models.TipoDocumento
		if message.Document != nil {
			mediaID = message.Document.ID
			inbound.Conteudo = firstNonEmpty(message.Document.Caption, "📄 Documento")
		}
	case "button":
		inbound.Tipo = models.TipoTexto
		if message.Button != nil {
			inbound.Conteudo = message.Button.Text
		}
	default:
		inbound.Tipo = models.TipoTexto
		inbound.Conteudo = "📎 " + message.Type
	}
	return inbound, mediaID
}

// HandleMetaChallenge handles GET /api/meta/webhook (subscription verify)
func (h *WebhookHandler) HandleMetaChallenge(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode == "subscribe" && token != "" {
		provider, err := whatsapp.MetaProviderByVerifyToken(h.db, token)
		if err != nil {
			respondError(w, r, apperrors.Authorization("verify token inválido"))
			return
		}

		now := time.Now()
		h.db.Model(&models.ProviderConfig{}).
			Where("id = ?", provider.Config().ID).
			Updates(map[string]interface{}{"status": "webhook_ativo", "ultimo_check": now})

		log.Printf("✅ Webhook Meta verificado para provider %s", provider.Config().ID)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"message":   "Webhook Meta ativo",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
