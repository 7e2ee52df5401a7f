package whatsapp

import (
	"strings"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

// SendMessagePayload is the discriminated outbound message. MessageType picks
// the variant; media variants require MediaURL, text requires Text.
type SendMessagePayload struct {
	To          string `json:"to"`
	MessageType string `json:"messageType"`
	Text        string `json:"text,omitempty"`
	MediaURL    string `json:"mediaUrl,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	Caption     string `json:"caption,omitempty"`
}

// SendResult is the provider's answer to a send attempt.
type SendResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SessionStatus reports the provider session state.
type SessionStatus struct {
	Connected bool   `json:"connected"`
	Phone     string `json:"phone,omitempty"`
	Name      string `json:"name,omitempty"`
	Status    string `json:"status"`
}

// ConnectResult carries the QR payload for providers that pair via QR code.
type ConnectResult struct {
	Success bool   `json:"success"`
	QRCode  string `json:"qrCode,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ContactInfo is the provider's view of a contact, used by the sync worker.
type ContactInfo struct {
	Nome string
	Foto string
}

// Provider is the uniform capability contract every outbound messaging
// provider implements. Construction performs no I/O; I/O happens only inside
// these methods, each with a bounded timeout.
type Provider interface {
	Type() string
	Config() models.ProviderConfig

	SendMessage(payload SendMessagePayload) (*SendResult, error)
	GetSessionStatus() (*SessionStatus, error)
	Connect() (*ConnectResult, error)
	Disconnect() error
}

// ContactFetcher is the narrow contract the contact sync worker consumes.
// Name and photo are fetched independently; either may come back empty.
type ContactFetcher interface {
	GetContactInfo(phone string) (*ContactInfo, error)
	GetProfilePicture(phone string) (string, error)
}

// ValidatePayload rejects malformed payloads locally, before any network call.
func ValidatePayload(payload SendMessagePayload) error {
	if strings.TrimSpace(payload.To) == "" {
		return apperrors.Validation("campo 'to' é obrigatório")
	}
	switch payload.MessageType {
	case "", "text":
		if strings.TrimSpace(payload.Text) == "" {
			return apperrors.Validation("mensagem de texto requer o campo 'text'")
		}
	case "image", "video", "audio", "document":
		if strings.TrimSpace(payload.MediaURL) == "" {
			return apperrors.Validation("mensagem de mídia requer o campo 'mediaUrl'")
		}
	default:
		return apperrors.Validation("messageType inválido: " + payload.MessageType)
	}
	return nil
}

// FormatPhone normalizes a phone number to the international digits-only form
// the providers expect (country code 55 prepended when absent).
func FormatPhone(phone string) string {
	numero := OnlyDigits(phone)
	if !strings.HasPrefix(numero, "55") {
		numero = "55" + numero
	}
	return numero
}

// OnlyDigits strips everything except digits, capped at 15 characters.
func OnlyDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
		if b.Len() >= 15 {
			break
		}
	}
	return b.String()
}
