package whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

const (
	metaAPIVersion     = "v21.0"
	metaDefaultBaseURL = "https://graph.facebook.com/" + metaAPIVersion
)

// MetaProvider talks to the official WhatsApp Cloud API. Sessions are
// token-based; there is no QR pairing.
type MetaProvider struct {
	config  models.ProviderConfig
	BaseURL string
	client  *http.Client
}

func NewMetaProvider(config models.ProviderConfig) *MetaProvider {
	return &MetaProvider{
		config:  config,
		BaseURL: metaDefaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *MetaProvider) Type() string {
	return models.ProviderMeta
}

func (p *MetaProvider) Config() models.ProviderConfig {
	return p.config
}

// SendMessage translates the uniform payload into the Cloud API message body.
// Media URLs starting with http are sent as links, anything else as media ids.
func (p *MetaProvider) SendMessage(payload SendMessagePayload) (*SendResult, error) {
	if err := ValidatePayload(payload); err != nil {
		return nil, err
	}
	if p.config.MetaAccessToken == "" || p.config.MetaPhoneNumberID == "" {
		return nil, apperrors.Configuration("access token e phone number ID da Meta são obrigatórios")
	}

	body := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                FormatPhone(payload.To),
	}

	media := func(extra map[string]interface{}) map[string]interface{} {
		m := map[string]interface{}{}
		if strings.HasPrefix(payload.MediaURL, "http") {
			m["link"] = payload.MediaURL
		} else {
			m["id"] = payload.MediaURL
		}
		for k, v := range extra {
			if v != "" {
				m[k] = v
			}
		}
		return m
	}

	switch payload.MessageType {
	case "image":
		body["type"] = "image"
		body["image"] = media(map[string]interface{}{"caption": payload.Caption})
	case "video":
		body["type"] = "video"
		body["video"] = media(map[string]interface{}{"caption": payload.Caption})
	case "audio":
		body["type"] = "audio"
		body["audio"] = media(nil)
	case "document":
		body["type"] = "document"
		body["document"] = media(map[string]interface{}{
			"filename": payload.FileName,
			"caption":  payload.Caption,
		})
	default:
		body["type"] = "text"
		body["text"] = map[string]interface{}{"preview_url": true, "body": payload.Text}
	}

	var result struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := p.apiCall("POST", "/"+p.config.MetaPhoneNumberID+"/messages", body, &result); err != nil {
		return &SendResult{Success: false, Error: err.Error()}, err
	}

	messageID := ""
	if len(result.Messages) > 0 {
		messageID = result.Messages[0].ID
	}
	return &SendResult{Success: true, MessageID: messageID}, nil
}

// GetSessionStatus checks token validity by fetching the phone number object.
func (p *MetaProvider) GetSessionStatus() (*SessionStatus, error) {
	if p.config.MetaAccessToken == "" || p.config.MetaPhoneNumberID == "" {
		return &SessionStatus{Connected: false, Status: "not_configured"}, nil
	}

	var result struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		VerifiedName       string `json:"verified_name"`
	}
	if err := p.apiCall("GET", "/"+p.config.MetaPhoneNumberID, nil, &result); err != nil {
		return &SessionStatus{Connected: false, Status: "error"}, nil
	}
	return &SessionStatus{
		Connected: true,
		Phone:     result.DisplayPhoneNumber,
		Name:      result.VerifiedName,
		Status:    "connected",
	}, nil
}

// Connect is a no-op for Meta: the Cloud API has no QR pairing, the session
// exists as long as the access token is valid.
func (p *MetaProvider) Connect() (*ConnectResult, error) {
	status, err := p.GetSessionStatus()
	if err != nil {
		return nil, err
	}
	if !status.Connected {
		return &ConnectResult{Success: false, Error: "access token inválido ou expirado"}, nil
	}
	return &ConnectResult{Success: true}, nil
}

// Disconnect is a no-op for Meta; tokens are revoked on the Meta side.
func (p *MetaProvider) Disconnect() error {
	return nil
}

// MarkAsRead acknowledges an inbound message on the Cloud API. Best-effort:
// ingestion never fails on it.
func (p *MetaProvider) MarkAsRead(messageID string) error {
	body := map[string]interface{}{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	return p.apiCall("POST", "/"+p.config.MetaPhoneNumberID+"/messages", body, nil)
}

// ResolveMediaURL exchanges a webhook media id for a downloadable URL.
func (p *MetaProvider) ResolveMediaURL(mediaID string) (string, error) {
	var result struct {
		URL string `json:"url"`
	}
	if err := p.apiCall("GET", "/"+mediaID, nil, &result); err != nil {
		return "", err
	}
	return result.URL, nil
}

func (p *MetaProvider) apiCall(method, endpoint string, body interface{}, out interface{}) error {
	url := endpoint
	if !strings.HasPrefix(endpoint, "http") {
		url = p.BaseURL + endpoint
	}

	var reader io.Reader
	if body != nil && method != "GET" {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %v", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.config.MetaAccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return apperrors.Transient("falha na chamada à API Meta", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Transient("falha ao ler resposta da API Meta", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResult struct {
			Error struct {
				Message      string `json:"message"`
				ErrorUserMsg string `json:"error_user_msg"`
			} `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResult)
		msg := errResult.Error.Message
		if msg == "" {
			msg = errResult.Error.ErrorUserMsg
		}
		if msg == "" {
			msg = "erro na API Meta"
		}
		return apperrors.Upstream(fmt.Sprintf("Meta API error (%d): %s", resp.StatusCode, msg), nil)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return apperrors.Upstream("resposta inválida da API Meta", err)
		}
	}
	return nil
}
