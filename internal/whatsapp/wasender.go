package whatsapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

const wasenderDefaultBaseURL = "https://www.wasenderapi.com"

// WaSenderProvider talks to the WaSender REST API. Sessions pair via QR code;
// sends authenticate with the session API key, session management with the
// personal token.
type WaSenderProvider struct {
	config  models.ProviderConfig
	BaseURL string
	client  *http.Client
}

func NewWaSenderProvider(config models.ProviderConfig) *WaSenderProvider {
	return &WaSenderProvider{
		config:  config,
		BaseURL: wasenderDefaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *WaSenderProvider) Type() string {
	return models.ProviderWaSender
}

func (p *WaSenderProvider) Config() models.ProviderConfig {
	return p.config
}

// SendMessage translates the uniform payload into WaSender's body shape
// (imageUrl/videoUrl/audioUrl/documentUrl keyed by type).
func (p *WaSenderProvider) SendMessage(payload SendMessagePayload) (*SendResult, error) {
	if err := ValidatePayload(payload); err != nil {
		return nil, err
	}
	if p.config.WasenderAPIKey == "" {
		return nil, apperrors.Configuration("API key do WaSender não configurada")
	}

	body := map[string]interface{}{"to": FormatPhone(payload.To)}
	switch payload.MessageType {
	case "image":
		body["imageUrl"] = payload.MediaURL
		if payload.Caption != "" {
			body["caption"] = payload.Caption
		}
	case "video":
		body["videoUrl"] = payload.MediaURL
		if payload.Caption != "" {
			body["caption"] = payload.Caption
		}
	case "audio":
		body["audioUrl"] = payload.MediaURL
	case "document":
		body["documentUrl"] = payload.MediaURL
		if payload.FileName != "" {
			body["fileName"] = payload.FileName
		}
	default:
		body["text"] = payload.Text
	}

	var result struct {
		MessageID string `json:"messageId"`
		ID        string `json:"id"`
		Message   string `json:"message"`
		Error     string `json:"error"`
	}
	status, err := p.call("POST", "/api/send-message", p.config.WasenderAPIKey, body, &result)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		msg := result.Message
		if msg == "" {
			msg = result.Error
		}
		if msg == "" {
			msg = "erro ao enviar mensagem"
		}
		return &SendResult{Success: false, Error: msg}, apperrors.Upstream(msg, nil)
	}

	messageID := result.MessageID
	if messageID == "" {
		messageID = result.ID
	}
	if messageID == "" {
		messageID = "sent"
	}
	return &SendResult{Success: true, MessageID: messageID}, nil
}

func (p *WaSenderProvider) GetSessionStatus() (*SessionStatus, error) {
	if p.config.WasenderPersonalToken == "" || p.config.WasenderDeviceID == "" {
		return &SessionStatus{Connected: false, Status: "not_configured"}, nil
	}

	var result struct {
		Data struct {
			Status      string `json:"status"`
			Connected   bool   `json:"connected"`
			Phone       string `json:"phone"`
			PhoneNumber string `json:"phoneNumber"`
			PushName    string `json:"pushName"`
			Name        string `json:"name"`
		} `json:"data"`
	}
	path := "/api/whatsapp-sessions/" + p.config.WasenderDeviceID
	status, err := p.call("GET", path, p.config.WasenderPersonalToken, nil, &result)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return &SessionStatus{Connected: false, Status: "error"}, nil
	}

	session := result.Data
	phone := session.Phone
	if phone == "" {
		phone = session.PhoneNumber
	}
	name := session.PushName
	if name == "" {
		name = session.Name
	}
	st := session.Status
	if st == "" {
		st = "unknown"
	}
	return &SessionStatus{
		Connected: session.Status == "connected" || session.Connected,
		Phone:     phone,
		Name:      name,
		Status:    st,
	}, nil
}

// Connect asks WaSender to open the session and returns the pairing QR code.
func (p *WaSenderProvider) Connect() (*ConnectResult, error) {
	if p.config.WasenderPersonalToken == "" || p.config.WasenderDeviceID == "" {
		return nil, apperrors.Configuration("personal token e device ID do WaSender são necessários")
	}

	base := "/api/whatsapp-sessions/" + p.config.WasenderDeviceID
	if _, err := p.call("POST", base+"/connect", p.config.WasenderPersonalToken, nil, nil); err != nil {
		return nil, err
	}

	var qrResult struct {
		Data struct {
			QRCode string `json:"qrCode"`
			QR     string `json:"qr"`
		} `json:"data"`
		QRCode string `json:"qrCode"`
		QR     string `json:"qr"`
	}
	if _, err := p.call("GET", base+"/qrcode", p.config.WasenderPersonalToken, nil, &qrResult); err != nil {
		return nil, err
	}

	qr := qrResult.Data.QRCode
	for _, candidate := range []string{qrResult.Data.QR, qrResult.QRCode, qrResult.QR} {
		if qr == "" {
			qr = candidate
		}
	}
	return &ConnectResult{Success: true, QRCode: qr}, nil
}

func (p *WaSenderProvider) Disconnect() error {
	path := "/api/whatsapp-sessions/" + p.config.WasenderDeviceID + "/disconnect"
	status, err := p.call("POST", path, p.config.WasenderPersonalToken, nil, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return apperrors.Upstream(fmt.Sprintf("falha ao desconectar (status %d)", status), nil)
	}
	return nil
}

// GetContactInfo fetches the contact display name. Used by the sync worker.
func (p *WaSenderProvider) GetContactInfo(phone string) (*ContactInfo, error) {
	if p.config.WasenderAPIKey == "" {
		return nil, apperrors.Configuration("API key do WaSender não configurada")
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Name         string `json:"name"`
			PushName     string `json:"pushName"`
			Notify       string `json:"notify"`
			VerifiedName string `json:"verifiedName"`
		} `json:"data"`
	}
	path := "/api/contacts/" + FormatPhone(phone)
	status, err := p.contactCall(path, &result)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 || !result.Success {
		return &ContactInfo{}, nil
	}

	nome := result.Data.PushName
	for _, candidate := range []string{result.Data.Name, result.Data.Notify, result.Data.VerifiedName} {
		if nome == "" {
			nome = candidate
		}
	}
	return &ContactInfo{Nome: nome}, nil
}

// GetProfilePicture fetches the contact's profile picture URL. Empty string
// means the contact has none.
func (p *WaSenderProvider) GetProfilePicture(phone string) (string, error) {
	if p.config.WasenderAPIKey == "" {
		return "", apperrors.Configuration("API key do WaSender não configurada")
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			ImgURL string `json:"imgUrl"`
		} `json:"data"`
	}
	path := "/api/contacts/" + FormatPhone(phone) + "/picture"
	status, err := p.contactCall(path, &result)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 || !result.Success {
		return "", nil
	}
	return result.Data.ImgURL, nil
}

// contactCall uses a shorter timeout than sends: contact lookups run inside
// the rate-limited sync loop and must not stall it.
func (p *WaSenderProvider) contactCall(path string, out interface{}) (int, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest("GET", p.BaseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.config.WasenderAPIKey)

	resp, err := client.Do(req)
	if err != nil {
		return 0, apperrors.Transient("falha na chamada ao WaSender", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, apperrors.Transient("falha ao ler resposta do WaSender", err)
	}
	if out != nil && len(body) > 0 {
		_ = json.Unmarshal(body, out)
	}
	return resp.StatusCode, nil
}

func (p *WaSenderProvider) call(method, path, token string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %v", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, p.BaseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, apperrors.Transient("falha na chamada ao WaSender", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, apperrors.Transient("falha ao ler resposta do WaSender", err)
	}
	if out != nil && len(respBody) > 0 {
		_ = json.Unmarshal(respBody, out)
	}
	return resp.StatusCode, nil
}
