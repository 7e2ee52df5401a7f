package whatsapp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

func newTestWaSender(t *testing.T, handler http.HandlerFunc) *WaSenderProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider := NewWaSenderProvider(models.ProviderConfig{
		Tipo:                  models.ProviderWaSender,
		WasenderAPIKey:        "test-key",
		WasenderDeviceID:      "dev-1",
		WasenderPersonalToken: "personal-token",
	})
	provider.BaseURL = server.URL
	return provider
}

func TestWaSenderSendText(t *testing.T) {
	var gotBody map[string]interface{}
	var gotAuth string
	provider := newTestWaSender(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/send-message" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"messageId": "wamid.123"})
	})

	result, err := provider.SendMessage(SendMessagePayload{To: "11999999999", MessageType: "text", Text: "olá"})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !result.Success || result.MessageID != "wamid.123" {
		t.Errorf("result = %+v", result)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["to"] != "5511999999999" {
		t.Errorf("to = %v, want 5511999999999", gotBody["to"])
	}
	if gotBody["text"] != "olá" {
		t.Errorf("text = %v", gotBody["text"])
	}
}

func TestWaSenderSendImageBodyShape(t *testing.T) {
	var gotBody map[string]interface{}
	provider := newTestWaSender(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"id": "m1"})
	})

	_, err := provider.SendMessage(SendMessagePayload{
		To:          "5511999999999",
		MessageType: "image",
		MediaURL:    "https://cdn/x.jpg",
		Caption:     "foto",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if gotBody["imageUrl"] != "https://cdn/x.jpg" {
		t.Errorf("imageUrl = %v", gotBody["imageUrl"])
	}
	if gotBody["caption"] != "foto" {
		t.Errorf("caption = %v", gotBody["caption"])
	}
	if _, ok := gotBody["text"]; ok {
		t.Error("media send must not carry a text field")
	}
}

func TestWaSenderSendUpstreamError(t *testing.T) {
	provider := newTestWaSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid recipient"})
	})

	result, err := provider.SendMessage(SendMessagePayload{To: "5511999999999", Text: "x"})
	if err == nil {
		t.Fatal("expected upstream error")
	}
	if result == nil || result.Success {
		t.Errorf("result = %+v, want failed", result)
	}
	if result.Error != "invalid recipient" {
		t.Errorf("Error = %q, want provider message", result.Error)
	}
}

func TestWaSenderSessionStatus(t *testing.T) {
	provider := newTestWaSender(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/whatsapp-sessions/dev-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer personal-token" {
			t.Errorf("session calls must use the personal token, got %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"status": "connected", "phone": "5511988887777", "pushName": "Clube"},
		})
	})

	status, err := provider.GetSessionStatus()
	if err != nil {
		t.Fatalf("GetSessionStatus: %v", err)
	}
	if !status.Connected || status.Phone != "5511988887777" || status.Name != "Clube" {
		t.Errorf("status = %+v", status)
	}
}

func TestWaSenderGetProfilePicture(t *testing.T) {
	provider := newTestWaSender(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]string{"imgUrl": "https://pps.whatsapp.net/x.jpg"},
		})
	})

	url, err := provider.GetProfilePicture("11999999999")
	if err != nil {
		t.Fatalf("GetProfilePicture: %v", err)
	}
	if url != "https://pps.whatsapp.net/x.jpg" {
		t.Errorf("url = %q", url)
	}
}

func TestWaSenderGetProfilePictureAbsent(t *testing.T) {
	provider := newTestWaSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false})
	})

	url, err := provider.GetProfilePicture("11999999999")
	if err != nil {
		t.Fatalf("GetProfilePicture: %v", err)
	}
	if url != "" {
		t.Errorf("url = %q, want empty for absent picture", url)
	}
}
