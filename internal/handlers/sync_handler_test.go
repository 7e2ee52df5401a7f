package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/gorm"

	"github.com/msalmeida123/sistema-clube-sub003/internal/events"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
	"github.com/msalmeida123/sistema-clube-sub003/internal/services"
)

func newSyncFixture(t *testing.T) (*SyncHandler, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	config := models.ProviderConfig{
		Nome:             "WaSender",
		Tipo:             models.ProviderWaSender,
		Ativo:            true,
		IsDefault:        true,
		WasenderAPIKey:   "chave-cron",
		WasenderDeviceID: "device-123",
	}
	if err := db.Create(&config).Error; err != nil {
		t.Fatal(err)
	}
	bus := events.NewBus()
	handler := NewSyncHandler(
		db,
		services.NewContactSyncService(db),
		services.NewLedgerService(db, bus),
		services.NewPermissionService(db),
	)
	return handler, db
}

func TestSyncContactsChaveInvalida(t *testing.T) {
	handler, _ := newSyncFixture(t)

	req := httptest.NewRequest("POST", "/api/wasender/sync-contacts", nil)
	req.Header.Set("x-api-key", "chave-errada")
	rec := httptest.NewRecorder()
	handler.HandleSyncContacts(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSyncContactsSemChave(t *testing.T) {
	handler, _ := newSyncFixture(t)

	req := httptest.NewRequest("POST", "/api/wasender/sync-contacts", nil)
	rec := httptest.NewRecorder()
	handler.HandleSyncContacts(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestSyncContactsSemCandidatos(t *testing.T) {
	handler, _ := newSyncFixture(t)

	// Empty ledger: the run reports zero work without calling the provider.
	req := httptest.NewRequest("POST", "/api/wasender/sync-contacts", nil)
	req.Header.Set("Authorization", "Bearer chave-cron")
	rec := httptest.NewRecorder()
	handler.HandleSyncContacts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resposta struct {
		Resultado services.SyncResult `json:"resultado"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resposta)
	if resposta.Resultado.Processados != 0 {
		t.Errorf("processados = %d, want 0", resposta.Resultado.Processados)
	}
}

func TestImportContacts(t *testing.T) {
	handler, db := newSyncFixture(t)

	body, _ := json.Marshal(map[string]interface{}{
		"contacts": []map[string]string{
			{"number": "5511999990001", "name": "Um"},
			{"number": "5511999990002"},
		},
	})
	req := httptest.NewRequest("POST", "/api/wasender/contacts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleImportContacts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var count int64
	db.Model(&models.Conversa{}).Count(&count)
	if count != 2 {
		t.Errorf("conversas = %d, want 2", count)
	}
}

func TestImportContactsVazio(t *testing.T) {
	handler, _ := newSyncFixture(t)

	body, _ := json.Marshal(map[string]interface{}{"contacts": []map[string]string{}})
	req := httptest.NewRequest("POST", "/api/wasender/contacts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleImportContacts(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for empty list", rec.Code)
	}
}
