package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
	"github.com/msalmeida123/sistema-clube-sub003/internal/services"
	"github.com/msalmeida123/sistema-clube-sub003/internal/whatsapp"
)

// SyncHandler exposes the contact sync worker and the bulk contact import.
// The sync POST is meant for schedulers (cron), so it authenticates with the
// provider API key rather than a user JWT.
type SyncHandler struct {
	db          *gorm.DB
	sync        *services.ContactSyncService
	ledger      *services.LedgerService
	permissions *services.PermissionService
}

func NewSyncHandler(db *gorm.DB, sync *services.ContactSyncService, ledger *services.LedgerService, permissions *services.PermissionService) *SyncHandler {
	return &SyncHandler{db: db, sync: sync, ledger: ledger, permissions: permissions}
}

// apiKeyOK accepts the stored WaSender API key via Authorization: Bearer or
// x-api-key.
func (h *SyncHandler) apiKeyOK(r *http.Request, config models.ProviderConfig) bool {
	if config.WasenderAPIKey == "" {
		return false
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")) == config.WasenderAPIKey {
			return true
		}
	}
	return r.Header.Get("x-api-key") == config.WasenderAPIKey
}

// HandleSyncContacts handles POST /api/wasender/sync-contacts
func (h *SyncHandler) HandleSyncContacts(w http.ResponseWriter, r *http.Request) {
	provider, err := whatsapp.ProviderByType(h.db, models.ProviderWaSender)
	if err != nil {
		respondError(w, r, err)
		return
	}
	config := provider.Config()
	if !h.apiKeyOK(r, config) {
		respondError(w, r, apperrors.Authentication("API key inválida"))
		return
	}

	fetcher, ok := provider.(whatsapp.ContactFetcher)
	if !ok {
		respondError(w, r, apperrors.Configuration("provider não suporta busca de contatos"))
		return
	}

	result, err := h.sync.Run(fetcher)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"resultado": result,
	})
}

// HandleSyncStats handles GET /api/wasender/sync-contacts
func (h *SyncHandler) HandleSyncStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sync.Estatisticas()
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"estatisticas": stats})
}

type importRequest struct {
	Contacts []services.ContactImport `json:"contacts"`
	Contatos []services.ContactImport `json:"contatos"`
}

// HandleImportContacts handles POST /api/wasender/contacts
func (h *SyncHandler) HandleImportContacts(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperrors.Validation("payload inválido"))
		return
	}
	contacts := req.Contacts
	if len(contacts) == 0 {
		contacts = req.Contatos
	}
	if len(contacts) == 0 {
		respondError(w, r, apperrors.Validation("lista de contatos vazia"))
		return
	}

	result, err := h.ledger.ImportarContatos(contacts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"importados": result.Importados,
		"existentes": result.Existentes,
		"total":      result.Total,
	})
}

// HandleListContacts handles GET /api/wasender/contacts: conversations scoped
// to what the viewer may see.
func (h *SyncHandler) HandleListContacts(w http.ResponseWriter, r *http.Request) {
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

	query := h.db.Model(&models.Conversa{}).Order("ultimo_contato DESC")
	if !capability.Admin {
		setores := capability.SetoresVisiveis()
		if len(setores) == 0 {
			respondJSON(w, http.StatusOK, map[string]interface{}{"conversas": []models.Conversa{}, "total": 0})
			return
		}
		query = query.Where("setor_id IN ? OR setor_id IS NULL", setores)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var conversas []models.Conversa
	if err := query.Find(&conversas).Error; err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"conversas": conversas,
		"total":     len(conversas),
	})
}

type arquivarRequest struct {
	Dias int `json:"dias"`
}

// HandleArquivar handles POST /api/conversas/arquivar (admin only)
func (h *SyncHandler) HandleArquivar(w http.ResponseWriter, r *http.Request) {
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
	if !capability.Admin {
		respondError(w, r, apperrors.Authorization("apenas administradores podem arquivar em massa"))
		return
	}

	var req arquivarRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	arquivadas, err := h.ledger.ArquivarInativas(req.Dias)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"arquivadas": arquivadas,
	})
}
