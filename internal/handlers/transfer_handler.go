package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/services"
)

// TransferHandler exposes sector routing: transfers, history and the sector
// catalog.
type TransferHandler struct {
	transfers   *services.TransferService
	permissions *services.PermissionService
}

func NewTransferHandler(transfers *services.TransferService, permissions *services.PermissionService) *TransferHandler {
	return &TransferHandler{transfers: transfers, permissions: permissions}
}

type transferRequest struct {
	ConversaID string  `json:"conversa_id"`
	SetorID    string  `json:"setor_id"`
	Motivo     *string `json:"motivo"`
}

// HandleTransferir handles POST /api/wasender/transferir
func (h *TransferHandler) HandleTransferir(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r)
	if !ok {
		respondError(w, r, apperrors.Authentication("não autenticado"))
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperrors.Validation("payload inválido"))
		return
	}

	setor, err := h.transfers.Transferir(claims.UsuarioID, req.ConversaID, req.SetorID, req.Motivo)
	if err != nil {
		respondError(w, r, err)
		return
	}

	log.Printf("🔀 Conversa %s transferida para %s por %s", req.ConversaID, setor.Nome, claims.Email)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"setor":   setor,
	})
}

// HandleHistorico handles GET /api/wasender/transferir?conversa_id=
func (h *TransferHandler) HandleHistorico(w http.ResponseWriter, r *http.Request) {
	conversaID := r.URL.Query().Get("conversa_id")
	transferencias, err := h.transfers.Historico(conversaID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transferencias": transferencias,
		"total":          len(transferencias),
	})
}

// HandleListarSetores handles GET /api/wasender/setores
func (h *TransferHandler) HandleListarSetores(w http.ResponseWriter, r *http.Request) {
	setores, err := h.transfers.ListarSetores()
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"setores": setores})
}

type criarSetorRequest struct {
	Nome      string  `json:"nome"`
	Descricao *string `json:"descricao"`
	Cor       string  `json:"cor"`
	Icone     string  `json:"icone"`
}

// HandleCriarSetor handles POST /api/wasender/setores (admin only)
func (h *TransferHandler) HandleCriarSetor(w http.ResponseWriter, r *http.Request) {
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
		respondError(w, r, apperrors.Authorization("apenas administradores podem criar setores"))
		return
	}

	var req criarSetorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperrors.Validation("payload inválido"))
		return
	}

	setor, err := h.transfers.CriarSetor(req.Nome, req.Descricao, req.Cor, req.Icone)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"setor":   setor,
	})
}
