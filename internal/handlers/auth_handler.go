package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
	"github.com/msalmeida123/sistema-clube-sub003/internal/services"
)

// AuthHandler covers login and the authenticated profile.
type AuthHandler struct {
	auth        *services.AuthService
	permissions *services.PermissionService
}

func NewAuthHandler(auth *services.AuthService, permissions *services.PermissionService) *AuthHandler {
	return &AuthHandler{auth: auth, permissions: permissions}
}

// HandleLogin handles POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, apperrors.Validation("payload inválido"))
		return
	}

	token, usuario, err := h.auth.Login(req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	log.Printf("✅ Login: %s", usuario.Email)
	respondJSON(w, http.StatusOK, models.LoginResponse{
		Token:   token,
		Usuario: *usuario,
	})
}

// HandleProfile handles GET /api/auth/profile
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r)
	if !ok {
		respondError(w, r, apperrors.Authentication("não autenticado"))
		return
	}

	usuario, err := h.auth.GetUsuario(claims.UsuarioID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	capability, err := h.permissions.Resolver(claims.UsuarioID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	setores := capability.SetoresVisiveis()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"usuario":          usuario,
		"is_admin":         capability.Admin,
		"setores_visiveis": setores,
	})
}
