package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

// SetorGrant is one user's access to one sector.
type SetorGrant struct {
	PodeVer        bool
	PodeResponder  bool
	PodeTransferir bool
}

// Capability is the resolved permission set of a user: either an unrestricted
// administrator or a bounded set of per-sector grants. Every consumer checks
// Admin first; per-sector rows are only consulted for scoped users.
type Capability struct {
	UsuarioID string
	Admin     bool
	Grants    map[string]SetorGrant
}

// PodeVer reports whether the user may see conversations in the sector.
// Sector-less conversations (nil) are visible to any user holding at least
// one grant.
func (c Capability) PodeVer(setorID *string) bool {
	if c.Admin {
		return true
	}
	if setorID == nil {
		return len(c.Grants) > 0
	}
	return c.Grants[*setorID].PodeVer
}

// PodeResponder reports whether the user may reply in the sector.
func (c Capability) PodeResponder(setorID *string) bool {
	if c.Admin {
		return true
	}
	if setorID == nil {
		for _, g := range c.Grants {
			if g.PodeResponder {
				return true
			}
		}
		return false
	}
	return c.Grants[*setorID].PodeResponder
}

// PodeTransferir reports whether the user may transfer a conversation out of
// the sector.
func (c Capability) PodeTransferir(setorID *string) bool {
	if c.Admin {
		return true
	}
	if setorID == nil {
		for _, g := range c.Grants {
			if g.PodeTransferir {
				return true
			}
		}
		return false
	}
	return c.Grants[*setorID].PodeTransferir
}

// SetoresVisiveis lists the sector ids the user may see. Admin gets nil,
// meaning no filter.
func (c Capability) SetoresVisiveis() []string {
	if c.Admin {
		return nil
	}
	ids := make([]string, 0, len(c.Grants))
	for id, g := range c.Grants {
		if g.PodeVer {
			ids = append(ids, id)
		}
	}
	return ids
}

// PermissionService resolves user capabilities from the permission store.
type PermissionService struct {
	db *gorm.DB
}

func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{db: db}
}

// Resolver builds the capability set for a user. Administrators bypass
// per-sector rows entirely.
func (ps *PermissionService) Resolver(usuarioID string) (Capability, error) {
	var usuario models.Usuario
	err := ps.db.Select("id", "is_admin", "ativo").Where("id = ?", usuarioID).First(&usuario).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Capability{}, apperrors.Authentication("usuário não encontrado")
	}
	if err != nil {
		return Capability{}, err
	}
	if !usuario.Ativo {
		return Capability{}, apperrors.Authorization("usuário inativo")
	}

	if usuario.IsAdmin {
		return Capability{UsuarioID: usuarioID, Admin: true}, nil
	}

	var rows []models.UsuarioSetor
	if err := ps.db.Where("usuario_id = ?", usuarioID).Find(&rows).Error; err != nil {
		return Capability{}, err
	}

	grants := make(map[string]SetorGrant, len(rows))
	for _, row := range rows {
		grants[row.SetorID] = SetorGrant{
			PodeVer:        row.PodeVer,
			PodeResponder:  row.PodeResponder,
			PodeTransferir: row.PodeTransferir,
		}
	}
	return Capability{UsuarioID: usuarioID, Grants: grants}, nil
}
