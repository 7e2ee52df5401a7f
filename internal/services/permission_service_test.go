package services

import (
	"testing"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

func TestResolverAdmin(t *testing.T) {
	db := newTestDB(t)
	service := NewPermissionService(db)
	admin := criarUsuario(t, db, "admin", true)
	setor := criarSetor(t, db, "Vendas")

	capability, err := service.Resolver(admin.ID)
	if err != nil {
		t.Fatalf("Resolver: %v", err)
	}
	if !capability.Admin {
		t.Fatal("expected admin capability")
	}
	if !capability.PodeVer(&setor.ID) || !capability.PodeResponder(nil) || !capability.PodeTransferir(&setor.ID) {
		t.Error("admin must pass every permission check")
	}
	if capability.SetoresVisiveis() != nil {
		t.Error("admin visibility must be unfiltered (nil)")
	}
}

func TestResolverGrants(t *testing.T) {
	db := newTestDB(t)
	service := NewPermissionService(db)
	agente := criarUsuario(t, db, "agente", false)
	vendas := criarSetor(t, db, "Vendas")
	suporte := criarSetor(t, db, "Suporte")
	darAcesso(t, db, agente.ID, vendas.ID, false)

	capability, err := service.Resolver(agente.ID)
	if err != nil {
		t.Fatal(err)
	}
	if capability.Admin {
		t.Fatal("scoped user must not be admin")
	}
	if !capability.PodeVer(&vendas.ID) {
		t.Error("granted sector must be visible")
	}
	if capability.PodeVer(&suporte.ID) {
		t.Error("ungranted sector must be invisible")
	}
	if capability.PodeTransferir(&vendas.ID) {
		t.Error("transfer was not granted")
	}
	// Sector-less conversations are visible to anyone holding a grant.
	if !capability.PodeVer(nil) {
		t.Error("sector-less conversation must be visible to a granted user")
	}

	visiveis := capability.SetoresVisiveis()
	if len(visiveis) != 1 || visiveis[0] != vendas.ID {
		t.Errorf("setores visiveis = %v", visiveis)
	}
}

func TestResolverSemGrants(t *testing.T) {
	db := newTestDB(t)
	service := NewPermissionService(db)
	agente := criarUsuario(t, db, "agente", false)

	capability, err := service.Resolver(agente.ID)
	if err != nil {
		t.Fatal(err)
	}
	if capability.PodeVer(nil) {
		t.Error("user with zero grants must not see sector-less conversations")
	}
	if capability.PodeResponder(nil) || capability.PodeTransferir(nil) {
		t.Error("user with zero grants must not act")
	}
}

func TestResolverUsuarioInativo(t *testing.T) {
	db := newTestDB(t)
	service := NewPermissionService(db)

	usuario := models.Usuario{Nome: "ex", Email: "ex@clube.test", SenhaHash: "x", Ativo: false}
	if err := db.Create(&usuario).Error; err != nil {
		t.Fatal(err)
	}

	_, err := service.Resolver(usuario.ID)
	if err == nil {
		t.Fatal("inactive user must be rejected")
	}
	if kind, _ := apperrors.KindOf(err); kind != apperrors.KindAuthorization {
		t.Errorf("kind = %v, want authorization", kind)
	}
}

func TestResolverUsuarioInexistente(t *testing.T) {
	db := newTestDB(t)
	service := NewPermissionService(db)

	_, err := service.Resolver("nao-existe")
	if err == nil {
		t.Fatal("unknown user must be rejected")
	}
	if kind, _ := apperrors.KindOf(err); kind != apperrors.KindAuthentication {
		t.Errorf("kind = %v, want authentication", kind)
	}
}
