package services

import (
	"testing"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

func TestLoginEToken(t *testing.T) {
	db := newTestDB(t)
	service := NewAuthService(db)

	hash, err := HashSenha("segredo123")
	if err != nil {
		t.Fatal(err)
	}
	usuario := models.Usuario{Nome: "Ana", Email: "ana@clube.test", SenhaHash: hash, IsAdmin: true, Ativo: true}
	if err := db.Create(&usuario).Error; err != nil {
		t.Fatal(err)
	}

	token, logado, err := service.Login(models.LoginRequest{Email: "ana@clube.test", Senha: "segredo123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if logado.ID != usuario.ID {
		t.Errorf("usuario = %s", logado.ID)
	}

	claims, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UsuarioID != usuario.ID || !claims.IsAdmin {
		t.Errorf("claims = %+v", claims)
	}
}

func TestLoginSenhaErrada(t *testing.T) {
	db := newTestDB(t)
	service := NewAuthService(db)

	hash, _ := HashSenha("certa")
	usuario := models.Usuario{Nome: "Ana", Email: "ana@clube.test", SenhaHash: hash, Ativo: true}
	if err := db.Create(&usuario).Error; err != nil {
		t.Fatal(err)
	}

	_, _, err := service.Login(models.LoginRequest{Email: "ana@clube.test", Senha: "errada"})
	if err == nil {
		t.Fatal("wrong password must fail")
	}
	if kind, _ := apperrors.KindOf(err); kind != apperrors.KindAuthentication {
		t.Errorf("kind = %v", kind)
	}
}

func TestLoginUsuarioInativo(t *testing.T) {
	db := newTestDB(t)
	service := NewAuthService(db)

	hash, _ := HashSenha("segredo")
	usuario := models.Usuario{Nome: "Ex", Email: "ex@clube.test", SenhaHash: hash, Ativo: false}
	if err := db.Create(&usuario).Error; err != nil {
		t.Fatal(err)
	}

	_, _, err := service.Login(models.LoginRequest{Email: "ex@clube.test", Senha: "segredo"})
	if err == nil {
		t.Fatal("inactive user must not log in")
	}
	if kind, _ := apperrors.KindOf(err); kind != apperrors.KindAuthorization {
		t.Errorf("kind = %v", kind)
	}
}

func TestValidateTokenInvalido(t *testing.T) {
	service := NewAuthService(newTestDB(t))
	if _, err := service.ValidateToken("nem.um.jwt"); err == nil {
		t.Fatal("garbage token must fail")
	}
}
