package services

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/msalmeida123/sistema-clube-sub003/internal/events"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

// newTestDB opens a throwaway sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Usuario{},
		&models.Setor{},
		&models.UsuarioSetor{},
		&models.ProviderConfig{},
		&models.Conversa{},
		&models.Mensagem{},
		&models.Transferencia{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestBus() *events.Bus {
	return events.NewBus()
}

func criarUsuario(t *testing.T, db *gorm.DB, nome string, admin bool) *models.Usuario {
	t.Helper()
	usuario := models.Usuario{
		Nome:      nome,
		Email:     nome + "@clube.test",
		SenhaHash: "x",
		IsAdmin:   admin,
		Ativo:     true,
	}
	if err := db.Create(&usuario).Error; err != nil {
		t.Fatalf("create usuario: %v", err)
	}
	return &usuario
}

func criarSetor(t *testing.T, db *gorm.DB, nome string) *models.Setor {
	t.Helper()
	setor := models.Setor{Nome: nome, Ativo: true}
	if err := db.Create(&setor).Error; err != nil {
		t.Fatalf("create setor: %v", err)
	}
	return &setor
}

func darAcesso(t *testing.T, db *gorm.DB, usuarioID, setorID string, transferir bool) {
	t.Helper()
	grant := models.UsuarioSetor{
		UsuarioID:      usuarioID,
		SetorID:        setorID,
		PodeVer:        true,
		PodeResponder:  true,
		PodeTransferir: transferir,
	}
	if err := db.Create(&grant).Error; err != nil {
		t.Fatalf("create grant: %v", err)
	}
}
