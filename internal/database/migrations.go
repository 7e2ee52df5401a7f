package database

import (
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

// setorPadrao is one seeded sector row.
type setorPadrao struct {
	Nome      string
	Descricao string
	Cor       string
	Icone     string
	Ordem     int
}

var setoresPadrao = []setorPadrao{
	{Nome: "Recepção", Descricao: "Primeiro atendimento", Cor: "#3B82F6", Icone: "inbox", Ordem: 1},
	{Nome: "Financeiro", Descricao: "Mensalidades e pagamentos", Cor: "#10B981", Icone: "dollar-sign", Ordem: 2},
	{Nome: "Esportes", Descricao: "Escolinhas e eventos esportivos", Cor: "#F59E0B", Icone: "trophy", Ordem: 3},
	{Nome: "Secretaria", Descricao: "Documentos e carteirinhas", Cor: "#8B5CF6", Icone: "file-text", Ordem: 4},
}

// SeedSetoresPadrao inserts the default sectors on first boot. Existing rows
// are never touched, so operator renames survive restarts.
func SeedSetoresPadrao(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Setor{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, s := range setoresPadrao {
		descricao := s.Descricao
		setor := models.Setor{
			Nome:      s.Nome,
			Descricao: &descricao,
			Cor:       s.Cor,
			Icone:     s.Icone,
			Ordem:     s.Ordem,
			Ativo:     true,
		}
		if err := db.Create(&setor).Error; err != nil {
			return err
		}
	}
	log.Printf("🏷️ Setores padrão criados: %d", len(setoresPadrao))
	return nil
}

// SeedAdminInicial creates the first administrator when ADMIN_EMAIL and
// ADMIN_SENHA are set and no admin exists yet.
func SeedAdminInicial(db *gorm.DB) error {
	email := os.Getenv("ADMIN_EMAIL")
	senha := os.Getenv("ADMIN_SENHA")
	if email == "" || senha == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.Usuario{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(senha), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := models.Usuario{
		Nome:      "Administrador",
		Email:     email,
		SenhaHash: string(hash),
		IsAdmin:   true,
		Ativo:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("👤 Administrador inicial criado: %s", email)
	return nil
}
