package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Setor is an organizational queue a conversation can be assigned to
// (e.g. Vendas, Suporte). Read-mostly.
type Setor struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Nome      string    `json:"nome" gorm:"size:100;not null"`
	Descricao *string   `json:"descricao" gorm:"size:255"`
	Cor       string    `json:"cor" gorm:"size:20;default:'#3B82F6'"`
	Icone     string    `json:"icone" gorm:"size:50;default:'folder'"`
	Ordem     int       `json:"ordem" gorm:"default:0"`
	Ativo     bool      `json:"ativo" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (s *Setor) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// TableName specifies the table name for Setor
func (Setor) TableName() string {
	return "setores_whatsapp"
}

// Transferencia is an append-only audit entry for a sector move.
// SetorOrigemID is nil when the conversation was previously unassigned.
type Transferencia struct {
	ID             string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ConversaID     string    `json:"conversa_id" gorm:"type:varchar(36);index;not null"`
	SetorOrigemID  *string   `json:"setor_origem_id" gorm:"type:varchar(36)"`
	SetorDestinoID string    `json:"setor_destino_id" gorm:"type:varchar(36);not null"`
	UsuarioID      *string   `json:"usuario_id" gorm:"type:varchar(36)"`
	Motivo         *string   `json:"motivo" gorm:"size:500"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`

	SetorOrigem  *Setor `json:"setor_origem,omitempty" gorm:"foreignKey:SetorOrigemID"`
	SetorDestino *Setor `json:"setor_destino,omitempty" gorm:"foreignKey:SetorDestinoID"`
}

func (t *Transferencia) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TableName specifies the table name for Transferencia
func (Transferencia) TableName() string {
	return "transferencias_whatsapp"
}

// UsuarioSetor grants one user scoped access to one sector.
// Administrators bypass these rows entirely.
type UsuarioSetor struct {
	ID             string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	UsuarioID      string    `json:"usuario_id" gorm:"type:varchar(36);index;not null"`
	SetorID        string    `json:"setor_id" gorm:"type:varchar(36);index;not null"`
	PodeVer        bool      `json:"pode_ver" gorm:"default:true"`
	PodeResponder  bool      `json:"pode_responder" gorm:"default:true"`
	PodeTransferir bool      `json:"pode_transferir" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (us *UsuarioSetor) BeforeCreate(tx *gorm.DB) error {
	if us.ID == "" {
		us.ID = uuid.NewString()
	}
	return nil
}

// TableName specifies the table name for UsuarioSetor
func (UsuarioSetor) TableName() string {
	return "usuarios_setores"
}
