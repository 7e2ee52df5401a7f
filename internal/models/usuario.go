package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Usuario is a back-office operator. IsAdmin bypasses all per-sector grants.
type Usuario struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Nome      string    `json:"nome" gorm:"size:100;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:100;not null"`
	SenhaHash string    `json:"-" gorm:"size:255;not null"`
	IsAdmin   bool      `json:"is_admin" gorm:"default:false"`
	Ativo     bool      `json:"ativo" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Setores []UsuarioSetor `json:"setores,omitempty" gorm:"foreignKey:UsuarioID"`
}

func (u *Usuario) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// TableName specifies the table name for Usuario
func (Usuario) TableName() string {
	return "usuarios"
}

// LoginRequest represents login request
type LoginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Token   string  `json:"token"`
	Usuario Usuario `json:"usuario"`
}
