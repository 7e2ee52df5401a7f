package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Provider type values
const (
	ProviderWaSender = "wasender"
	ProviderMeta     = "meta"
)

// ProviderConfig is the operator-managed configuration of one outbound
// messaging provider. The factory re-reads it on every send/status call, so
// credential changes take effect immediately.
type ProviderConfig struct {
	ID        string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Nome      string `json:"nome" gorm:"size:100;not null"`
	Tipo      string `json:"tipo" gorm:"type:varchar(20);not null;check:tipo IN ('wasender','meta')"`
	Ativo     bool   `json:"ativo" gorm:"default:true"`
	IsDefault bool   `json:"is_default" gorm:"default:false"`

	// WaSender credentials
	WasenderAPIKey        string `json:"wasender_api_key,omitempty" gorm:"size:255"`
	WasenderDeviceID      string `json:"wasender_device_id,omitempty" gorm:"size:100"`
	WasenderPersonalToken string `json:"wasender_personal_token,omitempty" gorm:"size:255"`

	// Meta Cloud API credentials
	MetaAppID         string `json:"meta_app_id,omitempty" gorm:"size:100"`
	MetaAppSecret     string `json:"meta_app_secret,omitempty" gorm:"size:255"`
	MetaAccessToken   string `json:"meta_access_token,omitempty" gorm:"size:500"`
	MetaPhoneNumberID string `json:"meta_phone_number_id,omitempty" gorm:"size:100;index"`
	MetaWabaID        string `json:"meta_waba_id,omitempty" gorm:"size:100"`
	MetaVerifyToken   string `json:"meta_verify_token,omitempty" gorm:"size:255"`

	Telefone     string     `json:"telefone,omitempty" gorm:"size:20"`
	NomeExibicao string     `json:"nome_exibicao,omitempty" gorm:"size:100"`
	Status       string     `json:"status,omitempty" gorm:"size:30"`
	UltimoCheck  *time.Time `json:"ultimo_check,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

func (p *ProviderConfig) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// TableName specifies the table name for ProviderConfig
func (ProviderConfig) TableName() string {
	return "whatsapp_providers"
}
