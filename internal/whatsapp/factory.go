package whatsapp

import (
	"errors"

	"gorm.io/gorm"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

// NewProvider constructs a provider from stored configuration. The switch is
// purely on config.Tipo; an unsupported value is a configuration error and
// must never be retried.
func NewProvider(config models.ProviderConfig) (Provider, error) {
	switch config.Tipo {
	case models.ProviderWaSender:
		return NewWaSenderProvider(config), nil
	case models.ProviderMeta:
		return NewMetaProvider(config), nil
	default:
		return nil, apperrors.Configuration("provider tipo \"" + config.Tipo + "\" não suportado")
	}
}

// DefaultProvider resolves the active default configuration, falling back to
// the oldest active one. Configuration is re-read on every call so credential
// changes take effect immediately.
func DefaultProvider(db *gorm.DB) (Provider, error) {
	var config models.ProviderConfig
	err := db.Where("ativo = ? AND is_default = ?", true, true).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = db.Where("ativo = ?", true).Order("created_at ASC").First(&config).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Configuration("nenhum provider ativo configurado")
	}
	if err != nil {
		return nil, err
	}
	return NewProvider(config)
}

// ProviderByID resolves a provider from its configuration row id.
func ProviderByID(db *gorm.DB, id string) (Provider, error) {
	var config models.ProviderConfig
	err := db.Where("id = ?", id).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("provider não encontrado")
	}
	if err != nil {
		return nil, err
	}
	return NewProvider(config)
}

// ProviderByType resolves the active provider of the given type, preferring
// the default one.
func ProviderByType(db *gorm.DB, tipo string) (Provider, error) {
	var config models.ProviderConfig
	err := db.Where("tipo = ? AND ativo = ?", tipo, true).
		Order("is_default DESC").First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Configuration("nenhum provider " + tipo + " ativo configurado")
	}
	if err != nil {
		return nil, err
	}
	return NewProvider(config)
}

// ProviderForConversa resolves the provider bound to a conversation, or the
// default when the conversation has none.
func ProviderForConversa(db *gorm.DB, conversaID string) (Provider, error) {
	var conversa models.Conversa
	err := db.Select("provider_id").Where("id = ?", conversaID).First(&conversa).Error
	if err == nil && conversa.ProviderID != nil {
		if provider, perr := ProviderByID(db, *conversa.ProviderID); perr == nil {
			return provider, nil
		}
	}
	return DefaultProvider(db)
}

// MetaProviderByPhoneNumberID resolves the Meta provider owning a webhook's
// phone_number_id. Used by ingestion to authenticate inbound events.
func MetaProviderByPhoneNumberID(db *gorm.DB, phoneNumberID string) (*MetaProvider, error) {
	var config models.ProviderConfig
	err := db.Where("tipo = ? AND meta_phone_number_id = ? AND ativo = ?",
		models.ProviderMeta, phoneNumberID, true).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Authentication("phone_number_id não corresponde a nenhum provider ativo")
	}
	if err != nil {
		return nil, err
	}
	return NewMetaProvider(config), nil
}

// MetaProviderByVerifyToken resolves the Meta provider for a webhook
// subscription challenge.
func MetaProviderByVerifyToken(db *gorm.DB, token string) (*MetaProvider, error) {
	var config models.ProviderConfig
	err := db.Where("tipo = ? AND meta_verify_token = ? AND ativo = ?",
		models.ProviderMeta, token, true).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Authentication("verify token inválido")
	}
	if err != nil {
		return nil, err
	}
	return NewMetaProvider(config), nil
}

// ListProviders returns every stored configuration, defaults first.
func ListProviders(db *gorm.DB) ([]models.ProviderConfig, error) {
	var configs []models.ProviderConfig
	err := db.Order("is_default DESC").Order("created_at ASC").Find(&configs).Error
	return configs, err
}
