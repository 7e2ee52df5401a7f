package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/events"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

// TransferService moves conversations between sectors under permission
// control, recording an append-only history of every move.
type TransferService struct {
	db          *gorm.DB
	permissions *PermissionService
	bus         *events.Bus
}

func NewTransferService(db *gorm.DB, permissions *PermissionService, bus *events.Bus) *TransferService {
	return &TransferService{db: db, permissions: permissions, bus: bus}
}

// Transferir moves a conversation to the destination sector. The permission
// gate runs against the conversation's *current* sector before any mutation;
// the history record and the sector update commit in one transaction, so a
// transfer is never logged without being applied or vice versa.
func (ts *TransferService) Transferir(usuarioID, conversaID, setorDestinoID string, motivo *string) (*models.Setor, error) {
	if conversaID == "" || setorDestinoID == "" {
		return nil, apperrors.Validation("conversa_id e setor_id são obrigatórios")
	}

	var conversa models.Conversa
	err := ts.db.Where("id = ?", conversaID).First(&conversa).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("conversa não encontrada")
	}
	if err != nil {
		return nil, err
	}

	capability, err := ts.permissions.Resolver(usuarioID)
	if err != nil {
		return nil, err
	}
	if !capability.PodeTransferir(conversa.SetorID) {
		return nil, apperrors.Authorization("sem permissão para transferir deste setor")
	}

	var destino models.Setor
	err = ts.db.Where("id = ? AND ativo = ?", setorDestinoID, true).First(&destino).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("setor não encontrado")
	}
	if err != nil {
		return nil, err
	}

	err = ts.db.Transaction(func(tx *gorm.DB) error {
		transferencia := models.Transferencia{
			ConversaID:     conversaID,
			SetorOrigemID:  conversa.SetorID,
			SetorDestinoID: setorDestinoID,
			UsuarioID:      &usuarioID,
			Motivo:         motivo,
		}
		if err := tx.Create(&transferencia).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversa{}).Where("id = ?", conversaID).
			Update("setor_id", setorDestinoID).Error
	})
	if err != nil {
		return nil, err
	}

	ts.bus.Publish(events.Event{Tipo: events.ConversaAtualizada, ConversaID: conversaID})
	return &destino, nil
}

// Historico returns the transfer records of a conversation, most recent
// first, with origin/destination sector display attributes resolved.
func (ts *TransferService) Historico(conversaID string) ([]models.Transferencia, error) {
	if conversaID == "" {
		return nil, apperrors.Validation("conversa_id é obrigatório")
	}

	var transferencias []models.Transferencia
	err := ts.db.Preload("SetorOrigem").Preload("SetorDestino").
		Where("conversa_id = ?", conversaID).
		Order("created_at DESC").
		Find(&transferencias).Error
	if err != nil {
		return nil, err
	}
	return transferencias, nil
}

// ListarSetores returns the active sectors in display order.
func (ts *TransferService) ListarSetores() ([]models.Setor, error) {
	var setores []models.Setor
	err := ts.db.Where("ativo = ?", true).Order("ordem ASC").Find(&setores).Error
	return setores, err
}

// CriarSetor creates a sector. Nome is required; color and icon default.
func (ts *TransferService) CriarSetor(nome string, descricao *string, cor, icone string) (*models.Setor, error) {
	if nome == "" {
		return nil, apperrors.Validation("nome é obrigatório")
	}
	setor := models.Setor{
		Nome:      nome,
		Descricao: descricao,
		Ativo:     true,
	}
	if cor != "" {
		setor.Cor = cor
	}
	if icone != "" {
		setor.Icone = icone
	}
	if err := ts.db.Create(&setor).Error; err != nil {
		return nil, err
	}
	return &setor, nil
}
