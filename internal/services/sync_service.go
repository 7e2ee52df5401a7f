package services

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
	"github.com/msalmeida123/sistema-clube-sub003/internal/whatsapp"
)

const (
	// Deliberate throttle between per-contact provider calls. Tunable, but
	// keep it: the provider rate-limits aggressive clients.
	syncDelayPadrao = 500 * time.Millisecond

	// Upper bound of candidates per run, to bound provider load.
	syncBatchPadrao = 100

	nomeDesconhecido = "Desconhecido"
)

// SyncResult is the operational report of one sync run. Each processed
// contact lands in exactly one of com_foto/sem_foto and one of
// com_nome/sem_nome.
type SyncResult struct {
	Processados int `json:"processados"`
	ComFoto     int `json:"com_foto"`
	SemFoto     int `json:"sem_foto"`
	ComNome     int `json:"com_nome"`
	SemNome     int `json:"sem_nome"`
	Atualizados int `json:"atualizados"`
}

// SyncStats is the read-only gap report of the GET variant.
type SyncStats struct {
	TotalConversas      int64 `json:"total_conversas"`
	ComFoto             int64 `json:"com_foto"`
	SemFoto             int64 `json:"sem_foto"`
	ComNome             int64 `json:"com_nome"`
	SemNome             int64 `json:"sem_nome"`
	PrecisamSincronizar int64 `json:"precisam_sincronizar"`
}

// ContactSyncService backfills missing contact names and profile photos from
// the provider. It fills gaps only: already-populated fields are never
// overwritten. The loop is intentionally sequential with an enforced delay.
type ContactSyncService struct {
	db    *gorm.DB
	Delay time.Duration
	Batch int
}

func NewContactSyncService(db *gorm.DB) *ContactSyncService {
	return &ContactSyncService{db: db, Delay: syncDelayPadrao, Batch: syncBatchPadrao}
}

// candidatos selects conversations missing a photo or a usable name, most
// recently contacted first.
func (cs *ContactSyncService) candidatos() ([]models.Conversa, error) {
	var conversas []models.Conversa
	err := cs.db.
		Where("foto_perfil_url IS NULL OR nome_contato IS NULL OR nome_contato = ?", nomeDesconhecido).
		Order("ultimo_contato DESC").
		Limit(cs.Batch).
		Find(&conversas).Error
	return conversas, err
}

// Run executes one sync pass. Per-contact failures are isolated and counted;
// the batch never aborts on one bad contact.
func (cs *ContactSyncService) Run(fetcher whatsapp.ContactFetcher) (*SyncResult, error) {
	conversas, err := cs.candidatos()
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Processados: len(conversas)}
	if len(conversas) == 0 {
		return result, nil
	}

	for i, conversa := range conversas {
		if i > 0 {
			time.Sleep(cs.Delay)
		}

		// Name and photo are independent: a failure on one must not block
		// the other.
		var nome, foto string
		if info, err := fetcher.GetContactInfo(conversa.Telefone); err == nil && info != nil {
			nome = info.Nome
		} else if err != nil {
			log.Printf("⚠️ Sync: falha ao buscar contato %s: %v", conversa.Telefone, err)
		}
		if url, err := fetcher.GetProfilePicture(conversa.Telefone); err == nil {
			foto = url
		} else {
			log.Printf("⚠️ Sync: falha ao buscar foto de %s: %v", conversa.Telefone, err)
		}

		updates := map[string]interface{}{}

		nomeVazio := conversa.NomeContato == nil || *conversa.NomeContato == nomeDesconhecido
		if nome != "" && nomeVazio {
			updates["nome_contato"] = nome
			result.ComNome++
		} else {
			result.SemNome++
		}

		if foto != "" && conversa.FotoPerfilURL == nil {
			updates["foto_perfil_url"] = foto
			result.ComFoto++
		} else {
			result.SemFoto++
		}

		if len(updates) > 0 {
			if err := cs.db.Model(&models.Conversa{}).Where("id = ?", conversa.ID).
				Updates(updates).Error; err != nil {
				log.Printf("⚠️ Sync: falha ao atualizar conversa %s: %v", conversa.ID, err)
				continue
			}
			result.Atualizados++
		}
	}

	log.Printf("🔄 Sync de contatos: %d processados, %d atualizados", result.Processados, result.Atualizados)
	return result, nil
}

// Estatisticas reports current name/photo gaps without writing anything.
func (cs *ContactSyncService) Estatisticas() (*SyncStats, error) {
	stats := &SyncStats{}

	if err := cs.db.Model(&models.Conversa{}).Count(&stats.TotalConversas).Error; err != nil {
		return nil, err
	}
	if err := cs.db.Model(&models.Conversa{}).
		Where("foto_perfil_url IS NULL").Count(&stats.SemFoto).Error; err != nil {
		return nil, err
	}
	if err := cs.db.Model(&models.Conversa{}).
		Where("nome_contato IS NULL OR nome_contato = ?", nomeDesconhecido).
		Count(&stats.SemNome).Error; err != nil {
		return nil, err
	}

	stats.ComFoto = stats.TotalConversas - stats.SemFoto
	stats.ComNome = stats.TotalConversas - stats.SemNome
	stats.PrecisamSincronizar = stats.SemFoto
	if stats.SemNome > stats.PrecisamSincronizar {
		stats.PrecisamSincronizar = stats.SemNome
	}
	return stats, nil
}
