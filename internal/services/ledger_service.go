package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
	"github.com/msalmeida123/sistema-clube-sub003/internal/events"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
	"github.com/msalmeida123/sistema-clube-sub003/internal/whatsapp"
)

// InboundEvent is a normalized provider webhook event: one inbound message.
type InboundEvent struct {
	Telefone    string
	Conteudo    string
	Tipo        string
	MessageID   string
	MediaURL    string
	NomeContato string
	Timestamp   time.Time
}

// IngestResult reports what one webhook event did to the ledger.
type IngestResult struct {
	Conversa     *models.Conversa
	Mensagem     *models.Mensagem
	NovaConversa bool
	Duplicada    bool
}

// ContactImport is one candidate of the bulk import path.
type ContactImport struct {
	Number   string `json:"number"`
	Phone    string `json:"phone"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	PushName string `json:"pushName"`
	Notify   string `json:"notify"`
}

// ImportResult is the operational report of a bulk import. The three counters
// are the contract dashboards depend on.
type ImportResult struct {
	Importados int `json:"importados"`
	Existentes int `json:"existentes"`
	Total      int `json:"total"`
}

// LedgerService turns provider webhook events into the durable
// conversation/message ledger, exactly once per event.
type LedgerService struct {
	db  *gorm.DB
	bus *events.Bus
}

func NewLedgerService(db *gorm.DB, bus *events.Bus) *LedgerService {
	return &LedgerService{db: db, bus: bus}
}

// dedupKey identifies one webhook event. Providers usually assign a message
// id; when they don't, a fingerprint of phone, direction, minute-truncated
// timestamp and content stands in, so redelivery within the same minute maps
// to the same key.
func dedupKey(ev InboundEvent, telefone string) string {
	if ev.MessageID != "" {
		return ev.MessageID
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%s",
		telefone, models.DirecaoEntrada, ts.UTC().Truncate(time.Minute).Unix(), ev.Conteudo)))
	return "fp:" + hex.EncodeToString(sum[:])
}

// ProcessarEntrada records one inbound message. Redelivery of the same event
// leaves exactly one message row and increments nao_lidas exactly once. The
// counter update is a single SQL increment, never read-then-write.
func (ls *LedgerService) ProcessarEntrada(ev InboundEvent) (*IngestResult, error) {
	telefone := whatsapp.OnlyDigits(ev.Telefone)
	if telefone == "" {
		return nil, apperrors.Validation("telefone é obrigatório")
	}
	if strings.TrimSpace(ev.Conteudo) == "" {
		return nil, apperrors.Validation("conteúdo da mensagem é obrigatório")
	}
	tipo := ev.Tipo
	switch tipo {
	case models.TipoTexto, models.TipoImagem, models.TipoVideo, models.TipoAudio, models.TipoDocumento:
	default:
		tipo = models.TipoTexto
	}

	key := dedupKey(ev, telefone)
	result := &IngestResult{}

	err := ls.db.Transaction(func(tx *gorm.DB) error {
		var existente models.Mensagem
		err := tx.Where("message_id = ?", key).First(&existente).Error
		if err == nil {
			result.Duplicada = true
			result.Mensagem = &existente
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var conversa models.Conversa
		err = tx.Where("telefone = ?", telefone).First(&conversa).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			conversa = models.Conversa{
				Telefone: telefone,
				Status:   models.StatusNovo,
				NaoLidas: 0,
			}
			if ev.NomeContato != "" {
				nome := ev.NomeContato
				conversa.NomeContato = &nome
			}
			if err := tx.Create(&conversa).Error; err != nil {
				return err
			}
			result.NovaConversa = true
		} else if err != nil {
			return err
		}

		mensagem := models.Mensagem{
			ConversaID: conversa.ID,
			Direcao:    models.DirecaoEntrada,
			Tipo:       tipo,
			Conteudo:   ev.Conteudo,
			Status:     models.MensagemRecebida,
			MessageID:  &key,
		}
		if ev.MediaURL != "" {
			media := ev.MediaURL
			mensagem.MediaURL = &media
		}
		if err := tx.Create(&mensagem).Error; err != nil {
			return err
		}

		agora := time.Now()
		updates := map[string]interface{}{
			"nao_lidas":       gorm.Expr("nao_lidas + 1"),
			"ultimo_contato":  agora,
			"ultima_mensagem": truncate(ev.Conteudo, 100),
		}
		// New inbound contact reopens an archived conversation.
		if conversa.Status == models.StatusArquivado {
			updates["status"] = models.StatusAguardando
		}
		if ev.NomeContato != "" && conversa.NomeContato == nil {
			updates["nome_contato"] = ev.NomeContato
		}
		if err := tx.Model(&models.Conversa{}).Where("id = ?", conversa.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		if err := tx.Where("id = ?", conversa.ID).First(&conversa).Error; err != nil {
			return err
		}
		result.Conversa = &conversa
		result.Mensagem = &mensagem
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Duplicada {
		ls.bus.Publish(events.Event{Tipo: events.MensagemRecebida, ConversaID: result.Conversa.ID})
	}
	return result, nil
}

// RegistrarSaida records an agent-sent message: no unread change, only the
// contact timestamp moves.
func (ls *LedgerService) RegistrarSaida(telefone, conteudo, tipo, messageID, mediaURL string) (*models.Mensagem, error) {
	telefone = whatsapp.OnlyDigits(telefone)
	if telefone == "" {
		return nil, apperrors.Validation("telefone é obrigatório")
	}
	if tipo == "" {
		tipo = models.TipoTexto
	}

	var mensagem models.Mensagem
	err := ls.db.Transaction(func(tx *gorm.DB) error {
		var conversa models.Conversa
		err := tx.Where("telefone = ?", telefone).First(&conversa).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			conversa = models.Conversa{Telefone: telefone, Status: models.StatusNovo}
			if err := tx.Create(&conversa).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		mensagem = models.Mensagem{
			ConversaID: conversa.ID,
			Direcao:    models.DirecaoSaida,
			Tipo:       tipo,
			Conteudo:   conteudo,
			Status:     models.MensagemEnviada,
		}
		if messageID != "" {
			mensagem.MessageID = &messageID
		}
		if mediaURL != "" {
			mensagem.MediaURL = &mediaURL
		}
		if err := tx.Create(&mensagem).Error; err != nil {
			return err
		}

		return tx.Model(&models.Conversa{}).Where("id = ?", conversa.ID).Updates(map[string]interface{}{
			"ultimo_contato":  time.Now(),
			"ultima_mensagem": truncate(conteudo, 100),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	ls.bus.Publish(events.Event{Tipo: events.ConversaAtualizada, ConversaID: mensagem.ConversaID})
	return &mensagem, nil
}

// AtualizarStatusMensagem applies a provider delivery ack.
func (ls *LedgerService) AtualizarStatusMensagem(messageID, status string) error {
	switch status {
	case models.MensagemEnviada, models.MensagemEntregue, models.MensagemLida, models.MensagemFalhou:
	default:
		return apperrors.Validation("status de mensagem inválido: " + status)
	}
	return ls.db.Model(&models.Mensagem{}).
		Where("message_id = ?", messageID).
		Update("status", status).Error
}

// ImportarContatos creates conversations for unseen phones. Existing phones
// are counted, never touched. The returned counters are an operational
// contract and must stay exact.
func (ls *LedgerService) ImportarContatos(contacts []ContactImport) (*ImportResult, error) {
	result := &ImportResult{Total: len(contacts)}

	for _, contato := range contacts {
		telefone := contato.Number
		if telefone == "" {
			telefone = contato.Phone
		}
		if telefone == "" {
			telefone = strings.TrimSuffix(contato.ID, "@c.us")
		}
		telefone = whatsapp.OnlyDigits(telefone)
		if telefone == "" {
			continue
		}

		var existente models.Conversa
		err := ls.db.Select("id").Where("telefone = ?", telefone).First(&existente).Error
		if err == nil {
			result.Existentes++
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		conversa := models.Conversa{
			Telefone: telefone,
			Status:   models.StatusNovo,
			NaoLidas: 0,
		}
		nome := contato.Name
		for _, candidate := range []string{contato.PushName, contato.Notify} {
			if nome == "" {
				nome = candidate
			}
		}
		if nome != "" {
			conversa.NomeContato = &nome
		}
		if err := ls.db.Create(&conversa).Error; err != nil {
			log.Printf("⚠️ Falha ao importar contato %s: %v", telefone, err)
			continue
		}
		result.Importados++
	}

	return result, nil
}

// ArquivarInativas archives conversations with no contact for the given
// number of days. Returns how many were archived.
func (ls *LedgerService) ArquivarInativas(dias int) (int64, error) {
	if dias <= 0 {
		dias = 30
	}
	limite := time.Now().AddDate(0, 0, -dias)
	res := ls.db.Model(&models.Conversa{}).
		Where("status <> ?", models.StatusArquivado).
		Where("ultimo_contato IS NULL OR ultimo_contato < ?", limite).
		Update("status", models.StatusArquivado)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		ls.bus.Publish(events.Event{Tipo: events.ConversaAtualizada})
	}
	return res.RowsAffected, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
