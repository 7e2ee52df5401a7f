package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation status values. A conversation is never hard-deleted; it is
// archived via status or by the bulk archive job.
const (
	StatusNovo          = "novo"
	StatusAguardando    = "aguardando"
	StatusEmAtendimento = "em_atendimento"
	StatusResolvido     = "resolvido"
	StatusArquivado     = "arquivado"
)

// Message direction values
const (
	DirecaoEntrada = "entrada"
	DirecaoSaida   = "saida"
)

// Message content types
const (
	TipoTexto     = "texto"
	TipoImagem    = "imagem"
	TipoVideo     = "video"
	TipoAudio     = "audio"
	TipoDocumento = "documento"
)

// Priority values
const (
	PrioridadeBaixa = "baixa"
	PrioridadeMedia = "media"
	PrioridadeAlta  = "alta"
)

// Conversa is the persistent thread of messages with one contact phone number.
// Telefone is the canonical digits-only key: inbound events always resolve to
// exactly one Conversa through it.
type Conversa struct {
	ID             string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	Telefone       string     `json:"telefone" gorm:"uniqueIndex;size:15;not null"`
	NomeContato    *string    `json:"nome_contato" gorm:"size:255"`
	FotoPerfilURL  *string    `json:"foto_perfil_url" gorm:"size:500"`
	Status         string     `json:"status" gorm:"type:varchar(20);default:'novo';check:status IN ('novo','aguardando','em_atendimento','resolvido','arquivado')"`
	SetorID        *string    `json:"setor_id" gorm:"type:varchar(36);index"`
	ProviderID     *string    `json:"provider_id" gorm:"type:varchar(36)"`
	Prioridade     string     `json:"prioridade" gorm:"type:varchar(10);default:'media';check:prioridade IN ('baixa','media','alta')"`
	NaoLidas       int        `json:"nao_lidas" gorm:"default:0;not null"`
	UltimaMensagem string     `json:"ultima_mensagem" gorm:"size:100"`
	UltimoContato  *time.Time `json:"ultimo_contato"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Setor *Setor `json:"setor,omitempty" gorm:"foreignKey:SetorID"`
}

func (c *Conversa) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// TableName specifies the table name for Conversa
func (Conversa) TableName() string {
	return "conversas_whatsapp"
}

// Message delivery status values (provider acks)
const (
	MensagemRecebida = "recebida"
	MensagemEnviada  = "enviada"
	MensagemEntregue = "entregue"
	MensagemLida     = "lida"
	MensagemFalhou   = "falhou"
)

// Mensagem belongs to exactly one Conversa and is immutable once created,
// except for the delivery status updated by provider ack events.
type Mensagem struct {
	ID         string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ConversaID string    `json:"conversa_id" gorm:"type:varchar(36);index;not null"`
	Direcao    string    `json:"direcao" gorm:"type:varchar(10);not null;check:direcao IN ('entrada','saida')"`
	Tipo       string    `json:"tipo" gorm:"type:varchar(10);default:'texto';check:tipo IN ('texto','imagem','video','audio','documento')"`
	Conteudo   string    `json:"conteudo" gorm:"type:text"`
	MediaURL   *string   `json:"media_url" gorm:"size:500"`
	Status     string    `json:"status" gorm:"type:varchar(10);default:'recebida'"`
	MessageID  *string   `json:"message_id" gorm:"size:128;index"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`

	Conversa Conversa `json:"-" gorm:"foreignKey:ConversaID"`
}

func (m *Mensagem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// TableName specifies the table name for Mensagem
func (Mensagem) TableName() string {
	return "mensagens_whatsapp"
}
