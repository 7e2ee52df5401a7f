package services

import (
	"testing"
	"time"

	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

func TestProcessarEntradaCriaConversa(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db, newTestBus())

	result, err := ledger.ProcessarEntrada(InboundEvent{
		Telefone:    "5511999999999",
		Conteudo:    "Olá, quero informações",
		Tipo:        models.TipoTexto,
		MessageID:   "wamid.1",
		NomeContato: "João",
	})
	if err != nil {
		t.Fatalf("ProcessarEntrada: %v", err)
	}
	if !result.NovaConversa {
		t.Error("first contact must create the conversation")
	}
	if result.Conversa.Status != models.StatusNovo {
		t.Errorf("status = %q, want novo", result.Conversa.Status)
	}
	if result.Conversa.NaoLidas != 1 {
		t.Errorf("nao_lidas = %d, want 1", result.Conversa.NaoLidas)
	}
	if result.Conversa.NomeContato == nil || *result.Conversa.NomeContato != "João" {
		t.Errorf("nome_contato = %v", result.Conversa.NomeContato)
	}
	if result.Conversa.UltimaMensagem != "Olá, quero informações" {
		t.Errorf("ultima_mensagem = %q", result.Conversa.UltimaMensagem)
	}
}

func TestProcessarEntradaIdempotente(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db, newTestBus())

	ev := InboundEvent{Telefone: "5511999999999", Conteudo: "oi", MessageID: "wamid.dup"}
	first, err := ledger.ProcessarEntrada(ev)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := ledger.ProcessarEntrada(ev)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.Duplicada {
		t.Error("redelivery must be reported as duplicate")
	}

	var count int64
	db.Model(&models.Mensagem{}).Count(&count)
	if count != 1 {
		t.Errorf("mensagens = %d, want 1", count)
	}

	var conversa models.Conversa
	db.First(&conversa, "id = ?", first.Conversa.ID)
	if conversa.NaoLidas != 1 {
		t.Errorf("nao_lidas = %d, want 1 after redelivery", conversa.NaoLidas)
	}
}

func TestProcessarEntradaFingerprintSemMessageID(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db, newTestBus())

	ts := time.Now()
	ev := InboundEvent{Telefone: "5511888887777", Conteudo: "sem id", Timestamp: ts}
	if _, err := ledger.ProcessarEntrada(ev); err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := ledger.ProcessarEntrada(ev)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.Duplicada {
		t.Error("same fingerprint within the minute must deduplicate")
	}
}

func TestProcessarEntradaIncrementaContador(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db, newTestBus())

	var last *IngestResult
	for i := 0; i < 3; i++ {
		var err error
		last, err = ledger.ProcessarEntrada(InboundEvent{
			Telefone:  "5511999999999",
			Conteudo:  "mensagem",
			MessageID: "wamid." + string(rune('a'+i)),
		})
		if err != nil {
			t.Fatalf("entrada %d: %v", i, err)
		}
	}
	if last.Conversa.NaoLidas != 3 {
		t.Errorf("nao_lidas = %d, want 3", last.Conversa.NaoLidas)
	}
	if last.NovaConversa {
		t.Error("third message must not report a new conversation")
	}
}

func TestProcessarEntradaReabreArquivada(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db, newTestBus())

	conversa := models.Conversa{Telefone: "5511999999999", Status: models.StatusArquivado}
	if err := db.Create(&conversa).Error; err != nil {
		t.Fatal(err)
	}

	result, err := ledger.ProcessarEntrada(InboundEvent{
		Telefone: "5511999999999", Conteudo: "voltei", MessageID: "wamid.2",
	})
	if err != nil {
		t.Fatalf("ProcessarEntrada: %v", err)
	}
	if result.Conversa.Status != models.StatusAguardando {
		t.Errorf("status = %q, want aguardando", result.Conversa.Status)
	}
}

func TestProcessarEntradaNaoSobrescreveNome(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db, newTestBus())

	nome := "Maria"
	conversa := models.Conversa{Telefone: "5511999999999", Status: models.StatusNovo, NomeContato: &nome}
	if err := db.Create(&conversa).Error; err != nil {
		t.Fatal(err)
	}

	result, err := ledger.ProcessarEntrada(InboundEvent{
		Telefone: "5511999999999", Conteudo: "oi", MessageID: "wamid.3", NomeContato: "Outro Nome",
	})
	if err != nil {
		t.Fatal(err)
	}
	if *result.Conversa.NomeContato != "Maria" {
		t.Errorf("nome_contato = %q, an existing name must never be overwritten", *result.Conversa.NomeContato)
	}
}

func TestRegistrarSaidaNaoIncrementa(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db, newTestBus())

	if _, err := ledger.ProcessarEntrada(InboundEvent{
		Telefone: "5511999999999", Conteudo: "pergunta", MessageID: "wamid.4",
	}); err != nil {
		t.Fatal(err)
	}

	mensagem, err := ledger.RegistrarSaida("5511999999999", "resposta", models.TipoTexto, "wamid.out", "")
	if err != nil {
		t.Fatalf("RegistrarSaida: %v", err)
	}
	if mensagem.Direcao != models.DirecaoSaida {
		t.Errorf("direcao = %q", mensagem.Direcao)
	}

	var conversa models.Conversa
	db.First(&conversa, "telefone = ?", "5511999999999")
	if conversa.NaoLidas != 1 {
		t.Errorf("nao_lidas = %d, outbound must not change the unread counter", conversa.NaoLidas)
	}
	if conversa.UltimaMensagem != "resposta" {
		t.Errorf("ultima_mensagem = %q", conversa.UltimaMensagem)
	}
}

func TestAtualizarStatusMensagem(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db, newTestBus())

	if _, err := ledger.RegistrarSaida("5511999999999", "oi", models.TipoTexto, "wamid.ack", ""); err != nil {
		t.Fatal(err)
	}
	if err := ledger.AtualizarStatusMensagem("wamid.ack", models.MensagemLida); err != nil {
		t.Fatalf("AtualizarStatusMensagem: %v", err)
	}

	var mensagem models.Mensagem
	db.First(&mensagem, "message_id = ?", "wamid.ack")
	if mensagem.Status != models.MensagemLida {
		t.Errorf("status = %q, want lida", mensagem.Status)
	}

	if err := ledger.AtualizarStatusMensagem("wamid.ack", "explodiu"); err == nil {
		t.Error("unknown status must be rejected")
	}
}

func TestImportarContatos(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db, newTestBus())

	if err := db.Create(&models.Conversa{Telefone: "5511999990000", Status: models.StatusNovo}).Error; err != nil {
		t.Fatal(err)
	}

	result, err := ledger.ImportarContatos([]ContactImport{
		{Number: "5511999990000", Name: "Já Existe"},
		{Phone: "5511999990001", PushName: "Novo Um"},
		{ID: "5511999990002@c.us", Notify: "Novo Dois"},
		{Name: "Sem Telefone"},
	})
	if err != nil {
		t.Fatalf("ImportarContatos: %v", err)
	}
	if result.Importados != 2 || result.Existentes != 1 || result.Total != 4 {
		t.Errorf("result = %+v, want 2 importados / 1 existente / total 4", result)
	}

	var conversa models.Conversa
	if err := db.First(&conversa, "telefone = ?", "5511999990002").Error; err != nil {
		t.Fatalf("imported @c.us contact not found: %v", err)
	}
	if conversa.Status != models.StatusNovo {
		t.Errorf("status = %q, want novo", conversa.Status)
	}
	if conversa.NomeContato == nil || *conversa.NomeContato != "Novo Dois" {
		t.Errorf("nome_contato = %v", conversa.NomeContato)
	}
}

func TestArquivarInativas(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db, newTestBus())

	antiga := time.Now().AddDate(0, 0, -60)
	recente := time.Now().AddDate(0, 0, -2)
	db.Create(&models.Conversa{Telefone: "5511999990010", Status: models.StatusAguardando, UltimoContato: &antiga})
	db.Create(&models.Conversa{Telefone: "5511999990011", Status: models.StatusAguardando, UltimoContato: &recente})

	arquivadas, err := ledger.ArquivarInativas(30)
	if err != nil {
		t.Fatalf("ArquivarInativas: %v", err)
	}
	if arquivadas != 1 {
		t.Errorf("arquivadas = %d, want 1", arquivadas)
	}

	var conversa models.Conversa
	db.First(&conversa, "telefone = ?", "5511999990011")
	if conversa.Status == models.StatusArquivado {
		t.Error("recently active conversation must not be archived")
	}
}
