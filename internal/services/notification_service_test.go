package services

import (
	"testing"

	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

func TestTotalNaoLidasAdmin(t *testing.T) {
	db := newTestDB(t)
	service := NewNotificationService(db, newTestBus())

	vendas := criarSetor(t, db, "Vendas")
	conversas := []models.Conversa{
		{Telefone: "5511000000020", Status: models.StatusNovo, NaoLidas: 3, SetorID: &vendas.ID},
		{Telefone: "5511000000021", Status: models.StatusNovo, NaoLidas: 2},
		{Telefone: "5511000000022", Status: models.StatusNovo, NaoLidas: 0},
	}
	for i := range conversas {
		if err := db.Create(&conversas[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	total, err := service.TotalNaoLidas(Capability{Admin: true})
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
}

func TestTotalNaoLidasEscopado(t *testing.T) {
	db := newTestDB(t)
	service := NewNotificationService(db, newTestBus())

	vendas := criarSetor(t, db, "Vendas")
	suporte := criarSetor(t, db, "Suporte")
	conversas := []models.Conversa{
		{Telefone: "5511000000023", Status: models.StatusNovo, NaoLidas: 3, SetorID: &vendas.ID},
		{Telefone: "5511000000024", Status: models.StatusNovo, NaoLidas: 7, SetorID: &suporte.ID},
		// Sector-less: counts for any granted viewer.
		{Telefone: "5511000000025", Status: models.StatusNovo, NaoLidas: 1},
	}
	for i := range conversas {
		if err := db.Create(&conversas[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	capability := Capability{Grants: map[string]SetorGrant{
		vendas.ID: {PodeVer: true},
	}}
	total, err := service.TotalNaoLidas(capability)
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4 (vendas 3 + sem setor 1)", total)
	}
}

func TestTotalNaoLidasSemGrants(t *testing.T) {
	db := newTestDB(t)
	service := NewNotificationService(db, newTestBus())

	if err := db.Create(&models.Conversa{
		Telefone: "5511000000026", Status: models.StatusNovo, NaoLidas: 9,
	}).Error; err != nil {
		t.Fatal(err)
	}

	total, err := service.TotalNaoLidas(Capability{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("total = %d, a viewer with zero grants sees nothing", total)
	}
}

func TestTotalNaoLidasVazio(t *testing.T) {
	db := newTestDB(t)
	service := NewNotificationService(db, newTestBus())

	total, err := service.TotalNaoLidas(Capability{Admin: true})
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0 on empty ledger", total)
	}
}
