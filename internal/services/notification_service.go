package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/msalmeida123/sistema-clube-sub003/internal/events"
	"github.com/msalmeida123/sistema-clube-sub003/internal/models"
)

// Polling fallback interval. The change feed is the primary signal; the
// poller is the correctness backstop against dropped notifications.
const pollIntervalPadrao = 30 * time.Second

// UnreadPayload is what connected clients receive. Som marks a new inbound
// message so the client may play an audible cue; it is advisory only.
type UnreadPayload struct {
	TotalNaoLidas int64 `json:"total_nao_lidas"`
	Som           bool  `json:"som"`
}

type notificationClient struct {
	conn       *websocket.Conn
	capability Capability
	send       chan UnreadPayload
}

// NotificationService keeps a live unread total per connected viewer. Change
// feed and poller both funnel into one trigger channel drained by a single
// goroutine, so there is exactly one recompute path.
type NotificationService struct {
	db           *gorm.DB
	bus          *events.Bus
	PollInterval time.Duration

	mu      sync.Mutex
	clients map[*notificationClient]struct{}
	trigger chan bool // payload: whether a sound cue applies
}

func NewNotificationService(db *gorm.DB, bus *events.Bus) *NotificationService {
	return &NotificationService{
		db:           db,
		bus:          bus,
		PollInterval: pollIntervalPadrao,
		clients:      make(map[*notificationClient]struct{}),
		trigger:      make(chan bool, 16),
	}
}

// TotalNaoLidas is the single source of truth for "current total": the sum of
// nao_lidas over conversations with unread messages, scoped to what the
// viewer may see.
func (ns *NotificationService) TotalNaoLidas(capability Capability) (int64, error) {
	query := ns.db.Model(&models.Conversa{}).Where("nao_lidas > 0")
	if !capability.Admin {
		setores := capability.SetoresVisiveis()
		if len(setores) == 0 {
			return 0, nil
		}
		// Sector-less conversations are visible to anyone holding a grant.
		query = query.Where("setor_id IN ? OR setor_id IS NULL", setores)
	}

	var total *int64
	if err := query.Select("SUM(nao_lidas)").Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// Run drains the trigger channel until the context ends. Both signal paths
// (change feed and poller) land here, so concurrent triggers coalesce.
func (ns *NotificationService) Run(ctx context.Context) {
	feed := ns.bus.Subscribe()
	ticker := time.NewTicker(ns.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-feed:
			ns.fire(ev.Tipo == events.MensagemRecebida)
		case <-ticker.C:
			ns.fire(false)
		case som := <-ns.trigger:
			ns.broadcast(som)
		}
	}
}

func (ns *NotificationService) fire(som bool) {
	select {
	case ns.trigger <- som:
	default:
		// A recompute is already pending; coalescing is safe.
	}
}

func (ns *NotificationService) broadcast(som bool) {
	ns.mu.Lock()
	clients := make([]*notificationClient, 0, len(ns.clients))
	for c := range ns.clients {
		clients = append(clients, c)
	}
	ns.mu.Unlock()

	for _, client := range clients {
		total, err := ns.TotalNaoLidas(client.capability)
		if err != nil {
			log.Printf("⚠️ Falha ao recalcular não lidas: %v", err)
			continue
		}
		select {
		case client.send <- UnreadPayload{TotalNaoLidas: total, Som: som}:
		default:
			// Slow client; the next trigger or poll catches it up.
		}
	}
}

// Attach registers a websocket connection for a viewer and blocks until the
// connection closes. The initial total is pushed immediately.
func (ns *NotificationService) Attach(conn *websocket.Conn, capability Capability) {
	client := &notificationClient{
		conn:       conn,
		capability: capability,
		send:       make(chan UnreadPayload, 8),
	}

	ns.mu.Lock()
	ns.clients[client] = struct{}{}
	ns.mu.Unlock()

	defer func() {
		ns.mu.Lock()
		delete(ns.clients, client)
		ns.mu.Unlock()
		conn.Close()
	}()

	if total, err := ns.TotalNaoLidas(capability); err == nil {
		client.send <- UnreadPayload{TotalNaoLidas: total}
	}

	// Reader goroutine: we never expect client frames, but reading surfaces
	// the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case payload := <-client.send:
			if err := conn.WriteJSON(payload); err != nil {
				return
			}
		}
	}
}
