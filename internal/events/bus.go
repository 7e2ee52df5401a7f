// Package events is the in-process change feed between the ingestion ledger
// and the notification aggregator.
package events

import "sync"

// Event types published on the bus.
const (
	ConversaAtualizada = "conversa_atualizada"
	MensagemRecebida   = "mensagem_recebida"
)

// Event describes one change to the conversation ledger.
type Event struct {
	Tipo       string
	ConversaID string
}

// Bus fans events out to subscribers. Publishing never blocks: a subscriber
// that has fallen behind loses the event, and the aggregator's polling
// fallback covers the gap.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe returns a buffered channel receiving future events.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers the event to every subscriber with room in its buffer.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
