// Package realtime entrega transações concluídas aos clientes conectados,
// um canal lógico por conta.
package realtime

import (
	"sync"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/usecase"
	"github.com/rs/zerolog/log"
)

const EventTransactionUpdate = "transaction_update"

// Event é o envelope que vai pro socket: {"event":"transaction_update","data":{"transaction":{...}}}
type Event struct {
	Name string    `json:"event"`
	Data EventData `json:"data"`
}

type EventData struct {
	Transaction usecase.TransactionOutput `json:"transaction"`
}

// Subscription é uma conexão inscrita no canal de uma conta.
// C é fechado em Unsubscribe ou Close.
type Subscription struct {
	AccountID string
	C         <-chan Event

	id uint64
	ch chan Event
}

// Broadcaster faz fan-out best-effort: sem replay, e um assinante com buffer cheio perde o evento.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]*Subscription
	nextID uint64
	buffer int
	closed bool
}

func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broadcaster{
		subs:   make(map[string]map[uint64]*Subscription),
		buffer: buffer,
	}
}

func (b *Broadcaster) Subscribe(accountID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	ch := make(chan Event, b.buffer)
	sub := &Subscription{AccountID: accountID, C: ch, id: b.nextID, ch: ch}

	if b.closed {
		close(ch)
		return sub
	}
	if b.subs[accountID] == nil {
		b.subs[accountID] = make(map[uint64]*Subscription)
	}
	b.subs[accountID][sub.id] = sub
	return sub
}

// Unsubscribe é idempotente.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channel, ok := b.subs[sub.AccountID]
	if !ok {
		return
	}
	if _, ok := channel[sub.id]; !ok {
		return
	}
	delete(channel, sub.id)
	close(sub.ch)
	if len(channel) == 0 {
		delete(b.subs, sub.AccountID)
	}
}

// Publish entrega tx aos canais de origem e destino.
func (b *Broadcaster) Publish(tx domain.Transaction) {
	event := Event{
		Name: EventTransactionUpdate,
		Data: EventData{Transaction: usecase.ToTransactionOutput(tx)},
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, accountID := range channelsFor(tx) {
		for _, sub := range b.subs[accountID] {
			select {
			case sub.ch <- event:
			default:
				log.Warn().
					Str("account_id", accountID).
					Str("transaction_id", tx.ID).
					Msg("Assinante lento, evento descartado")
			}
		}
	}
}

// Subscribers conta as conexões inscritas no canal.
func (b *Broadcaster) Subscribers(accountID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[accountID])
}

func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for accountID, channel := range b.subs {
		for _, sub := range channel {
			close(sub.ch)
		}
		delete(b.subs, accountID)
	}
}

func channelsFor(tx domain.Transaction) []string {
	if tx.FromAccountID == tx.ToAccountID {
		return []string{tx.FromAccountID}
	}
	return []string{tx.FromAccountID, tx.ToAccountID}
}
