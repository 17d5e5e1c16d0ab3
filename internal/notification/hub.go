// Package notification guarda o log de mensagens por conta enquanto o processo está vivo.
package notification

import (
	"sync"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
)

// Hub é criado no startup e descartado com Close no shutdown. Nada é persistido.
type Hub struct {
	mu     sync.Mutex
	logs   map[string][]domain.Notification
	now    func() time.Time
	closed bool
}

type Option func(*Hub)

// WithClock troca o relógio (testes).
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		logs: make(map[string][]domain.Notification),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Record anexa a mensagem ao log da conta, criando o log no primeiro uso.
func (h *Hub) Record(accountID, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.logs[accountID] = append(h.logs[accountID], domain.Notification{
		AccountID: accountID,
		Message:   message,
		CreatedAt: h.now().UTC(),
	})
}

// List devolve uma cópia, em ordem de registro.
func (h *Hub) List(accountID string) []domain.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	src := h.logs[accountID]
	out := make([]domain.Notification, len(src))
	copy(out, src)
	return out
}

func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.logs = make(map[string][]domain.Notification)
}
