package gateway

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
)

// EventPublisher envia eventos de domínio para fora do processo (ex: RabbitMQ).
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// Broadcaster entrega uma transação concluída aos canais em tempo real de origem e destino.
type Broadcaster interface {
	Publish(tx domain.Transaction)
}

// Notifier registra mensagens por conta (NotificationHub).
type Notifier interface {
	Record(accountID, message string)
}

// NotificationReader é o lado de leitura do NotificationHub.
type NotificationReader interface {
	List(accountID string) []domain.Notification
}
