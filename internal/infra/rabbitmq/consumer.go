package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// ErrPoison marca uma mensagem que nunca vai ser processada (ex: JSON inválido): Nack sem requeue.
var ErrPoison = errors.New("poison message")

// Handler processa o corpo de uma mensagem. Erro comum = Nack com requeue.
type Handler func(ctx context.Context, body []byte) error

type QueueBinding struct {
	Exchange   string
	Queue      string
	RoutingKey string
	Consumer   string
}

// Consume declara fila + bind, liga QoS 1 (uma mensagem por vez, com ack manual)
// e processa até ctx ser cancelado ou o canal cair.
func Consume(ctx context.Context, ch *amqp.Channel, b QueueBinding, handle Handler) error {
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}
	q, err := ch.QueueDeclare(
		b.Queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, b.RoutingKey, b.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, b.Consumer, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}
	notifyClose := ch.NotifyClose(make(chan *amqp.Error, 1))

	log.Info().Str("queue", q.Name).Str("routing_key", b.RoutingKey).Msg("Worker aguardando mensagens")
	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-notifyClose:
			if amqpErr != nil {
				return fmt.Errorf("rabbitmq channel closed: %w", amqpErr)
			}
			return errors.New("rabbitmq channel closed")
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			settle(d, handle(ctx, d.Body))
		}
	}
}

func settle(d amqp.Delivery, err error) {
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error().Err(ackErr).Msg("Falha ao enviar Ack")
		}
	case errors.Is(err, ErrPoison):
		log.Error().Err(err).Msg("Mensagem descartada")
		if nackErr := d.Nack(false, false); nackErr != nil {
			log.Error().Err(nackErr).Msg("Falha ao enviar Nack")
		}
	default:
		log.Error().Err(err).Msg("Falha ao processar mensagem, devolvendo para a fila")
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error().Err(nackErr).Msg("Falha ao enviar Nack")
		}
	}
}
