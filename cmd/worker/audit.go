package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/mongodb"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/rabbitmq"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/usecase"
	"github.com/rs/zerolog/log"
)

type auditSink interface {
	Save(ctx context.Context, entry mongodb.AuditLog) error
}

// newAuditHandler converte o evento de transação no documento de auditoria.
// Payload ilegível é veneno; falha no Mongo volta para a fila.
func newAuditHandler(sink auditSink, saveTimeout time.Duration) rabbitmq.Handler {
	return func(ctx context.Context, body []byte) error {
		entry, err := decodeEvent(body)
		if err != nil {
			return err
		}

		saveCtx, cancel := context.WithTimeout(ctx, saveTimeout)
		defer cancel()
		if err := sink.Save(saveCtx, entry); err != nil {
			return err
		}
		log.Info().Str("transaction_id", entry.TransactionID).Msg("[✅] Salvo no MongoDB")
		return nil
	}
}

func decodeEvent(body []byte) (mongodb.AuditLog, error) {
	var event usecase.TransactionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return mongodb.AuditLog{}, fmt.Errorf("%w: %v", rabbitmq.ErrPoison, err)
	}
	if event.TransactionID == "" {
		return mongodb.AuditLog{}, fmt.Errorf("%w: missing transaction_id", rabbitmq.ErrPoison)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, event.CreatedAt)
	if err != nil {
		return mongodb.AuditLog{}, fmt.Errorf("%w: bad created_at: %v", rabbitmq.ErrPoison, err)
	}

	entry := mongodb.AuditLog{
		TransactionID: event.TransactionID,
		FromAccount:   event.FromAccount,
		ToAccount:     event.ToAccount,
		AmountCents:   event.AmountCents,
		Amount:        event.Amount,
		CreatedAt:     createdAt.UTC(),
	}
	if event.IdempotencyKey != nil {
		entry.IdempotencyKey = *event.IdempotencyKey
	}
	return entry, nil
}
