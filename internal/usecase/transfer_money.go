package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	EventsExchange        = "ledger_events"
	RoutingKeyTransaction = "transaction.created"
)

// TransferMoneyInput define os dados necessários para realizar uma transferência.
// FromAccountID já vem resolvido a partir do token de sessão; RawAmount é o texto digitado.
type TransferMoneyInput struct {
	FromAccountID  string
	ToAccountID    string
	RawAmount      string
	IdempotencyKey *string
}

// TransactionEvent é o payload publicado no RabbitMQ e consumido pelo worker de auditoria.
type TransactionEvent struct {
	TransactionID  string  `json:"transaction_id"`
	FromAccount    string  `json:"from_account"`
	ToAccount      string  `json:"to_account"`
	AmountCents    int64   `json:"amount_cents"`
	Amount         string  `json:"amount"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// TransferMoneyUseCase contém as dependências necessárias.
// notifier, broadcaster e eventPublisher são opcionais (nil desliga).
type TransferMoneyUseCase struct {
	accountRepository     gateway.AccountRepository
	transactionRepository gateway.TransactionRepository
	transactionManager    gateway.TransactionManager // Nosso "Unit of Work"
	notifier              gateway.Notifier
	broadcaster           gateway.Broadcaster
	eventPublisher        gateway.EventPublisher
	now                   func() time.Time
}

func NewTransferMoney(
	accountRepo gateway.AccountRepository,
	transactionRepo gateway.TransactionRepository,
	txManager gateway.TransactionManager,
	notifier gateway.Notifier,
	broadcaster gateway.Broadcaster,
	publisher gateway.EventPublisher,
) *TransferMoneyUseCase {
	return &TransferMoneyUseCase{
		accountRepository:     accountRepo,
		transactionRepository: transactionRepo,
		transactionManager:    txManager,
		notifier:              notifier,
		broadcaster:           broadcaster,
		eventPublisher:        publisher,
		now:                   time.Now,
	}
}

// Execute valida na ordem: valor numérico, precisão, mínimo, destinatário existe,
// não é auto-transferência, saldo suficiente. Qualquer falha retorna antes de mutar algo.
// Débito, crédito e registro no ledger são comitados juntos ou não são comitados.
func (u *TransferMoneyUseCase) Execute(ctx context.Context, input TransferMoneyInput) (*TransactionOutput, error) {
	amount, err := domain.ParseAmount(input.RawAmount)
	if err != nil {
		return nil, err
	}

	var created *domain.Transaction

	err = u.transactionManager.Run(ctx, func(contextWithTx context.Context) error {
		transactionObject := gateway.TxFromContext(contextWithTx)
		if transactionObject == nil {
			return fmt.Errorf("erro crítico: transação não encontrada no contexto")
		}
		accountRepoTx := u.accountRepository.WithTx(transactionObject)
		transactionRepoTx := u.transactionRepository.WithTx(transactionObject)

		if _, err := accountRepoTx.GetByID(contextWithTx, input.ToAccountID); err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return domain.ErrRecipientNotFound
			}
			return fmt.Errorf("falha ao buscar destinatário %s: %w", input.ToAccountID, err)
		}

		if input.ToAccountID == input.FromAccountID {
			return domain.ErrSelfTransfer
		}

		// Ordenação de IDs para evitar Deadlock: A->B e B->A travam sempre o menor primeiro.
		firstID, secondID := input.FromAccountID, input.ToAccountID
		if firstID > secondID {
			firstID, secondID = secondID, firstID
		}
		locked := make(map[string]*domain.Account, 2)
		for _, id := range []string{firstID, secondID} {
			acc, err := accountRepoTx.GetByIDForUpdate(contextWithTx, id)
			if err != nil {
				return fmt.Errorf("falha ao travar conta %s: %w", id, err)
			}
			locked[id] = acc
		}

		if !locked[input.FromAccountID].HasSufficientFunds(amount) {
			return domain.ErrInsufficientBalance
		}

		if err := accountRepoTx.Debit(contextWithTx, input.FromAccountID, amount); err != nil {
			return fmt.Errorf("falha no débito (origem %s): %w", input.FromAccountID, err)
		}
		if err := accountRepoTx.Credit(contextWithTx, input.ToAccountID, amount); err != nil {
			return fmt.Errorf("falha no crédito (destino %s): %w", input.ToAccountID, err)
		}

		created = &domain.Transaction{
			ID:            uuid.NewString(),
			FromAccountID: input.FromAccountID,
			ToAccountID:   input.ToAccountID,
			Amount:        amount,
			CreatedAt:     u.now().UTC(),
		}
		if err := transactionRepoTx.Create(contextWithTx, created); err != nil {
			return fmt.Errorf("falha ao salvar histórico da transação: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.afterCommit(ctx, *created, input.IdempotencyKey)

	out := ToTransactionOutput(*created)
	return &out, nil
}

// afterCommit dispara os efeitos colaterais. Nenhum deles desfaz a transferência.
func (u *TransferMoneyUseCase) afterCommit(ctx context.Context, tx domain.Transaction, idempotencyKey *string) {
	display := domain.FormatAmount(tx.Amount)
	if u.notifier != nil {
		u.notifier.Record(tx.FromAccountID, fmt.Sprintf("Paid %s to %s.", display, tx.ToAccountID))
		u.notifier.Record(tx.ToAccountID, fmt.Sprintf("Received %s from %s.", display, tx.FromAccountID))
	}

	if u.broadcaster != nil {
		u.broadcaster.Publish(tx)
	}

	if u.eventPublisher != nil {
		event := TransactionEvent{
			TransactionID:  tx.ID,
			FromAccount:    tx.FromAccountID,
			ToAccount:      tx.ToAccountID,
			AmountCents:    domain.ToCents(tx.Amount),
			Amount:         tx.Amount.StringFixed(domain.AmountScale),
			IdempotencyKey: idempotencyKey,
			CreatedAt:      tx.CreatedAt.Format(time.RFC3339Nano),
		}
		if err := u.eventPublisher.Publish(ctx, EventsExchange, RoutingKeyTransaction, event); err != nil {
			// Apenas logamos o erro, não falhamos a request
			log.Error().Err(err).Str("transaction_id", tx.ID).Msg("Falha ao publicar evento")
		}
	}

	log.Info().
		Str("transaction_id", tx.ID).
		Str("from", tx.FromAccountID).
		Str("to", tx.ToAccountID).
		Str("amount", display).
		Msg("Transferência concluída")
}
