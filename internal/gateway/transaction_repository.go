package gateway

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
)

// TransactionRepository é o ledger append-only. Não existe update nem delete.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *domain.Transaction) error
	// List devolve todas as transações em ordem de criação
	List(ctx context.Context) ([]domain.Transaction, error)
	// ListByParticipant filtra por origem ou destino, mantendo a ordem
	ListByParticipant(ctx context.Context, accountID string) ([]domain.Transaction, error)
	// WithTx segue o mesmo padrão da Account para participar da transação atômica
	WithTx(tx TransactionObject) TransactionRepository
}
