package gateway

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// AccountRepository define o contrato para persistência de contas.
// O Usecase só interage com isso, sem saber se é arquivo ou Postgres.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)

	// Lock Pessimista: Retorna a conta travando-a até o fim da transação
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Account, error)
	// Métodos Atômicos
	Debit(ctx context.Context, id string, amount decimal.Decimal) error
	Credit(ctx context.Context, id string, amount decimal.Decimal) error

	// Sessão: no máximo um token vivo por conta
	FindByTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error)
	SetTokenHash(ctx context.Context, id, tokenHash string) error

	// Load devolve o mapeamento completo id -> conta (cópias).
	Load(ctx context.Context) (map[string]*domain.Account, error)
	// SaveAll persiste o mapeamento inteiro numa única escrita durável (bootstrap/CLI).
	SaveAll(ctx context.Context, accounts map[string]*domain.Account) error

	// WithTx permite que o repositório participe de uma transação iniciada no nível superior
	WithTx(tx TransactionObject) AccountRepository
}
