package filestore

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
)

// Uow implementa gateway.TransactionManager sobre o Store.
// Um Run por vez: validação e commit acontecem sob o mesmo lock de escrita.
type Uow struct {
	store *Store
}

func NewUow(store *Store) *Uow {
	return &Uow{store: store}
}

// Run executa fn com um Batch no contexto. Erro descarta o batch (rollback);
// sucesso grava ledger e snapshot antes de liberar o lock.
func (u *Uow) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return u.store.update(func(b *Batch) error {
		return fn(context.WithValue(ctx, gateway.TransactionKey, b))
	})
}
