package filestore

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
)

// Batch é o "crachá" de transação do driver de arquivos: acumula cópias das contas
// alteradas e as linhas novas do ledger até o commit. Só existe enquanto o lock de
// escrita do Store está tomado.
type Batch struct {
	store    *Store
	touched  map[string]*domain.Account
	appended []domain.Transaction
}

func newBatch(s *Store) *Batch {
	return &Batch{store: s, touched: make(map[string]*domain.Account)}
}

// get devolve a versão de trabalho da conta (a do batch, se já foi tocada).
func (b *Batch) get(id string) (*domain.Account, bool) {
	if acc, ok := b.touched[id]; ok {
		return acc, true
	}
	acc, ok := b.store.accounts[id]
	return acc, ok
}

// mutable copia a conta para dentro do batch antes de qualquer alteração.
func (b *Batch) mutable(id string) (*domain.Account, error) {
	if acc, ok := b.touched[id]; ok {
		return acc, nil
	}
	acc, ok := b.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	c := acc.Clone()
	b.touched[id] = c
	return c, nil
}

func (b *Batch) each(fn func(acc *domain.Account)) {
	for id, acc := range b.store.accounts {
		if _, ok := b.touched[id]; !ok {
			fn(acc)
		}
	}
	for _, acc := range b.touched {
		fn(acc)
	}
}

// batchFrom acha o batch amarrado ao repositório ou injetado no contexto por Uow.Run.
func batchFrom(ctx context.Context, bound *Batch) *Batch {
	if bound != nil {
		return bound
	}
	if b, ok := gateway.TxFromContext(ctx).(*Batch); ok {
		return b
	}
	return nil
}
