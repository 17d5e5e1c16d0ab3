package filestore

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
	"github.com/shopspring/decimal"
)

// AccountRepository implementa gateway.AccountRepository sobre accounts.json.
// Fora de um Uow.Run, cada escrita vira um commit próprio.
type AccountRepository struct {
	store *Store
	batch *Batch
}

func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

func (r *AccountRepository) WithTx(tx gateway.TransactionObject) gateway.AccountRepository {
	b, ok := tx.(*Batch)
	if !ok {
		return r
	}
	return &AccountRepository{store: r.store, batch: b}
}

// view roda fn com acesso consistente ao estado: dentro do batch, ou sob RLock.
func (r *AccountRepository) view(ctx context.Context, fn func(get func(id string) (*domain.Account, bool), each func(func(*domain.Account)))) {
	if b := batchFrom(ctx, r.batch); b != nil {
		fn(b.get, b.each)
		return
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	fn(func(id string) (*domain.Account, bool) {
		acc, ok := r.store.accounts[id]
		return acc, ok
	}, func(visit func(*domain.Account)) {
		for _, acc := range r.store.accounts {
			visit(acc)
		}
	})
}

func (r *AccountRepository) write(ctx context.Context, fn func(b *Batch) error) error {
	if b := batchFrom(ctx, r.batch); b != nil {
		return fn(b)
	}
	return r.store.update(fn)
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	return r.write(ctx, func(b *Batch) error {
		if _, exists := b.get(account.ID); exists {
			return domain.ErrAccountExists
		}
		c := account.Clone()
		now := r.store.now().UTC()
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		b.touched[c.ID] = c
		return nil
	})
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var found *domain.Account
	r.view(ctx, func(get func(string) (*domain.Account, bool), _ func(func(*domain.Account))) {
		if acc, ok := get(id); ok {
			found = acc.Clone()
		}
	})
	if found == nil {
		return nil, domain.ErrAccountNotFound
	}
	return found, nil
}

// GetByIDForUpdate não precisa travar a linha: dentro do Run o lock global já serializa escritores.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *AccountRepository) Debit(ctx context.Context, id string, amount decimal.Decimal) error {
	return r.write(ctx, func(b *Batch) error {
		acc, err := b.mutable(id)
		if err != nil {
			return err
		}
		if err := acc.Debit(amount); err != nil {
			return err
		}
		acc.UpdatedAt = r.store.now().UTC()
		return nil
	})
}

func (r *AccountRepository) Credit(ctx context.Context, id string, amount decimal.Decimal) error {
	return r.write(ctx, func(b *Batch) error {
		acc, err := b.mutable(id)
		if err != nil {
			return err
		}
		if !amount.IsPositive() {
			return domain.ErrInvalidAmount
		}
		acc.Credit(amount)
		acc.UpdatedAt = r.store.now().UTC()
		return nil
	})
}

func (r *AccountRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error) {
	if tokenHash == "" {
		return nil, domain.ErrAccountNotFound
	}
	var found *domain.Account
	r.view(ctx, func(_ func(string) (*domain.Account, bool), each func(func(*domain.Account))) {
		each(func(acc *domain.Account) {
			if acc.TokenHash == tokenHash {
				found = acc.Clone()
			}
		})
	})
	if found == nil {
		return nil, domain.ErrAccountNotFound
	}
	return found, nil
}

func (r *AccountRepository) SetTokenHash(ctx context.Context, id, tokenHash string) error {
	return r.write(ctx, func(b *Batch) error {
		acc, err := b.mutable(id)
		if err != nil {
			return err
		}
		acc.TokenHash = tokenHash
		acc.UpdatedAt = r.store.now().UTC()
		return nil
	})
}

func (r *AccountRepository) Load(ctx context.Context) (map[string]*domain.Account, error) {
	out := make(map[string]*domain.Account)
	r.view(ctx, func(_ func(string) (*domain.Account, bool), each func(func(*domain.Account))) {
		each(func(acc *domain.Account) {
			out[acc.ID] = acc.Clone()
		})
	})
	return out, nil
}

// SaveAll grava o mapeamento numa única escrita (upsert; contas ausentes do mapa ficam como estão).
func (r *AccountRepository) SaveAll(ctx context.Context, accounts map[string]*domain.Account) error {
	return r.write(ctx, func(b *Batch) error {
		now := r.store.now().UTC()
		for id, acc := range accounts {
			c := acc.Clone()
			c.ID = id
			if c.CreatedAt.IsZero() {
				c.CreatedAt = now
			}
			c.UpdatedAt = now
			b.touched[id] = c
		}
		return nil
	})
}
