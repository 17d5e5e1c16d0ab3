package filestore

import (
	"context"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
	"github.com/google/uuid"
)

// TransactionRepository implementa o ledger append-only sobre transactions.jsonl.
type TransactionRepository struct {
	store *Store
	batch *Batch
}

func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

func (r *TransactionRepository) WithTx(tx gateway.TransactionObject) gateway.TransactionRepository {
	b, ok := tx.(*Batch)
	if !ok {
		return r
	}
	return &TransactionRepository{store: r.store, batch: b}
}

// Create preenche ID e CreatedAt se vierem vazios. A linha só chega ao disco no commit.
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = r.store.now().UTC()
	}

	add := func(b *Batch) error {
		b.appended = append(b.appended, *tx)
		return nil
	}
	if b := batchFrom(ctx, r.batch); b != nil {
		return add(b)
	}
	return r.store.update(add)
}

func (r *TransactionRepository) List(ctx context.Context) ([]domain.Transaction, error) {
	return r.filter(ctx, func(domain.Transaction) bool { return true }), nil
}

func (r *TransactionRepository) ListByParticipant(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	return r.filter(ctx, func(tx domain.Transaction) bool { return tx.Involves(accountID) }), nil
}

func (r *TransactionRepository) filter(ctx context.Context, keep func(domain.Transaction) bool) []domain.Transaction {
	collect := func(sources ...[]domain.Transaction) []domain.Transaction {
		out := []domain.Transaction{}
		for _, src := range sources {
			for _, tx := range src {
				if keep(tx) {
					out = append(out, tx)
				}
			}
		}
		return out
	}

	if b := batchFrom(ctx, r.batch); b != nil {
		return collect(r.store.ledger, b.appended)
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return collect(r.store.ledger)
}
