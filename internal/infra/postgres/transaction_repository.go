package postgres

import (
	"context"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionRepository é o ledger append-only; a ordem de criação é a coluna seq.
type TransactionRepository struct {
	pool *pgxpool.Pool
	tx   DBTX
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) db(ctx context.Context) DBTX {
	return pick(ctx, r.tx, r.pool)
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	id, err := uuid.Parse(tx.ID)
	if err != nil {
		return fmt.Errorf("invalid transaction id %q: %w", tx.ID, err)
	}

	err = r.db(ctx).QueryRow(ctx, `
		INSERT INTO transactions (id, from_id, to_id, amount_cents, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))
		RETURNING created_at`,
		id, tx.FromAccountID, tx.ToAccountID, domain.ToCents(tx.Amount), nullableTime(tx),
	).Scan(&tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) List(ctx context.Context) ([]domain.Transaction, error) {
	return r.list(ctx, `SELECT id, from_id, to_id, amount_cents, created_at FROM transactions ORDER BY seq`)
}

func (r *TransactionRepository) ListByParticipant(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	return r.list(ctx, `
		SELECT id, from_id, to_id, amount_cents, created_at FROM transactions
		WHERE from_id = $1 OR to_id = $1 ORDER BY seq`, accountID)
}

func (r *TransactionRepository) WithTx(tx gateway.TransactionObject) gateway.TransactionRepository {
	pgTx, ok := tx.(pgx.Tx)
	if !ok {
		return r
	}
	return &TransactionRepository{pool: r.pool, tx: pgTx}
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		var (
			tx    domain.Transaction
			id    uuid.UUID
			cents int64
		)
		if err := row.Scan(&id, &tx.FromAccountID, &tx.ToAccountID, &cents, &tx.CreatedAt); err != nil {
			return tx, err
		}
		tx.ID = id.String()
		tx.Amount = domain.FromCents(cents)
		return tx, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadFailure, err)
	}
	return txs, nil
}

func nullableTime(tx *domain.Transaction) any {
	if tx.CreatedAt.IsZero() {
		return nil
	}
	return tx.CreatedAt
}
