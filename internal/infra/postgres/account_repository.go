package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, display_name, balance_cents, credential_hash, token_hash, created_at, updated_at`

// AccountRepository implementa gateway.AccountRepository usando pgx/v5.
// Saldos ficam em centavos (BIGINT) para não depender de NUMERIC no driver.
type AccountRepository struct {
	pool *pgxpool.Pool
	tx   DBTX
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) db(ctx context.Context) DBTX {
	return pick(ctx, r.tx, r.pool)
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	err := r.db(ctx).QueryRow(ctx, `
		INSERT INTO accounts (id, display_name, balance_cents, credential_hash, token_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		account.ID, account.DisplayName, domain.ToCents(account.Balance), account.Credential, account.TokenHash,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetByIDForUpdate trava a linha até o fim da transação
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
}

// Debit só altera a linha se houver saldo (balance_cents >= amount)
func (r *AccountRepository) Debit(ctx context.Context, id string, amount decimal.Decimal) error {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE accounts SET balance_cents = balance_cents - $1, updated_at = NOW()
		WHERE id = $2 AND balance_cents >= $1`,
		domain.ToCents(amount), id)
	if err != nil {
		return fmt.Errorf("failed to debit account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInsufficientBalance
	}
	return nil
}

func (r *AccountRepository) Credit(ctx context.Context, id string, amount decimal.Decimal) error {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE accounts SET balance_cents = balance_cents + $1, updated_at = NOW()
		WHERE id = $2`,
		domain.ToCents(amount), id)
	if err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error) {
	if tokenHash == "" {
		return nil, domain.ErrAccountNotFound
	}
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE token_hash = $1`, tokenHash)
}

func (r *AccountRepository) SetTokenHash(ctx context.Context, id, tokenHash string) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE accounts SET token_hash = $1, updated_at = NOW() WHERE id = $2`, tokenHash, id)
	if err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) Load(ctx context.Context) (map[string]*domain.Account, error) {
	rows, err := r.db(ctx).Query(ctx, `SELECT `+accountColumns+` FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	accounts, err := pgx.CollectRows(rows, scanAccount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadFailure, err)
	}
	out := make(map[string]*domain.Account, len(accounts))
	for _, acc := range accounts {
		out[acc.ID] = acc
	}
	return out, nil
}

// SaveAll faz upsert de todas as contas num único batch.
func (r *AccountRepository) SaveAll(ctx context.Context, accounts map[string]*domain.Account) error {
	batch := &pgx.Batch{}
	for id, acc := range accounts {
		batch.Queue(`
			INSERT INTO accounts (id, display_name, balance_cents, credential_hash, token_hash)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				display_name = EXCLUDED.display_name,
				balance_cents = EXCLUDED.balance_cents,
				credential_hash = EXCLUDED.credential_hash,
				token_hash = EXCLUDED.token_hash,
				updated_at = NOW()`,
			id, acc.DisplayName, domain.ToCents(acc.Balance), acc.Credential, acc.TokenHash)
	}

	var results pgx.BatchResults
	switch conn := r.db(ctx).(type) {
	case pgx.Tx:
		results = conn.SendBatch(ctx, batch)
	case *pgxpool.Pool:
		results = conn.SendBatch(ctx, batch)
	default:
		return errors.New("unsupported connection for batch")
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}
	return nil
}

// WithTx retorna uma cópia do repositório usando uma transação específica
func (r *AccountRepository) WithTx(tx gateway.TransactionObject) gateway.AccountRepository {
	pgTx, ok := tx.(pgx.Tx)
	if !ok {
		return r
	}
	return &AccountRepository{pool: r.pool, tx: pgTx}
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	rows, err := r.db(ctx).Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	acc, err := pgx.CollectExactlyOneRow(rows, scanAccount)
	if err != nil {
		// pgx retorna pgx.ErrNoRows, diferente de sql.ErrNoRows
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

func scanAccount(row pgx.CollectableRow) (*domain.Account, error) {
	var (
		acc   domain.Account
		cents int64
	)
	if err := row.Scan(&acc.ID, &acc.DisplayName, &cents, &acc.Credential, &acc.TokenHash, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return nil, err
	}
	acc.Balance = domain.FromCents(cents)
	return &acc, nil
}
