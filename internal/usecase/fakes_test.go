package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
	"github.com/shopspring/decimal"
)

// memStore é um storage em memória com as mesmas garantias do UoW real:
// um Run por vez e rollback completo quando fn falha.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	ledger   []domain.Transaction
	failOn   string // "credit" / "ledger" simula falha de storage no meio do commit
}

type memTx struct{}

func newMemStore(balances map[string]string) *memStore {
	s := &memStore{accounts: map[string]*domain.Account{}}
	for id, bal := range balances {
		s.accounts[id] = &domain.Account{ID: id, DisplayName: id, Balance: decimal.RequireFromString(bal)}
	}
	return s
}

func (s *memStore) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := make(map[string]*domain.Account, len(s.accounts))
	for id, acc := range s.accounts {
		backup[id] = acc.Clone()
	}
	ledgerLen := len(s.ledger)

	if err := fn(context.WithValue(ctx, gateway.TransactionKey, &memTx{})); err != nil {
		s.accounts = backup
		s.ledger = s.ledger[:ledgerLen]
		return err
	}
	return nil
}

// lock só trava fora de um Run (dentro, o Run já segura o mutex).
func (s *memStore) lock(ctx context.Context) func() {
	if gateway.TxFromContext(ctx) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) balance(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Balance.StringFixed(2)
}

func (s *memStore) total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, acc := range s.accounts {
		sum = sum.Add(acc.Balance)
	}
	return sum
}

func (s *memStore) ledgerLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger)
}

type memAccounts struct{ s *memStore }

func (r memAccounts) WithTx(gateway.TransactionObject) gateway.AccountRepository { return r }

func (r memAccounts) Create(ctx context.Context, a *domain.Account) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.accounts[a.ID]; ok {
		return domain.ErrAccountExists
	}
	r.s.accounts[a.ID] = a.Clone()
	return nil
}

func (r memAccounts) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	defer r.s.lock(ctx)()
	acc, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

func (r memAccounts) GetByIDForUpdate(ctx context.Context, id string) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r memAccounts) Debit(ctx context.Context, id string, amount decimal.Decimal) error {
	defer r.s.lock(ctx)()
	acc, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	return acc.Debit(amount)
}

func (r memAccounts) Credit(ctx context.Context, id string, amount decimal.Decimal) error {
	defer r.s.lock(ctx)()
	if r.s.failOn == "credit" {
		return errors.New("disk full")
	}
	acc, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acc.Credit(amount)
	return nil
}

func (r memAccounts) FindByTokenHash(ctx context.Context, hash string) (*domain.Account, error) {
	defer r.s.lock(ctx)()
	for _, acc := range r.s.accounts {
		if hash != "" && acc.TokenHash == hash {
			return acc.Clone(), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r memAccounts) SetTokenHash(ctx context.Context, id, hash string) error {
	defer r.s.lock(ctx)()
	acc, ok := r.s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acc.TokenHash = hash
	return nil
}

func (r memAccounts) Load(ctx context.Context) (map[string]*domain.Account, error) {
	defer r.s.lock(ctx)()
	out := make(map[string]*domain.Account, len(r.s.accounts))
	for id, acc := range r.s.accounts {
		out[id] = acc.Clone()
	}
	return out, nil
}

func (r memAccounts) SaveAll(ctx context.Context, accounts map[string]*domain.Account) error {
	defer r.s.lock(ctx)()
	for id, acc := range accounts {
		r.s.accounts[id] = acc.Clone()
	}
	return nil
}

type memLedger struct{ s *memStore }

func (r memLedger) WithTx(gateway.TransactionObject) gateway.TransactionRepository { return r }

func (r memLedger) Create(ctx context.Context, tx *domain.Transaction) error {
	defer r.s.lock(ctx)()
	if r.s.failOn == "ledger" {
		return errors.New("disk full")
	}
	r.s.ledger = append(r.s.ledger, *tx)
	return nil
}

func (r memLedger) List(ctx context.Context) ([]domain.Transaction, error) {
	defer r.s.lock(ctx)()
	return append([]domain.Transaction(nil), r.s.ledger...), nil
}

func (r memLedger) ListByParticipant(ctx context.Context, id string) ([]domain.Transaction, error) {
	defer r.s.lock(ctx)()
	var out []domain.Transaction
	for _, tx := range r.s.ledger {
		if tx.Involves(id) {
			out = append(out, tx)
		}
	}
	return out, nil
}

type recordedNotification struct{ accountID, message string }

type spyNotifier struct {
	mu    sync.Mutex
	items []recordedNotification
}

func (n *spyNotifier) Record(accountID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, recordedNotification{accountID, message})
}

func (n *spyNotifier) List(accountID string) []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.Notification
	for _, it := range n.items {
		if it.accountID == accountID {
			out = append(out, domain.Notification{AccountID: it.accountID, Message: it.message})
		}
	}
	return out
}

type spyBroadcaster struct {
	mu  sync.Mutex
	txs []domain.Transaction
}

func (b *spyBroadcaster) Publish(tx domain.Transaction) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.txs = append(b.txs, tx)
}

type spyPublisher struct {
	mu     sync.Mutex
	keys   []string
	bodies []interface{}
	err    error
}

func (p *spyPublisher) Publish(_ context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, exchange+"/"+routingKey)
	p.bodies = append(p.bodies, body)
	return p.err
}
