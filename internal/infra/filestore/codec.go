package filestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// amount grava sempre com 2 casas e sem aspas (ex: 250.00), e aceita número ou string na leitura.
type amount decimal.Decimal

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).StringFixed(domain.AmountScale)), nil
}

func (a *amount) UnmarshalJSON(b []byte) error {
	raw := string(bytes.Trim(b, `"`))
	d, err := domain.ParseDecimal(raw)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	*a = amount(d)
	return nil
}

// snapshot é o conteúdo de accounts.json.
// Applied diz quantas linhas do ledger já estão refletidas nos saldos.
type snapshot struct {
	Applied  int                      `json:"applied"`
	Accounts map[string]accountRecord `json:"accounts"`
}

type accountRecord struct {
	DisplayName  string    `json:"displayName"`
	Balance      amount    `json:"balance"`
	Credential   string    `json:"credential"`
	CurrentToken string    `json:"currentToken"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// transactionRecord é uma linha de transactions.jsonl.
type transactionRecord struct {
	ID        string    `json:"id"`
	FromID    string    `json:"fromId"`
	ToID      string    `json:"toId"`
	Amount    amount    `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

func toAccountRecord(a *domain.Account) accountRecord {
	return accountRecord{
		DisplayName:  a.DisplayName,
		Balance:      amount(a.Balance),
		Credential:   a.Credential,
		CurrentToken: a.TokenHash,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func toDomainAccount(id string, r accountRecord) *domain.Account {
	return &domain.Account{
		ID:          id,
		DisplayName: r.DisplayName,
		Balance:     decimal.Decimal(r.Balance),
		Credential:  r.Credential,
		TokenHash:   r.CurrentToken,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toTransactionRecord(tx domain.Transaction) transactionRecord {
	return transactionRecord{
		ID:        tx.ID,
		FromID:    tx.FromAccountID,
		ToID:      tx.ToAccountID,
		Amount:    amount(tx.Amount),
		Timestamp: tx.CreatedAt.UTC(),
	}
}

func toDomainTransaction(r transactionRecord) domain.Transaction {
	return domain.Transaction{
		ID:            r.ID,
		FromAccountID: r.FromID,
		ToAccountID:   r.ToID,
		Amount:        decimal.Decimal(r.Amount),
		CreatedAt:     r.Timestamp,
	}
}

func encodeTransaction(tx domain.Transaction) ([]byte, error) {
	line, err := json.Marshal(toTransactionRecord(tx))
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction %s: %w", tx.ID, err)
	}
	return append(line, '\n'), nil
}
