package usecase

import (
	"encoding/json"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
)

// TransactionOutput é a forma pública de uma transação (HTTP e websocket).
// Amount sai como número JSON com 2 casas, ex: 250.00.
type TransactionOutput struct {
	ID        string      `json:"id"`
	FromID    string      `json:"fromId"`
	ToID      string      `json:"toId"`
	Amount    json.Number `json:"amount"`
	Timestamp string      `json:"timestamp"`
}

func ToTransactionOutput(tx domain.Transaction) TransactionOutput {
	return TransactionOutput{
		ID:        tx.ID,
		FromID:    tx.FromAccountID,
		ToID:      tx.ToAccountID,
		Amount:    json.Number(tx.Amount.StringFixed(domain.AmountScale)),
		Timestamp: tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toTransactionOutputs(txs []domain.Transaction) []TransactionOutput {
	out := make([]TransactionOutput, 0, len(txs))
	for _, tx := range txs {
		out = append(out, ToTransactionOutput(tx))
	}
	return out
}

// AccountOutput nunca carrega credencial nem token.
type AccountOutput struct {
	ID          string      `json:"id"`
	DisplayName string      `json:"displayName"`
	Balance     json.Number `json:"balance"`
	UpdatedAt   string      `json:"updatedAt"`
}

func toAccountOutput(a *domain.Account) AccountOutput {
	return AccountOutput{
		ID:          a.ID,
		DisplayName: a.DisplayName,
		Balance:     json.Number(a.Balance.StringFixed(domain.AmountScale)),
		UpdatedAt:   a.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

type NotificationOutput struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
