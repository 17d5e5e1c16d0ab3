package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction é o registro imutável de uma transferência concluída.
type Transaction struct {
	ID            string
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	CreatedAt     time.Time
}

// Involves indica se a conta participa da transação (origem ou destino).
func (t *Transaction) Involves(accountID string) bool {
	return t.FromAccountID == accountID || t.ToAccountID == accountID
}

// Notification é uma mensagem efêmera por conta, mantida só em memória.
type Notification struct {
	AccountID string
	Message   string
	CreatedAt time.Time
}
