package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account representa um participante do ledger.
// Clean Architecture: Esta entidade não sabe o que é JSON nem SQL.
type Account struct {
	ID          string
	DisplayName string
	Balance     decimal.Decimal
	// Credential guarda o hash bcrypt da senha, nunca o texto puro.
	Credential string
	// TokenHash é o sha256 do token de sessão vigente. Vazio = sem sessão.
	TokenHash string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Métodos de domínio (Lógica pura)

// HasSufficientFunds valida se a conta pode pagar antes mesmo de tocar no storage
func (a *Account) HasSufficientFunds(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

func (a *Account) Debit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !a.HasSufficientFunds(amount) {
		return ErrInsufficientBalance
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

func (a *Account) Credit(amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	a.Balance = a.Balance.Add(amount)
}

// Clone devolve uma cópia independente, usada pelos stores para não vazar ponteiros internos.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
